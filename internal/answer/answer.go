// Package answer checks the learner's deduction against the fixed solution.
package answer

// Solution is the expected answer and the field it belongs to.
type Solution struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// Check reports whether userText equals expected exactly. There is no
// trimming and no case folding: "southwest" does not match "Southwest".
func Check(userText, expected string) bool {
	return userText == expected
}

// Check compares userText against the solution value.
func (s Solution) Check(userText string) bool {
	return Check(userText, s.Value)
}
