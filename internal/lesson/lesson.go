// Package lesson describes the mystery page declaratively: intro copy,
// images, the ordered query steps and the answer checkpoint. The page is
// rendered from this data, so a new lesson needs no code.
package lesson

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/sqlmystery/internal/answer"
)

//go:embed default.yml
var defaultYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid lesson")

// Image is a static asset shown on the page.
type Image struct {
	Src     string `yaml:"src"`
	Caption string `yaml:"caption"`
	Width   int    `yaml:"width"`
}

// Section is a block of instructional copy.
type Section struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
	Image   *Image `yaml:"image"`
}

// Step is one editable query box with its run button.
type Step struct {
	ID      string `yaml:"id"`
	Heading string `yaml:"heading"`
	Prompt  string `yaml:"prompt"`
	Query   string `yaml:"query"`
	Label   string `yaml:"label"`
}

// Checkpoint is the answer box shown after the step named After.
type Checkpoint struct {
	After       string          `yaml:"after"`
	Heading     string          `yaml:"heading"`
	Prompt      string          `yaml:"prompt"`
	CheckLabel  string          `yaml:"check_label"`
	RevealLabel string          `yaml:"reveal_label"`
	Solution    answer.Solution `yaml:"solution"`
}

// Messages are the fixed texts used to render outcomes.
type Messages struct {
	NoRows      string `yaml:"no_rows"`
	ErrorPrefix string `yaml:"error_prefix"`
	Correct     string `yaml:"correct"`
	Incorrect   string `yaml:"incorrect"`
	Reveal      string `yaml:"reveal"`
}

// Lesson is a whole page.
type Lesson struct {
	PageTitle      string     `yaml:"page_title"`
	Title          string     `yaml:"title"`
	Hero           *Image     `yaml:"hero"`
	Intro          []Section  `yaml:"intro"`
	QueriesHeading string     `yaml:"queries_heading"`
	Steps          []Step     `yaml:"steps"`
	Checkpoint     Checkpoint `yaml:"checkpoint"`
	Messages       Messages   `yaml:"messages"`
}

// Default returns the built-in "Case of the Sorted Crimes" lesson.
func Default() *Lesson {
	l, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in lesson: %v", err))
	}
	return l
}

// Load reads a lesson file; an empty path yields Default.
func Load(path string) (*Lesson, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lesson: %w", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lesson %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML lesson.
func Parse(data []byte) (*Lesson, error) {
	var l Lesson
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	l.applyDefaults()
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Lesson) applyDefaults() {
	m := &l.Messages
	if m.NoRows == "" {
		m.NoRows = "No results found. Check your query and try again."
	}
	if m.ErrorPrefix == "" {
		m.ErrorPrefix = "An error occurred: "
	}
	if m.Correct == "" {
		m.Correct = "Correct! Your input matches the solution."
	}
	if m.Incorrect == "" {
		m.Incorrect = "Incorrect! Your input does not match the solution."
	}
	if m.Reveal == "" {
		m.Reveal = "The correct solution is:"
	}
	if l.PageTitle == "" {
		l.PageTitle = l.Title
	}
	if l.Checkpoint.CheckLabel == "" {
		l.Checkpoint.CheckLabel = "Check Answer"
	}
	if l.Checkpoint.RevealLabel == "" {
		l.Checkpoint.RevealLabel = "Show Solution"
	}
}

// Validate checks step ids, labels and the checkpoint anchor.
func (l *Lesson) Validate() error {
	if len(l.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}
	seen := make(map[string]bool, len(l.Steps))
	for i, s := range l.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: step %d has no id", ErrInvalid, i+1)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		if s.Label == "" {
			return fmt.Errorf("%w: step %q has no label", ErrInvalid, s.ID)
		}
	}
	if a := l.Checkpoint.After; a != "" && !seen[a] {
		return fmt.Errorf("%w: checkpoint follows unknown step %q", ErrInvalid, a)
	}
	if l.Checkpoint.After != "" && l.Checkpoint.Solution.Value == "" {
		return fmt.Errorf("%w: checkpoint without solution", ErrInvalid)
	}
	return nil
}

// Step returns the step with the given id.
func (l *Lesson) Step(id string) (Step, bool) {
	for _, s := range l.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// HasCheckpoint reports whether the lesson asks for an answer.
func (l *Lesson) HasCheckpoint() bool { return l.Checkpoint.After != "" }
