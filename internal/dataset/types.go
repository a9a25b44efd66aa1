package dataset

import (
	"strconv"
	"strings"
)

// ============================================================================
// Type Inference - Detect column types from the parsed records
// ============================================================================

// inferColumnTypes votes on every non-null cell of each column. A column is
// INTEGER only if all its values are integers and none is missing (a missing
// value turns an integer column into REAL, as NaN does in a dataframe),
// REAL if all values are numeric, BOOLEAN if all are true/false with no
// missing value, and TEXT otherwise. An all-null column is REAL.
func inferColumnTypes(records [][]string, numCols int, nulls []string) []ColumnType {
	types := make([]ColumnType, numCols)

	for colIdx := 0; colIdx < numCols; colIdx++ {
		var ints, floats, bools, texts, missing int
		for _, rec := range records {
			if colIdx >= len(rec) || isNullValue(rec[colIdx], nulls) {
				missing++
				continue
			}
			switch detectValueType(rec[colIdx]) {
			case Integer:
				ints++
			case Real:
				floats++
			case Boolean:
				bools++
			default:
				texts++
			}
		}
		types[colIdx] = determineColumnType(ints, floats, bools, texts, missing)
	}
	return types
}

func determineColumnType(ints, floats, bools, texts, missing int) ColumnType {
	switch {
	case texts > 0:
		return Text
	case bools > 0 && (ints > 0 || floats > 0):
		return Text
	case bools > 0 && missing > 0:
		// booleans with holes stay as objects in a dataframe
		return Text
	case bools > 0:
		return Boolean
	case floats > 0:
		return Real
	case ints > 0 && missing > 0:
		return Real
	case ints > 0:
		return Integer
	default:
		return Real
	}
}

// detectValueType returns the most specific type of a single non-null value.
func detectValueType(val string) ColumnType {
	switch val {
	case "True", "False", "TRUE", "FALSE", "true", "false":
		return Boolean
	}
	if isInteger(val) {
		return Integer
	}
	if isDecimal(val) {
		return Real
	}
	return Text
}

func isInteger(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	_, err := strconv.ParseInt(t, 10, 64)
	return err == nil
}

// isDecimal accepts plain and exponent notation; strconv alone would also
// take hex floats, underscores and "Inf".
func isDecimal(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	for _, r := range t {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	_, err := strconv.ParseFloat(t, 64)
	return err == nil
}

func isNullValue(val string, nulls []string) bool {
	for _, n := range nulls {
		if val == n {
			return true
		}
	}
	return false
}

// convertValue converts a non-null cell to the Go value for its column type.
// Cells that do not parse fall back to their text.
func convertValue(val string, typ ColumnType) any {
	t := strings.TrimSpace(val)
	switch typ {
	case Integer:
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			return v
		}
	case Real:
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			return v
		}
	case Boolean:
		return strings.EqualFold(t, "true")
	}
	return val
}
