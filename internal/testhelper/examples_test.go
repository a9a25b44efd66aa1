package testhelper

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

// Structure mirrors examples.yml
type examplesFile struct {
	Queries []struct {
		ID          string `yaml:"id"`
		Description string `yaml:"description"`
		SQL         string `yaml:"sql"`
		Expected    struct {
			Kind  string          `yaml:"kind"`
			Count *int            `yaml:"count"`
			Cols  []string        `yaml:"cols"`
			Rows  [][]interface{} `yaml:"rows"`
			Error string          `yaml:"error"`
		} `yaml:"expected"`
	} `yaml:"queries"`
}

func TestExamplesYAML(t *testing.T) {
	b, err := os.ReadFile("examples.yml")
	if err != nil {
		t.Fatalf("failed to read examples.yml: %v", err)
	}
	var ex examplesFile
	if err := yaml.Unmarshal(b, &ex); err != nil {
		t.Fatalf("failed to parse examples.yml: %v", err)
	}
	if len(ex.Queries) == 0 {
		t.Fatal("examples.yml has no queries")
	}

	ctx := context.Background()
	st, err := store.Open(ctx, store.Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "examples.db"), Fresh: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	if err := st.MaterializeAll(ctx, LoadFixtures(t)); err != nil {
		t.Fatalf("materialize fixtures: %v", err)
	}

	for _, q := range ex.Queries {
		q := q
		t.Run(q.ID, func(t *testing.T) {
			out := query.Execute(ctx, st, q.SQL)
			if out.Kind.String() != q.Expected.Kind {
				t.Fatalf("kind: expected %s, got %s (%s)", q.Expected.Kind, out.Kind, out.Reason)
			}
			if q.Expected.Error != "" && !strings.Contains(out.Reason, q.Expected.Error) {
				t.Fatalf("error: expected %q in %q", q.Expected.Error, out.Reason)
			}
			if q.Expected.Cols != nil && !reflect.DeepEqual(q.Expected.Cols, out.Columns) {
				t.Fatalf("columns differ\nexpected: %v\ngot: %v", q.Expected.Cols, out.Columns)
			}
			if q.Expected.Count != nil && *q.Expected.Count != out.Count() {
				t.Fatalf("row count differs: expected %d, got %d", *q.Expected.Count, out.Count())
			}
			if q.Expected.Rows == nil {
				return
			}
			if len(q.Expected.Rows) != len(out.Rows) {
				t.Fatalf("row count differs: expected %d, got %d", len(q.Expected.Rows), len(out.Rows))
			}
			for i, expRow := range q.Expected.Rows {
				gotRow := out.Rows[i]
				if len(expRow) != len(gotRow) {
					t.Fatalf("row %d width: expected %d, got %d", i, len(expRow), len(gotRow))
				}
				for j, ev := range expRow {
					if !valueEqual(ev, gotRow[j]) {
						t.Fatalf("mismatch at row %d column %s: expected=%v (%T) got=%v (%T)",
							i, out.Columns[j], ev, ev, gotRow[j], gotRow[j])
					}
				}
			}
		})
	}
}

func valueEqual(a, b interface{}) bool {
	switch ea := a.(type) {
	case int:
		switch eb := b.(type) {
		case int64:
			return int64(ea) == eb
		case float64:
			return float64(ea) == eb
		}
	case float64:
		switch eb := b.(type) {
		case int64:
			return ea == float64(eb)
		case float64:
			return ea == eb
		}
	case string:
		s, ok := b.(string)
		return ok && ea == s
	}
	return reflect.DeepEqual(a, b)
}
