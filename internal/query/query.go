// Package query runs learner-supplied SQL against the store and shapes the
// answer into an Outcome: a table, an explicit "no rows" result, or a
// failure with the store's reason. The text is passed to the store verbatim.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Kind tells the three outcomes apart.
type Kind int

const (
	// Table is a result with at least one row.
	Table Kind = iota
	// Empty is a successful execution that produced no rows.
	Empty
	// Failed means the store rejected the statement.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Table:
		return "table"
	case Empty:
		return "empty"
	default:
		return "failed"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "table":
		*k = Table
	case "empty":
		*k = Empty
	case "failed":
		*k = Failed
	default:
		return fmt.Errorf("unknown outcome kind %q", b)
	}
	return nil
}

// Outcome is the result of one execution. Only Table outcomes carry rows;
// only Failed outcomes carry a Reason.
type Outcome struct {
	Kind      Kind          `json:"kind"`
	Columns   []string      `json:"columns,omitempty"`
	Rows      [][]any       `json:"rows,omitempty"`
	Reason    string        `json:"error,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"duration"`
	RunID     string        `json:"run_id,omitempty"`
}

// Count is the number of rows held.
func (o Outcome) Count() int { return len(o.Rows) }

// Conner hands out a dedicated connection per run.
type Conner interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Execute runs text against db and returns all rows.
func Execute(ctx context.Context, db Conner, text string) Outcome {
	return execute(ctx, db, text, 0)
}

func failed(err error) Outcome {
	reason := err.Error()
	if reason == "" {
		reason = "query failed"
	}
	return Outcome{Kind: Failed, Reason: reason}
}

// execute keeps at most maxRows rows when maxRows > 0. The text runs in
// its own transaction: it is committed only when the whole text succeeded,
// so a failed run leaves the store as it was. The connection goes back to
// the pool on every path with no transaction open.
func execute(ctx context.Context, db Conner, text string, maxRows int) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("%v", r))
		}
		out.Duration = time.Since(start)
	}()

	conn, err := db.Conn(ctx)
	if err != nil {
		return failed(err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return failed(err)
	}
	// no-op once committed
	defer tx.Rollback()

	out = collect(ctx, tx, text, maxRows)
	if out.Kind == Failed {
		return out
	}
	if err := tx.Commit(); err != nil {
		return failed(err)
	}
	return out
}

func collect(ctx context.Context, tx *sql.Tx, text string, maxRows int) Outcome {
	rows, err := tx.QueryContext(ctx, text)
	if err != nil {
		return failed(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return failed(err)
	}

	var data [][]any
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(data) >= maxRows {
			truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return failed(err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return failed(err)
	}

	if len(data) == 0 {
		return Outcome{Kind: Empty, Columns: cols}
	}
	return Outcome{Kind: Table, Columns: cols, Rows: data, Truncated: truncated}
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
