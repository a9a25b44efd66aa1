// Package store owns the embedded relational store the learner queries.
//
// The default store is a single SQLite file (modernc.org/sqlite, pure Go).
// A MySQL server can stand in for classroom setups through the same API.
// Tables are materialized from datasets with drop-and-recreate semantics:
// after Materialize returns, the table holds exactly the given dataset.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/SimonWaldherr/sqlmystery/internal/dataset"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown store driver")

// maxParams bounds bind parameters per INSERT statement.
const maxParams = 999

// Options configures Open.
type Options struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string
	// DSN is the database file for sqlite, a go-sql-driver DSN for mysql.
	DSN string
	// Fresh deletes an existing sqlite file (and its journals) first.
	Fresh  bool
	Logger *zap.SugaredLogger
}

// ColumnInfo describes a materialized column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableInfo describes a materialized table.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
	Rows    int64        `json:"rows"`
}

// Store is an open embedded store.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *zap.SugaredLogger
}

// Open opens the store described by opts.
func Open(ctx context.Context, opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if opts.Fresh && d.driverName() == "sqlite" && isPlainFile(opts.DSN) {
		for _, p := range []string{opts.DSN, opts.DSN + "-journal", opts.DSN + "-wal", opts.DSN + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("remove old store %s: %w", p, err)
			}
		}
	}

	db, err := sql.Open(d.driverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if d.driverName() == "sqlite" {
		// one writer, one file
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store %s: %w", opts.DSN, err)
	}
	log.Infow("store opened", "driver", d.driverName(), "dsn", redact(opts.DSN))
	return &Store{db: db, dialect: d, log: log}, nil
}

func isPlainFile(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

// redact hides the password of user:pass@... DSNs.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	colon := strings.Index(dsn, ":")
	if at < 0 || colon < 0 || colon > at {
		return dsn
	}
	return dsn[:colon] + ":***" + dsn[at:]
}

// DB exposes the pool.
func (s *Store) DB() *sql.DB { return s.db }

// Conn acquires a dedicated connection; the caller must Close it.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) { return s.db.Conn(ctx) }

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// Materialize replaces the table named ds.Name with the schema and rows of
// ds. On SQLite the drop, create and inserts share one transaction, so a
// failure leaves the previous table untouched. MySQL commits DDL implicitly
// and gives no such guarantee.
func (s *Store) Materialize(ctx context.Context, ds *dataset.Dataset) error {
	if ds == nil || ds.Name == "" {
		return errors.New("materialize: dataset has no name")
	}
	if len(ds.Columns) == 0 {
		return fmt.Errorf("materialize %s: dataset has no columns", ds.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("materialize %s: begin: %w", ds.Name, err)
	}
	defer tx.Rollback()

	table := s.dialect.quote(ds.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("materialize %s: drop: %w", ds.Name, err)
	}
	if _, err := tx.ExecContext(ctx, s.createTableSQL(ds)); err != nil {
		return fmt.Errorf("materialize %s: create: %w", ds.Name, err)
	}

	perBatch := maxParams / len(ds.Columns)
	if perBatch < 1 {
		perBatch = 1
	}
	for start := 0; start < len(ds.Rows); start += perBatch {
		end := start + perBatch
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		stmt, args := s.insertSQL(ds, ds.Rows[start:end])
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("materialize %s: insert rows %d-%d: %w", ds.Name, start+1, end, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("materialize %s: commit: %w", ds.Name, err)
	}
	s.log.Infow("table materialized", "table", ds.Name, "columns", len(ds.Columns), "rows", len(ds.Rows))
	return nil
}

// MaterializeAll materializes the datasets in order.
func (s *Store) MaterializeAll(ctx context.Context, sets []*dataset.Dataset) error {
	for _, ds := range sets {
		if err := s.Materialize(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createTableSQL(ds *dataset.Dataset) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(s.dialect.quote(ds.Name))
	sb.WriteString(" (")
	for i, c := range ds.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.dialect.quote(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(s.dialect.columnType(c.Type))
	}
	sb.WriteString(")")
	return sb.String()
}

func (s *Store) insertSQL(ds *dataset.Dataset, rows [][]any) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(s.dialect.quote(ds.Name))
	sb.WriteString(" (")
	for i, c := range ds.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.dialect.quote(c.Name))
	}
	sb.WriteString(") VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ds.Columns)), ", ") + ")"
	args := make([]any, 0, len(rows)*len(ds.Columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
		args = append(args, row...)
	}
	return sb.String(), args
}

// Tables lists the tables in the store.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	names, err := s.dialect.listTables(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// RowCount counts the rows of table.
func (s *Store) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.quote(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// TableInfo returns the columns and row count of table.
func (s *Store) TableInfo(ctx context.Context, table string) (TableInfo, error) {
	cols, err := s.dialect.columns(ctx, s.db, table)
	if err != nil {
		return TableInfo{}, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(cols) == 0 {
		return TableInfo{}, fmt.Errorf("describe %s: no such table", table)
	}
	n, err := s.RowCount(ctx, table)
	if err != nil {
		return TableInfo{}, err
	}
	return TableInfo{Name: table, Columns: cols, Rows: n}, nil
}

// Schema describes every table, in name order.
func (s *Store) Schema(ctx context.Context) ([]TableInfo, error) {
	names, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TableInfo, 0, len(names))
	for _, n := range names {
		info, err := s.TableInfo(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
