package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/SimonWaldherr/sqlmystery/internal/dataset"
)

// dialect hides the few statements that differ between the drivers.
type dialect interface {
	driverName() string
	quote(ident string) string
	columnType(t dataset.ColumnType) string
	listTables(ctx context.Context, db *sql.DB) ([]string, error)
	columns(ctx context.Context, db *sql.DB, table string) ([]ColumnInfo, error)
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// ==================== SQLite ====================

type sqliteDialect struct{}

func (sqliteDialect) driverName() string { return "sqlite" }

func (sqliteDialect) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Booleans are stored as INTEGER 0/1, as SQLite has no boolean class.
func (sqliteDialect) columnType(t dataset.ColumnType) string {
	switch t {
	case dataset.Integer, dataset.Boolean:
		return "INTEGER"
	case dataset.Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return scanStrings(ctx, db,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
}

func (d sqliteDialect) columns(ctx context.Context, db *sql.DB, table string) ([]ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+d.quote(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnInfo
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out = append(out, ColumnInfo{Name: name, Type: typ})
	}
	return out, rows.Err()
}

// ==================== MySQL ====================

type mysqlDialect struct{}

func (mysqlDialect) driverName() string { return "mysql" }

func (mysqlDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (mysqlDialect) columnType(t dataset.ColumnType) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Real:
		return "DOUBLE"
	case dataset.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (mysqlDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return scanStrings(ctx, db,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`)
}

func (mysqlDialect) columns(ctx context.Context, db *sql.DB, table string) ([]ColumnInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, column_type FROM information_schema.columns
		 WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, err
		}
		c.Type = strings.ToUpper(c.Type)
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
