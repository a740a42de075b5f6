package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Quote escapes an identifier for use in dynamically built SQL. Record field
// names become column names, so they cannot be bound as parameters.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Affinity maps a Go value to the SQLite column type used when the column
// holding it is first created.
func Affinity(value any) string {
	switch value.(type) {
	case int, int32, int64, bool:
		return "INTEGER"
	case float32, float64:
		return "FLOAT"
	case []byte:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var name string
	err := q.QueryRowxContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TableColumns returns the set of column names currently on a table.
func TableColumns(ctx context.Context, q sqlx.QueryerContext, table string) (map[string]bool, error) {
	rows, err := q.QueryxContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// EnsureColumns adds any columns present in record but missing from the
// table. Adding a column is non-destructive: existing rows read back NULL.
func EnsureColumns(ctx context.Context, tx *sqlx.Tx, table string, record map[string]any) error {
	existing, err := TableColumns(ctx, tx, table)
	if err != nil {
		return err
	}

	missing := make([]string, 0, len(record))
	for name := range record {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	for _, name := range missing {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			Quote(table), Quote(name), Affinity(record[name]))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s to %s: %w", name, table, err)
		}
	}
	return nil
}

// InsertRow inserts record into table with columns in sorted order and
// returns the new row's surrogate key. With replace set the insert uses
// INSERT OR REPLACE, keeping re-attempted writes idempotent.
func InsertRow(ctx context.Context, tx *sqlx.Tx, table string, record map[string]any, replace bool) (int64, error) {
	keys := sortedKeys(record)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = Quote(k)
		marks[i] = "?"
		args[i] = record[k]
	}

	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	stmt := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, Quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return res.LastInsertId()
}

// UpdateRow overwrites the given columns of the row matching keyColumn = key.
func UpdateRow(ctx context.Context, tx *sqlx.Tx, table, keyColumn string, key any, record map[string]any) error {
	if len(record) == 0 {
		return nil
	}
	keys := sortedKeys(record)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = Quote(k) + " = ?"
		args = append(args, record[k])
	}
	args = append(args, key)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		Quote(table), strings.Join(sets, ", "), Quote(keyColumn))
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// SelectRowMap returns the first row of a query as a column-to-value map, or
// sql.ErrNoRows when the query matches nothing. Dynamic value columns make a
// fixed destination struct impossible, hence sqlx's MapScan.
func SelectRowMap(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (map[string]any, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	row := make(map[string]any)
	if err := rows.MapScan(row); err != nil {
		return nil, err
	}
	return row, rows.Err()
}

func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
