package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "evolve.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, expected string
	}{
		{"name", `"name"`},
		{"_version", `"_version"`},
		{`odd"name`, `"odd""name"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.expected {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.expected)
		}
	}
}

func TestAffinity(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"int64", int64(1), "INTEGER"},
		{"bool", true, "INTEGER"},
		{"float", 1.5, "FLOAT"},
		{"string", "x", "TEXT"},
		{"bytes", []byte("x"), "BLOB"},
		{"nil", nil, "TEXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Affinity(tt.value); got != tt.expected {
				t.Errorf("Affinity(%v) = %s, want %s", tt.value, got, tt.expected)
			}
		})
	}
}

func TestTableExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := TableExists(ctx, store.DB(), "commits")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("commits table should exist after schema init")
	}

	exists, err = TableExists(ctx, store.DB(), "no_such_table")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("missing table reported as existing")
	}
}

func TestEnsureColumnsAndInsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE things ("_id" INTEGER PRIMARY KEY)`); err != nil {
			return err
		}
		if err := EnsureColumns(ctx, tx, "things", map[string]any{"name": "Gin", "size": int64(1)}); err != nil {
			return err
		}
		// already-present columns are left alone
		if err := EnsureColumns(ctx, tx, "things", map[string]any{"name": "x", "extra": 1.5}); err != nil {
			return err
		}
		_, err := InsertRow(ctx, tx, "things", map[string]any{"name": "Gin", "size": int64(1), "extra": 2.5}, false)
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	cols, err := TableColumns(ctx, store.DB(), "things")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"_id", "name", "size", "extra"} {
		if !cols[want] {
			t.Errorf("column %s missing, have %v", want, cols)
		}
	}

	row, err := SelectRowMap(ctx, store.DB(), `SELECT "name", "size", "extra" FROM things`)
	if err != nil {
		t.Fatal(err)
	}
	if row["name"] != "Gin" || row["size"] != int64(1) || row["extra"] != 2.5 {
		t.Errorf("row = %v", row)
	}
}

func TestInsertRowReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`CREATE TABLE v ("_id" INTEGER PRIMARY KEY, "k" TEXT, "val" TEXT, UNIQUE ("k"))`); err != nil {
			return err
		}
		if _, err := InsertRow(ctx, tx, "v", map[string]any{"k": "a", "val": "first"}, true); err != nil {
			return err
		}
		_, err := InsertRow(ctx, tx, "v", map[string]any{"k": "a", "val": "second"}, true)
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	var n int
	if err := store.DB().Get(&n, `SELECT COUNT(*) FROM v`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows = %d, replace should keep one", n)
	}
	var val string
	if err := store.DB().Get(&val, `SELECT "val" FROM v`); err != nil {
		t.Fatal(err)
	}
	if val != "second" {
		t.Errorf("val = %q, want the replacement", val)
	}
}

func TestUpdateRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`CREATE TABLE u ("_id" INTEGER PRIMARY KEY, "name" TEXT, "size" INTEGER)`); err != nil {
			return err
		}
		id, err := InsertRow(ctx, tx, "u", map[string]any{"name": "Gin", "size": int64(1)}, false)
		if err != nil {
			return err
		}
		return UpdateRow(ctx, tx, "u", "_id", id, map[string]any{"name": "Tonic", "size": nil})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	row, err := SelectRowMap(ctx, store.DB(), `SELECT "name", "size" FROM u`)
	if err != nil {
		t.Fatal(err)
	}
	if row["name"] != "Tonic" || row["size"] != nil {
		t.Errorf("row = %v, want name Tonic and size null", row)
	}
}

func TestSelectRowMapNoRows(t *testing.T) {
	store := newTestStore(t)
	_, err := SelectRowMap(context.Background(), store.DB(),
		`SELECT * FROM commits WHERE hash = ?`, "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO namespaces (name) VALUES ('doomed')`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want the callback's error", err)
	}

	var n int
	if err := store.DB().Get(&n, `SELECT COUNT(*) FROM namespaces WHERE name = 'doomed'`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("rolled-back insert is visible")
	}
}
