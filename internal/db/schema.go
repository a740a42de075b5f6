package db

// Schema creates the fixed bookkeeping tables. Item and version tables are
// namespaced per tracked file and created on demand with dynamic value
// columns, so they are not part of this schema.
const Schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS namespaces (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS commits (
	id INTEGER PRIMARY KEY,
	namespace INTEGER NOT NULL REFERENCES namespaces(id),
	hash TEXT NOT NULL,
	commit_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_commits_namespace_hash
	ON commits(namespace, hash);

CREATE TABLE IF NOT EXISTS columns (
	id INTEGER PRIMARY KEY,
	namespace INTEGER NOT NULL REFERENCES namespaces(id),
	name TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_columns_namespace_name
	ON columns(namespace, name);

CREATE TABLE IF NOT EXISTS raw_snapshots (
	commit_id INTEGER PRIMARY KEY REFERENCES commits(id),
	content BLOB NOT NULL
);
`
