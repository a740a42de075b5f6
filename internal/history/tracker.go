package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"

	"github.com/stormlightlabs/filehist/internal/db"
	"github.com/stormlightlabs/filehist/internal/shared"
)

// Bookkeeping columns on the namespaced item and version tables.
const (
	colID           = "_id"
	colItem         = "_item"
	colItemID       = "_item_id"
	colItemFullHash = "_item_full_hash"
	colVersion      = "_version"
	colCommit       = "_commit"
)

func versionTable(namespace string) string { return namespace + "_version" }
func changedTable(namespace string) string { return namespace + "_changed" }
func detailView(namespace string) string   { return namespace + "_version_detail" }

// TrackerConfig selects how records are tracked within one namespace.
type TrackerConfig struct {
	Namespace          string
	NamespaceID        int64
	IDColumns          []string // as declared; resolved names are derived
	FullVersions       bool     // store the full record per version instead of diffs
	IgnoreDuplicateIDs bool     // drop later duplicates instead of failing the commit
}

// Tracker is the item and version state machine. For each record in a
// commit's batch it resolves identity, detects change against the item's
// last known full hash, and appends a version row holding either the full
// record or just the changed columns. The item row always carries the
// latest full snapshot, which doubles as the "previous record" for the next
// diff.
type Tracker struct {
	store *db.Store
	reg   *Registry
	cfg   TrackerConfig
	state *RunState

	rawIDColumns []string
	idColumns    []string // after reserved-name resolution

	tablesReady bool

	// run counters, reported by the driver when ingestion finishes
	NewItems    int
	NewVersions int
}

func NewTracker(store *db.Store, reg *Registry, cfg TrackerConfig, state *RunState) *Tracker {
	return &Tracker{
		store:        store,
		reg:          reg,
		cfg:          cfg,
		state:        state,
		rawIDColumns: cfg.IDColumns,
		idColumns:    FixColumnNames(cfg.IDColumns),
	}
}

// IngestBatch applies one commit's parsed records. The caller supplies the
// transaction; every write for the commit happens inside it.
func (t *Tracker) IngestBatch(ctx context.Context, tx *sqlx.Tx, commitID int64, records []map[string]any) error {
	if len(t.idColumns) == 0 {
		return t.appendPlainRows(ctx, tx, commitID, records)
	}

	if bad := t.missingIDRecords(records); len(bad) > 0 {
		return fmt.Errorf("every record must have the identity columns %v; %d did not, for example: %s",
			t.rawIDColumns, len(bad), previewRecords(bad))
	}

	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if err := CheckBanned(rec, t.rawIDColumns); err != nil {
			return err
		}
		normalized := NormalizeRecord(FixReservedColumns(rec))
		itemDigest := IdentityDigest(normalized, t.idColumns)

		if seen[itemDigest] {
			if !t.cfg.IgnoreDuplicateIDs {
				return fmt.Errorf("multiple records share the same identity %s: %s",
					itemDigest, previewRecords(t.collectDuplicates(records, itemDigest)))
			}
			log.Debug("dropping duplicate identity", "item", itemDigest)
			continue
		}
		seen[itemDigest] = true

		fullHash := Digest(normalized)
		if t.state.LastHash[itemDigest] == fullHash {
			// unchanged since last sighting, the common case
			continue
		}
		if err := t.recordChange(ctx, tx, commitID, itemDigest, fullHash, normalized); err != nil {
			return err
		}
	}
	return nil
}

// recordChange assigns the next version number, upserts the item snapshot,
// and appends the version row plus its changed-column entries.
func (t *Tracker) recordChange(ctx context.Context, tx *sqlx.Tx, commitID int64, itemDigest, fullHash string, record map[string]any) error {
	if err := t.ensureTables(ctx, tx); err != nil {
		return err
	}
	if err := db.EnsureColumns(ctx, tx, t.cfg.Namespace, record); err != nil {
		return err
	}

	version := t.state.Versions[itemDigest] + 1

	rowID, tracked := t.state.ItemRows[itemDigest]
	var prev map[string]any
	if tracked {
		row, err := db.SelectRowMap(ctx, tx,
			fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", db.Quote(t.cfg.Namespace), db.Quote(colID)),
			rowID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("internal inconsistency: item %s has versions but no item row", itemDigest)
		}
		if err != nil {
			return err
		}
		prev = dataColumns(row)
	}

	// Snapshot holds every field of the new record, with nulls for fields
	// the previous version had but this one dropped.
	snapshot := make(map[string]any, len(record)+len(prev))
	for k, v := range record {
		snapshot[k] = v
	}
	for k := range prev {
		if _, ok := snapshot[k]; !ok {
			snapshot[k] = nil
		}
	}

	if tracked {
		update := make(map[string]any, len(snapshot)+1)
		for k, v := range snapshot {
			update[k] = v
		}
		update[colCommit] = commitID
		if err := db.UpdateRow(ctx, tx, t.cfg.Namespace, colID, rowID, update); err != nil {
			return err
		}
	} else {
		insert := make(map[string]any, len(snapshot)+2)
		for k, v := range snapshot {
			insert[k] = v
		}
		insert[colItemID] = itemDigest
		insert[colCommit] = commitID
		var err error
		rowID, err = db.InsertRow(ctx, tx, t.cfg.Namespace, insert, false)
		if err != nil {
			return err
		}
		t.NewItems++
	}

	var changed []string
	if version == 1 {
		for k := range record {
			changed = append(changed, k)
		}
	} else {
		changed = diffColumns(prev, record)
		if !t.cfg.FullVersions && len(changed) == 0 {
			return fmt.Errorf("internal inconsistency: item %s hash changed at version %d but no columns differ",
				itemDigest, version)
		}
	}

	body := record
	if !t.cfg.FullVersions && version > 1 {
		body = make(map[string]any, len(changed))
		for _, name := range changed {
			body[name] = snapshot[name]
		}
	}

	versionRow := make(map[string]any, len(body)+4)
	for k, v := range body {
		versionRow[k] = v
	}
	versionRow[colItem] = rowID
	versionRow[colVersion] = version
	versionRow[colCommit] = commitID
	versionRow[colItemFullHash] = fullHash

	if err := db.EnsureColumns(ctx, tx, versionTable(t.cfg.Namespace), versionRow); err != nil {
		return err
	}
	versionID, err := db.InsertRow(ctx, tx, versionTable(t.cfg.Namespace), versionRow, true)
	if err != nil {
		return err
	}
	t.NewVersions++

	if !t.cfg.FullVersions {
		if err := t.recordChangedColumns(ctx, tx, versionID, changed); err != nil {
			return err
		}
	}

	t.state.Versions[itemDigest] = version
	t.state.LastHash[itemDigest] = fullHash
	t.state.ItemRows[itemDigest] = rowID
	return nil
}

func (t *Tracker) recordChangedColumns(ctx context.Context, tx *sqlx.Tx, versionID int64, changed []string) error {
	stmt := fmt.Sprintf(`INSERT OR REPLACE INTO %s ("item_version", "column") VALUES (?, ?)`,
		db.Quote(changedTable(t.cfg.Namespace)))
	for _, name := range changed {
		columnID, ok := t.state.ColumnIDs[name]
		if !ok {
			var err error
			columnID, err = t.reg.ColumnID(ctx, tx, t.cfg.NamespaceID, name)
			if err != nil {
				return err
			}
			t.state.ColumnIDs[name] = columnID
		}
		if _, err := tx.ExecContext(ctx, stmt, versionID, columnID); err != nil {
			return err
		}
	}
	return nil
}

// appendPlainRows is the degenerate mode without identity columns: every
// record of every commit lands as an independent row tagged with its commit.
func (t *Tracker) appendPlainRows(ctx context.Context, tx *sqlx.Tx, commitID int64, records []map[string]any) error {
	for _, rec := range records {
		if err := CheckBanned(rec, nil); err != nil {
			return err
		}
		normalized := NormalizeRecord(FixReservedColumns(rec))

		if !t.tablesReady {
			stmt := fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS %s (%s INTEGER REFERENCES commits(id))",
				db.Quote(t.cfg.Namespace), db.Quote(colCommit))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			t.tablesReady = true
		}
		if err := db.EnsureColumns(ctx, tx, t.cfg.Namespace, normalized); err != nil {
			return err
		}

		row := make(map[string]any, len(normalized)+1)
		for k, v := range normalized {
			row[k] = v
		}
		row[colCommit] = commitID
		if _, err := db.InsertRow(ctx, tx, t.cfg.Namespace, row, false); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) ensureTables(ctx context.Context, tx *sqlx.Tx) error {
	if t.tablesReady {
		return nil
	}
	ns := t.cfg.Namespace
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY, %s TEXT, %s INTEGER)",
			db.Quote(ns), db.Quote(colID), db.Quote(colItemID), db.Quote(colCommit)),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
			db.Quote("idx_"+ns+"__item_id"), db.Quote(ns), db.Quote(colItemID)),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY, %s INTEGER REFERENCES %s(%s), %s INTEGER, %s INTEGER REFERENCES commits(id), %s TEXT)",
			db.Quote(versionTable(ns)), db.Quote(colID), db.Quote(colItem), db.Quote(ns), db.Quote(colID),
			db.Quote(colVersion), db.Quote(colCommit), db.Quote(colItemFullHash)),
		// replay performance depends on this index
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			db.Quote("idx_"+versionTable(ns)+"__item"), db.Quote(versionTable(ns)), db.Quote(colItem)),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s, %s)",
			db.Quote("idx_"+versionTable(ns)+"__item__version"), db.Quote(versionTable(ns)), db.Quote(colItem), db.Quote(colVersion)),
	}
	if !t.cfg.FullVersions {
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("item_version" INTEGER NOT NULL REFERENCES %s(%s), "column" INTEGER NOT NULL REFERENCES columns(id), PRIMARY KEY ("item_version", "column"))`,
				db.Quote(changedTable(ns)), db.Quote(versionTable(ns)), db.Quote(colID)))
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	t.tablesReady = true
	return nil
}

func (t *Tracker) missingIDRecords(records []map[string]any) []map[string]any {
	var bad []map[string]any
	for _, rec := range records {
		for _, col := range t.rawIDColumns {
			if _, ok := rec[col]; !ok {
				bad = append(bad, rec)
				break
			}
		}
	}
	return bad
}

func (t *Tracker) collectDuplicates(records []map[string]any, itemDigest string) []map[string]any {
	var dupes []map[string]any
	for _, rec := range records {
		normalized := NormalizeRecord(FixReservedColumns(rec))
		if IdentityDigest(normalized, t.idColumns) == itemDigest {
			dupes = append(dupes, rec)
		}
	}
	return dupes
}

// dataColumns strips bookkeeping columns from an item row, leaving the
// record's own fields.
func dataColumns(row map[string]any) map[string]any {
	data := make(map[string]any, len(row))
	for k, v := range row {
		switch k {
		case colID, colItemID, colCommit:
		default:
			data[k] = v
		}
	}
	return data
}

// diffColumns returns the symmetric set of fields whose value differs
// between the previous and new record, including fields added or removed.
func diffColumns(prev, next map[string]any) []string {
	names := make(map[string]bool, len(prev)+len(next))
	for k := range prev {
		names[k] = true
	}
	for k := range next {
		names[k] = true
	}

	var changed []string
	for name := range names {
		if CanonicalString(prev[name]) != CanonicalString(next[name]) {
			changed = append(changed, name)
		}
	}
	return changed
}

func previewRecords(records []map[string]any) string {
	if len(records) > 5 {
		records = records[:5]
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Sprintf("%v", records)
	}
	return shared.TruncateText(string(data), 500)
}
