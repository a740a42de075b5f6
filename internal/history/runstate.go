package history

import (
	"context"
	"fmt"

	"github.com/stormlightlabs/filehist/internal/db"
)

// RunState carries the caches one ingestion run needs to avoid re-querying
// the store per record: each tracked item's highest version, last full-record
// hash and surrogate row id, plus the column-name-to-id registry cache. It is
// owned by a single run, never shared, and rebuilt from the durable store at
// run start so a restarted process picks up exactly where the last one
// committed.
type RunState struct {
	Versions  map[string]int64  // item digest -> highest version
	LastHash  map[string]string // item digest -> full record hash at that version
	ItemRows  map[string]int64  // item digest -> surrogate _id in the items table
	ColumnIDs map[string]int64  // column name -> columns registry id
}

// LoadRunState rebuilds run state by scanning the highest version per item.
// A database without the namespace's tables yields an empty state.
func LoadRunState(ctx context.Context, store *db.Store, namespace string, namespaceID int64) (*RunState, error) {
	state := &RunState{
		Versions:  make(map[string]int64),
		LastHash:  make(map[string]string),
		ItemRows:  make(map[string]int64),
		ColumnIDs: make(map[string]int64),
	}

	exists, err := db.TableExists(ctx, store.DB(), versionTable(namespace))
	if err != nil {
		return nil, err
	}
	if exists {
		// MAX(_version) with bare columns is SQLite's documented way to get
		// the rest of the row holding the maximum.
		query := fmt.Sprintf(
			`SELECT i.%s AS item_digest, i.%s AS row_id, MAX(v.%s) AS version, v.%s AS full_hash
			 FROM %s v JOIN %s i ON i.%s = v.%s
			 GROUP BY v.%s`,
			db.Quote(colItemID), db.Quote(colID), db.Quote(colVersion), db.Quote(colItemFullHash),
			db.Quote(versionTable(namespace)), db.Quote(namespace), db.Quote(colID), db.Quote(colItem),
			db.Quote(colItem),
		)
		rows, err := store.DB().QueryxContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("scan resume state: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var digest, fullHash string
			var rowID, version int64
			if err := rows.Scan(&digest, &rowID, &version, &fullHash); err != nil {
				return nil, err
			}
			state.Versions[digest] = version
			state.LastHash[digest] = fullHash
			state.ItemRows[digest] = rowID
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	cols, err := store.DB().QueryxContext(ctx,
		`SELECT name, id FROM columns WHERE namespace = ?`, namespaceID)
	if err != nil {
		return nil, err
	}
	defer cols.Close()

	for cols.Next() {
		var name string
		var id int64
		if err := cols.Scan(&name, &id); err != nil {
			return nil, err
		}
		state.ColumnIDs[name] = id
	}
	return state, cols.Err()
}
