package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"

	"github.com/stormlightlabs/filehist/internal/codec"
	"github.com/stormlightlabs/filehist/internal/db"
)

// Snapshot is one point-in-time copy of the tracked file.
type Snapshot struct {
	Hash        string
	CommittedAt time.Time
	Content     []byte
}

// Source supplies snapshots oldest first, skipping commits where the tracked
// file is absent and commits whose hash is in the exclude set.
type Source interface {
	Stream(ctx context.Context, exclude map[string]struct{}, fn func(Snapshot) error) error
}

// RecordParser converts one snapshot's raw bytes into a sequence of records.
type RecordParser func(content []byte) ([]map[string]any, error)

// Options configures one ingestion run.
type Options struct {
	Namespace          string
	IDColumns          []string
	IgnoreColumns      []string
	Parse              RecordParser
	FullVersions       bool
	IgnoreDuplicateIDs bool
	StartAt            string   // first commit hash to process
	StartAfter         string   // process only commits after this hash
	Skip               []string // commit hashes to exclude entirely
	StoreRaw           bool     // keep zstd-compressed snapshot content
}

// Stats reports what one run actually wrote.
type Stats struct {
	Commits     int // snapshots processed this run
	NewItems    int
	NewVersions int
}

// Run drives one ingestion pass: pull snapshots from the source in
// chronological order, parse each into records, and apply them through the
// tracker, one transaction per commit. Re-running against the same source is
// a no-op for everything already committed.
func Run(ctx context.Context, store *db.Store, source Source, opts Options) (*Stats, error) {
	if opts.Namespace == "" {
		opts.Namespace = "item"
	}
	if opts.Parse == nil {
		return nil, errors.New("a record parser is required")
	}
	if opts.StartAt != "" && opts.StartAfter != "" {
		return nil, errors.New("start-at and start-after are mutually exclusive")
	}

	reg := NewRegistry(store)
	namespaceID, err := reg.NamespaceID(ctx, opts.Namespace)
	if err != nil {
		return nil, err
	}

	exclude, err := reg.CommitHashes(ctx, namespaceID)
	if err != nil {
		return nil, err
	}
	for _, hash := range opts.Skip {
		exclude[hash] = struct{}{}
	}

	state, err := LoadRunState(ctx, store, opts.Namespace, namespaceID)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker(store, reg, TrackerConfig{
		Namespace:          opts.Namespace,
		NamespaceID:        namespaceID,
		IDColumns:          opts.IDColumns,
		FullVersions:       opts.FullVersions,
		IgnoreDuplicateIDs: opts.IgnoreDuplicateIDs,
	}, state)

	ignore := make(map[string]bool, len(opts.IgnoreColumns))
	for _, col := range opts.IgnoreColumns {
		ignore[col] = true
	}

	stats := &Stats{}
	started := opts.StartAt == "" && opts.StartAfter == ""

	err = source.Stream(ctx, exclude, func(snap Snapshot) error {
		if !started {
			switch snap.Hash {
			case opts.StartAt:
				started = true
			case opts.StartAfter:
				started = true
				return nil
			default:
				return nil
			}
		}

		stats.Commits++
		log.Debug("processing commit", "hash", snap.Hash, "at", snap.CommittedAt)
		if stats.Commits%25 == 0 {
			log.Info("ingest progress", "commits", stats.Commits)
		}

		if len(bytes.TrimSpace(snap.Content)) == 0 {
			// Record the commit so it is never revisited, write nothing else.
			return store.WithTx(ctx, func(tx *sqlx.Tx) error {
				_, err := reg.CommitID(ctx, tx, namespaceID, snap.Hash, snap.CommittedAt)
				return err
			})
		}

		records, err := opts.Parse(snap.Content)
		if err != nil {
			return fmt.Errorf("commit %s: parse: %w", snap.Hash, err)
		}
		if len(ignore) > 0 {
			records = stripColumns(records, ignore)
		}

		err = store.WithTx(ctx, func(tx *sqlx.Tx) error {
			commitID, err := reg.CommitID(ctx, tx, namespaceID, snap.Hash, snap.CommittedAt)
			if err != nil {
				return err
			}
			if opts.StoreRaw {
				if err := storeRawSnapshot(ctx, tx, commitID, snap.Content); err != nil {
					return err
				}
			}
			return tracker.IngestBatch(ctx, tx, commitID, records)
		})
		if err != nil {
			return fmt.Errorf("commit %s: %w", snap.Hash, err)
		}
		return nil
	})

	stats.NewItems = tracker.NewItems
	stats.NewVersions = tracker.NewVersions
	if err != nil {
		return stats, err
	}

	if len(opts.IDColumns) > 0 {
		if err := BuildViews(ctx, store, opts.Namespace, !opts.FullVersions); err != nil {
			return stats, err
		}
	}

	log.Info("ingest complete",
		"commits", stats.Commits, "items", stats.NewItems, "versions", stats.NewVersions)
	return stats, nil
}

func storeRawSnapshot(ctx context.Context, tx *sqlx.Tx, commitID int64, content []byte) error {
	compressed, err := codec.Compress(content)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO raw_snapshots (commit_id, content) VALUES (?, ?)`,
		commitID, compressed)
	return err
}

func stripColumns(records []map[string]any, ignore map[string]bool) []map[string]any {
	stripped := make([]map[string]any, len(records))
	for i, rec := range records {
		kept := make(map[string]any, len(rec))
		for k, v := range rec {
			if !ignore[k] {
				kept[k] = v
			}
		}
		stripped[i] = kept
	}
	return stripped
}
