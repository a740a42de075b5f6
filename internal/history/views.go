package history

import (
	"context"
	"fmt"

	"github.com/stormlightlabs/filehist/internal/db"
)

// BuildViews (re)creates the read-optimized joined view for a namespace:
// every version row annotated with its commit timestamp and hash, plus, in
// diff mode, a JSON array of the column names that changed in that version.
// Rebuilding replaces any previous definition.
func BuildViews(ctx context.Context, store *db.Store, namespace string, diffMode bool) error {
	exists, err := db.TableExists(ctx, store.DB(), versionTable(namespace))
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if _, err := store.DB().ExecContext(ctx,
		fmt.Sprintf("DROP VIEW IF EXISTS %s", db.Quote(detailView(namespace)))); err != nil {
		return err
	}

	changedSelect := ""
	if diffMode {
		changedSelect = fmt.Sprintf(`,
	(SELECT json_group_array(name) FROM columns WHERE id IN
		(SELECT "column" FROM %s WHERE "item_version" = v.%s)) AS %s`,
			db.Quote(changedTable(namespace)), db.Quote(colID), db.Quote("_changed_columns"))
	}

	stmt := fmt.Sprintf(`CREATE VIEW %s AS
SELECT commits.commit_at AS _commit_at, commits.hash AS _commit_hash, v.*%s
FROM %s v JOIN commits ON commits.id = v.%s`,
		db.Quote(detailView(namespace)), changedSelect,
		db.Quote(versionTable(namespace)), db.Quote(colCommit))

	if _, err := store.DB().ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("build view %s: %w", detailView(namespace), err)
	}
	return nil
}
