package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stormlightlabs/filehist/internal/codec"
	"github.com/stormlightlabs/filehist/internal/db"
)

func newRawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <database> <commit-hash>",
		Short: "Print a stored raw snapshot",
		Long: `Print the raw file content stored for a commit by an ingest run with
--store-raw. The hash may be abbreviated to any unique prefix.`,
		Example: `  filehist file trees.db trees.csv --id TreeID --format csv --store-raw
  filehist raw trees.db 4c35dba`,
		Args: cobra.ExactArgs(2),
		RunE: runRaw,
	}
}

func runRaw(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBArg(args[0])
	if err != nil {
		return err
	}
	hashPrefix := args[1]

	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var compressed []byte
	err = store.DB().QueryRowxContext(cmd.Context(),
		`SELECT raw_snapshots.content FROM raw_snapshots
		 JOIN commits ON commits.id = raw_snapshots.commit_id
		 WHERE commits.hash LIKE ? || '%'`,
		hashPrefix).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no raw snapshot stored for commit %s (ingest with --store-raw)", hashPrefix)
	}
	if err != nil {
		return err
	}

	content, err := codec.Decompress(compressed)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(content)
	return err
}
