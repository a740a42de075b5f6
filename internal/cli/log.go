package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stormlightlabs/filehist/internal/db"
	"github.com/stormlightlabs/filehist/internal/shared"
)

var logLimit int

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <database> [namespace]",
		Short: "Show the version history for a namespace",
		Long: `Print rows from the namespace's version detail view: each version with
its commit timestamp, commit hash and, in diff mode, the columns that
changed. Run after at least one "filehist file" ingest.`,
		Example: `  filehist log trees.db
  filehist log trees.db orchards -l 50`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runLog,
	}
	cmd.Flags().IntVarP(&logLimit, "limit", "l", 20, "Maximum number of versions to show")
	return cmd
}

func runLog(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBArg(args[0])
	if err != nil {
		return err
	}
	namespace := cfg.Ingest.Namespace
	if len(args) > 1 {
		namespace = args[1]
	}

	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	view := namespace + "_version_detail"

	rows, err := store.DB().QueryxContext(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY _commit_at, _version LIMIT ?", db.Quote(view)),
		logLimit)
	if err != nil {
		return fmt.Errorf("namespace %q has no version history here (%w)", namespace, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	if cfg.Display.Width > 0 {
		t.SetAllowedRowLength(cfg.Display.Width)
	}
	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = shared.HeaderLabel(col)
	}
	t.AppendHeader(header)

	for rows.Next() {
		row := make(map[string]any, len(columns))
		if err := rows.MapScan(row); err != nil {
			return err
		}
		out := make(table.Row, len(columns))
		for i, col := range columns {
			out[i] = renderCell(col, row[col])
		}
		t.AppendRow(out)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func renderCell(column string, value any) string {
	if value == nil {
		return ""
	}
	s := fmt.Sprintf("%v", value)
	if column == "_commit_hash" || column == "_item_full_hash" {
		return shared.TruncateText(s, 10)
	}
	return shared.TruncateText(s, 40)
}
