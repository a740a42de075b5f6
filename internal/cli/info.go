package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stormlightlabs/filehist/internal/db"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <database>",
		Short: "Show namespaces and row counts for a database",
		Example: `  filehist info trees.db
  filehist info default`,
		Args: cobra.ExactArgs(1),
		RunE: runInfo,
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBArg(args[0])
	if err != nil {
		return err
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	rows, err := store.DB().QueryxContext(ctx, `SELECT id, name FROM namespaces ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type nsInfo struct {
		id   int64
		name string
	}
	var namespaces []nsInfo
	for rows.Next() {
		var ns nsInfo
		if err := rows.Scan(&ns.id, &ns.name); err != nil {
			return err
		}
		namespaces = append(namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(namespaces) == 0 {
		p.PrintListItem("Database", p.FormatPath(dbPath))
		p.PrintListItem("Namespaces", "none")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Namespace", "Commits", "Items", "Versions"})

	for _, ns := range namespaces {
		var commits int64
		if err := store.DB().QueryRowxContext(ctx,
			`SELECT COUNT(*) FROM commits WHERE namespace = ?`, ns.id).Scan(&commits); err != nil {
			return err
		}
		items, err := countIfExists(ctx, store, ns.name)
		if err != nil {
			return err
		}
		versions, err := countIfExists(ctx, store, ns.name+"_version")
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{ns.name, commits, items, versions})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func countIfExists(ctx context.Context, store *db.Store, tableName string) (int64, error) {
	exists, err := db.TableExists(ctx, store.DB(), tableName)
	if err != nil || !exists {
		return 0, err
	}
	var count int64
	err = store.DB().QueryRowxContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", db.Quote(tableName))).Scan(&count)
	return count, err
}
