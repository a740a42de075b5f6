package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stormlightlabs/filehist/internal/db"
	"github.com/stormlightlabs/filehist/internal/gitsource"
	"github.com/stormlightlabs/filehist/internal/history"
	"github.com/stormlightlabs/filehist/internal/parse"
)

var (
	fileRepo         string
	fileBranch       string
	fileIDs          []string
	fileIgnore       []string
	fileNamespace    string
	fileFormat       string
	fileDialect      string
	fileFullVersions bool
	fileIgnoreDupes  bool
	fileStartAt      string
	fileStartAfter   string
	fileSkip         []string
	fileStoreRaw     bool
)

func newFileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file <database> <filepath>",
		Short: "Analyze the history of a specific file and write it to SQLite",
		Long: `Walk every commit touching the file on the given branch, oldest first,
parse each snapshot into records, and record item versions for the records
that changed. Safe to re-run: commits already in the database are skipped.`,
		Example: `  filehist file trees.db trees.csv --id TreeID --format csv
  filehist file incidents.db incidents.json --id id --repo ~/src/data
  filehist file incidents.db incidents.json --id id --full-versions`,
		Args: cobra.ExactArgs(2),
		RunE: runFile,
	}

	cmd.Flags().StringVar(&fileRepo, "repo", ".", "Path to git repo (if not current directory)")
	cmd.Flags().StringVarP(&fileBranch, "branch", "b", "", "Git branch to use (defaults from config, then main)")
	cmd.Flags().StringArrayVar(&fileIDs, "id", nil, "Columns (can be multiple) to use as record identity")
	cmd.Flags().StringArrayVar(&fileIgnore, "ignore", nil, "Columns to ignore")
	cmd.Flags().StringVarP(&fileNamespace, "namespace", "n", "", "Table namespace for tracked items (default item)")
	cmd.Flags().StringVarP(&fileFormat, "format", "f", "", "Snapshot format: json, yaml, csv or tsv (default json)")
	cmd.Flags().StringVar(&fileDialect, "dialect", parse.DialectAuto, "Delimiter for csv/tsv: auto, comma, tab or semicolon")
	cmd.Flags().BoolVar(&fileFullVersions, "full-versions", false, "Store the full record per version instead of changed columns")
	cmd.Flags().BoolVar(&fileIgnoreDupes, "ignore-duplicate-ids", false, "Keep going if the same identity occurs twice in one snapshot")
	cmd.Flags().StringVar(&fileStartAt, "start-at", "", "Start processing at this commit hash")
	cmd.Flags().StringVar(&fileStartAfter, "start-after", "", "Start processing after this commit hash")
	cmd.Flags().StringArrayVar(&fileSkip, "skip", nil, "Commit hashes to skip entirely")
	cmd.Flags().BoolVar(&fileStoreRaw, "store-raw", false, "Keep each snapshot's raw content, zstd-compressed")

	return cmd
}

func runFile(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBArg(args[0])
	if err != nil {
		return err
	}
	filePath := args[1]

	format := fileFormat
	if format == "" {
		format = cfg.Ingest.Format
	}
	parser, err := parse.ForFormat(format, fileDialect)
	if err != nil {
		return err
	}

	branch := fileBranch
	if branch == "" {
		branch = cfg.Ingest.Branch
	}
	source, err := gitsource.New(fileRepo, filePath, branch)
	if err != nil {
		return err
	}

	namespace := fileNamespace
	if namespace == "" {
		namespace = cfg.Ingest.Namespace
	}

	if err := db.EnsureDir(dbPath); err != nil {
		return err
	}
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	stats, err := history.Run(ctx, store, source, history.Options{
		Namespace:          namespace,
		IDColumns:          fileIDs,
		IgnoreColumns:      fileIgnore,
		Parse:              history.RecordParser(parser),
		FullVersions:       fileFullVersions,
		IgnoreDuplicateIDs: fileIgnoreDupes,
		StartAt:            fileStartAt,
		StartAfter:         fileStartAfter,
		Skip:               fileSkip,
		StoreRaw:           fileStoreRaw,
	})
	if err != nil {
		return err
	}

	if !quiet {
		p.PrintSuccess(fmt.Sprintf("Processed %d commits into %s (%d new items, %d new versions)",
			stats.Commits, p.FormatPath(dbPath), stats.NewItems, stats.NewVersions))
	}
	return nil
}
