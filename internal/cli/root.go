package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/stormlightlabs/filehist/internal/config"
)

var (
	cfg     *config.Config
	verbose bool
	quiet   bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "filehist",
	Short: "Analyze the git history of a file and write it to SQLite",
	Long: `Filehist turns the git history of one structured data file into a
normalized, queryable SQLite database: every logical record gets a stable
identity, every observed change becomes an immutable version, and only the
columns that actually changed are stored per version.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || (cfg.Display.ColorOutput != nil && !*cfg.Display.ColorOutput) {
			p.Styles = &Styles{}
		}
		switch {
		case verbose:
			log.SetLevel(log.DebugLevel)
		case quiet:
			log.SetLevel(log.ErrorLevel)
		default:
			log.SetLevel(log.WarnLevel)
		}
	},
}

// Execute adds all child commands to the root command and runs it with a
// signal-aware context, so an interrupt leaves the database at the last
// fully committed revision.
func Execute() error {
	loadConfig()
	rootCmd.AddCommand(
		newFileCommand(),
		newInfoCommand(),
		newLogCommand(),
		newRawCommand(),
		newConfigCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// resolveDBArg maps the positional database argument to a path: "default"
// goes through the config, anything else is taken as given.
func resolveDBArg(arg string) (string, error) {
	if arg == "" || arg == "default" {
		return config.ResolveDatabasePath("default")
	}
	return arg, nil
}
