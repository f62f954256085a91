package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/missionsim/internal/config"
	"github.com/roach88/missionsim/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Database   string

	// Config is resolved before any subcommand runs.
	Config *config.Config

	viper *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the missionsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "missionsim",
		Short: "missionsim - discrete-event mission simulation",
		Long: `Simulate activity plans against a mission model, store the results
and check them against executable scenarios.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.loadConfig(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./missionsim.yaml)")
	flags.StringVar(&opts.Database, "db", "", "results database path (overrides database.path)")
	_ = opts.viper.BindPFlag("database.path", flags.Lookup("db"))

	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewPlansCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// loadConfig resolves configuration and installs the default logger.
// Logs go to stderr so JSON output on stdout stays parseable.
func (opts *RootOptions) loadConfig(cmd *cobra.Command) error {
	if opts.viper == nil {
		opts.viper = viper.New()
	}
	cfg, err := config.Load(opts.viper, opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	opts.Config = cfg
	slog.SetDefault(cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose))
	return nil
}

// resolveConfig returns the resolved configuration, loading it on first use when
// a subcommand runs without the root command.
func (opts *RootOptions) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	if opts.Config == nil {
		if err := opts.loadConfig(cmd); err != nil {
			return nil, err
		}
		if opts.Database != "" {
			opts.Config.Database.Path = opts.Database
		}
	}
	return opts.Config, nil
}

// openStore opens the configured results database.
func (opts *RootOptions) openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := opts.resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// formatter builds the output formatter for a command.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
