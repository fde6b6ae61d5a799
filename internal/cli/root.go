package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/truthgraph/internal/config"
)

// RootOptions holds global flags and the resolved configuration shared by
// all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	Schema     string

	// Config is filled by the root command before any subcommand runs.
	// Commands built on their own fall back to the defaults.
	Config config.Config

	// Logger receives engine logs. Nil means a text handler on stderr.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the truthgraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "truthgraph",
		Short: "truthgraph - provenance-tracking contract knowledge engine",
		Long: `Store facts extracted from contract families, resolve defined terms and
effective values across amendments, track clause completeness, and answer
questions with a provenance chain back to source text.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd, v)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default $HOME/.truthgraph/config.yaml)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database")
	flags.StringVar(&opts.Schema, "schema", "", "slot schema file (.yaml or .cue)")

	_ = v.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	_ = v.BindPFlag(config.KeyFormat, flags.Lookup("format"))
	_ = v.BindPFlag(config.KeyDatabase, flags.Lookup("db"))
	_ = v.BindPFlag(config.KeySchema, flags.Lookup("schema"))

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewEffectiveCommand(opts))
	cmd.AddCommand(NewGapsCommand(opts))
	cmd.AddCommand(NewReachCommand(opts))
	cmd.AddCommand(NewInferCommand(opts))
	cmd.AddCommand(NewProvenanceCommand(opts))
	cmd.AddCommand(NewOpinionCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves the configuration through viper. Flags set on the command
// line win over environment, config file and defaults.
func (o *RootOptions) load(cmd *cobra.Command, v *viper.Viper) error {
	used, err := config.Init(v, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	c, err := config.Load(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if !isValidFormat(c.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", c.Format, ValidFormats))
	}
	o.Config = c
	o.Format = c.Format
	o.Verbose = c.Verbose
	o.Database = c.Database
	o.Schema = c.Schema

	if used != "" {
		o.logger(cmd.ErrOrStderr()).Debug("config loaded", "path", used)
	}
	return nil
}

// settings returns the effective configuration. Flags set directly on the
// options override it.
func (o *RootOptions) settings() config.Config {
	c := o.Config
	if c.MaxOpenConns == 0 {
		c = config.Default()
		c.Verbose = o.Verbose
		if o.Format != "" {
			c.Format = o.Format
		}
	}
	if o.Database != "" {
		c.Database = o.Database
	}
	if o.Schema != "" {
		c.Schema = o.Schema
	}
	return c
}

// logger returns the configured logger, creating a text handler on w at
// Info, or Debug when verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return o.Logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
