package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/worm/internal/worm"
)

// RootOptions holds global flags for all commands.
// Format and Mode are resolved from flags, environment and config file
// before any subcommand runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Mode       string // "strict" | "lenient"
	ConfigFile string

	config *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the worm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{config: viper.New()}

	cmd := &cobra.Command{
		Use:   "worm",
		Short: "worm - write-once, read-many record fields",
		Long: `Run and validate WORM scenarios.

A scenario seeds a record, guards some of its fields, and checks that the
first write to each guarded field sticks while later writes are refused.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Mode, "mode", "strict", "default strictness for scenarios that do not set one (strict|lenient)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./worm.yaml if present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// resolve layers flags over WORM_* environment variables over the config
// file, validates the result, and configures the default logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if err := loadConfig(o.config, cmd.Flags(), o.ConfigFile); err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	o.Format = o.config.GetString("format")
	o.Mode = o.config.GetString("mode")
	o.Verbose = o.config.GetBool("verbose")

	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}
	if _, ok := worm.ParseMode(o.Mode); !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q: must be strict or lenient", o.Mode))
	}

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	slog.Debug("config resolved",
		"format", o.Format,
		"mode", o.Mode,
		"config_file", o.config.ConfigFileUsed(),
	)
	return nil
}

// configFileUsed returns the absolute path of the config file that was read,
// or "" when none was.
func (o *RootOptions) configFileUsed() string {
	if o.config == nil || o.config.ConfigFileUsed() == "" {
		return ""
	}
	return absPath(o.config.ConfigFileUsed())
}

// wormMode returns the resolved default strictness.
func (o *RootOptions) wormMode() worm.Mode {
	m, _ := worm.ParseMode(o.Mode)
	return m
}
