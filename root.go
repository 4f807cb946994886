package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/folderbridge/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags holds the persistent flag values shared by every subcommand.
type CLIFlags struct {
	ConfigPath string
	GrantDB    string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext carries the resolved configuration, flags, and logger from the
// root pre-run phase to subcommands via the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext stored in ctx, or nil.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// mustCLIContext returns the CLIContext stored in ctx. A missing context is
// a programming error: every command runs after PersistentPreRunE.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("cli context not initialized")
	}

	return cc
}

// skipConfigCommands lists commands that must work even when the config
// file is broken, because they exist to create or repair it.
var skipConfigCommands = map[string]bool{
	"folderbridge config init": true,
	"folderbridge config set":  true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:   "folderbridge",
		Short: "List granted folders",
		Long: `List the contents of folders the user has granted access to, sorted
by name or modification date. Folders live on local disk or S3 and are
addressed by a fragment of their granted root URI.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc := &CLIContext{Flags: *flags}

			if !skipConfigCommands[cmd.CommandPath()] {
				resolved, err := loadConfig(cmd, *flags)
				if err != nil {
					return err
				}

				cc.Cfg = resolved
			}

			cc.Logger = buildLogger(cc.Cfg, cc.Flags)
			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.GrantDB, "grant-db", "", "grant database path")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(newGrantCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// flagLogLevel maps --verbose and --quiet to a log_level value, or "" when
// neither is set.
func flagLogLevel(flags CLIFlags) string {
	switch {
	case flags.Verbose:
		return "debug"
	case flags.Quiet:
		return "error"
	default:
		return ""
	}
}

// loadConfig resolves the effective configuration from the four-layer
// override chain.
func loadConfig(cmd *cobra.Command, flags CLIFlags) (*config.Resolved, error) {
	cli := config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
	}

	// Only pass --grant-db if the user explicitly set it.
	if cmd.Flags().Changed("grant-db") {
		cli.GrantDB = &flags.GrantDB
	}

	if level := flagLogLevel(flags); level != "" {
		cli.LogLevel = &level
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return resolved, nil
}

// configPath returns the config file path a command should write to,
// honoring --config and FOLDERBRIDGE_CONFIG.
func configPath(flags CLIFlags) string {
	if flags.ConfigPath != "" {
		return flags.ConfigPath
	}

	if env := config.ReadEnvOverrides().ConfigPath; env != "" {
		return env
	}

	return config.DefaultConfigPath()
}

// buildLogger creates an slog.Logger writing to stderr, configured by the
// resolved config and CLI flags.
func buildLogger(cfg *config.Resolved, flags CLIFlags) *slog.Logger {
	return newLogger(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), cfg, flags)
}

// newLogger builds the logger. Config-file log level provides the
// baseline; --verbose and --quiet override it because CLI flags always win.
// log_format "auto" picks text on a terminal and JSON otherwise.
func newLogger(w io.Writer, tty bool, cfg *config.Resolved, flags CLIFlags) *slog.Logger {
	level := slog.LevelInfo
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !tty) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
