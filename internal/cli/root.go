package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
)

// version is overridden at build time with -ldflags "-X ...cli.version=...".
var version = "0.1.0"

// Exit codes.
const (
	ExitSuccess         = 0
	ExitUnsuccessful    = 1
	ExitUsageError      = 2
	ExitAuthError       = 3
	ExitRuntimeError    = 4
	ExitVersionConflict = 5
)

// Global flags
var (
	flagConfig   string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "designsync",
	Short: "Keep pull requests and design documents in sync",
	Long: "designsync reviews GitHub pull requests against the Confluence design document they link " +
		"and folds meeting notes back into that document.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(meetingCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run executes the root command and returns an exit code.
func Run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode = ExitSuccess
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports err on stderr and records the matching exit code.
func fail(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", describe(err))
	exitCode = exitCodeFor(err)
}

// usageError reports err on stderr and records ExitUsageError.
func usageError(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", describe(err))
	exitCode = ExitUsageError
}

// describe appends field errors carried by a validation error.
func describe(err error) string {
	msg := err.Error()
	if e, ok := apperr.As(err); ok {
		if fields, ok := e.Details["errors"].([]string); ok && len(fields) > 0 {
			msg += " (" + strings.Join(fields, "; ") + ")"
		}
	}
	return msg
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case apperr.Is(err, apperr.CodeConfiguration):
		return ExitUsageError
	case apperr.Is(err, apperr.CodeUnauthorized):
		return ExitAuthError
	case apperr.Is(err, apperr.CodeVersionConflict):
		return ExitVersionConflict
	default:
		return ExitRuntimeError
	}
}

// loadConfig loads the effective config and installs a logger at the
// configured level in the command's context.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (context.Context, config.Config, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	overrides["logLevel"] = flagLogLevel

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, config.LoadOptions{Path: flagConfig, Overrides: overrides})
	if err != nil {
		return ctx, config.Config{}, err
	}
	return withLogger(ctx, cfg.LogLevel), cfg, nil
}

func withLogger(ctx context.Context, level string) context.Context {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return clog.WithLogger(ctx, clog.New(h))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print designsync version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "designsync version %s\n", version)
	},
}
