package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclinic/kioskboard/internal/api"
	"github.com/openclinic/kioskboard/internal/config"
	"github.com/openclinic/kioskboard/internal/session"
	"github.com/openclinic/kioskboard/internal/sessionfile"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServer     string
	flagDataDir    string
	flagFixture    bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout bounds every backend request so a hung connection can
// never stall a kiosk cycle indefinitely.
const httpClientTimeout = 30 * time.Second

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kioskboard",
		Short:   "Unattended clinic kiosk dashboard",
		Long:    "An always-on clinic dashboard that keeps itself authenticated and its data current.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServer, "server", "", "backend origin URL")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory for session file and snapshot cache")
	cmd.PersistentFlags().BoolVar(&flagFixture, "fixture", false, "use the built-in offline data source")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON output where supported")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress status output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		newRunCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newNotesCmd(),
	)

	return cmd
}

// resolveConfig applies the flag and environment override chain.
func resolveConfig() (*config.Config, string, error) {
	return config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Server:     flagServer,
		Fixture:    flagFixture,
	})
}

// dataDir returns the directory holding the session file and snapshot cache.
func dataDir() string {
	if flagDataDir != "" {
		return flagDataDir
	}

	return config.DefaultDataDir()
}

// newLogger builds the process logger from the verbosity flags and the
// configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel maps a config string to a slog level.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildSessionManager wires the store, API client, and session manager.
// The manager both consumes the client (auth endpoints) and provides its
// bearer tokens, so the token source is installed after construction.
func buildSessionManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session.Manager, *api.Client) {
	store := sessionfile.NewStore(config.SessionPath(dataDir()))
	client := api.NewClient(cfg.Server, defaultHTTPClient(), nil, logger)
	mgr := session.NewManager(ctx, store, client, logger)
	client.SetTokenSource(mgr)

	return mgr, client
}

// printError writes a user-facing error line to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
