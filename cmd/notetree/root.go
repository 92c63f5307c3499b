package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dododo1295/notetree/client"
	"github.com/dododo1295/notetree/notecache"
	"github.com/dododo1295/notetree/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	configPath string
	serverFlag string
	tokenFlag  string

	cfg *cliConfig
)

var rootCmd = &cobra.Command{
	Use:           "notetree",
	Short:         "Browse and edit your notes from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			if err := utils.InitLogger("development"); err != nil {
				return err
			}
		}

		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		loaded.override(serverFlag, tokenFlag)
		cfg = loaded
		utils.Logger.Debug("config loaded", zap.String("server", cfg.Server), zap.String("path", configPath))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.SyncLogger()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides config and NOTETREE_TOKEN)")
}

func newClient() (*client.Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no token configured: set token in %s, NOTETREE_TOKEN or --token", configPath)
	}
	return client.New(cfg.Server, cfg.Token, client.WithUserAgent("notetree-cli/1.0")), nil
}

// openSession loads the owner's notes into a session whose save errors are
// logged.
func openSession(ctx context.Context) (*notecache.Session, error) {
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	return notecache.Open(ctx, c,
		notecache.WithDebounce(cfg.Debounce),
		notecache.WithErrorHandler(func(id string, err error) {
			utils.Logger.Warn("background save failed", zap.String("note_id", id), zap.Error(err))
		}),
	)
}

// closeSession flushes pending edits, bounded by cfg.Timeout.
func closeSession(s *notecache.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	return s.Close(ctx)
}

func commandContext() (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
