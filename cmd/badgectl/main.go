// Command badgectl inspects the badge catalog and operates the badge engine
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptvault/internal/app"
	"promptvault/internal/config"
	"promptvault/internal/logging"
	"promptvault/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by subcommands. Config and logger are loaded lazily so
// catalog commands work without a database.
type cli struct {
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "badgectl",
		Short: "Operate the PromptVault badge engine",
		Long: `badgectl manages the badge catalog, the activity store schema and
individual badge evaluations.

Configuration is read from the environment and .env files, the same way the
server reads it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		c.catalogCmd(),
		c.migrateCmd(),
		c.statsCmd(),
		c.checkCmd(),
		c.leaderboardCmd(),
		c.rankCmd(),
		c.tokenCmd(),
	)
	return root
}

func (c *cli) load() (*config.Config, *zap.Logger, error) {
	if c.cfg != nil {
		return c.cfg, c.logger, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	if c.verbose {
		logger, err = logging.New(cfg.Server.Environment, config.LoggingConfig{Level: cfg.Logging.Level, Format: "console"})
		if err != nil {
			return nil, nil, err
		}
	}

	c.cfg, c.logger = cfg, logger
	return cfg, logger, nil
}

// withServices runs fn against a fully wired engine and shuts it down afterwards.
// The event bus is started so awards made by fn are announced before exit.
func (c *cli) withServices(ctx context.Context, fn func(*services.ServiceCollection) error) error {
	cfg, logger, err := c.load()
	if err != nil {
		return err
	}

	sc, err := app.NewServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := sc.Start(ctx); err != nil {
		_ = sc.Shutdown(ctx)
		return err
	}

	runErr := fn(sc)
	if err := sc.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
