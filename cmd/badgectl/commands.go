package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"promptvault/internal/badges"
	"promptvault/internal/database"
	"promptvault/internal/middleware"
	"promptvault/internal/models"
	"promptvault/internal/services"
)

// ===============================
// CATALOG
// ===============================

func (c *cli) catalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the badge catalog",
		Long: `Inspect the badge catalog. Without --file the catalog named by
BADGE_CATALOG_PATH is used, falling back to the bundled catalog.`,
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "", "catalog YAML file")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every badge with its tier and criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIER\tCRITERIA\tLEVELS\tNAME")
			for _, def := range catalog.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					def.ID, def.Tier, def.Criteria.Kind(), def.MaxLevel(), def.Name)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d badges\n", catalog.Len())
			return nil
		},
	})

	return cmd
}

func loadCatalog(file string) (*badges.Catalog, error) {
	if file == "" {
		file = os.Getenv("BADGE_CATALOG_PATH")
	}
	return badges.LoadCatalog(file)
}

// ===============================
// SCHEMA
// ===============================

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the activity store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate requires DATABASE_DRIVER=postgres, got %q", cfg.Database.Driver)
			}

			dbCfg := cfg.Database
			dbCfg.AutoMigrate = true
			manager, err := database.Connect(cmd.Context(), &dbCfg, logger)
			if err != nil {
				return err
			}
			defer manager.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// ===============================
// ENGINE
// ===============================

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Recompute and print a user's stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(sc *services.ServiceCollection) error {
				stats, err := sc.Aggregator.Compute(cmd.Context(), userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id>",
		Short: "Evaluate every badge for a user and record new awards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(sc *services.ServiceCollection) error {
				earned, err := sc.Badges.CheckUserBadges(cmd.Context(), userID)
				if len(earned) > 0 {
					if perr := printJSON(cmd.OutOrStdout(), earned); perr != nil {
						return perr
					}
				} else if err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no new badges")
				}
				return err
			})
		},
	}
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var (
		limit  int
		typ    string
		period string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the badge leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd.Context(), func(sc *services.ServiceCollection) error {
				entries, err := sc.Leaderboard.GetBadgeLeaderboard(cmd.Context(), services.LeaderboardQuery{
					Limit:  limit,
					Type:   models.LeaderboardType(typ),
					Period: models.LeaderboardPeriod(period),
				})
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tUSER\tNAME\tSCORE\tBADGES")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%d\n", e.Rank, e.UserID, e.DisplayName, e.Score, e.BadgeCount)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of entries (default from LEADERBOARD_DEFAULT_LIMIT)")
	cmd.Flags().StringVar(&typ, "type", "score", "score or count")
	cmd.Flags().StringVar(&period, "period", "all", "all, month or week")
	return cmd
}

func (c *cli) rankCmd() *cobra.Command {
	var (
		typ    string
		period string
	)

	cmd := &cobra.Command{
		Use:   "rank <user-id>",
		Short: "Print a user's leaderboard position and neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return c.withServices(cmd.Context(), func(sc *services.ServiceCollection) error {
				rank, found, err := sc.Leaderboard.GetUserRank(cmd.Context(), userID,
					models.LeaderboardType(typ), models.LeaderboardPeriod(period))
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(cmd.OutOrStdout(), "user %d is not ranked\n", userID)
					return nil
				}
				return printJSON(cmd.OutOrStdout(), rank)
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "score", "score or count")
	cmd.Flags().StringVar(&period, "period", "all", "all, month or week")
	return cmd
}

// ===============================
// AUTH
// ===============================

func (c *cli) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user with the configured JWT secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			cfg, logger, err := c.load()
			if err != nil {
				return err
			}

			token, err := middleware.NewAuthenticator(cfg.Auth, nil, logger).IssueToken(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
