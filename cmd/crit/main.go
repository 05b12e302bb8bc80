package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"critterbot/internal/catalog"
	"critterbot/internal/cli"
	"critterbot/internal/config"
	"critterbot/internal/db"
	"critterbot/internal/market"
	"critterbot/internal/player"
	"critterbot/internal/storage"
	"critterbot/internal/syncq"
)

const requestTimeout = 30 * time.Second

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:           "crit",
		Short:         "critterbot market console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newMarketCmd(&apiBase),
		newItemCmd(&apiBase),
		newOrdersCmd(&apiBase),
		newProfileCmd(&apiBase),
		newCatalogCmd(&apiBase),
		newHealthCmd(&apiBase),
		newUseCmd(),
		newBrowseCmd(&apiBase),
		newAdminCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		danger.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "market [page]",
		Short: "Show the market overview",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			page := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("page must be a positive number, got %q", args[0])
				}
				page = n - 1
			}
			out, err := cli.NewClient(*apiBase).Overview(ctx, page)
			if err != nil {
				return err
			}
			return renderOverview(out)
		},
	}
}

func newItemCmd(apiBase *string) *cobra.Command {
	var edition int64
	cmd := &cobra.Command{
		Use:   "item [type] [id]",
		Short: "Show pricing for one item",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			prefs, _ := cli.LoadPrefs()
			itemType, itemID := prefs.LastItemType, prefs.LastItemID
			switch len(args) {
			case 1:
				itemType, itemID = "critters", args[0]
			case 2:
				itemType, itemID = args[0], args[1]
			}
			if itemType == "" || itemID == "" {
				return errors.New("no item given and no previous item remembered")
			}

			out, err := cli.NewClient(*apiBase).ItemDetail(ctx, itemType, itemID, edition)
			if err != nil {
				return err
			}
			prefs.LastItemType, prefs.LastItemID = itemType, itemID
			if err := cli.SavePrefs(prefs); err != nil {
				printWarn("could not remember item: " + err.Error())
			}
			return renderItem(out)
		},
	}
	cmd.Flags().Int64Var(&edition, "edition", 0, "limit to one edition (0 = any)")
	return cmd
}

func newOrdersCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "orders [player] [page]",
		Short: "Show a player's open orders",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			playerID, err := argOrDefaultPlayer(args, 0)
			if err != nil {
				return err
			}
			page := 0
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("page must be a positive number, got %q", args[1])
				}
				page = n - 1
			}
			out, err := cli.NewClient(*apiBase).PlayerOrders(ctx, playerID, page)
			if err != nil {
				return err
			}
			return renderOrders(out, playerID)
		},
	}
}

func newProfileCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [player]",
		Short: "Show a player's profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			playerID, err := argOrDefaultPlayer(args, 0)
			if err != nil {
				return err
			}
			out, err := cli.NewClient(*apiBase).PlayerProfile(ctx, playerID)
			if err != nil {
				return err
			}
			return renderProfile(out)
		},
	}
}

func newCatalogCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List every item the bot can hand out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			out, err := cli.NewClient(*apiBase).Catalog(ctx)
			if err != nil {
				return err
			}
			return renderCatalog(out)
		},
	}
}

func newHealthCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			if err := cli.NewClient(*apiBase).Health(ctx); err != nil {
				return err
			}
			printSuccess("API is up.")
			return nil
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <player>",
		Short: "Remember a player id for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, _ := cli.LoadPrefs()
			prefs.PlayerID = args[0]
			if err := cli.SavePrefs(prefs); err != nil {
				return err
			}
			printSuccess("Default player set to " + args[0] + ".")
			return nil
		},
	}
}

func newAdminCmd(cfg config.CLIConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Maintenance commands that talk to the database directly",
	}
	cmd.AddCommand(
		newAdminSweepCmd(cfg),
		newAdminBucksCmd(cfg),
		newAdminGrantCmd(cfg),
		newAdminDailyCmd(cfg),
	)
	return cmd
}

func newAdminSweepCmd(cfg config.CLIConfig) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Drop expired listings with nothing left to claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			store, pool, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			snap, err := store.LoadSnapshot(ctx)
			if err != nil {
				return err
			}
			book := market.NewBook(snap, ttl)
			removed := book.Sweep()
			if removed == 0 {
				printInfo("Nothing to sweep.")
				return nil
			}
			if err := store.SaveSnapshot(ctx, book.Snapshot()); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Swept %d dead listings.", removed))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", market.DefaultListingTTL, "listing time to live")
	return cmd
}

func newAdminBucksCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "bucks <player> <delta>",
		Short: "Grant or take bucks from a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be a number, got %q", args[1])
			}
			store, pool, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := player.NewService(store, syncq.New(), adminLogger())
			if err := svc.AdjustBucks(ctx, args[0], delta); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Adjusted %s by %s bucks.", args[0], comma(delta)))
			return nil
		},
	}
}

func newAdminGrantCmd(cfg config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <player> <powerup> <amount>",
		Short: "Grant multiboost or extrachance powerups",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil || amount < 1 {
				return fmt.Errorf("amount must be a positive number, got %q", args[2])
			}
			store, pool, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := player.NewService(store, syncq.New(), adminLogger())
			if err := svc.GrantPowerup(ctx, args[0], args[1], amount); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Granted %d %s to %s.", amount, args[1], args[0]))
			return nil
		},
	}
}

func newAdminDailyCmd(cfg config.CLIConfig) *cobra.Command {
	var unlimited bool
	cmd := &cobra.Command{
		Use:   "daily <player>",
		Short: "Run a daily claim for a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			store, pool, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			cat, err := catalog.Load(os.Getenv("CRIT_CATALOG_PATH"))
			if err != nil {
				return err
			}
			daily := player.NewDailyService(store, cat, syncq.New(), player.DailyConfig{Unlimited: unlimited}, adminLogger())
			res, err := daily.Claim(ctx, args[0], uuid.NewString())
			if err != nil {
				if errors.Is(err, player.ErrDailyClaimed) {
					printWarn("Already claimed today.")
					return nil
				}
				return err
			}
			return renderDaily(args[0], cat, res)
		},
	}
	cmd.Flags().BoolVar(&unlimited, "unlimited", false, "skip the once-per-day gate")
	return cmd
}

func argOrDefaultPlayer(args []string, idx int) (string, error) {
	if len(args) > idx && args[idx] != "" {
		return args[idx], nil
	}
	prefs, _ := cli.LoadPrefs()
	if prefs.PlayerID == "" {
		return "", errors.New("no player given, set one with `crit use <player>`")
	}
	return prefs.PlayerID, nil
}

func openStore(ctx context.Context, cfg config.CLIConfig) (*storage.Store, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is not set")
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return storage.New(pool, adminLogger()), pool, nil
}

func adminLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
