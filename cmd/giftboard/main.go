package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"giftboard/internal/auth"
	"giftboard/internal/capture"
	"giftboard/internal/cmdlog"
	"giftboard/internal/config"
	"giftboard/internal/jobs"
	"giftboard/internal/logging"
	"giftboard/internal/metrics"
	"giftboard/internal/store/history"
	"giftboard/internal/theme"
	"giftboard/internal/twitch"
)

var (
	cfgPath    string
	noShot     bool
	historyMax int
	showEvents bool
)

var rootCmd = &cobra.Command{
	Use:           "giftboard",
	Short:         "Rank Twitch sub gifters and render an overlay leaderboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		theme.PrintBanner()
		_ = cmd.Help()
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Save(cfgPath, config.Default()); err != nil {
			return err
		}
		abs, _ := filepath.Abs(cfgPath)
		theme.PrintBanner()
		fmt.Println("Config written to:", abs)
		return nil
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Obtain or refresh the user access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "auth", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			tok, err := newManager(cfg, db).AccessToken(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Access Token:", auth.Mask(tok))
			return nil
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the subscriber list and save it as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "fetch", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			_, err := newPipeline(cfg, db).Fetch(ctx)
			return err
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the leaderboard computed from the saved CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "rank", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			ranked, err := newPipeline(cfg, db).Rank()
			if err != nil {
				return err
			}
			for i, e := range ranked {
				fmt.Printf("%3d. %-6s %-25s tier=%s gifts=%d\n", i+1, e.Badge, e.UserName, e.Tier, e.GiftCount)
			}
			return nil
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the saved CSV to HTML and capture a screenshot",
	Long: "Render the saved CSV to HTML and capture a screenshot.\n\n" +
		"The leaderboard is recorded against the most recent run in history. " +
		"If the CSV was edited or copied in after the last fetch, that run's entries are replaced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "render", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			_, err := newPipeline(cfg, db).Render(ctx, "")
			return err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rank, render and capture in one go",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "run", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			_, err := newPipeline(cfg, db).Run(ctx)
			return err
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs, or token events with --events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd.Context(), "history", func(ctx context.Context, cfg config.Config, db *history.DB) error {
			if showEvents {
				return printEvents(ctx, os.Stdout, db, historyMax)
			}
			runs, err := db.ListRuns(ctx, historyMax)
			if err != nil {
				return err
			}
			for _, r := range runs {
				entries, err := db.Leaderboard(ctx, r.ID)
				if err != nil {
					return err
				}
				top := "-"
				if len(entries) > 0 {
					top = fmt.Sprintf("%s (%d)", entries[0].UserName, entries[0].GiftCount)
				}
				fmt.Printf("%s  %s  subs=%d  top=%s  id=%s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.Broadcaster, r.Subscribers, top, r.ID)
			}
			return nil
		})
	},
}

func printEvents(ctx context.Context, w io.Writer, db *history.DB, limit int) error {
	events, err := db.RecentEvents(ctx, "token_", limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %-12s %s\n", e.TS.Format("2006-01-02 15:04:05"), e.Type, e.Payload)
	}
	return nil
}

func newManager(cfg config.Config, db *history.DB) *auth.Manager {
	return auth.NewManager(cfg, auth.NewFileStore(cfg.Paths.Tokens)).WithEvents(db)
}

func newPipeline(cfg config.Config, db *history.DB) *jobs.Pipeline {
	p := &jobs.Pipeline{
		Config: cfg,
		Tokens: newManager(cfg, db),
		NewClient: func(token string) twitch.Client {
			return twitch.NewHTTPClient(cfg, token)
		},
		History: db,
		Out:     os.Stdout,
	}
	if !noShot {
		p.Capturer = capture.NewBrowser(cfg.Render)
	}
	return p
}

// withEnv loads config, opens the history db and runs f under cmdlog.
func withEnv(ctx context.Context, name string, f func(ctx context.Context, cfg config.Config, db *history.DB) error) error {
	return cmdlog.Run(name, func() error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w (run `giftboard init` first)", cfgPath, err)
		}
		metrics.StartServer(cfg.Metrics.Addr)
		if cfg.Twitch.ClientID == "" {
			fmt.Println("warning: missing CLIENT_ID; API calls will fail")
		}
		db, err := history.Open(cfg.Paths.DB)
		if err != nil {
			return fmt.Errorf("open history %s: %w", cfg.Paths.DB, err)
		}
		defer db.Close()
		return f(ctx, cfg, db)
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "./giftboard.yaml", "config path")
	renderCmd.Flags().BoolVar(&noShot, "no-screenshot", false, "skip the browser capture")
	runCmd.Flags().BoolVar(&noShot, "no-screenshot", false, "skip the browser capture")
	historyCmd.Flags().IntVar(&historyMax, "limit", 10, "runs or events to list")
	historyCmd.Flags().BoolVar(&showEvents, "events", false, "list recent token exchange events")
	rootCmd.AddCommand(initCmd, authCmd, fetchCmd, rankCmd, renderCmd, runCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
