package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"market-scanner/internal/config"
	"market-scanner/internal/engine"
	"market-scanner/internal/models"
	"market-scanner/internal/notify"
	"market-scanner/internal/quotes"
)

// addRunCommands adds the live watch command.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	var (
		refreshInterval time.Duration
		noBell          bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live scanner",
		Long: `Connects to the live price feed, refreshes the scan documents
periodically, and prints alerts and badge updates as they happen.
Rule edits to rules.toml are picked up without restarting.

The feed API key is read from the SCANNER_FEED_KEY environment variable
(a .env file in the working directory is honored).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd, app, refreshInterval, noBell)
		},
	}
	cmd.Flags().DurationVar(&refreshInterval, "refresh", 5*time.Minute, "scan document refresh interval")
	cmd.Flags().BoolVar(&noBell, "no-bell", false, "disable the terminal bell")
	return cmd
}

func runLive(cmd *cobra.Command, app *App, refreshInterval time.Duration, noBell bool) error {
	output := NewOutput(cmd)

	// .env is optional; an absent file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Terminal notifications
	terminal := notify.NewTerminalNotifier(100)
	terminal.SetBellEnabled(!noBell)
	terminal.SetColorEnabled(app.Config.UI.ColorEnabled)
	terminal.AddHandler(notify.DefaultTerminalHandler(app.Config.UI.ColorEnabled))
	terminal.Start(ctx)
	announcer := notify.NewAnnouncer(terminal)

	if mn, ok := app.Notifier.(*notify.MultiNotifier); ok {
		mn.AddChannel(terminal)
	}

	// Live price feed
	if app.Config.Feed.URL != "" {
		feed := quotes.NewFeed(quotes.FeedConfig{
			URL:          app.Config.Feed.URL,
			APIKey:       os.Getenv("SCANNER_FEED_KEY"),
			PingInterval: app.Config.Feed.PingInterval,
		}, app.Cache, app.Logger)
		feed.Subscribe(app.Watchlist.Codes()...)
		go func() {
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				app.Logger.Error().Err(err).Msg("Feed stopped")
			}
		}()
	} else {
		output.Warning("No feed URL configured; running on documents only")
	}

	// Every price tick is just a recomputation trigger; the debounce window
	// collapses bursts into one pass.
	app.Cache.OnUpdate(func(models.LivePriceRecord) {
		app.Engine.Trigger()
	})

	// Rule edits take effect on the next pass.
	if err := config.WatchRules(app.ConfigDir, func(rules models.ScannerRules) {
		app.Logger.Info().Msg("Rules changed, reloading")
		app.Engine.SetRules(rules)
	}); err != nil {
		app.Logger.Warn().Err(err).Msg("Rules watcher unavailable")
	}

	// Periodic document refresh
	refreshDocuments(ctx, app)
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshDocuments(ctx, app)
			}
		}
	}()

	token, updates := app.Engine.Subscribe()
	defer app.Engine.Unsubscribe(token)

	printRunBanner(app)

	for {
		select {
		case <-ctx.Done():
			output.Println()
			output.Info("Shutting down")
			app.Engine.Close()
			return nil
		case counts, ok := <-updates:
			if !ok {
				return nil
			}
			app.handleUpdate(ctx, announcer, counts)
		}
	}
}

// handleUpdate reacts to one debounced engine update: announce alerts the
// user has not heard about yet, persist them to the alert log, and print the
// badge line.
func (app *App) handleUpdate(ctx context.Context, announcer *notify.Announcer, counts engine.BadgeCounts) {
	local := app.Engine.LocalAlerts()
	global := app.Engine.GlobalAlerts(false)

	app.logAlerts(ctx, "local", local.Pinned, local.Fresh)
	app.logAlerts(ctx, "global",
		global.Movers.Up, global.Movers.Down,
		global.Hilo.High, global.Hilo.Low)

	announcer.Announce(local.Pinned)
	announcer.Announce(local.Fresh)

	fmt.Println(color.New(color.Faint).Sprintf("  badges: %d total, %d custom", counts.Total, counts.Custom))
}

// logAlerts persists hits to the alert log, once per alert key.
func (app *App) logAlerts(ctx context.Context, scope string, sets ...[]models.Hit) {
	if app.Store == nil {
		return
	}
	for _, hits := range sets {
		for _, h := range hits {
			if app.loggedKeys == nil {
				app.loggedKeys = make(map[string]struct{})
			}
			key := scope + "|" + h.Key()
			if _, seen := app.loggedKeys[key]; seen {
				continue
			}
			app.loggedKeys[key] = struct{}{}

			entry := models.AlertLogEntry{
				ID:        uuid.NewString(),
				At:        h.Timestamp,
				Code:      h.Code,
				Intent:    h.Intent,
				Direction: h.Direction,
				Price:     h.Price,
				Change:    h.Change,
				Pct:       h.Pct,
				Scope:     scope,
			}
			if err := app.Store.LogAlert(ctx, entry); err != nil {
				app.Logger.Warn().Err(err).Str("code", h.Code).Msg("Failed to log alert")
			}
		}
	}
}

func printRunBanner(app *App) {
	header := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.Faint)
	header.Println("Market Scanner")
	dim.Printf("  watching %d shares, documents via %s\n",
		len(app.Watchlist.Codes()), app.Config.Documents.Source)
	dim.Println("  press Ctrl-C to stop")
}
