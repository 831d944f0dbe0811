// Package cli provides the command-line interface for the scanner.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"market-scanner/internal/config"
	"market-scanner/internal/engine"
	"market-scanner/internal/logging"
	"market-scanner/internal/notify"
	"market-scanner/internal/quotes"
	"market-scanner/internal/scandocs"
	"market-scanner/internal/store"
	"market-scanner/internal/watchlist"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger
	Store     store.DataStore
	Cache     *quotes.Cache
	Watchlist *watchlist.Store
	Engine    *engine.Engine
	Docs      scandocs.Source
	Notifier  notify.Notifier

	loggedKeys map[string]struct{}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:    cfg,
		ConfigDir: config.DefaultConfigDir(),
		Logger:    logger,
		Notifier:  notify.NewNoOpNotifier(),
	}

	// Initialize SQLite store
	dbPath := config.DefaultConfigDir() + "/scanner.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// Live price cache plus watchlist
	app.Cache = quotes.NewCache()
	app.Watchlist = watchlist.NewStore(app.Store, logger)
	if app.Store != nil {
		if err := app.Watchlist.Load(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to load watchlist")
		}
	}

	// Alert engine over the cache and watchlist
	app.Engine = engine.New(engine.Config{
		UserID:         cfg.Engine.UserID,
		DebounceWindow: cfg.Engine.DebounceWindow,
	}, logger, app.Cache, app.Watchlist)
	app.Engine.SetRules(cfg.Rules)

	// Scan document source
	switch cfg.Documents.Source {
	case "http":
		src := scandocs.Source(scandocs.NewHTTPSource(cfg.Documents.BaseURL, cfg.Documents.Timeout))
		if app.Store != nil {
			src = scandocs.NewCachingSource(src, app.Store)
		}
		app.Docs = src
	default:
		if app.Store != nil {
			app.Docs = scandocs.NewStoreSource(app.Store)
		}
	}

	if cfg.Notifications.Enabled {
		app.Notifier = notify.NewMultiNotifier(cfg.Notifications)
	}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Market Scanner - live alert aggregation CLI",
		Long: `Market Scanner watches live prices and daily scan documents, filters them
through your rules, and presents deduplicated alert boards.

Alerts come from three places: your own watchlist (targets and movers),
the market-wide daily movers document, and the daily 52-week high/low
document. Every board is filtered, deduplicated and ordered the same way
on every run.

Use 'scanner help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/market-scanner)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addAlertCommands(rootCmd, app)
	addWatchlistCommands(rootCmd, app)
	addRulesCommands(rootCmd, app)
	addRunCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Market Scanner v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Engine Configuration")
	output.Printf("  User ID:         %s\n", cfg.Engine.UserID)
	output.Printf("  Debounce Window: %s\n", cfg.Engine.DebounceWindow)
	output.Printf("  Fetch Timeout:   %s\n", cfg.Engine.FetchTimeout)
	output.Println()

	output.Bold("Feed Configuration")
	output.Printf("  URL:             %s\n", cfg.Feed.URL)
	output.Printf("  Ping Interval:   %s\n", cfg.Feed.PingInterval)
	output.Println()

	output.Bold("Document Source")
	output.Printf("  Source:          %s\n", cfg.Documents.Source)
	output.Printf("  Base URL:        %s\n", cfg.Documents.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.Documents.Timeout)
	output.Println()

	output.Bold("Rules")
	output.Printf("  Up:              %.2f%% / $%.2f\n", cfg.Rules.Up.PercentThreshold, cfg.Rules.Up.DollarThreshold)
	output.Printf("  Down:            %.2f%% / $%.2f\n", cfg.Rules.Down.PercentThreshold, cfg.Rules.Down.DollarThreshold)
	output.Printf("  Min Price:       $%.2f\n", cfg.Rules.MinPrice)
	output.Printf("  Hilo Min Price:  $%.2f\n", cfg.Rules.HiloMinPrice)
	output.Printf("  Movers:          %v\n", cfg.Rules.MoversOn())
	output.Printf("  Hilo:            %v\n", cfg.Rules.HiloOn())
	output.Printf("  Personal:        %v\n", cfg.Rules.PersonalOn())
	output.Printf("  Override:        %v\n", cfg.Rules.OverrideOn())
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)

	return nil
}
