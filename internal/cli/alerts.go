package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"market-scanner/internal/engine"
	"market-scanner/internal/models"
	"market-scanner/internal/scandocs"
	"market-scanner/internal/store"
)

// addAlertCommands adds the alert board commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Alert boards and badge counts",
		Long:  "Compute and display the local and global alert boards from the latest documents and live prices.",
	}

	cmd.AddCommand(newAlertsLocalCmd(app))
	cmd.AddCommand(newAlertsGlobalCmd(app))
	cmd.AddCommand(newAlertsBadgesCmd(app))
	cmd.AddCommand(newAlertsViewCmd(app))
	cmd.AddCommand(newAlertsLogCmd(app))

	rootCmd.AddCommand(cmd)
}

// refreshDocuments runs one document fetch pass and installs the result on
// the engine. Without a configured source the engine keeps whatever documents
// it already has, which at startup means empty ones.
func refreshDocuments(ctx context.Context, app *App) {
	if app.Docs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, app.Config.Engine.FetchTimeout)
	defer cancel()
	docs := scandocs.FetchAll(ctx, app.Docs, app.Logger)
	app.Engine.SetDocuments(docs.Custom, docs.Movers, docs.Hilo)
}

func newAlertsLocalCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Show your personal alert board",
		Long:  "Pinned target alerts plus the fresh filtered alerts for your watchlist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			refreshDocuments(cmd.Context(), app)

			result := app.Engine.LocalAlerts()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"pinned": result.Pinned,
					"fresh":  result.Fresh,
				})
			}

			if len(result.Pinned) == 0 && len(result.Fresh) == 0 {
				output.Dim("No alerts.")
				return nil
			}

			if len(result.Pinned) > 0 {
				output.Bold("Pinned")
				renderHits(output, result.Pinned)
				output.Println()
			}
			if len(result.Fresh) > 0 {
				output.Bold("Alerts")
				renderHits(output, result.Fresh)
			}
			return nil
		},
	}
}

func newAlertsGlobalCmd(app *App) *cobra.Command {
	var bypassStrict bool
	cmd := &cobra.Command{
		Use:   "global",
		Short: "Show the market-wide alert board",
		Long:  "Daily movers split by direction plus the 52-week high/low bands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			refreshDocuments(cmd.Context(), app)

			result := app.Engine.GlobalAlerts(bypassStrict)
			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Bold("Movers Up (%d)", len(result.Movers.Up))
			renderHits(output, result.Movers.Up)
			output.Println()
			output.Bold("Movers Down (%d)", len(result.Movers.Down))
			renderHits(output, result.Movers.Down)
			output.Println()
			output.Bold("52-Week Highs (%d)", len(result.Hilo.High))
			renderHits(output, result.Hilo.High)
			output.Println()
			output.Bold("52-Week Lows (%d)", len(result.Hilo.Low))
			renderHits(output, result.Hilo.Low)
			return nil
		},
	}
	cmd.Flags().BoolVar(&bypassStrict, "bypass-strict", false, "include movers even with no thresholds configured")
	return cmd
}

func newAlertsBadgesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "Show badge counts",
		Long:  "Counts of alerts newer than your last view, deduplicated by code.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			refreshDocuments(cmd.Context(), app)

			counts := app.Engine.BadgeCounts()
			if output.IsJSON() {
				return output.JSON(counts)
			}
			output.Printf("Total:  %d\n", counts.Total)
			output.Printf("Custom: %d\n", counts.Custom)
			return nil
		},
	}
}

func newAlertsViewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "view <total|custom>",
		Short: "Mark an alert scope as viewed",
		Long:  "Advances the scope's last-viewed mark so its badge resets to zero.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			scope, err := parseScope(args[0])
			if err != nil {
				return err
			}
			app.Engine.MarkViewed(scope)
			if output.IsJSON() {
				return output.JSON(map[string]string{"viewed": args[0]})
			}
			output.Success("Marked %s as viewed", args[0])
			return nil
		},
	}
}

func newAlertsLogCmd(app *App) *cobra.Command {
	var (
		code  string
		scope string
		since time.Duration
		limit int
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the persisted alert log",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("alert log requires the data store")
			}

			filter := store.AlertLogFilter{
				Code:  code,
				Scope: scope,
				Limit: limit,
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			entries, err := app.Store.GetAlertLog(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("No logged alerts.")
				return nil
			}

			table := NewTable(output, "TIME", "CODE", "INTENT", "DIR", "PRICE", "MOVE", "SCOPE")
			for _, e := range entries {
				table.AddRow(
					FormatDateTime(e.At),
					e.Code,
					FormatIntent(e.Intent),
					FormatDirection(e.Direction),
					FormatPrice(e.Price),
					fmt.Sprintf("%s (%s)", output.FormatMove(e.Change), output.FormatPercent(e.Pct)),
					e.Scope,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "filter by instrument code")
	cmd.Flags().StringVar(&scope, "scope", "", "filter by scope (local or global)")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}

func parseScope(s string) (engine.ViewScope, error) {
	switch s {
	case "total":
		return engine.ScopeTotal, nil
	case "custom":
		return engine.ScopeCustom, nil
	default:
		return "", fmt.Errorf("unknown scope %q (use total or custom)", s)
	}
}

func renderHits(output *Output, hits []models.Hit) {
	if len(hits) == 0 {
		output.Dim("  (none)")
		return
	}
	table := NewTable(output, "CODE", "INTENT", "DIR", "PRICE", "MOVE", "MATCHES", "TIME")
	for _, h := range hits {
		matches := ""
		if len(h.Matches) > 1 {
			matches = fmt.Sprintf("%d", len(h.Matches))
		}
		table.AddRow(
			output.BoldText(h.Code),
			FormatIntent(h.Intent),
			FormatDirection(h.Direction),
			FormatPrice(h.Price),
			fmt.Sprintf("%s (%s)", output.FormatMove(h.Change), output.FormatPercent(h.Pct)),
			matches,
			FormatTime(h.Timestamp),
		)
	}
	table.Render()
}
