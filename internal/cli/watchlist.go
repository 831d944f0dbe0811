package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"market-scanner/internal/models"
)

// addWatchlistCommands adds the watchlist management commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Watchlist management",
		Long:    "Manage the shares you watch: targets, mute flags and held units.",
	}

	cmd.AddCommand(newWatchlistListCmd(app))
	cmd.AddCommand(newWatchlistAddCmd(app))
	cmd.AddCommand(newWatchlistRemoveCmd(app))
	cmd.AddCommand(newWatchlistTargetCmd(app))
	cmd.AddCommand(newWatchlistMuteCmd(app, true))
	cmd.AddCommand(newWatchlistMuteCmd(app, false))
	cmd.AddCommand(newWatchlistUnitsCmd(app))
	cmd.AddCommand(newWatchlistImportCmd(app))
	cmd.AddCommand(newWatchlistExportCmd(app))

	rootCmd.AddCommand(cmd)
}

func newWatchlistListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List watched shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			shares := app.Watchlist.Shares()
			if output.IsJSON() {
				return output.JSON(shares)
			}
			if len(shares) == 0 {
				output.Dim("Watchlist is empty.")
				return nil
			}

			table := NewTable(output, "CODE", "NAME", "SECTOR", "TARGET", "UNITS", "MUTED")
			for _, share := range shares {
				muted := ""
				if share.Muted {
					muted = output.Yellow("muted")
				}
				units := ""
				if share.Units > 0 {
					units = strconv.FormatFloat(share.Units, 'f', -1, 64)
				}
				table.AddRow(
					output.BoldText(share.Code),
					share.Name,
					share.Sector,
					FormatTarget(share),
					units,
					muted,
				)
			}
			table.Render()
			return nil
		},
	}
}

func newWatchlistAddCmd(app *App) *cobra.Command {
	var name, sector string
	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add a share to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			share := models.Share{Code: args[0], Name: name, Sector: sector}
			if err := app.Watchlist.Add(cmd.Context(), share); err != nil {
				return err
			}
			app.Engine.Trigger()
			output.Success("Added %s", share.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&sector, "sector", "", "sector classification")
	return cmd
}

func newWatchlistRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <code>",
		Aliases: []string{"rm"},
		Short:   "Remove a share from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Watchlist.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.Engine.Trigger()
			output.Success("Removed %s", args[0])
			return nil
		},
	}
}

func newWatchlistTargetCmd(app *App) *cobra.Command {
	var (
		direction string
		kind      string
		clear     bool
	)
	cmd := &cobra.Command{
		Use:   "target <code> [price]",
		Short: "Set or clear a share's target price",
		Long: `Set a target price on a watched share. Crossing the target produces a
pinned alert that bypasses sector and price floors.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			code := args[0]

			if clear {
				if err := app.Watchlist.ClearTarget(cmd.Context(), code); err != nil {
					return err
				}
				app.Engine.Trigger()
				output.Success("Cleared target on %s", code)
				return nil
			}

			if len(args) < 2 {
				return fmt.Errorf("price required (or use --clear)")
			}
			price, err := strconv.ParseFloat(args[1], 64)
			if err != nil || price <= 0 {
				return fmt.Errorf("invalid price %q", args[1])
			}

			dir := models.TargetDirection(direction)
			if dir != models.TargetAbove && dir != models.TargetBelow {
				return fmt.Errorf("direction must be above or below")
			}
			var k models.TargetKind
			switch kind {
			case "buy":
				k = models.TargetBuy
			case "sell":
				k = models.TargetSell
			case "":
				// Derived from direction: watching for a dip means buying it.
				if dir == models.TargetBelow {
					k = models.TargetBuy
				} else {
					k = models.TargetSell
				}
			default:
				return fmt.Errorf("kind must be buy or sell")
			}

			if err := app.Watchlist.SetTarget(cmd.Context(), code, price, dir, k); err != nil {
				return err
			}
			app.Engine.Trigger()
			output.Success("Target on %s: %s %s (%s)", code, dir, FormatPrice(price), k)
			return nil
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "below", "trigger direction: above or below")
	cmd.Flags().StringVar(&kind, "kind", "", "target kind: buy or sell (default derived from direction)")
	cmd.Flags().BoolVar(&clear, "clear", false, "remove the target")
	return cmd
}

func newWatchlistMuteCmd(app *App, mute bool) *cobra.Command {
	use, short := "mute <code>", "Mute a share's alerts"
	if !mute {
		use, short = "unmute <code>", "Unmute a share's alerts"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Watchlist.SetMuted(cmd.Context(), args[0], mute); err != nil {
				return err
			}
			app.Engine.Trigger()
			if mute {
				output.Success("Muted %s", args[0])
			} else {
				output.Success("Unmuted %s", args[0])
			}
			return nil
		},
	}
}

func newWatchlistUnitsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "units <code> <units>",
		Short: "Record held units for a share",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			units, err := strconv.ParseFloat(args[1], 64)
			if err != nil || units < 0 {
				return fmt.Errorf("invalid units %q", args[1])
			}
			if err := app.Watchlist.SetUnits(cmd.Context(), args[0], units); err != nil {
				return err
			}
			output.Success("Set %s units to %s", args[0], args[1])
			return nil
		},
	}
}

func newWatchlistImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import shares from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			n, err := app.Watchlist.ImportYAML(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			app.Engine.Trigger()
			output.Success("Imported %d shares from %s", n, args[0])
			return nil
		},
	}
}

func newWatchlistExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export the watchlist to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Watchlist.ExportYAML(args[0]); err != nil {
				return err
			}
			output.Success("Exported %d shares to %s", len(app.Watchlist.Shares()), args[0])
			return nil
		},
	}
}
