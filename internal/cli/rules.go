package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"market-scanner/internal/config"
	"market-scanner/internal/models"
)

// addRulesCommands adds the scanner rules commands.
func addRulesCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Scanner rules management",
		Long: `View and edit the rules that filter alerts: movement thresholds, price
floors, sector filters and category toggles. Edits are written back to
rules.toml and picked up on the next recomputation.`,
	}

	cmd.AddCommand(newRulesShowCmd(app))
	cmd.AddCommand(newRulesSetCmd(app))
	cmd.AddCommand(newRulesSectorsCmd(app))
	cmd.AddCommand(newRulesToggleCmd(app))

	rootCmd.AddCommand(cmd)
}

// saveRules persists an edited rule set, installs it on the engine and
// snapshots it in the data store for history.
func saveRules(app *App, cmd *cobra.Command, rules models.ScannerRules) error {
	if err := config.SaveRules(app.ConfigDir, rules); err != nil {
		return fmt.Errorf("saving rules: %w", err)
	}
	app.Engine.SetRules(rules)
	if app.Store != nil {
		if err := app.Store.SaveRulesSnapshot(cmd.Context(), rules); err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to snapshot rules")
		}
	}
	return nil
}

func newRulesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rules := app.Engine.Rules()
			if output.IsJSON() {
				return output.JSON(rules)
			}

			output.Bold("Thresholds")
			output.Printf("  Up:   %.2f%% / $%.2f\n", rules.Up.PercentThreshold, rules.Up.DollarThreshold)
			output.Printf("  Down: %.2f%% / $%.2f\n", rules.Down.PercentThreshold, rules.Down.DollarThreshold)
			output.Println()

			output.Bold("Price Floors")
			output.Printf("  Movers: $%.2f\n", rules.MinPrice)
			output.Printf("  Hilo:   $%.2f\n", rules.HiloMinPrice)
			output.Println()

			output.Bold("Toggles")
			output.Printf("  Movers:   %v\n", rules.MoversOn())
			output.Printf("  Hilo:     %v\n", rules.HiloOn())
			output.Printf("  Personal: %v\n", rules.PersonalOn())
			output.Printf("  Override: %v\n", rules.OverrideOn())
			output.Println()

			output.Bold("Sectors")
			if rules.ActiveFilters == nil {
				output.Printf("  Allowed: all\n")
			} else if len(rules.ActiveFilters) == 0 {
				output.Printf("  Allowed: %s\n", output.Red("none"))
			} else {
				output.Printf("  Allowed: %s\n", strings.Join(rules.ActiveFilters, ", "))
			}
			if len(rules.HiddenSectors) > 0 {
				output.Printf("  Hidden:  %s\n", strings.Join(rules.HiddenSectors, ", "))
			}
			return nil
		},
	}
}

func newRulesSetCmd(app *App) *cobra.Command {
	var (
		upPercent, upDollar     float64
		downPercent, downDollar float64
		minPrice, hiloMinPrice  float64
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set thresholds and price floors",
		Long: `Set movement thresholds and price floors. Only flags you pass are
changed; a threshold of 0 disables that check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rules := app.Engine.Rules()

			changed := false
			set := func(flag string, dst *float64, v float64) error {
				if !cmd.Flags().Changed(flag) {
					return nil
				}
				if v < 0 {
					return fmt.Errorf("%s must be non-negative", flag)
				}
				*dst = v
				changed = true
				return nil
			}

			if err := set("up-percent", &rules.Up.PercentThreshold, upPercent); err != nil {
				return err
			}
			if err := set("up-dollar", &rules.Up.DollarThreshold, upDollar); err != nil {
				return err
			}
			if err := set("down-percent", &rules.Down.PercentThreshold, downPercent); err != nil {
				return err
			}
			if err := set("down-dollar", &rules.Down.DollarThreshold, downDollar); err != nil {
				return err
			}
			if err := set("min-price", &rules.MinPrice, minPrice); err != nil {
				return err
			}
			if err := set("hilo-min-price", &rules.HiloMinPrice, hiloMinPrice); err != nil {
				return err
			}

			if !changed {
				return fmt.Errorf("nothing to set; pass at least one flag")
			}
			if err := saveRules(app, cmd, rules); err != nil {
				return err
			}
			output.Success("Rules updated")
			return nil
		},
	}
	cmd.Flags().Float64Var(&upPercent, "up-percent", 0, "upward percent threshold")
	cmd.Flags().Float64Var(&upDollar, "up-dollar", 0, "upward dollar threshold")
	cmd.Flags().Float64Var(&downPercent, "down-percent", 0, "downward percent threshold")
	cmd.Flags().Float64Var(&downDollar, "down-dollar", 0, "downward dollar threshold")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "minimum live price for mover alerts")
	cmd.Flags().Float64Var(&hiloMinPrice, "hilo-min-price", 0, "minimum live price for 52-week alerts")
	return cmd
}

func newRulesSectorsCmd(app *App) *cobra.Command {
	var (
		allow    []string
		allowAll bool
		hide     []string
		unhide   []string
	)
	cmd := &cobra.Command{
		Use:   "sectors",
		Short: "Edit sector filters",
		Long: `Edit the sector whitelist and the hidden-sector list. --allow replaces
the whitelist; --allow with no sectors blocks everything, --allow-all
removes the whitelist entirely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rules := app.Engine.Rules()

			changed := false
			if allowAll {
				rules.ActiveFilters = nil
				changed = true
			} else if cmd.Flags().Changed("allow") {
				// An explicit empty list is a real state: block everything.
				rules.ActiveFilters = normalizeSectors(allow)
				changed = true
			}

			if len(hide) > 0 {
				for _, s := range normalizeSectors(hide) {
					if !rules.SectorHidden(s) {
						rules.HiddenSectors = append(rules.HiddenSectors, s)
					}
				}
				changed = true
			}
			if len(unhide) > 0 {
				remove := normalizeSectors(unhide)
				kept := rules.HiddenSectors[:0]
				for _, s := range rules.HiddenSectors {
					drop := false
					for _, r := range remove {
						if strings.EqualFold(s, r) {
							drop = true
							break
						}
					}
					if !drop {
						kept = append(kept, s)
					}
				}
				rules.HiddenSectors = kept
				changed = true
			}

			if !changed {
				return fmt.Errorf("nothing to change; pass --allow, --allow-all, --hide or --unhide")
			}
			if err := saveRules(app, cmd, rules); err != nil {
				return err
			}
			output.Success("Sector filters updated")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "replace the sector whitelist")
	cmd.Flags().BoolVar(&allowAll, "allow-all", false, "remove the whitelist (permit all sectors)")
	cmd.Flags().StringSliceVar(&hide, "hide", nil, "add sectors to the hidden list")
	cmd.Flags().StringSliceVar(&unhide, "unhide", nil, "remove sectors from the hidden list")
	return cmd
}

func newRulesToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <movers|hilo|personal|override> <on|off>",
		Short: "Toggle an alert category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var on bool
			switch args[1] {
			case "on":
				on = true
			case "off":
				on = false
			default:
				return fmt.Errorf("state must be on or off")
			}

			rules := app.Engine.Rules()
			switch args[0] {
			case "movers":
				rules.MoversEnabled = &on
			case "hilo":
				rules.HiloEnabled = &on
			case "personal":
				rules.PersonalEnabled = &on
			case "override":
				rules.ExcludePortfolio = &on
			default:
				return fmt.Errorf("unknown category %q", args[0])
			}

			if err := saveRules(app, cmd, rules); err != nil {
				return err
			}
			output.Success("%s is now %s", args[0], args[1])
			return nil
		},
	}
}

func normalizeSectors(sectors []string) []string {
	out := make([]string, 0, len(sectors))
	for _, s := range sectors {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
