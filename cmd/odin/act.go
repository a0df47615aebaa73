package main

import (
	"fmt"

	"github.com/cuemby/odin/pkg/power"
	"github.com/cuemby/odin/pkg/thermal"
	"github.com/cuemby/odin/pkg/types"
	"github.com/spf13/cobra"
)

var actCmd = &cobra.Command{
	Use:   "act",
	Short: "Trigger autonomous responses",
}

var actPowerCmd = &cobra.Command{
	Use:   "power TRIGGER",
	Short: "Run the power decision tree (low_soc, thermal_runaway, solar_storm, load_spike)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		severity, _ := cmd.Flags().GetFloat64("severity")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		a, err := c.ExecutePower(power.Trigger(args[0]), severity)
		if err != nil {
			return fmt.Errorf("failed to execute power action: %w", err)
		}
		printAction(a)
		if a.RequiresApproval {
			fmt.Printf("%s approve with: odin act approve %s\n", warnStyle.Render("!"), a.ID)
		}
		return nil
	},
}

var actThermalCmd = &cobra.Command{
	Use:   "thermal TRIGGER",
	Short: "Generate and execute a thermal response (solar_flare, component_overheat, deep_space_cooling)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		severity, _ := cmd.Flags().GetFloat64("severity")
		affected, _ := cmd.Flags().GetStringSlice("affected")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		res, err := c.ExecuteThermal(thermal.Trigger(args[0]), severity, affected)
		if err != nil {
			return fmt.Errorf("failed to execute thermal response: %w", err)
		}
		fmt.Printf("Response %s (confidence %.0f)\n", res.Response.ID, res.Response.Confidence)
		for i, act := range res.Response.AutomaticActions {
			status := "skipped"
			if i < len(res.Results) {
				status = res.Results[i].Status
			}
			fmt.Printf("  %-18s %-10s %s\n", act.Action, string(act.Priority), colourState(status))
		}
		for _, r := range res.Response.ManualRecommendations {
			fmt.Printf("  %s %s\n", dimStyle.Render("recommend"), r)
		}
		return nil
	},
}

var actApproveCmd = &cobra.Command{
	Use:   "approve ACTION_ID",
	Short: "Approve a pending power action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		if err := c.ApprovePower(args[0]); err != nil {
			return fmt.Errorf("failed to approve action: %w", err)
		}
		fmt.Printf("✓ Action approved: %s\n", args[0])
		return nil
	},
}

func printAction(a *types.Action) {
	fmt.Printf("✓ %s %s (trigger %s, confidence %.0f)\n", a.Predictor, a.Action, a.Trigger, a.Confidence)
	if len(a.AffectedSystems) > 0 {
		fmt.Printf("  Affected: %v\n", a.AffectedSystems)
	}
	fmt.Printf("  Impact: %s  Reversible: %t  Power savings: %.0f W\n",
		colourState(string(a.MissionImpact)), a.Reversible, a.Effect.PowerSavings)
}

func init() {
	actCmd.AddCommand(actPowerCmd)
	actCmd.AddCommand(actThermalCmd)
	actCmd.AddCommand(actApproveCmd)

	actPowerCmd.Flags().Float64("severity", 5, "Trigger severity (0-10)")
	actThermalCmd.Flags().Float64("severity", 5, "Trigger severity (0-10)")
	actThermalCmd.Flags().StringSlice("affected", nil, "Affected component ids")

	rootCmd.AddCommand(actCmd)
}
