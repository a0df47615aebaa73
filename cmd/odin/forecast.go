package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var forecastCmd = &cobra.Command{
	Use:   "forecast [thermal|power|mission]",
	Short: "Show a forecast from the running engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		horizon, _ := cmd.Flags().GetDuration("horizon")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		switch args[0] {
		case "thermal":
			f, err := c.ThermalForecast(horizon)
			if err != nil {
				return fmt.Errorf("failed to get thermal forecast: %w", err)
			}
			fmt.Println(title(fmt.Sprintf("THERMAL FORECAST (%s, step %s)", f.Horizon, f.Step)))
			w := []int{20, 10, 10, 24}
			fmt.Println(header(w, "COMPONENT", "PEAK", "LOW", "FIRST BREACH", "STATE"))
			for _, cf := range f.Components {
				breach := "-"
				if cf.FirstBreach != nil {
					breach = cf.FirstBreach.Format(time.RFC3339)
				}
				state := "nominal"
				switch {
				case cf.ExceedsSurvival:
					state = "critical"
				case cf.ExceedsNominal:
					state = "warning"
				}
				fmt.Println(row(w, cf.ComponentID,
					fmt.Sprintf("%.1f", cf.Peak), fmt.Sprintf("%.1f", cf.Low),
					breach, colourState(state)))
			}

		case "power":
			f, err := c.PowerForecast(horizon)
			if err != nil {
				return fmt.Errorf("failed to get power forecast: %w", err)
			}
			fmt.Println(title(fmt.Sprintf("POWER FORECAST %s (%s, step %s)", f.BankID, f.Horizon, f.Step)))
			w := []int{22, 10, 10, 16, 8}
			fmt.Println(header(w, "TIME", "GEN (W)", "LOAD (W)", "SOC", "SOH", "CONF"))
			for _, p := range f.Points {
				fmt.Println(row(w, p.Time.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.0f", p.Generation), fmt.Sprintf("%.0f", p.Consumption),
					percentBar(p.SoC), fmt.Sprintf("%.2f", p.SoH), fmt.Sprintf("%.0f", p.Confidence)))
			}
			fmt.Printf("Minimum SoC %.1f%%\n", f.MinSoC)
			if f.DepletionTime != nil {
				fmt.Println(badStyle.Render("Depletion at " + f.DepletionTime.Format(time.RFC3339)))
			}

		case "mission":
			p, err := c.Prediction(horizon)
			if err != nil {
				return fmt.Errorf("failed to get mission prediction: %w", err)
			}
			fmt.Println(title(fmt.Sprintf("MISSION PREDICTION (%s)", p.Horizon)))
			w := []int{22, 24, 16}
			fmt.Println(header(w, "TIME", "ACTIVITY", "TYPE", "SUCCESS"))
			for _, e := range p.Events {
				fmt.Println(row(w, e.Time.Format("2006-01-02 15:04"), e.ActivityID,
					string(e.Type), fmt.Sprintf("%.0f%%", e.SuccessProbability)))
			}
			for _, e := range p.EnvironmentEvents {
				fmt.Printf("  %s %s (%.0f%%)\n", warnStyle.Render(e.Type), e.Description, e.Probability)
			}
			fmt.Printf("Risk %s %.1f\n", colourState(p.Risk.Level), p.Risk.Overall)
			for _, f := range p.Risk.Factors {
				fmt.Printf("  %-10s %5.1f  %s\n", f.Category, f.Score, f.Description)
			}
			for _, o := range p.Optimizations {
				fmt.Printf("  %s %s\n", dimStyle.Render("suggest"), o.Description)
			}

		default:
			return fmt.Errorf("unknown forecast %q: expected thermal, power or mission", args[0])
		}
		return nil
	},
}

func init() {
	forecastCmd.Flags().Duration("horizon", 0, "Forecast horizon (server default when zero)")
	rootCmd.AddCommand(forecastCmd)
}
