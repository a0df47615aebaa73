package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show thermal, power and schedule status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		th, err := c.ThermalStatus()
		if err != nil {
			return fmt.Errorf("failed to get thermal status: %w", err)
		}
		pw, err := c.PowerStatus()
		if err != nil {
			return fmt.Errorf("failed to get power status: %w", err)
		}
		sm, err := c.ScheduleMetrics()
		if err != nil {
			return fmt.Errorf("failed to get schedule metrics: %w", err)
		}

		fmt.Println(title("THERMAL") + "  " + colourState(th.Overall))
		w := []int{20, 12, 16, 10}
		fmt.Println(header(w, "COMPONENT", "TEMP (°C)", "NOMINAL", "CRIT", "STATUS"))
		for _, comp := range th.Components {
			fmt.Println(row(w,
				comp.ID,
				fmt.Sprintf("%.1f", comp.Temperature),
				fmt.Sprintf("%.0f..%.0f", comp.Nominal.Min, comp.Nominal.Max),
				string(comp.Criticality),
				colourState(comp.Status),
			))
		}
		for _, a := range th.Alerts {
			fmt.Printf("  %s %s\n", colourState(a.Level), a.Message)
		}
		fmt.Println()

		mode := "nominal"
		if pw.EmergencyMode {
			mode = "emergency"
		}
		fmt.Println(title("POWER") + "  " + colourState(mode))
		fmt.Printf("Generation %.0f W  Consumption %.0f W  Net %+.0f W  Avg SoC %.1f%%\n",
			pw.TotalGeneration, pw.TotalConsumption, pw.NetBalance, pw.AverageSoC)
		w = []int{16, 16, 8, 10, 8}
		fmt.Println(header(w, "BANK", "SOC", "SOH", "TEMP (°C)", "RISK", "HEALTH"))
		for _, b := range pw.Banks {
			health := string(b.Health)
			if b.Isolated {
				health = "isolated"
			}
			fmt.Println(row(w,
				b.ID,
				percentBar(b.SoC),
				fmt.Sprintf("%.1f", b.SoH),
				fmt.Sprintf("%.1f", b.Temperature),
				fmt.Sprintf("%.0f", b.RunawayRisk),
				colourState(health),
			))
		}
		if len(pw.ShedLoads) > 0 {
			fmt.Printf("Shed loads: %s\n", strings.Join(pw.ShedLoads, ", "))
		}
		for _, a := range pw.PendingApprovals {
			fmt.Printf("  %s %s %s (approve by %s)\n", warnStyle.Render("pending"), a.ID, a.Action,
				a.ApprovalDeadline.Format(time.RFC3339))
		}
		fmt.Println()

		fmt.Println(title("SCHEDULE"))
		fmt.Printf("Efficiency %.1f  Risk %.1f  Completion %.1f%%  Autonomy %.1f%%  Adaptability %.1f\n",
			sm.Efficiency, sm.RiskLevel, sm.CompletionRate, sm.AutonomyLevel, sm.Adaptability)
		for _, r := range []string{"power", "thermal", "bandwidth", "compute"} {
			if m, ok := sm.ResourceMargin[r]; ok {
				fmt.Printf("  margin %-10s %+.0f\n", r, m)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
