package main

import (
	"fmt"
	"strings"

	"github.com/cuemby/odin/pkg/mission"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage mission activities",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		acts, err := c.ListActivities()
		if err != nil {
			return fmt.Errorf("failed to list activities: %w", err)
		}
		if len(acts) == 0 {
			fmt.Println("No activities scheduled")
			return nil
		}

		w := []int{20, 14, 4, 18, 10}
		fmt.Println(header(w, "ID", "TYPE", "PRI", "START", "DURATION", "STATUS"))
		for _, a := range acts {
			fmt.Println(row(w, a.ID, string(a.Type), fmt.Sprintf("%d", a.Priority),
				a.Start.Format("2006-01-02 15:04"), a.Duration.String(), colourState(string(a.Status))))
		}
		return nil
	},
}

var scheduleConflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Show resource conflicts, optionally resolving them",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolve, _ := cmd.Flags().GetBool("resolve")
		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		if resolve {
			report, err := c.ResolveConflicts()
			if err != nil {
				return fmt.Errorf("failed to resolve conflicts: %w", err)
			}
			printConflicts(report.Conflicts)
			if len(report.Rescheduled) == 0 {
				fmt.Println("No activities rescheduled")
				return nil
			}
			fmt.Printf("✓ Rescheduled: %s\n", strings.Join(report.Rescheduled, ", "))
			return nil
		}

		conflicts, err := c.Conflicts()
		if err != nil {
			return fmt.Errorf("failed to list conflicts: %w", err)
		}
		printConflicts(conflicts)
		return nil
	},
}

func printConflicts(conflicts []mission.Conflict) {
	if len(conflicts) == 0 {
		fmt.Println("No conflicts")
		return
	}
	w := []int{10, 10, 18, 14}
	fmt.Println(header(w, "RESOURCE", "SEVERITY", "WINDOW", "REQ/AVAIL", "ACTIVITIES"))
	for _, cf := range conflicts {
		fmt.Println(row(w, string(cf.Resource), colourState(string(cf.Severity)),
			cf.Window.Start.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.0f/%.0f", cf.Required, cf.Available),
			strings.Join(cf.Activities, ",")))
		for _, r := range cf.Resolutions {
			fmt.Printf("    %s %s\n", dimStyle.Render(r.Strategy), r.Description)
		}
	}
}

var scheduleTransitionCmd = &cobra.Command{
	Use:   "transition ACTIVITY_ID STATUS",
	Short: "Move an activity through its lifecycle",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		a, err := c.TransitionActivity(args[0], mission.Status(args[1]))
		if err != nil {
			return fmt.Errorf("failed to transition activity: %w", err)
		}
		fmt.Printf("✓ %s is now %s\n", a.ID, colourState(string(a.Status)))
		return nil
	},
}

func init() {
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleConflictsCmd)
	scheduleCmd.AddCommand(scheduleTransitionCmd)

	scheduleConflictsCmd.Flags().Bool("resolve", false, "Detect and resolve conflicts by rescheduling")

	rootCmd.AddCommand(scheduleCmd)
}
