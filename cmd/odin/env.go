package main

import (
	"fmt"

	"github.com/cuemby/odin/pkg/types"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Report space weather to the engine",
	Long: `Env replaces the engine's environment snapshot. Unset flags take the
nominal quiet-sun values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := types.NominalEnvironment()
		flags := cmd.Flags()
		env.SolarWindSpeed, _ = flags.GetFloat64("solar-wind")
		env.SolarActivityRisk, _ = flags.GetFloat64("solar-risk")
		env.Radiation, _ = flags.GetFloat64("radiation")
		env.SunExposure, _ = flags.GetFloat64("sun-exposure")
		env.MissionPhase, _ = flags.GetString("phase")

		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		out, err := c.SetEnvironment(env)
		if err != nil {
			return fmt.Errorf("failed to update environment: %w", err)
		}
		fmt.Printf("✓ Environment updated: wind %.0f km/s, risk %.0f, phase %s\n",
			out.SolarWindSpeed, out.SolarActivityRisk, out.MissionPhase)
		return nil
	},
}

func init() {
	nominal := types.NominalEnvironment()
	envCmd.Flags().Float64("solar-wind", nominal.SolarWindSpeed, "Solar wind speed in km/s")
	envCmd.Flags().Float64("solar-risk", nominal.SolarActivityRisk, "Solar activity risk (0-100)")
	envCmd.Flags().Float64("radiation", nominal.Radiation, "Radiation in mSv/h")
	envCmd.Flags().Float64("sun-exposure", nominal.SunExposure, "Sunlit fraction (0-1)")
	envCmd.Flags().String("phase", nominal.MissionPhase, "Mission phase")
	rootCmd.AddCommand(envCmd)
}
