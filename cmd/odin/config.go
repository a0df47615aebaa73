package main

import (
	"fmt"

	"github.com/cuemby/odin/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after defaults, the --config file and ODIN_*
environment overrides are applied. With --defaults only the built-in
defaults are printed, which makes a starting point for a config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, _ := cmd.Flags().GetBool("defaults")

		cfg := config.Default()
		if !defaults {
			var err error
			if cfg, err = loadConfig(cmd); err != nil {
				return err
			}
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	configShowCmd.Flags().Bool("defaults", false, "Print built-in defaults only")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
