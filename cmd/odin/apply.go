package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/odin/pkg/client"
	"github.com/cuemby/odin/pkg/mission"
	"github.com/cuemby/odin/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a manifest file",
	Long: `Apply activities or an environment snapshot from a YAML file.
A file may hold several documents separated by ---.

Examples:
  # Schedule a set of activities
  odin apply -f activities.yaml

  # Report new space weather
  odin apply -f environment.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// Resource is one manifest document
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       yaml.Node        `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

// Manifest is the decoded content of a file, grouped by what the API accepts
type Manifest struct {
	Activities  []*mission.Activity
	Environment *types.Environment
}

// parseManifest decodes every document in data
func parseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 0; ; i++ {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: failed to parse YAML: %w", i, err)
		}

		switch res.Kind {
		case "Activity":
			var a mission.Activity
			if err := res.Spec.Decode(&a); err != nil {
				return nil, fmt.Errorf("document %d: invalid activity: %w", i, err)
			}
			if a.ID == "" {
				a.ID = res.Metadata.Name
			}
			if a.Name == "" {
				a.Name = res.Metadata.Name
			}
			if err := a.Validate(); err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}
			m.Activities = append(m.Activities, &a)
		case "Environment":
			if m.Environment != nil {
				return nil, fmt.Errorf("document %d: only one Environment per file", i)
			}
			env := types.NominalEnvironment()
			if err := res.Spec.Decode(&env); err != nil {
				return nil, fmt.Errorf("document %d: invalid environment: %w", i, err)
			}
			m.Environment = &env
		case "":
			return nil, fmt.Errorf("document %d: kind is required", i)
		default:
			return nil, fmt.Errorf("document %d: unsupported resource kind: %s", i, res.Kind)
		}
	}
	if len(m.Activities) == 0 && m.Environment == nil {
		return nil, fmt.Errorf("no resources found")
	}
	return m, nil
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	m, err := parseManifest(data)
	if err != nil {
		return err
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	return applyManifest(c, m)
}

func applyManifest(c *client.Client, m *Manifest) error {
	if m.Environment != nil {
		fmt.Println("Updating environment")
		if _, err := c.SetEnvironment(*m.Environment); err != nil {
			return fmt.Errorf("failed to update environment: %w", err)
		}
		fmt.Println("✓ Environment updated")
	}

	if len(m.Activities) > 0 {
		fmt.Printf("Adding %d activities\n", len(m.Activities))
		added, err := c.AddActivities(m.Activities)
		if err != nil {
			return fmt.Errorf("failed to add activities: %w", err)
		}
		for _, id := range added {
			fmt.Printf("✓ Activity added: %s\n", id)
		}
	}
	return nil
}
