package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tca/internal/harness"
)

// FeatureInfo describes one registered feature.
type FeatureInfo struct {
	Name    string   `json:"name"`
	Actions []string `json:"actions"`
}

// NewFeaturesCommand creates the features command.
func NewFeaturesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "features",
		Short:         "List features scenarios can drive",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := []FeatureInfo{}
			for _, name := range harness.FeatureNames() {
				f, err := harness.Lookup(name)
				if err != nil {
					return err
				}
				infos = append(infos, FeatureInfo{Name: name, Actions: f.ActionNames()})
			}

			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).JSON(CLIResponse{Status: "ok", Data: infos})
			}
			w := cmd.OutOrStdout()
			for _, info := range infos {
				fmt.Fprintf(w, "%s\n", info.Name)
				if rootOpts.Verbose {
					fmt.Fprintf(w, "  %s\n", strings.Join(info.Actions, "\n  "))
				}
			}
			return nil
		},
	}
}
