package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/blockstream/pkg/adapter"
)

func newPlanCmd() *cobra.Command {
	var sourceFile, targetFile string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the per-column actions for a source and target layout",
		Long: `Compute the nullable adapter plan for two block descriptors and print it as JSON.

Example:
  blockstream plan --source events.yaml --target table.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loadSample(sourceFile)
			if err != nil {
				return fmt.Errorf("source descriptor: %w", err)
			}
			defer source.Release()
			target, err := loadSample(targetFile)
			if err != nil {
				return fmt.Errorf("target descriptor: %w", err)
			}
			defer target.Release()

			plan, err := adapter.BuildPlan(source.Schema(), target.Schema())
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "source", "s", "", "Source block descriptor (required)")
	cmd.Flags().StringVarP(&targetFile, "target", "t", "", "Target block descriptor (required)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}
