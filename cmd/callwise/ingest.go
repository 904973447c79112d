package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/callwise/callwise/pkg/workflow"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <ref>",
		Short: "Ingest one transcript by artifact reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			t, err := app.ingester.Ingest(cmd.Context(), args[0],
				workflow.WithLogger(app.logger))
			if err != nil {
				return err
			}

			fmt.Printf("document %d (%s)\n", t.DocumentID, t.Ref)
			stages := make([]string, 0, len(t.Status))
			for stage := range t.Status {
				stages = append(stages, stage)
			}
			sort.Strings(stages)
			for _, stage := range stages {
				fmt.Printf("  %-12s %s\n", stage, t.Status[stage])
			}
			if t.Summary != "" {
				fmt.Println("\nsummary:")
				fmt.Println(t.Summary)
			}
			return nil
		},
	}
}
