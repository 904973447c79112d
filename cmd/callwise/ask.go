package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/callwise/callwise/pkg/workflow"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about ingested transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer app.Close()

			inv, err := app.asker.Ask(cmd.Context(), strings.Join(args, " "),
				workflow.WithLogger(app.logger))
			if err != nil {
				return err
			}

			if inv.Clarification != "" {
				fmt.Println("clarification needed:", inv.Clarification)
				return nil
			}
			fmt.Println(inv.FinalAnswer)
			return nil
		},
	}
}
