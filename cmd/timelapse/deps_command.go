package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wipash/northgrove-timelapse/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}

			results := deps.CheckBinaries(deps.Default(""))
			rows := make([][]string, 0, len(results))
			missingRequired := false
			for _, status := range results {
				detail := status.Detail
				availability := "available"
				if !status.Available {
					availability = "missing"
					if !status.Optional {
						missingRequired = true
					}
				}
				rows = append(rows, []string{status.Name, status.Command, availability, detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if missingRequired {
				return errors.New("required external tools are missing")
			}
			return nil
		},
	}
}
