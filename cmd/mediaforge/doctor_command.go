package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediaforge/internal/deps"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools the codec backends depend on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg.Codec))
			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, status := range statuses {
				state := "ok"
				detail := status.Description
				if !status.Available {
					missing++
					state = "missing"
					detail = status.Detail + "; " + status.Description
				}
				rows = append(rows, []string{status.Name, status.Command, state, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if missing > 0 {
				fmt.Fprintf(out, "%d tool(s) missing; the affected media kinds fall back to passthrough\n", missing)
			}
			return nil
		},
	}
}
