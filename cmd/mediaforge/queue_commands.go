package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mediaforge/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show queue items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				statuses = append(statuses, queue.Status(trimmed))
			}
			items, err := s.manager.GetItems(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.ErrorMessage
				if detail == "" {
					detail = item.File
				}
				rows = append(rows, []string{
					shortID(item.ID),
					string(item.Kind),
					statusLabel(cmd.OutOrStdout(), item.Status),
					formatSize(fileSizeOf(item.File)),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Status", "Size", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show items with this status")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and stage health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()
			out := cmd.OutOrStdout()

			summary := s.manager.Status(cmd.Context())
			health := summary.QueueHealth
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Pending", "Processing", "Awaiting Approval", "Uploaded", "Cancelled"},
				[][]string{{
					fmt.Sprint(health.Total),
					fmt.Sprint(health.Pending),
					fmt.Sprint(health.Processing),
					fmt.Sprint(health.AwaitingApproval),
					fmt.Sprint(health.Uploaded),
					fmt.Sprint(health.Cancelled),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			names := make([]string, 0, len(summary.StageHealth))
			for name := range summary.StageHealth {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				stageHealth := summary.StageHealth[name]
				state := "ready"
				if !stageHealth.Ready {
					state = "not ready"
				}
				rows = append(rows, []string{name, state, stageHealth.Detail})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Accept a held transcode and upload it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			id, err := resolveItemID(cmd, s, args[0])
			if err != nil {
				return err
			}
			if err := s.manager.GrantApproval(cmd.Context(), id); err != nil {
				return err
			}
			if err := s.processUntilSettled(cmd.Context(), []string{id}); err != nil {
				return err
			}
			return reportItems(cmd, s, []string{id})
		},
	}
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Discard a held transcode and cancel the item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			id, err := resolveItemID(cmd, s, args[0])
			if err != nil {
				return err
			}
			if err := s.manager.RejectApproval(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s rejected\n", shortID(id))
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Re-run a cancelled item from the start of the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			id, err := resolveItemID(cmd, s, args[0])
			if err != nil {
				return err
			}
			item, err := s.manager.Retry(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := s.processUntilSettled(cmd.Context(), []string{item.ID}); err != nil {
				return err
			}
			return reportItems(cmd, s, []string{item.ID})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an item wherever it is in the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			id, err := resolveItemID(cmd, s, args[0])
			if err != nil {
				return err
			}
			if err := s.manager.CancelItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s cancelled\n", shortID(id))
			return nil
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove uploaded and cancelled items from the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := ctx.openSession()
			if err != nil {
				return err
			}
			defer s.close()

			removed, err := s.store.ClearTerminal(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
			return nil
		},
	}
}

// resolveItemID accepts a full item id or an unambiguous prefix.
func resolveItemID(cmd *cobra.Command, s *session, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("item id required")
	}
	item, err := s.store.GetByID(cmd.Context(), arg)
	if err != nil {
		return "", err
	}
	if item != nil {
		return item.ID, nil
	}

	items, err := s.store.List(cmd.Context())
	if err != nil {
		return "", err
	}
	var match string
	for _, candidate := range items {
		if strings.HasPrefix(candidate.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("item id prefix %q is ambiguous", arg)
			}
			match = candidate.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no item matches %q", arg)
	}
	return match, nil
}
