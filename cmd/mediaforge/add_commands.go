package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mediaforge/internal/queue"
	"mediaforge/internal/workflow"
)

type addFlags struct {
	batch    bool
	data     string
	noWait   bool
	approval bool
}

func registerAddFlags(cmd *cobra.Command, flags *addFlags) {
	cmd.Flags().BoolVar(&flags.batch, "batch", false, "Group the arguments into one batch")
	cmd.Flags().StringVar(&flags.data, "data", "", "Additional JSON attached to each item")
	cmd.Flags().BoolVar(&flags.noWait, "no-wait", false, "Enqueue without processing; run `mediaforge run` later")
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	flags := &addFlags{}
	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Queue local files for processing and upload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, ctx, flags, args, func(s *session, source string, opts workflow.AddOptions) (*queue.Item, error) {
				return s.manager.AddItem(cmd.Context(), source, opts)
			})
		},
	}
	registerAddFlags(cmd, flags)
	return cmd
}

func newAddURLCommand(ctx *commandContext) *cobra.Command {
	flags := &addFlags{}
	cmd := &cobra.Command{
		Use:   "add-url <url>...",
		Short: "Download remote media and queue it for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, ctx, flags, args, func(s *session, source string, opts workflow.AddOptions) (*queue.Item, error) {
				return s.manager.AddItemFromURL(cmd.Context(), source, opts)
			})
		},
	}
	registerAddFlags(cmd, flags)
	return cmd
}

func runAdd(cmd *cobra.Command, ctx *commandContext, flags *addFlags, args []string, enqueue func(*session, string, workflow.AddOptions) (*queue.Item, error)) error {
	s, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer s.close()

	opts := workflow.AddOptions{AdditionalJSON: flags.data}
	if flags.batch {
		opts.BatchID = uuid.NewString()
	}

	ids := make([]string, 0, len(args))
	for _, source := range args {
		item, err := enqueue(s, source, opts)
		if err != nil {
			return fmt.Errorf("queue %s: %w", source, err)
		}
		ids = append(ids, item.ID)
	}

	if flags.noWait {
		fmt.Fprintf(cmd.OutOrStdout(), "Queued %d item(s)\n", len(ids))
		return nil
	}
	if err := s.processUntilSettled(cmd.Context(), ids); err != nil {
		return err
	}
	return reportItems(cmd, s, ids)
}

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	flags := &addFlags{}
	cmd := &cobra.Command{
		Use:   "optimize <attachment-id> <source>",
		Short: "Re-run optimization for an attachment that already exists remotely",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExisting(cmd, ctx, flags, args, func(s *session, attachmentID int64, source string, opts workflow.AddOptions) (*queue.Item, error) {
				return s.manager.OptimizeExistingItem(cmd.Context(), attachmentID, source, opts)
			})
		},
	}
	registerAddFlags(cmd, flags)
	return cmd
}

func newMuteCommand(ctx *commandContext) *cobra.Command {
	flags := &addFlags{}
	cmd := &cobra.Command{
		Use:   "mute <attachment-id> <source>",
		Short: "Strip the audio track from an attachment's video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExisting(cmd, ctx, flags, args, func(s *session, attachmentID int64, source string, opts workflow.AddOptions) (*queue.Item, error) {
				return s.manager.MuteExistingVideo(cmd.Context(), attachmentID, source, opts)
			})
		},
	}
	registerAddFlags(cmd, flags)
	return cmd
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	flags := &addFlags{}
	cmd := &cobra.Command{
		Use:   "subtitles <attachment-id> <source>",
		Short: "Extract the subtitle track from an attachment's video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExisting(cmd, ctx, flags, args, func(s *session, attachmentID int64, source string, opts workflow.AddOptions) (*queue.Item, error) {
				return s.manager.AddSubtitlesForExistingVideo(cmd.Context(), attachmentID, source, opts)
			})
		},
	}
	registerAddFlags(cmd, flags)
	return cmd
}

func runExisting(cmd *cobra.Command, ctx *commandContext, flags *addFlags, args []string, enqueue func(*session, int64, string, workflow.AddOptions) (*queue.Item, error)) error {
	attachmentID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || attachmentID <= 0 {
		return fmt.Errorf("invalid attachment id %q", args[0])
	}

	s, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer s.close()

	item, err := enqueue(s, attachmentID, args[1], workflow.AddOptions{AdditionalJSON: flags.data})
	if err != nil {
		return err
	}
	if flags.noWait {
		fmt.Fprintf(cmd.OutOrStdout(), "Queued item %s\n", item.ID)
		return nil
	}
	if err := s.processUntilSettled(cmd.Context(), []string{item.ID}); err != nil {
		return err
	}
	return reportItems(cmd, s, []string{item.ID})
}

// reportItems prints the settled state of the given items, including a hint
// when one is held at the approval gate.
func reportItems(cmd *cobra.Command, s *session, ids []string) error {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(ids))
	held := 0
	failed := 0
	for _, id := range ids {
		item, err := s.store.GetByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		detail := ""
		switch item.Status {
		case queue.StatusPendingApproval:
			held++
			detail = approvalDetail(item)
		case queue.StatusCancelled:
			failed++
			detail = item.ErrorMessage
		case queue.StatusUploaded:
			detail = item.File
		}
		rows = append(rows, []string{shortID(item.ID), string(item.Kind), statusLabel(out, item.Status), detail})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Kind", "Status", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))
	if held > 0 {
		fmt.Fprintf(out, "%d item(s) await approval; run `mediaforge approve <id>` or `mediaforge reject <id>`\n", held)
	}
	if failed > 0 {
		fmt.Fprintf(out, "%d item(s) did not complete; see `mediaforge list` for details\n", failed)
	}
	return nil
}

func approvalDetail(item *queue.Item) string {
	comparison, ok, err := item.Comparison()
	if err != nil || !ok {
		return "awaiting approval"
	}
	return fmt.Sprintf("%s -> %s (%.1f%% smaller)",
		formatSize(comparison.OldSize), formatSize(comparison.NewSize), comparison.SizeDiffPercent)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
