package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth and task health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStoreAndQueue(func(cfg *config.Config, st *store.Store, q *queue.Queue) error {
				snapshot, err := api.BuildStatus(cmd.Context(), st, q)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderTable(
					[]string{"Queue", "Pending"},
					[][]string{
						{"high", strconv.FormatInt(snapshot.QueueHigh, 10)},
						{"low", strconv.FormatInt(snapshot.QueueLow, 10)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintln(out)
				fmt.Fprint(out, renderTable(
					[]string{"Status", "Count"},
					buildHealthRows(snapshot.Health),
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintln(out)
				return nil
			})
		},
	}
}

func buildHealthRows(health store.HealthSummary) [][]string {
	return [][]string{
		{string(store.TaskPending), strconv.Itoa(health.Pending)},
		{string(store.TaskInProgress), strconv.Itoa(health.InProgress)},
		{string(store.TaskCompleted), strconv.Itoa(health.Completed)},
		{string(store.TaskFailed), strconv.Itoa(health.Failed)},
		{"TOTAL", strconv.Itoa(health.Total)},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent task records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				rows, err := api.RecentTaskRows(cmd.Context(), st, limit)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No task records yet")
					return nil
				}

				display := make([][]string, 0, len(rows))
				for _, row := range rows {
					display = append(display, []string{
						strconv.FormatInt(row.ID, 10),
						row.Video,
						row.Stage,
						row.Status,
						row.Priority,
						strconv.Itoa(row.Retries),
						row.Created,
						row.Duration,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Video", "Stage", "Status", "Priority", "Retries", "Created", "Duration"},
					display,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>...",
		Short: "Re-enqueue the stages behind failed task records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseTaskIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStoreAndQueue(func(cfg *config.Config, st *store.Store, q *queue.Queue) error {
				results, err := api.RetryFailedTasks(cmd.Context(), st, q, ids)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, result := range results {
					switch result.Outcome {
					case api.RetryQueued:
						fmt.Fprintf(out, "Task %d re-queued (new task %s)\n", result.TaskID, result.Envelope.ID)
					case api.RetryNotFound:
						fmt.Fprintf(out, "Task %d not found\n", result.TaskID)
					case api.RetryNotFailed:
						fmt.Fprintf(out, "Task %d is not failed; skipped\n", result.TaskID)
					case api.RetryVideoMissing:
						fmt.Fprintf(out, "Task %d references a deleted video; skipped\n", result.TaskID)
					}
				}
				return nil
			})
		},
	}
}

func parseTaskIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid task id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all pending tasks from both priority queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(cfg *config.Config, q *queue.Queue) error {
				high, low, err := q.Depth(cmd.Context())
				if err != nil {
					return err
				}
				if err := q.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d pending tasks (%d high, %d low)\n",
					high+low, high, low)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Delete failed task records from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				deleted, err := st.DeleteFailedTasks(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d failed task records\n", deleted)
				return nil
			})
		},
	}
}
