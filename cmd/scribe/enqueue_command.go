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

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var priorityFlag string

	cmd := &cobra.Command{
		Use:   "enqueue <stage> <video>",
		Short: "Queue a single pipeline stage for a known video",
		Long: "Queue one stage (fetch_audio, transcribe, summarize, or process_chain) " +
			"for a video already registered with `scribe add`. The video may be " +
			"addressed by database id or external id.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := queue.Stage(strings.TrimSpace(args[0]))
			if !stage.Known() {
				return fmt.Errorf("unknown stage %q", args[0])
			}
			priority, err := parsePriority(priorityFlag)
			if err != nil {
				return err
			}

			return ctx.withStoreAndQueue(func(cfg *config.Config, st *store.Store, q *queue.Queue) error {
				video, err := resolveVideo(cmd, st, args[1])
				if err != nil {
					return err
				}
				if video == nil {
					return fmt.Errorf("video %q not found; add it first with `scribe add`", args[1])
				}

				taskArgs, err := api.StageArgs(stage, video)
				if err != nil {
					return err
				}
				envelope, err := q.Enqueue(cmd.Context(), priority, stage, taskArgs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s for video %d at %s priority (task %s)\n",
					stage, video.ID, priority, envelope.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&priorityFlag, "priority", "p", "low", "Queue priority (high or low)")
	return cmd
}

func parsePriority(value string) (queue.Priority, error) {
	switch queue.Priority(strings.ToLower(strings.TrimSpace(value))) {
	case queue.PriorityHigh:
		return queue.PriorityHigh, nil
	case queue.PriorityLow, "":
		return queue.PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority %q (expected high or low)", value)
	}
}

func resolveVideo(cmd *cobra.Command, st *store.Store, ref string) (*store.Video, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return st.GetVideo(cmd.Context(), id)
	}
	return st.GetVideoByExternalID(cmd.Context(), ref)
}

