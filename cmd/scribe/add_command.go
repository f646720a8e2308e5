package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/notifications"
	"scribe/internal/queue"
	"scribe/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Register a video URL for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStoreAndQueue(func(cfg *config.Config, st *store.Store, q *queue.Queue) error {
				result, err := api.Ingest(cmd.Context(), api.IngestRequest{
					Store:    st,
					Queue:    q,
					Catalog:  ctx.catalogClient(cfg),
					Notifier: notifications.NewService(cfg),
				}, args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added video %d (%s)\n", result.Video.ID, result.Video.ExternalID)
				switch result.Mode {
				case api.IngestModeCaptions:
					fmt.Fprintf(out, "Captions found (%d characters); queued summarization at high priority\n", result.Transcript)
				default:
					fmt.Fprintln(out, "No captions available; queued the full download and transcription chain")
				}
				fmt.Fprintf(out, "Task %s\n", result.TaskID)
				return nil
			})
		},
	}
}
