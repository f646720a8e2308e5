package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show <video>",
		Short: "Display a video's pipeline state, summary, and task history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				detail, err := api.ShowVideo(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}
				if detail == nil {
					return fmt.Errorf("video %q not found", args[0])
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				video := detail.Video

				fmt.Fprintln(out, renderSectionHeader(videoHeading(video), colorize))
				fmt.Fprintf(out, "%sExternal ID:  %s\n", statusIndent, video.ExternalID)
				if video.ChannelTitle != "" {
					fmt.Fprintf(out, "%sChannel:      %s\n", statusIndent, video.ChannelTitle)
				}
				if video.PublishedAt != "" {
					fmt.Fprintf(out, "%sPublished:    %s\n", statusIndent, video.PublishedAt)
				}
				if video.SourceURL != "" {
					fmt.Fprintf(out, "%sSource:       %s\n", statusIndent, video.SourceURL)
				}
				fmt.Fprintln(out)

				fmt.Fprintln(out, renderStatusLine("Audio", presenceKind(video.AudioURL), video.AudioURL, colorize))
				fmt.Fprintln(out, renderStatusLine("Transcript", presenceKind(video.TranscriptText),
					characterCount(video.TranscriptText), colorize))
				fmt.Fprintln(out, renderStatusLine("Summary", presenceKind(video.SummaryText),
					characterCount(video.SummaryText), colorize))
				fmt.Fprintln(out)

				if video.SummaryText != "" {
					fmt.Fprintln(out, renderSectionHeader("Summary", colorize))
					fmt.Fprintln(out, truncateText(video.SummaryText, full))
					if video.FinalPoints != "" {
						fmt.Fprintln(out)
						fmt.Fprintln(out, renderSectionHeader("Key Points", colorize))
						fmt.Fprintln(out, video.FinalPoints)
					}
					fmt.Fprintln(out)
				}

				if len(detail.Tasks) > 0 {
					fmt.Fprintln(out, renderSectionHeader("Task History", colorize))
					rows := make([][]string, 0, len(detail.Tasks))
					for _, task := range detail.Tasks {
						rows = append(rows, []string{
							strconv.FormatInt(task.ID, 10),
							task.Stage,
							task.Status,
							strconv.Itoa(task.Retries),
							task.Created,
							task.Duration,
							task.Error,
						})
					}
					fmt.Fprint(out, renderTable(
						[]string{"ID", "Stage", "Status", "Retries", "Created", "Duration", "Error"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
					))
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print the complete summary without truncation")
	return cmd
}

func videoHeading(video *store.Video) string {
	if title := strings.TrimSpace(video.Title); title != "" {
		return fmt.Sprintf("Video %d: %s", video.ID, title)
	}
	return fmt.Sprintf("Video %d", video.ID)
}

func presenceKind(value string) statusKind {
	if strings.TrimSpace(value) == "" {
		return statusWarn
	}
	return statusOK
}

func characterCount(value string) string {
	if value == "" {
		return "missing"
	}
	return fmt.Sprintf("%d characters", len(value))
}

const summaryPreviewLimit = 1200

func truncateText(text string, full bool) string {
	if full || len(text) <= summaryPreviewLimit {
		return text
	}
	return text[:summaryPreviewLimit] + "\n... (use --full for the complete summary)"
}
