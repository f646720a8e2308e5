package pipeline

import (
	"context"
	"strings"

	"scribe/internal/queue"
	"scribe/internal/services"
)

type summarizeResultData struct {
	Chunks int `json:"chunks"`
	Points int `json:"points"`
}

// Summarize condenses a stored transcript into a combined summary and a
// consolidated point list. The transcript is cut into overlapping chunks
// and the model summarizes each chunk in order; chunk summaries join with a
// blank line and points join one per line.
func (p *Pipeline) Summarize(ctx context.Context, args queue.SummarizeArgs, opts RunOptions) Result {
	ref := strings.TrimSpace(args.VideoRef)
	video, err := p.store.GetVideoByExternalID(ctx, ref)
	if err != nil {
		return Result{Stage: queue.StageSummarize, Err: err, Kind: classifyFailure(err)}
	}
	if video == nil {
		wrapped := services.Wrap(services.ErrNotFound, "summarize", "load video", "no video with ref "+ref, nil)
		return Result{Stage: queue.StageSummarize, Err: wrapped, Kind: classifyFailure(wrapped)}
	}

	return p.runStage(ctx, queue.StageSummarize, video.ID, opts, func(ctx context.Context) (any, error) {
		if strings.TrimSpace(video.TranscriptText) == "" {
			return nil, services.Wrap(services.ErrValidation, "summarize", "load transcript", "transcript is empty", nil)
		}

		var summaries []string
		var points []string
		chunks := 0
		for chunk := range p.splitter.Chunks(video.TranscriptText) {
			chunkResult, err := p.summarizer.SummarizeChunk(ctx, chunk)
			if err != nil {
				return nil, err
			}
			chunks++
			summaries = append(summaries, chunkResult.Summary)
			points = append(points, chunkResult.Points...)
		}

		summary := strings.Join(summaries, "\n\n")
		finalPoints := strings.Join(points, "\n")
		if err := p.store.SetSummary(ctx, video.ID, summary, finalPoints); err != nil {
			return nil, err
		}

		if err := p.notifier.NotifySummaryReady(ctx, videoTitle(video.Title, video.ExternalID), chunks); err != nil {
			p.logger.Warn("summary notification failed", "error", err)
		}
		return summarizeResultData{Chunks: chunks, Points: len(points)}, nil
	})
}

func videoTitle(title, externalID string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return externalID
}
