package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/queue"
	"scribe/internal/services"
)

type transcribeResultData struct {
	Segments   int `json:"segments"`
	Characters int `json:"characters"`
}

// Transcribe converts a fetched audio blob into transcript text. Blobs over
// the split threshold are cut into fixed-length segments first; the per
// segment transcripts are joined with newlines in playback order.
func (p *Pipeline) Transcribe(ctx context.Context, args queue.TranscribeArgs, opts RunOptions) Result {
	return p.runStage(ctx, queue.StageTranscribe, args.VideoID, opts, func(ctx context.Context) (any, error) {
		video, err := p.store.GetVideo(ctx, args.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			return nil, services.Wrap(services.ErrNotFound, "transcribe", "load video", "no video row", nil)
		}
		if !p.blobs.Exists(video.ID) {
			return nil, services.Wrap(services.ErrValidation, "transcribe", "open blob", "audio not fetched yet", nil)
		}

		size, err := p.blobs.Size(video.ID)
		if err != nil {
			return nil, err
		}

		sources := []string{p.blobs.Path(video.ID)}
		if p.media.ShouldSplit(size) {
			segmentDir := filepath.Join(p.workDir, fmt.Sprintf("segments_%d", video.ID))
			sources, err = p.media.SplitAudio(ctx, p.blobs.Path(video.ID), segmentDir)
			if err != nil {
				return nil, err
			}
			defer func() { _ = os.RemoveAll(segmentDir) }()
		}

		parts := make([]string, 0, len(sources))
		for _, source := range sources {
			text, err := p.transcriber.TranscribeFile(ctx, source)
			if err != nil {
				return nil, err
			}
			parts = append(parts, text)
		}
		transcript := strings.Join(parts, "\n")
		if strings.TrimSpace(transcript) == "" {
			return nil, services.Wrap(services.ErrMalformed, "transcribe", "collect transcript", "transcriber returned no text", nil)
		}

		if err := p.store.SetTranscript(ctx, video.ID, transcript); err != nil {
			return nil, err
		}
		return transcribeResultData{Segments: len(sources), Characters: len(transcript)}, nil
	})
}
