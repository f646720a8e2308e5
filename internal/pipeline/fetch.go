package pipeline

import (
	"context"
	"strings"

	"scribe/internal/queue"
	"scribe/internal/services"
)

type fetchResultData struct {
	AudioURL string `json:"audio_url"`
	Bytes    int64  `json:"bytes"`
}

// FetchAudio downloads the audio track for a video, moves it into the blob
// store, and records the stored location on the video row.
func (p *Pipeline) FetchAudio(ctx context.Context, args queue.FetchAudioArgs, opts RunOptions) Result {
	return p.runStage(ctx, queue.StageFetchAudio, args.VideoID, opts, func(ctx context.Context) (any, error) {
		video, err := p.store.GetVideo(ctx, args.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			return nil, services.Wrap(services.ErrNotFound, "fetch_audio", "load video", "no video row", nil)
		}

		sourceURL := strings.TrimSpace(args.SourceURL)
		if sourceURL == "" {
			sourceURL = video.SourceURL
		}
		if sourceURL == "" {
			return nil, services.Wrap(services.ErrValidation, "fetch_audio", "download audio", "no source url on task or video", nil)
		}

		downloaded, err := p.media.FetchAudio(ctx, video.ID, sourceURL)
		if err != nil {
			return nil, err
		}
		stored, err := p.blobs.Put(video.ID, downloaded)
		if err != nil {
			return nil, err
		}
		if err := p.store.SetAudioURL(ctx, video.ID, stored); err != nil {
			return nil, err
		}

		size, err := p.blobs.Size(video.ID)
		if err != nil {
			return nil, err
		}
		return fetchResultData{AudioURL: stored, Bytes: size}, nil
	})
}
