package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/catalog"
	"scribe/internal/store"
)

// CatalogClient is the slice of the catalog provider the ingest workflow needs.
type CatalogClient interface {
	FetchMetadata(ctx context.Context, externalID string) (*catalog.Metadata, error)
	FetchCaptions(ctx context.Context, externalID string) (string, error)
}

// Broker is the slice of the task queue the ingest workflow needs.
type Broker interface {
	Enqueue(ctx context.Context, priority queue.Priority, stage queue.Stage, args any) (*queue.Envelope, error)
}

// IngestMode reports which processing path a newly added video took.
type IngestMode string

const (
	// IngestModeCaptions means published captions were stored directly and
	// only summarization was enqueued.
	IngestModeCaptions IngestMode = "captions"
	// IngestModeChain means the full fetch/transcribe/summarize chain was
	// enqueued.
	IngestModeChain IngestMode = "chain"
)

type IngestRequest struct {
	Store    *store.Store
	Queue    Broker
	Catalog  CatalogClient
	Notifier notifications.Service
	Logger   *slog.Logger
}

type IngestResult struct {
	Video      *store.Video
	Mode       IngestMode
	TaskID     string
	Transcript int
}

// Ingest registers a video URL for processing. It resolves the external ID,
// fetches catalog metadata, and upserts the video row. When the catalog
// publishes captions they are stored as the transcript and a high-priority
// summarize task is enqueued; otherwise a low-priority chain task downloads
// and transcribes the audio first.
func Ingest(ctx context.Context, req IngestRequest, rawURL string) (IngestResult, error) {
	if req.Store == nil || req.Queue == nil || req.Catalog == nil {
		return IngestResult{}, fmt.Errorf("store, queue, and catalog are required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := req.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}

	externalID, err := catalog.ExtractVideoID(rawURL)
	if err != nil {
		return IngestResult{}, err
	}
	log := logger.With(logging.String(logging.FieldVideoID, externalID))

	meta, err := req.Catalog.FetchMetadata(ctx, externalID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("fetch metadata for %s: %w", externalID, err)
	}

	video, err := req.Store.UpsertVideo(ctx, &store.Video{
		ExternalID:   externalID,
		SourceURL:    strings.TrimSpace(rawURL),
		Title:        meta.Title,
		Description:  meta.Description,
		ChannelTitle: meta.ChannelTitle,
		PublishedAt:  meta.PublishedAt,
		ThumbnailURL: meta.ThumbnailURL,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("upsert video %s: %w", externalID, err)
	}

	result := IngestResult{Video: video}
	if meta.HasCaptions {
		captions, err := req.Catalog.FetchCaptions(ctx, externalID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			log.Warn("caption fetch failed, falling back to audio transcription",
				logging.Error(err),
				logging.String(logging.FieldEventType, "caption_fetch_failed"),
			)
		}
		if captions = strings.TrimSpace(captions); captions != "" {
			if err := req.Store.SetTranscript(ctx, video.ID, captions); err != nil {
				return IngestResult{}, fmt.Errorf("store captions for video %d: %w", video.ID, err)
			}
			envelope, err := req.Queue.Enqueue(ctx, queue.PriorityHigh, queue.StageSummarize,
				queue.SummarizeArgs{VideoRef: externalID})
			if err != nil {
				return IngestResult{}, fmt.Errorf("enqueue summarize for %s: %w", externalID, err)
			}
			result.Mode = IngestModeCaptions
			result.TaskID = envelope.ID
			result.Transcript = len(captions)
		}
	}

	if result.Mode == "" {
		envelope, err := req.Queue.Enqueue(ctx, queue.PriorityLow, queue.StageProcessChain,
			queue.ProcessChainArgs{VideoID: video.ID, SourceURL: video.SourceURL})
		if err != nil {
			return IngestResult{}, fmt.Errorf("enqueue chain for %s: %w", externalID, err)
		}
		result.Mode = IngestModeChain
		result.TaskID = envelope.ID
	}

	log.Info("video ingested",
		logging.String(logging.FieldEventType, "video_ingested"),
		logging.String("mode", string(result.Mode)),
		logging.String(logging.FieldCorrelationID, result.TaskID),
	)
	if err := notifier.NotifyVideoIngested(ctx, videoDisplayTitle(video)); err != nil {
		log.Warn("ingest notification failed", logging.Error(err))
	}
	return result, nil
}

func videoDisplayTitle(video *store.Video) string {
	if title := strings.TrimSpace(video.Title); title != "" {
		return title
	}
	return video.ExternalID
}
