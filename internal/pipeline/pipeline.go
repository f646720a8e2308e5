package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/blob"
	"scribe/internal/services/llm"
	"scribe/internal/store"
	"scribe/internal/textchunk"
)

// Transcriber converts one audio file into transcript text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
}

// Summarizer condenses one transcript chunk into a summary and points.
type Summarizer interface {
	SummarizeChunk(ctx context.Context, chunk string) (llm.ChunkSummary, error)
}

// AudioFetcher downloads and segments audio via external tools.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, videoID int64, sourceURL string) (string, error)
	SplitAudio(ctx context.Context, source, outputDir string) ([]string, error)
	ShouldSplit(size int64) bool
}

// Store persists video rows and per-stage task records.
type Store interface {
	GetVideo(ctx context.Context, id int64) (*store.Video, error)
	GetVideoByExternalID(ctx context.Context, externalID string) (*store.Video, error)
	SetAudioURL(ctx context.Context, videoID int64, audioURL string) error
	SetTranscript(ctx context.Context, videoID int64, transcript string) error
	SetSummary(ctx context.Context, videoID int64, summary, points string) error
	NewTaskRecord(ctx context.Context, videoID int64, kind, priority string) (*store.TaskRecord, error)
	StartTask(ctx context.Context, id int64) error
	RestartTask(ctx context.Context, id int64) error
	CompleteTask(ctx context.Context, id int64, resultData string) error
	FailTask(ctx context.Context, id int64, message string) error
}

// Pipeline executes the fetch, transcribe, and summarize stages against the
// store, recording an audit row per stage execution.
type Pipeline struct {
	store       Store
	blobs       *blob.Store
	media       AudioFetcher
	transcriber Transcriber
	summarizer  Summarizer
	notifier    notifications.Service
	splitter    *textchunk.Splitter
	workDir     string
	logger      *slog.Logger
}

// New assembles a pipeline from its collaborators. A nil notifier or logger
// falls back to a noop implementation.
func New(
	cfg *config.Config,
	st Store,
	blobs *blob.Store,
	fetcher AudioFetcher,
	transcriber Transcriber,
	summarizer Summarizer,
	notifier notifications.Service,
	logger *slog.Logger,
) (*Pipeline, error) {
	splitter, err := textchunk.New(cfg.Summarize.ChunkSize, cfg.Summarize.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notifications.Noop()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		store:       st,
		blobs:       blobs,
		media:       fetcher,
		transcriber: transcriber,
		summarizer:  summarizer,
		notifier:    notifier,
		splitter:    splitter,
		workDir:     cfg.Paths.WorkDir,
		logger:      logger,
	}, nil
}

// RunOptions carries audit metadata for one stage execution.
type RunOptions struct {
	// Priority is recorded on new task records for queue observability.
	Priority string
	// ResumeTaskID reuses an existing failed record instead of creating a
	// fresh one, as happens when the worker retries a transient failure.
	ResumeTaskID int64
}

func (o RunOptions) priority() string {
	if o.Priority == "" {
		return string(queue.PriorityLow)
	}
	return o.Priority
}

// runStage wraps one stage body with task-record bookkeeping: a record moves
// to in-progress before the body runs and lands on completed or failed with
// the body's outcome.
func (p *Pipeline) runStage(
	ctx context.Context,
	stage queue.Stage,
	videoID int64,
	opts RunOptions,
	body func(ctx context.Context) (any, error),
) Result {
	result := Result{Stage: stage, VideoID: videoID}
	ctx = services.WithStage(services.WithVideoID(ctx, videoID), string(stage))
	log := logging.WithContext(ctx, p.logger)

	taskID := opts.ResumeTaskID
	if taskID > 0 {
		if err := p.store.RestartTask(ctx, taskID); err != nil {
			result.Err = err
			result.Kind = classifyFailure(err)
			return result
		}
	} else {
		record, err := p.store.NewTaskRecord(ctx, videoID, string(stage), opts.priority())
		if err != nil {
			result.Err = err
			result.Kind = classifyFailure(err)
			return result
		}
		taskID = record.ID
		if err := p.store.StartTask(ctx, taskID); err != nil {
			result.Err = err
			result.Kind = classifyFailure(err)
			return result
		}
	}
	result.TaskID = taskID
	log.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	payload, err := body(ctx)
	if err != nil {
		result.Err = err
		result.Kind = classifyFailure(err)
		if failErr := p.store.FailTask(ctx, taskID, services.Message(err)); failErr != nil {
			log.Error("record stage failure", logging.Error(failErr))
		}
		log.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.String("failure_kind", string(result.Kind)),
			logging.Error(err))
		return result
	}

	resultData := ""
	if payload != nil {
		if encoded, encodeErr := json.Marshal(payload); encodeErr == nil {
			resultData = string(encoded)
		}
	}
	if err := p.store.CompleteTask(ctx, taskID, resultData); err != nil {
		result.Err = err
		result.Kind = classifyFailure(err)
		// Best effort: the record must not stay in-progress forever.
		if failErr := p.store.FailTask(ctx, taskID, services.Message(err)); failErr != nil {
			log.Error("record stage failure", logging.Error(failErr))
		}
		return result
	}
	log.Info("stage completed", logging.String(logging.FieldEventType, "stage_complete"))
	return result
}
