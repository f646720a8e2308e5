package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/services"
)

// Executor runs pipeline stages. *pipeline.Pipeline is the production
// implementation.
type Executor interface {
	FetchAudio(ctx context.Context, args queue.FetchAudioArgs, opts pipeline.RunOptions) pipeline.Result
	Transcribe(ctx context.Context, args queue.TranscribeArgs, opts pipeline.RunOptions) pipeline.Result
	Summarize(ctx context.Context, args queue.SummarizeArgs, opts pipeline.RunOptions) pipeline.Result
	ProcessChain(ctx context.Context, args queue.ProcessChainArgs, opts pipeline.RunOptions) pipeline.Result
}

// Broker supplies tasks to the worker loop. *queue.Queue is the production
// implementation.
type Broker interface {
	Dequeue(ctx context.Context) (*queue.Envelope, error)
}

// Worker consumes the priority queue and dispatches each task to its
// pipeline stage. A failing task never takes the loop down: failures are
// recorded on the task's audit row and logged, and the loop moves on.
type Worker struct {
	broker        Broker
	executor      Executor
	logger        *slog.Logger
	retryDelay    time.Duration
	stageAttempts int
	sleeper       func(context.Context, time.Duration)
}

// New builds a worker from the runtime configuration.
func New(cfg *config.Config, broker Broker, executor Executor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	attempts := cfg.Worker.StageAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Worker{
		broker:        broker,
		executor:      executor,
		logger:        logger.With(logging.String(logging.FieldComponent, "worker")),
		retryDelay:    time.Duration(cfg.Worker.RetryDelaySeconds) * time.Second,
		stageAttempts: attempts,
	}
}

// WithSleeper sets a custom delay function (for testing).
func (w *Worker) WithSleeper(sleeper func(context.Context, time.Duration)) {
	w.sleeper = sleeper
}

// Run consumes tasks until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopped")
			return err
		}

		envelope, err := w.broker.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.Info("worker stopped")
				return ctx.Err()
			}
			w.logger.Error("dequeue failed", logging.Error(err))
			w.sleep(ctx, w.retryDelay)
			continue
		}
		if envelope == nil {
			// Timeout with both queues empty; poll again.
			continue
		}
		w.Handle(ctx, envelope)
	}
}

// Handle dispatches a single task envelope. Unknown stages and undecodable
// payloads are logged and dropped without touching the store.
func (w *Worker) Handle(ctx context.Context, envelope *queue.Envelope) {
	ctx = services.WithRequestID(ctx, envelope.ID)
	log := w.logger.With(
		logging.String(logging.FieldCorrelationID, envelope.ID),
		logging.String(logging.FieldStage, string(envelope.Stage)),
		logging.String(logging.FieldPriority, string(envelope.Priority)),
	)

	if !envelope.Stage.Known() {
		log.Warn("dropping task with unknown stage")
		return
	}

	opts := pipeline.RunOptions{Priority: string(envelope.Priority)}
	var run func(pipeline.RunOptions) pipeline.Result
	switch envelope.Stage {
	case queue.StageFetchAudio:
		var args queue.FetchAudioArgs
		if err := envelope.Decode(&args); err != nil {
			log.Warn("dropping undecodable task", logging.Error(err))
			return
		}
		run = func(o pipeline.RunOptions) pipeline.Result { return w.executor.FetchAudio(ctx, args, o) }
	case queue.StageTranscribe:
		var args queue.TranscribeArgs
		if err := envelope.Decode(&args); err != nil {
			log.Warn("dropping undecodable task", logging.Error(err))
			return
		}
		run = func(o pipeline.RunOptions) pipeline.Result { return w.executor.Transcribe(ctx, args, o) }
	case queue.StageSummarize:
		var args queue.SummarizeArgs
		if err := envelope.Decode(&args); err != nil {
			log.Warn("dropping undecodable task", logging.Error(err))
			return
		}
		run = func(o pipeline.RunOptions) pipeline.Result { return w.executor.Summarize(ctx, args, o) }
	case queue.StageProcessChain:
		var args queue.ProcessChainArgs
		if err := envelope.Decode(&args); err != nil {
			log.Warn("dropping undecodable task", logging.Error(err))
			return
		}
		run = func(o pipeline.RunOptions) pipeline.Result { return w.executor.ProcessChain(ctx, args, o) }
	}

	result := run(opts)
	// Chains manage their own inner stages; a failed chain is rerun whole by
	// the operator, never retried piecemeal here.
	attempts := 1
	for result.Failed() && result.Retryable() && envelope.Stage != queue.StageProcessChain && attempts < w.stageAttempts {
		if ctx.Err() != nil {
			break
		}
		attempts++
		log.Warn("retrying stage after transient failure",
			logging.Int("attempt", attempts),
			logging.Error(result.Err))
		w.sleep(ctx, w.retryDelay)
		opts.ResumeTaskID = result.TaskID
		result = run(opts)
	}

	if result.Failed() {
		log.Error("task failed",
			logging.Int64(logging.FieldVideoID, result.VideoID),
			logging.String("failure_kind", string(result.Kind)),
			logging.Int("attempts", attempts),
			logging.Error(result.Err))
		return
	}
	log.Info("task completed", logging.Int64(logging.FieldVideoID, result.VideoID))
}

func (w *Worker) sleep(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	if w.sleeper != nil {
		w.sleeper(ctx, delay)
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
