package api

import (
	"context"
	"fmt"

	"scribe/internal/queue"
	"scribe/internal/store"
)

// RetryOutcome reports what happened to one task id passed to RetryFailedTasks.
type RetryOutcome string

const (
	RetryQueued       RetryOutcome = "queued"
	RetryNotFound     RetryOutcome = "not_found"
	RetryNotFailed    RetryOutcome = "not_failed"
	RetryVideoMissing RetryOutcome = "video_missing"
)

type RetryResult struct {
	TaskID  int64
	Outcome RetryOutcome
	// Envelope is set when the outcome is RetryQueued.
	Envelope *queue.Envelope
}

// RetryFailedTasks re-enqueues the stages behind failed task records. Each
// retry produces a fresh queue envelope at the record's original priority;
// the stage execution then writes its own attempt row.
func RetryFailedTasks(ctx context.Context, st *store.Store, broker Broker, ids []int64) ([]RetryResult, error) {
	results := make([]RetryResult, 0, len(ids))
	for _, id := range ids {
		record, err := st.GetTaskRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		if record == nil {
			results = append(results, RetryResult{TaskID: id, Outcome: RetryNotFound})
			continue
		}
		if record.Status != store.TaskFailed {
			results = append(results, RetryResult{TaskID: id, Outcome: RetryNotFailed})
			continue
		}

		video, err := st.GetVideo(ctx, record.VideoID)
		if err != nil {
			return nil, err
		}
		if video == nil {
			results = append(results, RetryResult{TaskID: id, Outcome: RetryVideoMissing})
			continue
		}

		stage := queue.Stage(record.Kind)
		args, err := StageArgs(stage, video)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", id, err)
		}
		priority := queue.Priority(record.Priority)
		if priority != queue.PriorityHigh {
			priority = queue.PriorityLow
		}
		envelope, err := broker.Enqueue(ctx, priority, stage, args)
		if err != nil {
			return nil, fmt.Errorf("enqueue retry for task %d: %w", id, err)
		}
		results = append(results, RetryResult{TaskID: id, Outcome: RetryQueued, Envelope: envelope})
	}
	return results, nil
}

// StageArgs builds the typed queue arguments for running a stage against a
// stored video.
func StageArgs(stage queue.Stage, video *store.Video) (any, error) {
	switch stage {
	case queue.StageFetchAudio:
		return queue.FetchAudioArgs{VideoID: video.ID, SourceURL: video.SourceURL}, nil
	case queue.StageTranscribe:
		return queue.TranscribeArgs{VideoID: video.ID}, nil
	case queue.StageSummarize:
		return queue.SummarizeArgs{VideoRef: video.ExternalID}, nil
	case queue.StageProcessChain:
		return queue.ProcessChainArgs{VideoID: video.ID, SourceURL: video.SourceURL}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}
