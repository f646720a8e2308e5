package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stage identifies which pipeline operation a queued task invokes.
type Stage string

const (
	StageFetchAudio   Stage = "fetch_audio"
	StageTranscribe   Stage = "transcribe"
	StageSummarize    Stage = "summarize"
	StageProcessChain Stage = "process_chain"
)

var knownStages = map[Stage]struct{}{
	StageFetchAudio:   {},
	StageTranscribe:   {},
	StageSummarize:    {},
	StageProcessChain: {},
}

// Known reports whether the stage names a dispatchable operation.
func (s Stage) Known() bool {
	_, ok := knownStages[s]
	return ok
}

// Priority selects which Redis list a task lands on.
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// FetchAudioArgs requests downloading the audio track for a video row.
type FetchAudioArgs struct {
	VideoID   int64  `json:"video_id"`
	SourceURL string `json:"source_url"`
}

// TranscribeArgs requests transcription of a previously fetched audio blob.
type TranscribeArgs struct {
	VideoID int64 `json:"video_id"`
}

// SummarizeArgs requests summarization of a stored transcript. The video is
// addressed by its external identifier so callers without a database row id,
// such as the captions short-circuit, can enqueue it directly.
type SummarizeArgs struct {
	VideoRef string `json:"video_ref"`
}

// ProcessChainArgs requests the full fetch, transcribe, summarize sequence.
type ProcessChainArgs struct {
	VideoID   int64  `json:"video_id"`
	SourceURL string `json:"source_url"`
}

// Envelope is the wire form of a queued task. Args stays raw until the
// consumer knows which typed struct to decode it into.
type Envelope struct {
	ID         string          `json:"id"`
	Stage      Stage           `json:"stage"`
	Priority   Priority        `json:"priority"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Args       json.RawMessage `json:"args"`
}

// Decode unmarshals the task arguments into the provided struct.
func (e *Envelope) Decode(v any) error {
	if len(e.Args) == 0 {
		return fmt.Errorf("task %s has no arguments", e.ID)
	}
	if err := json.Unmarshal(e.Args, v); err != nil {
		return fmt.Errorf("decode %s args: %w", e.Stage, err)
	}
	return nil
}
