package store

import "time"

// TaskStatus tracks the lifecycle of a persisted task record.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

var taskStatusSet = map[TaskStatus]struct{}{
	TaskPending:    {},
	TaskInProgress: {},
	TaskCompleted:  {},
	TaskFailed:     {},
}

// Valid reports whether the status is one of the known lifecycle states.
func (s TaskStatus) Valid() bool {
	_, ok := taskStatusSet[s]
	return ok
}

// Video is a catalog entry persisted in SQLite. Pipeline stages fill in
// AudioURL, TranscriptText, SummaryText and FinalPoints as they complete.
type Video struct {
	ID             int64
	ExternalID     string
	SourceURL      string
	Title          string
	Description    string
	ChannelTitle   string
	PublishedAt    string
	ThumbnailURL   string
	AudioURL       string
	TranscriptText string
	SummaryText    string
	FinalPoints    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TaskRecord is an audit row for one stage execution against a video.
type TaskRecord struct {
	ID           int64
	VideoID      int64
	Kind         string
	Status       TaskStatus
	Priority     string
	Retries      int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	ResultData   string
}

// Duration returns the elapsed time between start and completion, or zero
// when either timestamp is missing.
func (t *TaskRecord) Duration() time.Duration {
	if t.StartedAt == nil || t.CompletedAt == nil {
		return 0
	}
	return t.CompletedAt.Sub(*t.StartedAt)
}

// HealthSummary describes aggregated task counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	Failed     int
}
