package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scribe/internal/store"
)

// dateTimeFormat is used for timestamps in view rows.
const dateTimeFormat = "2006-01-02 15:04:05"

// TaskRow is a display-ready representation of a task record.
type TaskRow struct {
	ID       int64
	VideoID  int64
	Video    string
	Stage    string
	Status   string
	Priority string
	Retries  int
	Created  string
	Duration string
	Error    string
}

// StatusSnapshot aggregates queue depth and task health for the status view.
type StatusSnapshot struct {
	QueueHigh int64
	QueueLow  int64
	Health    store.HealthSummary
}

// VideoDetail bundles a video row with its task history for the show view.
type VideoDetail struct {
	Video *store.Video
	Tasks []TaskRow
}

// DepthReporter reports pending task counts per priority class.
type DepthReporter interface {
	Depth(ctx context.Context) (high, low int64, err error)
}

// BuildStatus assembles the status snapshot from the queue and the store.
func BuildStatus(ctx context.Context, st *store.Store, depths DepthReporter) (StatusSnapshot, error) {
	high, low, err := depths.Depth(ctx)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("read queue depth: %w", err)
	}
	health, err := st.TaskHealth(ctx)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("read task health: %w", err)
	}
	return StatusSnapshot{QueueHigh: high, QueueLow: low, Health: health}, nil
}

// RecentTaskRows returns display rows for the most recent task records,
// newest first, with video titles resolved.
func RecentTaskRows(ctx context.Context, st *store.Store, limit int) ([]TaskRow, error) {
	records, err := st.RecentTasks(ctx, limit)
	if err != nil {
		return nil, err
	}
	titles := make(map[int64]string, len(records))
	rows := make([]TaskRow, 0, len(records))
	for _, record := range records {
		title, ok := titles[record.VideoID]
		if !ok {
			video, err := st.GetVideo(ctx, record.VideoID)
			if err != nil {
				return nil, err
			}
			if video != nil {
				title = videoDisplayTitle(video)
			}
			titles[record.VideoID] = title
		}
		rows = append(rows, buildTaskRow(record, title))
	}
	return rows, nil
}

// ShowVideo resolves a video by numeric ID or external reference and returns
// it with its task history. A missing video yields (nil, nil).
func ShowVideo(ctx context.Context, st *store.Store, ref string) (*VideoDetail, error) {
	ref = strings.TrimSpace(ref)
	var video *store.Video
	var err error
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		video, err = st.GetVideo(ctx, id)
	} else {
		video, err = st.GetVideoByExternalID(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, nil
	}

	records, err := st.TasksForVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	title := videoDisplayTitle(video)
	rows := make([]TaskRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, buildTaskRow(record, title))
	}
	return &VideoDetail{Video: video, Tasks: rows}, nil
}

func buildTaskRow(record *store.TaskRecord, videoTitle string) TaskRow {
	return TaskRow{
		ID:       record.ID,
		VideoID:  record.VideoID,
		Video:    videoTitle,
		Stage:    StageLabel(record.Kind),
		Status:   string(record.Status),
		Priority: record.Priority,
		Retries:  record.Retries,
		Created:  record.CreatedAt.Local().Format(dateTimeFormat),
		Duration: FormatDuration(record.Duration()),
		Error:    record.ErrorMessage,
	}
}

var stageTitleCaser = cases.Title(language.Und)

// StageLabel turns a stage kind like "fetch_audio" into "Fetch Audio".
func StageLabel(kind string) string {
	return stageTitleCaser.String(strings.ReplaceAll(kind, "_", " "))
}

// FormatDuration renders a task duration compactly, or "-" when unknown.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Truncate(time.Second).String()
}
