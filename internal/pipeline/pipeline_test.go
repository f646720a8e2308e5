package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/pipeline"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/blob"
	"scribe/internal/services/llm"
	"scribe/internal/store"
	"scribe/internal/testsupport"
)

type fakeFetcher struct {
	err       error
	threshold int64
	segments  int
	workDir   string
	calls     int
}

func (f *fakeFetcher) FetchAudio(ctx context.Context, videoID int64, sourceURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	// Tests seed the downloaded file via seedDownload before invoking the stage.
	return filepath.Join(f.workDir, fmt.Sprintf("%d.mp3", videoID)), nil
}

func (f *fakeFetcher) SplitAudio(ctx context.Context, source, outputDir string) ([]string, error) {
	if f.segments <= 0 {
		return nil, errors.New("unexpected split")
	}
	var paths []string
	for i := 0; i < f.segments; i++ {
		path := filepath.Join(outputDir, fmt.Sprintf("segment_%03d.mp3", i))
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte("segment"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *fakeFetcher) ShouldSplit(size int64) bool {
	return f.threshold > 0 && size > f.threshold
}

type fakeTranscriber struct {
	texts []string
	err   error
	calls int
}

func (f *fakeTranscriber) TranscribeFile(ctx context.Context, path string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "transcribed " + filepath.Base(path), nil
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return text, nil
}

type fakeSummarizer struct {
	err   error
	calls int
}

func (f *fakeSummarizer) SummarizeChunk(ctx context.Context, chunk string) (llm.ChunkSummary, error) {
	f.calls++
	if f.err != nil {
		return llm.ChunkSummary{}, f.err
	}
	return llm.ChunkSummary{
		Summary: fmt.Sprintf("summary %d", f.calls),
		Points:  []string{fmt.Sprintf("point %d", f.calls)},
	}, nil
}

type fakeNotifier struct {
	chainStarted   int
	chainCompleted int
	errors         int
	errorLabels    []string
}

func (f *fakeNotifier) NotifyVideoIngested(context.Context, string) error { return nil }

func (f *fakeNotifier) NotifyChainStarted(context.Context, string) error {
	f.chainStarted++
	return nil
}

func (f *fakeNotifier) NotifyChainCompleted(context.Context, string, time.Duration) error {
	f.chainCompleted++
	return nil
}

func (f *fakeNotifier) NotifySummaryReady(context.Context, string, int) error { return nil }

func (f *fakeNotifier) NotifyError(_ context.Context, _ error, label string) error {
	f.errors++
	f.errorLabels = append(f.errorLabels, label)
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

type fixture struct {
	cfg         *config.Config
	store       *store.Store
	blobs       *blob.Store
	fetcher     *fakeFetcher
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
	notifier    *fakeNotifier
	pipeline    *pipeline.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Summarize.ChunkSize = 40
	cfg.Summarize.ChunkOverlap = 5
	st := testsupport.MustOpenStore(t, cfg)
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		t.Fatalf("blob.NewStore: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.WorkDir, 0o755); err != nil {
		t.Fatalf("mkdir work dir: %v", err)
	}

	fetcher := &fakeFetcher{workDir: cfg.Paths.WorkDir}
	transcriber := &fakeTranscriber{}
	summarizer := &fakeSummarizer{}
	notifier := &fakeNotifier{}

	p, err := pipeline.New(cfg, st, blobs, fetcher, transcriber, summarizer, notifier, nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return &fixture{
		cfg:         cfg,
		store:       st,
		blobs:       blobs,
		fetcher:     fetcher,
		transcriber: transcriber,
		summarizer:  summarizer,
		notifier:    notifier,
		pipeline:    p,
	}
}

func (f *fixture) newVideo(t *testing.T, externalID string) *store.Video {
	t.Helper()
	return testsupport.NewVideo(t, f.store, externalID, "https://youtu.be/"+externalID)
}

func (f *fixture) seedDownload(t *testing.T, videoID int64, size int64) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(f.cfg.Paths.WorkDir, fmt.Sprintf("%d.mp3", videoID)), size)
}

func (f *fixture) seedBlob(t *testing.T, videoID int64, size int64) {
	t.Helper()
	testsupport.WriteFile(t, f.blobs.Path(videoID), size)
}

func (f *fixture) taskRecords(t *testing.T, videoID int64) []*store.TaskRecord {
	t.Helper()
	records, err := f.store.TasksForVideo(context.Background(), videoID)
	if err != nil {
		t.Fatalf("TasksForVideo: %v", err)
	}
	return records
}

func TestFetchAudioStoresBlobAndRecord(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid1")
	f.seedDownload(t, video.ID, 128)

	result := f.pipeline.FetchAudio(context.Background(), queue.FetchAudioArgs{
		VideoID:   video.ID,
		SourceURL: "https://youtu.be/vid1",
	}, pipeline.RunOptions{Priority: "low"})
	if result.Failed() {
		t.Fatalf("FetchAudio failed: %v", result.Err)
	}

	if !f.blobs.Exists(video.ID) {
		t.Fatal("expected blob to be stored")
	}
	updated, err := f.store.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if updated.AudioURL != f.blobs.Path(video.ID) {
		t.Fatalf("audio url = %q", updated.AudioURL)
	}

	records := f.taskRecords(t, video.ID)
	if len(records) != 1 {
		t.Fatalf("got %d task records, want 1", len(records))
	}
	record := records[0]
	if record.Kind != "fetch_audio" || record.Status != store.TaskCompleted {
		t.Fatalf("unexpected record: %+v", record)
	}
	var data struct {
		AudioURL string `json:"audio_url"`
		Bytes    int64  `json:"bytes"`
	}
	if err := json.Unmarshal([]byte(record.ResultData), &data); err != nil {
		t.Fatalf("decode result data: %v", err)
	}
	if data.Bytes != 128 {
		t.Fatalf("result bytes = %d", data.Bytes)
	}
}

func TestFetchAudioToolFailureMarksRecordFailed(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid2")
	f.fetcher.err = services.Wrap(services.ErrExternalTool, "fetch_audio", "download audio", "exit status 1", nil)

	result := f.pipeline.FetchAudio(context.Background(), queue.FetchAudioArgs{VideoID: video.ID}, pipeline.RunOptions{})
	if !result.Failed() {
		t.Fatal("expected failure")
	}
	if result.Kind != pipeline.FailureExternalTool {
		t.Fatalf("failure kind = %s", result.Kind)
	}
	if result.Retryable() {
		t.Fatal("external tool failures must not be retryable")
	}

	records := f.taskRecords(t, video.ID)
	if len(records) != 1 || records[0].Status != store.TaskFailed {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].ErrorMessage == "" {
		t.Fatal("expected error message on failed record")
	}
}

func TestFetchAudioMissingVideo(t *testing.T) {
	f := newFixture(t)
	result := f.pipeline.FetchAudio(context.Background(), queue.FetchAudioArgs{VideoID: 777}, pipeline.RunOptions{})
	if result.Kind != pipeline.FailureNotFound {
		t.Fatalf("failure kind = %s, want %s", result.Kind, pipeline.FailureNotFound)
	}
}

func TestTranscribeSingleBlob(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid3")
	f.seedBlob(t, video.ID, 256)
	f.transcriber.texts = []string{"hello from the video"}

	result := f.pipeline.Transcribe(context.Background(), queue.TranscribeArgs{VideoID: video.ID}, pipeline.RunOptions{})
	if result.Failed() {
		t.Fatalf("Transcribe failed: %v", result.Err)
	}
	if f.transcriber.calls != 1 {
		t.Fatalf("transcriber called %d times, want 1", f.transcriber.calls)
	}

	updated, err := f.store.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if updated.TranscriptText != "hello from the video" {
		t.Fatalf("transcript = %q", updated.TranscriptText)
	}
}

func TestTranscribeSplitsOversizeBlob(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid4")
	f.seedBlob(t, video.ID, 1024)
	f.fetcher.threshold = 512
	f.fetcher.segments = 3
	f.transcriber.texts = []string{"part one", "part two", "part three"}

	result := f.pipeline.Transcribe(context.Background(), queue.TranscribeArgs{VideoID: video.ID}, pipeline.RunOptions{})
	if result.Failed() {
		t.Fatalf("Transcribe failed: %v", result.Err)
	}
	if f.transcriber.calls != 3 {
		t.Fatalf("transcriber called %d times, want 3", f.transcriber.calls)
	}

	updated, err := f.store.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if updated.TranscriptText != "part one\npart two\npart three" {
		t.Fatalf("transcript = %q", updated.TranscriptText)
	}

	records := f.taskRecords(t, video.ID)
	var data struct {
		Segments int `json:"segments"`
	}
	if err := json.Unmarshal([]byte(records[0].ResultData), &data); err != nil {
		t.Fatalf("decode result data: %v", err)
	}
	if data.Segments != 3 {
		t.Fatalf("segments = %d", data.Segments)
	}
}

func TestTranscribeWithoutBlobFailsFast(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid5")

	result := f.pipeline.Transcribe(context.Background(), queue.TranscribeArgs{VideoID: video.ID}, pipeline.RunOptions{})
	if result.Kind != pipeline.FailureValidation {
		t.Fatalf("failure kind = %s, want %s", result.Kind, pipeline.FailureValidation)
	}
	if f.transcriber.calls != 0 {
		t.Fatal("transcriber must not run without a blob")
	}
}

func TestSummarizeJoinsChunkOutput(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid6")
	transcript := strings.Repeat("a", 100)
	if err := f.store.SetTranscript(context.Background(), video.ID, transcript); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}

	result := f.pipeline.Summarize(context.Background(), queue.SummarizeArgs{VideoRef: "vid6"}, pipeline.RunOptions{})
	if result.Failed() {
		t.Fatalf("Summarize failed: %v", result.Err)
	}
	// 100 chars at size 40 / overlap 5: chunks at 0-40, 35-75, 70-100.
	if f.summarizer.calls != 3 {
		t.Fatalf("summarizer called %d times, want 3", f.summarizer.calls)
	}

	updated, err := f.store.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if updated.SummaryText != "summary 1\n\nsummary 2\n\nsummary 3" {
		t.Fatalf("summary = %q", updated.SummaryText)
	}
	if updated.FinalPoints != "point 1\npoint 2\npoint 3" {
		t.Fatalf("points = %q", updated.FinalPoints)
	}
}

func TestSummarizeEmptyTranscriptFailsBeforeModel(t *testing.T) {
	f := newFixture(t)
	f.newVideo(t, "vid7")

	result := f.pipeline.Summarize(context.Background(), queue.SummarizeArgs{VideoRef: "vid7"}, pipeline.RunOptions{})
	if result.Kind != pipeline.FailureValidation {
		t.Fatalf("failure kind = %s, want %s", result.Kind, pipeline.FailureValidation)
	}
	if f.summarizer.calls != 0 {
		t.Fatal("model must not be called for empty transcripts")
	}
}

func TestSummarizeUnknownRef(t *testing.T) {
	f := newFixture(t)
	result := f.pipeline.Summarize(context.Background(), queue.SummarizeArgs{VideoRef: "ghost"}, pipeline.RunOptions{})
	if result.Kind != pipeline.FailureNotFound {
		t.Fatalf("failure kind = %s, want %s", result.Kind, pipeline.FailureNotFound)
	}
}

func TestProcessChainRunsAllStages(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid8")
	f.seedDownload(t, video.ID, 64)
	f.transcriber.texts = []string{strings.Repeat("b", 50)}

	result := f.pipeline.ProcessChain(context.Background(), queue.ProcessChainArgs{
		VideoID:   video.ID,
		SourceURL: "https://youtu.be/vid8",
	}, pipeline.RunOptions{Priority: "low"})
	if result.Failed() {
		t.Fatalf("ProcessChain failed: %v", result.Err)
	}

	updated, err := f.store.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if updated.AudioURL == "" || updated.TranscriptText == "" || updated.SummaryText == "" {
		t.Fatalf("chain left video incomplete: %+v", updated)
	}

	records := f.taskRecords(t, video.ID)
	if len(records) != 4 {
		t.Fatalf("got %d task records, want 4 (chain + three stages)", len(records))
	}
	for _, record := range records {
		if record.Status != store.TaskCompleted {
			t.Fatalf("record %s status = %s", record.Kind, record.Status)
		}
	}
}

func TestProcessChainAbortsAfterFetchFailure(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid9")
	f.fetcher.err = services.Wrap(services.ErrExternalTool, "fetch_audio", "download audio", "exit status 1", nil)

	result := f.pipeline.ProcessChain(context.Background(), queue.ProcessChainArgs{
		VideoID:   video.ID,
		SourceURL: "https://youtu.be/vid9",
	}, pipeline.RunOptions{})
	if !result.Failed() {
		t.Fatal("expected chain failure")
	}
	if f.transcriber.calls != 0 || f.summarizer.calls != 0 {
		t.Fatal("later stages must not run after fetch fails")
	}

	records := f.taskRecords(t, video.ID)
	// Chain record plus the failed fetch record.
	if len(records) != 2 {
		t.Fatalf("got %d task records, want 2", len(records))
	}
	for _, record := range records {
		if record.Status != store.TaskFailed {
			t.Fatalf("record %s status = %s, want FAILED", record.Kind, record.Status)
		}
	}
}

func TestStageResumeReusesTaskRecord(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid10")
	f.transcriber.err = services.Wrap(services.ErrTransient, "transcribe", "http error", "connection reset", nil)
	f.seedBlob(t, video.ID, 32)

	first := f.pipeline.Transcribe(context.Background(), queue.TranscribeArgs{VideoID: video.ID}, pipeline.RunOptions{})
	if !first.Failed() || !first.Retryable() {
		t.Fatalf("expected retryable failure, got %+v", first)
	}

	f.transcriber.err = nil
	f.transcriber.texts = []string{"second attempt text"}
	second := f.pipeline.Transcribe(context.Background(), queue.TranscribeArgs{VideoID: video.ID}, pipeline.RunOptions{
		ResumeTaskID: first.TaskID,
	})
	if second.Failed() {
		t.Fatalf("retry failed: %v", second.Err)
	}
	if second.TaskID != first.TaskID {
		t.Fatalf("retry created a new record: %d != %d", second.TaskID, first.TaskID)
	}

	records := f.taskRecords(t, video.ID)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != store.TaskCompleted || records[0].Retries != 1 {
		t.Fatalf("unexpected record after retry: %+v", records[0])
	}
}

func TestProcessChainAbortSendsErrorNotification(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid11")
	f.fetcher.err = services.Wrap(services.ErrExternalTool, "fetch_audio", "download audio", "exit status 1", nil)

	result := f.pipeline.ProcessChain(context.Background(), queue.ProcessChainArgs{
		VideoID:   video.ID,
		SourceURL: "https://youtu.be/vid11",
	}, pipeline.RunOptions{})
	if !result.Failed() {
		t.Fatal("expected chain failure")
	}

	if f.notifier.errors != 1 {
		t.Fatalf("error notifications = %d, want 1", f.notifier.errors)
	}
	if label := f.notifier.errorLabels[0]; !strings.Contains(label, "fetch_audio") {
		t.Errorf("error label = %q, want failed stage named", label)
	}
	if f.notifier.chainCompleted != 0 {
		t.Error("aborted chain must not report completion")
	}
}

func TestProcessChainSuccessDoesNotSendErrorNotification(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid12")
	f.seedDownload(t, video.ID, 64)
	f.transcriber.texts = []string{strings.Repeat("c", 50)}

	result := f.pipeline.ProcessChain(context.Background(), queue.ProcessChainArgs{
		VideoID:   video.ID,
		SourceURL: "https://youtu.be/vid12",
	}, pipeline.RunOptions{})
	if result.Failed() {
		t.Fatalf("ProcessChain failed: %v", result.Err)
	}

	if f.notifier.errors != 0 {
		t.Fatalf("error notifications = %d, want 0", f.notifier.errors)
	}
	if f.notifier.chainStarted != 1 || f.notifier.chainCompleted != 1 {
		t.Errorf("chain notifications = %d started / %d completed, want 1/1",
			f.notifier.chainStarted, f.notifier.chainCompleted)
	}
}

// completeFailStore delegates to a real store but refuses the completion
// write, as a busy database would.
type completeFailStore struct {
	pipeline.Store
	err error
}

func (s *completeFailStore) CompleteTask(context.Context, int64, string) error {
	return s.err
}

func TestStageCompletionWriteFailureMarksRecordFailed(t *testing.T) {
	f := newFixture(t)
	video := f.newVideo(t, "vid13")
	if err := f.store.SetTranscript(context.Background(), video.ID, strings.Repeat("d", 50)); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}

	wrapped := &completeFailStore{
		Store: f.store,
		err:   services.Wrap(services.ErrTransient, "summarize", "complete task", "database is locked", nil),
	}
	p, err := pipeline.New(f.cfg, wrapped, f.blobs, f.fetcher, f.transcriber, f.summarizer, f.notifier, nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}

	result := p.Summarize(context.Background(), queue.SummarizeArgs{VideoRef: video.ExternalID}, pipeline.RunOptions{})
	if !result.Failed() {
		t.Fatal("expected failure when the completion write is rejected")
	}

	records := f.taskRecords(t, video.ID)
	if len(records) != 1 {
		t.Fatalf("got %d task records, want 1", len(records))
	}
	if records[0].Status != store.TaskFailed {
		t.Fatalf("record status = %s, want %s", records[0].Status, store.TaskFailed)
	}
	if !strings.Contains(records[0].ErrorMessage, "database is locked") {
		t.Errorf("error message = %q, want completion failure recorded", records[0].ErrorMessage)
	}
}
