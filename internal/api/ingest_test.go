package api_test

import (
	"context"
	"testing"

	"scribe/internal/api"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/services/catalog"
	"scribe/internal/store"
	"scribe/internal/testsupport"
)

type fakeCatalog struct {
	meta         *catalog.Metadata
	captions     string
	captionsErr  error
	captionCalls int
}

func (f *fakeCatalog) FetchMetadata(ctx context.Context, externalID string) (*catalog.Metadata, error) {
	if f.meta == nil {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "fetch metadata", "video not found", nil)
	}
	return f.meta, nil
}

func (f *fakeCatalog) FetchCaptions(ctx context.Context, externalID string) (string, error) {
	f.captionCalls++
	return f.captions, f.captionsErr
}

func newFixture(t *testing.T) (*store.Store, *queue.Queue) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.NewRedis(t, cfg)
	st := testsupport.MustOpenStore(t, cfg)
	q := queue.New(cfg)
	t.Cleanup(func() { q.Close() })
	return st, q
}

func TestIngestWithoutCaptionsEnqueuesChain(t *testing.T) {
	st, q := newFixture(t)
	ctx := context.Background()
	cat := &fakeCatalog{meta: &catalog.Metadata{
		ExternalID:   "dQw4w9WgXcQ",
		Title:        "Never Gonna Give You Up",
		ChannelTitle: "Rick Astley",
		HasCaptions:  false,
	}}

	result, err := api.Ingest(ctx, api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Mode != api.IngestModeChain {
		t.Fatalf("mode = %s, want %s", result.Mode, api.IngestModeChain)
	}
	if result.Video.Title != "Never Gonna Give You Up" {
		t.Errorf("title = %q", result.Video.Title)
	}

	envelope, err := q.Dequeue(ctx)
	if err != nil || envelope == nil {
		t.Fatalf("Dequeue: %v %v", envelope, err)
	}
	if envelope.Stage != queue.StageProcessChain {
		t.Errorf("stage = %s, want %s", envelope.Stage, queue.StageProcessChain)
	}
	if envelope.Priority != queue.PriorityLow {
		t.Errorf("priority = %s, want low", envelope.Priority)
	}
	var args queue.ProcessChainArgs
	if err := envelope.Decode(&args); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if args.VideoID != result.Video.ID {
		t.Errorf("args video id = %d, want %d", args.VideoID, result.Video.ID)
	}
}

func TestIngestWithCaptionsStoresTranscriptAndEnqueuesSummarize(t *testing.T) {
	st, q := newFixture(t)
	ctx := context.Background()
	cat := &fakeCatalog{
		meta:     &catalog.Metadata{ExternalID: "abc12345678", Title: "Talk", HasCaptions: true},
		captions: "hello from the captions track",
	}

	result, err := api.Ingest(ctx, api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://youtu.be/abc12345678")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Mode != api.IngestModeCaptions {
		t.Fatalf("mode = %s, want %s", result.Mode, api.IngestModeCaptions)
	}

	video, err := st.GetVideoByExternalID(ctx, "abc12345678")
	if err != nil || video == nil {
		t.Fatalf("GetVideoByExternalID: %v %v", video, err)
	}
	if video.TranscriptText != "hello from the captions track" {
		t.Errorf("transcript = %q", video.TranscriptText)
	}

	envelope, err := q.Dequeue(ctx)
	if err != nil || envelope == nil {
		t.Fatalf("Dequeue: %v %v", envelope, err)
	}
	if envelope.Stage != queue.StageSummarize {
		t.Errorf("stage = %s, want %s", envelope.Stage, queue.StageSummarize)
	}
	if envelope.Priority != queue.PriorityHigh {
		t.Errorf("priority = %s, want high", envelope.Priority)
	}
}

func TestIngestFallsBackToChainWhenCaptionFetchComesUpEmpty(t *testing.T) {
	st, q := newFixture(t)
	ctx := context.Background()
	cat := &fakeCatalog{
		meta:     &catalog.Metadata{ExternalID: "abc12345678", Title: "Talk", HasCaptions: true},
		captions: "",
	}

	result, err := api.Ingest(ctx, api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://youtu.be/abc12345678")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Mode != api.IngestModeChain {
		t.Fatalf("mode = %s, want %s", result.Mode, api.IngestModeChain)
	}
	if cat.captionCalls != 1 {
		t.Errorf("caption calls = %d, want 1", cat.captionCalls)
	}
}

func TestIngestRejectsUnparseableURL(t *testing.T) {
	st, q := newFixture(t)
	cat := &fakeCatalog{}

	_, err := api.Ingest(context.Background(), api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://example.com/not-a-video")
	if err == nil {
		t.Fatal("expected error for unparseable URL")
	}
}

func TestIngestTwicePreservesPipelineOutput(t *testing.T) {
	st, q := newFixture(t)
	ctx := context.Background()
	cat := &fakeCatalog{meta: &catalog.Metadata{ExternalID: "abc12345678", Title: "Talk"}}

	first, err := api.Ingest(ctx, api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://youtu.be/abc12345678")
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if err := st.SetSummary(ctx, first.Video.ID, "the summary", "the points"); err != nil {
		t.Fatalf("SetSummary: %v", err)
	}

	cat.meta.Title = "Talk (updated)"
	second, err := api.Ingest(ctx, api.IngestRequest{Store: st, Queue: q, Catalog: cat},
		"https://youtu.be/abc12345678")
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if second.Video.ID != first.Video.ID {
		t.Fatalf("upsert created new row: %d != %d", second.Video.ID, first.Video.ID)
	}
	if second.Video.Title != "Talk (updated)" {
		t.Errorf("title = %q, want updated metadata", second.Video.Title)
	}
	if second.Video.SummaryText != "the summary" {
		t.Errorf("summary lost on re-ingest: %q", second.Video.SummaryText)
	}
}
