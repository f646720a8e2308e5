package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
	"scribe/internal/queue"
	"scribe/internal/store"
	"scribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	testsupport.NewRedis(t, cfg)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func seedVideo(t *testing.T, env *cliTestEnv, externalID string) *store.Video {
	t.Helper()
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	return testsupport.NewVideo(t, st, externalID, "https://youtu.be/"+externalID)
}

func TestQueueStatusOnEmptyBackends(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !strings.Contains(stdout, "high") || !strings.Contains(stdout, "low") {
		t.Errorf("missing queue depth rows:\n%s", stdout)
	}
	if !strings.Contains(stdout, "TOTAL") {
		t.Errorf("missing health total row:\n%s", stdout)
	}
}

func TestQueueListShowsRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := st.NewTaskRecord(context.Background(), video.ID, string(queue.StageTranscribe), string(queue.PriorityLow)); err != nil {
		t.Fatalf("NewTaskRecord: %v", err)
	}
	st.Close()

	stdout, _, err := runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(stdout, "Transcribe") {
		t.Errorf("missing stage label:\n%s", stdout)
	}
	if !strings.Contains(stdout, "PENDING") {
		t.Errorf("missing status:\n%s", stdout)
	}
}

func TestEnqueueQueuesStageForKnownVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	stdout, _, err := runCLI(t, env, "enqueue", "transcribe", video.ExternalID, "--priority", "high")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.Contains(stdout, "Queued transcribe") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	q := queue.New(env.cfg)
	defer q.Close()
	high, low, err := q.Depth(context.Background())
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if high != 1 || low != 0 {
		t.Errorf("depth = %d/%d, want 1/0", high, low)
	}
}

func TestEnqueueRejectsUnknownStage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "enqueue", "reticulate", "vid000000001")
	if err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected unknown stage error, got %v", err)
	}
}

func TestEnqueueRejectsUnknownVideo(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "enqueue", "transcribe", "missing0000x")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestQueueClearRemovesPendingTasks(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	q := queue.New(env.cfg)
	if _, err := q.Enqueue(context.Background(), queue.PriorityLow, queue.StageProcessChain,
		queue.ProcessChainArgs{VideoID: video.ID}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Close()

	stdout, _, err := runCLI(t, env, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(stdout, "Cleared 1 pending tasks") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestShowDisplaysVideoDetail(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.SetSummary(context.Background(), video.ID, "A talk about compilers.", "compilers are neat"); err != nil {
		t.Fatalf("SetSummary: %v", err)
	}
	st.Close()

	stdout, _, err := runCLI(t, env, "show", video.ExternalID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(stdout, "A talk about compilers.") {
		t.Errorf("missing summary:\n%s", stdout)
	}
	if !strings.Contains(stdout, "compilers are neat") {
		t.Errorf("missing key points:\n%s", stdout)
	}
}

func TestShowUnknownVideoFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "show", "missing0000x")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "config.toml")

	stdout, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, "Wrote sample configuration") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	_, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}
}

func TestQueueRetryReQueuesFailedTask(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ctx := context.Background()
	record, err := st.NewTaskRecord(ctx, video.ID, string(queue.StageTranscribe), string(queue.PriorityLow))
	if err != nil {
		t.Fatalf("NewTaskRecord: %v", err)
	}
	if err := st.StartTask(ctx, record.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if err := st.FailTask(ctx, record.ID, "boom"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	st.Close()

	stdout, _, err := runCLI(t, env, "queue", "retry", "1")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(stdout, "re-queued") {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	q := queue.New(env.cfg)
	defer q.Close()
	high, low, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if high+low != 1 {
		t.Errorf("depth = %d/%d, want one pending task", high, low)
	}
}

func TestQueueClearFailedDeletesRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	video := seedVideo(t, env, "vid000000001")

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ctx := context.Background()
	record, err := st.NewTaskRecord(ctx, video.ID, string(queue.StageFetchAudio), string(queue.PriorityLow))
	if err != nil {
		t.Fatalf("NewTaskRecord: %v", err)
	}
	if err := st.StartTask(ctx, record.ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if err := st.FailTask(ctx, record.ID, "boom"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	st.Close()

	stdout, _, err := runCLI(t, env, "queue", "clear-failed")
	if err != nil {
		t.Fatalf("queue clear-failed: %v", err)
	}
	if !strings.Contains(stdout, "Deleted 1 failed task records") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}
