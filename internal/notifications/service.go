package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
)

const userAgent = "Scribe/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyVideoIngested(ctx context.Context, title string) error
	NotifyChainStarted(ctx context.Context, title string) error
	NotifyChainCompleted(ctx context.Context, title string, duration time.Duration) error
	NotifySummaryReady(ctx context.Context, title string, chunks int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		sendChain:   cfg.Notifications.Chain,
		sendSummary: cfg.Notifications.Summary,
		sendErrors:  cfg.Notifications.Errors,
	}
}

// Noop returns a notification service that drops every event.
func Noop() Service {
	return noopService{}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	sendChain   bool
	sendSummary bool
	sendErrors  bool
}

func (n *ntfyService) NotifyVideoIngested(ctx context.Context, title string) error {
	if !n.sendChain {
		return nil
	}
	data := payload{
		title:   "Scribe - Video Added",
		message: fmt.Sprintf("Queued for processing: %s", strings.TrimSpace(title)),
		tags:    []string{"scribe", "ingest", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyChainStarted(ctx context.Context, title string) error {
	if !n.sendChain {
		return nil
	}
	data := payload{
		title:   "Scribe - Processing Started",
		message: fmt.Sprintf("Started processing: %s", strings.TrimSpace(title)),
		tags:    []string{"scribe", "chain", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyChainCompleted(ctx context.Context, title string, duration time.Duration) error {
	if !n.sendChain {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:    "Scribe - Processing Complete",
		message:  fmt.Sprintf("Finished processing %s in %s", strings.TrimSpace(title), duration),
		tags:     []string{"scribe", "chain", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySummaryReady(ctx context.Context, title string, chunks int) error {
	if !n.sendSummary {
		return nil
	}
	data := payload{
		title:   "Scribe - Summary Ready",
		message: fmt.Sprintf("Summary ready for %s (%d chunks)", strings.TrimSpace(title), chunks),
		tags:    []string{"scribe", "summary", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Scribe - Error",
		message:  builder.String(),
		tags:     []string{"scribe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Scribe - Test",
		message:  "Notification system test",
		tags:     []string{"scribe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyVideoIngested(context.Context, string) error                 { return nil }
func (noopService) NotifyChainStarted(context.Context, string) error                  { return nil }
func (noopService) NotifyChainCompleted(context.Context, string, time.Duration) error { return nil }
func (noopService) NotifySummaryReady(context.Context, string, int) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
