package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipper/internal/config"
)

const userAgent = "Clipper-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifySplitCompleted(ctx context.Context, source string, scenes, failed int) error
	NotifyIngestCompleted(ctx context.Context, videoUID string, segments int) error
	NotifyIngestFailed(ctx context.Context, videoUID string, cause error) error
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
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		splitEvents:  cfg.Notifications.SplitEvents,
		ingestEvents: cfg.Notifications.IngestEvents,
		errorEvents:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	splitEvents  bool
	ingestEvents bool
	errorEvents  bool
}

func (n *ntfyService) NotifySplitCompleted(ctx context.Context, source string, scenes, failed int) error {
	if !n.splitEvents {
		return nil
	}
	source = strings.TrimSpace(source)
	message := fmt.Sprintf("Split complete: %s (%d scenes)", source, scenes)
	if failed > 0 {
		message = fmt.Sprintf("Split complete with errors: %s (%d scenes, %d failed)", source, scenes, failed)
	}
	data := payload{
		title:   "Clipper - Split Complete",
		message: message,
		tags:    []string{"clipper", "split", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIngestCompleted(ctx context.Context, videoUID string, segments int) error {
	if !n.ingestEvents {
		return nil
	}
	data := payload{
		title:   "Clipper - Ingested",
		message: fmt.Sprintf("Ingest complete: %s (%d segments)", strings.TrimSpace(videoUID), segments),
		tags:    []string{"clipper", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIngestFailed(ctx context.Context, videoUID string, cause error) error {
	if !n.errorEvents {
		return nil
	}
	reason := "unknown"
	if cause != nil {
		reason = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Clipper - Ingest Failed",
		message:  fmt.Sprintf("Ingest failed: %s: %s", strings.TrimSpace(videoUID), reason),
		tags:     []string{"clipper", "ingest", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipper - Test",
		message:  "Notification system test",
		tags:     []string{"clipper", "test"},
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

func (noopService) NotifySplitCompleted(context.Context, string, int, int) error { return nil }
func (noopService) NotifyIngestCompleted(context.Context, string, int) error     { return nil }
func (noopService) NotifyIngestFailed(context.Context, string, error) error      { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
