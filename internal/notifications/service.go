package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"overseer/internal/config"
)

const userAgent = "Overseer-Go/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyTaskStarted(ctx context.Context, taskName string, accounts int) error
	NotifyTaskCompleted(ctx context.Context, taskName string, success, failed int, balance float64) error
	NotifyTaskCancelled(ctx context.Context, taskName string) error
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
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		taskStarted:   cfg.Notifications.TaskStarted,
		taskCompleted: cfg.Notifications.TaskCompleted,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	taskStarted   bool
	taskCompleted bool
	errors        bool
}

func (n *ntfyService) NotifyTaskStarted(ctx context.Context, taskName string, accounts int) error {
	if !n.taskStarted {
		return nil
	}
	taskName = strings.TrimSpace(taskName)
	data := payload{
		title:   "Overseer - Task Started",
		message: fmt.Sprintf("Started %s with %d accounts", taskName, accounts),
		tags:    []string{"overseer", "task", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, taskName string, success, failed int, balance float64) error {
	if !n.taskCompleted {
		return nil
	}
	taskName = strings.TrimSpace(taskName)

	var title, message string
	if failed == 0 {
		title = "Overseer - Task Complete"
		message = fmt.Sprintf("%s finished: %d succeeded, balance %.2f", taskName, success, balance)
	} else {
		title = "Overseer - Task Complete (with failures)"
		message = fmt.Sprintf("%s finished: %d succeeded, %d failed, balance %.2f", taskName, success, failed, balance)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"overseer", "task", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskCancelled(ctx context.Context, taskName string) error {
	if !n.taskCompleted {
		return nil
	}
	taskName = strings.TrimSpace(taskName)
	data := payload{
		title:   "Overseer - Task Cancelled",
		message: fmt.Sprintf("%s was cancelled", taskName),
		tags:    []string{"overseer", "task", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
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
		title:    "Overseer - Error",
		message:  builder.String(),
		tags:     []string{"overseer", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Overseer - Test",
		message:  "Notification system test",
		tags:     []string{"overseer", "test"},
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

func (noopService) NotifyTaskStarted(context.Context, string, int) error                 { return nil }
func (noopService) NotifyTaskCompleted(context.Context, string, int, int, float64) error { return nil }
func (noopService) NotifyTaskCancelled(context.Context, string) error                    { return nil }
func (noopService) NotifyError(context.Context, error, string) error                     { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
