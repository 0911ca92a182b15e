package notifications_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"overseer/internal/notifications"
	"overseer/internal/testsupport"
)

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""

	service := notifications.NewService(cfg)
	if err := service.NotifyTaskStarted(context.Background(), "nightly", 4); err != nil {
		t.Fatalf("noop NotifyTaskStarted: %v", err)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop TestNotification: %v", err)
	}
}

func TestNtfyServiceSendsHeaders(t *testing.T) {
	var gotTitle, gotTags string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL

	service := notifications.NewService(cfg)
	if err := service.NotifyTaskCompleted(context.Background(), "nightly", 3, 1, 120.5); err != nil {
		t.Fatalf("NotifyTaskCompleted: %v", err)
	}
	if gotTitle != "Overseer - Task Complete (with failures)" {
		t.Errorf("Title = %q", gotTitle)
	}
	if gotTags != "overseer,task,completed" {
		t.Errorf("Tags = %q", gotTags)
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.TaskStarted = false
	cfg.Notifications.Errors = false

	service := notifications.NewService(cfg)
	if err := service.NotifyTaskStarted(context.Background(), "nightly", 4); err != nil {
		t.Fatalf("NotifyTaskStarted: %v", err)
	}
	if err := service.NotifyError(context.Background(), errors.New("boom"), "scheduler"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if calls != 0 {
		t.Fatalf("suppressed notifications still sent %d requests", calls)
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL

	service := notifications.NewService(cfg)
	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("TestNotification succeeded against 403 response")
	}
}
