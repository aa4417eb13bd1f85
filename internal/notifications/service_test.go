package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/config"
	"github.com/wipash/northgrove-timelapse/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunFailed(context.Background(), errors.New("boom"), 1); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.OnSuccess = true

	svc := notifications.NewService(&cfg)

	if err := svc.NotifyRunCompleted(context.Background(), 3, 12, 2, 95*time.Second); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.title != "Timelapse - Run Complete" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Run complete: 3 built, 12 skipped, 2 evicted in 1m35s" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.tags != "timelapse,run,completed" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
	if captured.priority != "" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}

	if err := svc.NotifyRunFailed(context.Background(), errors.New("state persist failed"), 2); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if captured.title != "Timelapse - Run Failed" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Run failed (2 keys): state persist failed" {
		t.Fatalf("unexpected message %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.OnSuccess = false
	cfg.Notifications.OnFailure = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), 1, 0, 0, time.Second); err != nil {
		t.Fatalf("suppressed success push returned error: %v", err)
	}
	if err := svc.NotifyRunFailed(context.Background(), errors.New("boom"), 0); err != nil {
		t.Fatalf("suppressed failure push returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunFailed(context.Background(), errors.New("boom"), 0); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
