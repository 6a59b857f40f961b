package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inrs-ai/CBOE-VIX/config"
	"github.com/inrs-ai/CBOE-VIX/history"
	"github.com/inrs-ai/CBOE-VIX/job"
	"github.com/inrs-ai/CBOE-VIX/notifier"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, exitOK},
		{"fetch failed", job.ErrFetchFailed, exitFetchFailed},
		{"record failed", fmt.Errorf("%w: permission denied", job.ErrRecordFailed), exitRecordFailed},
		{"unknown", errors.New("boom"), exitConfig},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.expected {
			t.Errorf("%s: expected exit code %d, got %d", tt.name, tt.expected, got)
		}
	}
}

func TestStaleAfter(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	daily, err := cron.ParseStandard("0 22 * * *")
	if err != nil {
		t.Fatalf("Failed to parse schedule: %v", err)
	}
	if got := staleAfter(daily, now); got != 48*time.Hour {
		t.Errorf("Expected 48h, got %v", got)
	}

	every, err := cron.ParseStandard("@every 30m")
	if err != nil {
		t.Fatalf("Failed to parse schedule: %v", err)
	}
	if got := staleAfter(every, now); got != time.Hour {
		t.Errorf("Expected 1h, got %v", got)
	}
}

func TestCronLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := cronLogger{logger: zap.New(core)}

	l.Info("schedule", "entry", 1)
	l.Error(errors.New("panic"), "job failed", "entry", 1)

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if entries[1].Level != zap.ErrorLevel || entries[1].ContextMap()["error"] == nil {
		t.Errorf("Expected error entry with error field, got %+v", entries[1])
	}
}

func TestRun_EmptySMTPPortSkipsMailAndRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{"indicators":{"quote":[{"close":[16.234]}]}}],"error":null}}`))
	}))
	defer server.Close()

	historyPath := filepath.Join(t.TempDir(), "data.json")
	t.Setenv("QUOTE_URL", server.URL)
	t.Setenv("HISTORY_FILE", historyPath)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USER", "bot")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("EMAIL_FROM", "bot@example.com")
	t.Setenv("EMAIL_TO", "me@example.com")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Expected config to load, got: %v", err)
	}

	report, err := newJob(cfg, false, zap.NewNop()).Run(context.Background())
	if code := exitCode(err); code != exitOK {
		t.Fatalf("Expected exit code %d, got %d (%v)", exitOK, code, err)
	}
	if report.Notify.Outcome != notifier.OutcomeSkipped {
		t.Errorf("Expected skipped notify outcome, got %s", report.Notify.Outcome)
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		t.Fatalf("Expected history file, got: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("History file is not valid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Value != 16.23 {
		t.Errorf("Expected one entry with value 16.23, got %+v", entries)
	}
}
