package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

func reading(value float64) types.Reading {
	return types.NewReading("^VIX", value, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), time.UTC)
}

func writeEntries(t *testing.T, path string, n int) {
	t.Helper()
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Date: fmt.Sprintf("2024-02-%02d 09:30:00", 28-i), Value: float64(i)}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
}

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read history file: %v", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("History file is not valid JSON: %v", err)
	}
	return entries
}

func TestRecord_FrontInsertAndTruncate(t *testing.T) {
	for n := 0; n <= 12; n++ {
		t.Run(fmt.Sprintf("existing=%d", n), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			if n > 0 {
				writeEntries(t, path, n)
			}

			entries, err := New(path, zap.NewNop()).Record(context.Background(), reading(17.46))
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}

			expected := n + 1
			if expected > MaxEntries {
				expected = MaxEntries
			}

			stored := readEntries(t, path)
			if len(stored) != expected || len(entries) != expected {
				t.Fatalf("Expected %d entries, got %d stored / %d returned", expected, len(stored), len(entries))
			}

			if stored[0].Date != "2024-03-01 09:30:00" || stored[0].Value != 17.46 {
				t.Errorf("Expected new reading first, got %+v", stored[0])
			}

			// Previous entries keep their order, shifted by one
			for i := 1; i < len(stored); i++ {
				if stored[i].Value != float64(i-1) {
					t.Errorf("Entry %d: expected value %v, got %v", i, float64(i-1), stored[i].Value)
				}
			}
		})
	}
}

func TestRecord_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	if _, err := New(path, zap.NewNop()).Record(context.Background(), reading(20)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stored := readEntries(t, path)
	if len(stored) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(stored))
	}
}

func TestLoad_UnusableContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"corrupt", `[{"date": "2024-01-01`},
		{"empty", ``},
		{"object", `{"date": "2024-01-01 00:00:00", "value": 1}`},
		{"null", `null`},
		{"wrong element types", `[1, 2, 3]`},
		{"mistyped value", `[{"date": "2024-01-01 00:00:00", "value": 11.5}, {"date": "2024-01-02 00:00:00", "value": "12.3"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write fixture: %v", err)
			}

			r := New(path, zap.NewNop())
			if entries := r.Load(); len(entries) != 0 {
				t.Errorf("Expected empty history, got %v", entries)
			}

			if _, err := r.Record(context.Background(), reading(33.1)); err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if stored := readEntries(t, path); len(stored) != 1 {
				t.Errorf("Expected corrupt history replaced by 1 entry, got %d", len(stored))
			}
		})
	}
}

func TestLoad_MissingFileIsEmptyNotNil(t *testing.T) {
	entries := New(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop()).Load()
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected empty non-nil history, got %#v", entries)
	}
}

func TestRecord_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	r := New(path, zap.NewNop())

	if _, err := r.Record(context.Background(), reading(12.92)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read history file: %v", err)
	}

	expected := "[\n  {\n    \"date\": \"2024-03-01 09:30:00\",\n    \"value\": 12.92\n  }\n]\n"
	if string(data) != expected {
		t.Errorf("Unexpected file content:\n%s", data)
	}
}

func TestRecord_WriteFailure(t *testing.T) {
	// A directory cannot be written as a file
	path := t.TempDir()

	_, err := New(path, zap.NewNop()).Record(context.Background(), reading(15))
	if err == nil {
		t.Fatal("Expected write error")
	}
	if !strings.Contains(err.Error(), "failed to write history file") {
		t.Errorf("Unexpected error: %v", err)
	}
}
