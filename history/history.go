package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/inrs-ai/CBOE-VIX/pkg/buffer"
	"github.com/inrs-ai/CBOE-VIX/pkg/telemetry"
	"github.com/inrs-ai/CBOE-VIX/pkg/types"
)

// MaxEntries is the number of readings kept in the history file
const MaxEntries = 10

// Entry is one persisted reading
type Entry struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Recorder keeps a bounded, newest-first history of readings in a JSON file
type Recorder struct {
	path   string
	logger *zap.Logger
}

// New creates a Recorder backed by the file at path
func New(path string, logger *zap.Logger) *Recorder {
	return &Recorder{path: path, logger: logger}
}

// Path returns the history file location
func (r *Recorder) Path() string {
	return r.path
}

// Load reads the stored history. A missing or unreadable file yields an
// empty history.
func (r *Recorder) Load() []Entry {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Failed to read history file, starting empty",
				zap.String("path", r.path), zap.Error(err))
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("History file is not a valid JSON list, starting empty",
			zap.String("path", r.path), zap.Error(err))
		return []Entry{}
	}
	if entries == nil {
		// "null" decodes without error
		return []Entry{}
	}

	return entries
}

// Record inserts reading at the front of the history, drops everything
// past MaxEntries and rewrites the file. It returns the stored history.
func (r *Recorder) Record(ctx context.Context, reading types.Reading) ([]Entry, error) {
	ctx, span := otel.Tracer("history").Start(ctx, "history.Record")
	defer span.End()

	existing := r.Load()

	ring := buffer.New[Entry](MaxEntries, r.logger)
	for i := len(existing) - 1; i >= 0; i-- {
		ring.Add(existing[i])
	}
	ring.Add(Entry{Date: reading.Timestamp(), Value: reading.Value})
	entries := ring.Newest()

	span.SetAttributes(
		attribute.Int("history.entries", len(entries)),
		attribute.String("history.path", r.path))

	if err := r.write(entries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "history recorded")
	telemetry.InfoWithTrace(ctx, r.logger, "Data recorded",
		zap.String("path", r.path),
		zap.String("date", reading.Timestamp()),
		zap.Float64("value", reading.Value),
		zap.Int("entries", len(entries)))

	return entries, nil
}

func (r *Recorder) write(entries []Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.WriteFile(r.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", r.path, err)
	}
	return nil
}
