// Package report implements a structured JSONL event log for the
// scanner's activity: one line per scan, extraction or error, suitable
// for tailing or offline analysis.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	EventScan    EventType = "scan"
	EventExtract EventType = "extract"
	EventError   EventType = "error"
)

// EventLevel represents the severity level.
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the scanner's activity.
type Event struct {
	Timestamp   time.Time  `json:"ts"`
	Level       EventLevel `json:"level"`
	Event       EventType  `json:"event"`
	Path        string     `json:"path,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Fallback    bool       `json:"fallback,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// EventLogger writes events to a JSONL file.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level;
// events below minLevel are dropped.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file.
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogScan logs a directory-scanner detection.
func (l *EventLogger) LogScan(path, contentType string) error {
	return l.Log(&Event{
		Level:       LevelDebug,
		Event:       EventScan,
		Path:        path,
		ContentType: contentType,
	})
}

// LogExtract logs a metadata-extraction outcome. fallback reports
// whether the extractor's own parse failed and the identity-only
// fallback record was inserted instead.
func (l *EventLogger) LogExtract(path string, fallback bool, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelWarning
		errMsg = err.Error()
	}
	return l.Log(&Event{
		Level:    level,
		Event:    EventExtract,
		Path:     path,
		Fallback: fallback,
		Error:    errMsg,
	})
}

// LogError logs a failure not tied to a specific extraction attempt
// (store errors, watcher setup failures, and the like).
func (l *EventLogger) LogError(path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: EventError,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file.
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the path to the event log file.
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger.
func NullLogger() *EventLogger {
	return nil
}
