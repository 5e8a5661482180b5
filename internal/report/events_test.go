package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestLogger(t *testing.T, minLevel EventLevel) *EventLogger {
	t.Helper()
	dir := t.TempDir()
	l, err := NewEventLogger(dir, minLevel)
	if err != nil {
		t.Fatalf("NewEventLogger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		events = append(events, e)
	}
	return events
}

func TestLogScanWritesDebugEvent(t *testing.T) {
	l := openTestLogger(t, LevelDebug)
	if err := l.LogScan("/music/song.mp3", "audio/mpeg"); err != nil {
		t.Fatalf("LogScan: %v", err)
	}
	l.Close()

	events := readEvents(t, l.Path())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Event != EventScan || events[0].Path != "/music/song.mp3" || events[0].ContentType != "audio/mpeg" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestLogExtractRecordsFallback(t *testing.T) {
	l := openTestLogger(t, LevelDebug)
	if err := l.LogExtract("/music/broken.mp3", true, errors.New("tag parse failed")); err != nil {
		t.Fatalf("LogExtract: %v", err)
	}
	l.Close()

	events := readEvents(t, l.Path())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Event != EventExtract || !e.Fallback || e.Level != LevelWarning || e.Error == "" {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestMinLevelFiltersLowerEvents(t *testing.T) {
	l := openTestLogger(t, LevelWarning)
	l.LogScan("/music/song.mp3", "audio/mpeg")
	l.LogExtract("/music/song.mp3", false, nil)
	l.Close()

	events := readEvents(t, l.Path())
	for _, e := range events {
		if e.Event == EventScan {
			t.Errorf("expected debug-level scan event to be filtered out, found %+v", e)
		}
	}
}

func TestNullLoggerIsNoOp(t *testing.T) {
	var l *EventLogger
	if err := l.LogScan("/music/song.mp3", "audio/mpeg"); err != nil {
		t.Errorf("expected nil error from null logger, got %v", err)
	}
	if l.Path() != "" {
		t.Errorf("expected empty path from null logger")
	}
	if err := l.Close(); err != nil {
		t.Errorf("expected nil error closing null logger, got %v", err)
	}
}

func TestLogErrorWritesErrorLevel(t *testing.T) {
	l := openTestLogger(t, LevelDebug)
	if err := l.LogError("/media/usb", errors.New("watch setup failed")); err != nil {
		t.Fatalf("LogError: %v", err)
	}
	l.Close()

	events := readEvents(t, l.Path())
	if len(events) != 1 || events[0].Level != LevelError || events[0].Event != EventError {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestEventLogPathIsUnderOutputDir(t *testing.T) {
	l := openTestLogger(t, LevelDebug)
	if filepath.Dir(l.Path()) == "." {
		t.Errorf("expected event log path to live under the temp output dir, got %s", l.Path())
	}
}
