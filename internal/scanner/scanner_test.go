package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

type stubDetector struct{}

func (stubDetector) Detect(path string) (*media.DetectedFile, error) {
	switch filepath.Ext(path) {
	case ".mp3":
		return &media.DetectedFile{Filename: path, Type: media.Audio}, nil
	case ".jpg":
		return &media.DetectedFile{Filename: path, Type: media.Image}, nil
	default:
		return nil, errors.New("unclassifiable")
	}
}

func collect(t *testing.T, s *Scanner) []string {
	t.Helper()
	var got []string
	for {
		d, err := s.Next()
		if errors.Is(err, util.ErrEndOfIteration) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected scanner error: %v", err)
		}
		got = append(got, d.Filename)
	}
	return got
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScannerFiltersByType(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "song.mp3"))
	writeFile(t, filepath.Join(root, "photo.jpg"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	s := New(stubDetector{}, root, media.Audio)
	got := collect(t, s)
	if len(got) != 1 || filepath.Base(got[0]) != "song.mp3" {
		t.Errorf("expected only song.mp3, got %v", got)
	}
}

func TestScannerSkipsHiddenAndOptedOut(t *testing.T) {
	root := t.TempDir()
	hidden := filepath.Join(root, ".hidden")
	if err := os.Mkdir(hidden, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(hidden, "song.mp3"))

	optedOut := filepath.Join(root, "skip")
	if err := os.Mkdir(optedOut, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(optedOut, ".nomedia"))
	writeFile(t, filepath.Join(optedOut, "song.mp3"))

	visible := filepath.Join(root, "visible")
	if err := os.Mkdir(visible, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(visible, "song.mp3"))

	s := New(stubDetector{}, root, media.AllMedia)
	got := collect(t, s)
	if len(got) != 1 || filepath.Dir(got[0]) != visible {
		t.Errorf("expected only the visible song, got %v", got)
	}
}

func TestScannerRecursesIntoSubdirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir all: %v", err)
	}
	writeFile(t, filepath.Join(nested, "deep.mp3"))

	s := New(stubDetector{}, root, media.AllMedia)
	got := collect(t, s)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %v", got)
	}
}
