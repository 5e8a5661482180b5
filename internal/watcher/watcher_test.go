//go:build linux

package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/franz/music-janitor/internal/media"
)

type fakeStore struct {
	mu      sync.Mutex
	etags   map[string]string
	broken  map[string]string
	removed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{etags: map[string]string{}, broken: map[string]string{}}
}

func (s *fakeStore) Insert(f *media.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etags[f.Filename] = f.Etag
	delete(s.broken, f.Filename)
	return nil
}

func (s *fakeStore) Remove(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.etags, filename)
	s.removed = append(s.removed, filename)
	return nil
}

func (s *fakeStore) RemoveSubtree(directory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f := range s.etags {
		if filepath.Dir(f)+"/" == directory || f == directory {
			delete(s.etags, f)
		}
	}
	return nil
}

func (s *fakeStore) GetETag(filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etags[filename], nil
}

func (s *fakeStore) IsBrokenFile(filename, etag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken[filename] == etag && etag != "", nil
}

func (s *fakeStore) InsertBrokenFile(filename, etag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[filename] = etag
	return nil
}

type fakeExtractor struct{}

func (fakeExtractor) Detect(path string) (*media.DetectedFile, error) {
	return &media.DetectedFile{Filename: path, Etag: "e1", Type: media.Audio}, nil
}

func (fakeExtractor) Extract(d *media.DetectedFile) (*media.File, error) {
	return &media.File{Filename: d.Filename, Etag: d.Etag, Type: d.Type, Title: "t"}, nil
}

type fakeInvalidator struct {
	mu      sync.Mutex
	signals int
}

func (f *fakeInvalidator) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals++
}

func TestWatcherDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	inv := &fakeInvalidator{}

	w, err := New(store, fakeExtractor{}, inv)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("add dir: %v", err)
	}

	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	waitForEvents(t, w)

	if store.etags[path] != "e1" {
		t.Errorf("expected file to be inserted with etag e1, store = %+v", store.etags)
	}
	if inv.signals == 0 {
		t.Error("expected invalidator to be signaled")
	}
}

func TestWatcherStoppedWhenUnwatched(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	w, err := New(store, fakeExtractor{}, &fakeInvalidator{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if w.Stopped() != true {
		t.Fatal("expected freshly-created watcher to report stopped (nothing watched yet)")
	}
	if err := w.AddDir(dir); err != nil {
		t.Fatalf("add dir: %v", err)
	}
	if w.Stopped() {
		t.Error("expected watcher not stopped once a directory is watched")
	}
}

func waitForEvents(t *testing.T, w *Watcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.Run()
		time.Sleep(20 * time.Millisecond)
	}
}
