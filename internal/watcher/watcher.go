//go:build linux

// Package watcher implements the Subtree Watcher: a rooted recursive
// inotify watch over a directory subtree, maintaining a bijection
// between watch descriptors and directory paths and routing raw kernel
// events to add/remove actions against the catalog.
//
// It talks to the kernel inotify interface directly via
// golang.org/x/sys/unix rather than through fsnotify's portable event
// model: the contract needs to distinguish CLOSE_WRITE from MOVED_TO,
// and IGNORED/UNMOUNT from a plain DELETE_SELF, distinctions fsnotify
// collapses into fewer portable op codes.
package watcher

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/franz/music-janitor/internal/fsguard"
	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

const watchMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_DELETE_SELF |
	unix.IN_CLOSE_WRITE | unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// Store is the catalog capability the watcher needs.
type Store interface {
	Insert(f *media.File) error
	Remove(filename string) error
	RemoveSubtree(directory string) error
	GetETag(filename string) (string, error)
	IsBrokenFile(filename, etag string) (bool, error)
	InsertBrokenFile(filename, etag string) error
}

// Extractor is the classification/extraction capability the watcher
// needs from the Metadata Extractor.
type Extractor interface {
	Detect(path string) (*media.DetectedFile, error)
	Extract(d *media.DetectedFile) (*media.File, error)
}

// Invalidator is signaled once per drained batch of events that changed
// anything.
type Invalidator interface {
	Invalidate()
}

// Watcher is a rooted recursive inotify watch. Not safe for concurrent
// use by multiple goroutines other than its own event-reading loop.
type Watcher struct {
	fd         int
	store      Store
	extractor  Extractor
	invalidate Invalidator

	mu       sync.Mutex
	wdToPath map[int32]string
	pathToWd map[string]int32
}

// New opens an inotify instance and returns a Watcher ready to have
// directories added to it.
func New(store Store, extractor Extractor, invalidate Invalidator) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	return &Watcher{
		fd:         fd,
		store:      store,
		extractor:  extractor,
		invalidate: invalidate,
		wdToPath:   make(map[int32]string),
		pathToWd:   make(map[string]int32),
	}, nil
}

// Close releases the inotify instance.
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}

// FD returns the underlying inotify descriptor, for callers integrating
// it into their own poll/select loop.
func (w *Watcher) FD() int { return w.fd }

// Stopped reports whether the set of watched directories has become
// empty, per the contract's self-stop rule.
func (w *Watcher) Stopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pathToWd) == 0
}

// AddDir registers a watch on path and recurses into its existing
// children. Rejects non-absolute, rootlike, opt-out-marked or
// already-watched paths.
func (w *Watcher) AddDir(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s is not absolute", util.ErrInvalidConfig, path)
	}
	if fsguard.IsRootlike(path) || fsguard.HasOptOutMarker(path) {
		return nil
	}

	w.mu.Lock()
	_, already := w.pathToWd[path]
	w.mu.Unlock()
	if already {
		return nil
	}

	wd, err := unix.InotifyAddWatch(w.fd, path, watchMask)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.mu.Lock()
	w.wdToPath[int32(wd)] = path
	w.pathToWd[path] = int32(wd)
	w.mu.Unlock()

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if fsguard.IsHidden(entry.Name()) {
			continue
		}
		child := filepath.Join(path, entry.Name())
		if entry.IsDir() {
			w.AddDir(child)
		} else if entry.Type().IsRegular() {
			w.fileAdded(child)
		}
	}
	return nil
}

// removeDir unwatches path and every descendant directory currently
// tracked under it, and removes their records from the store.
func (w *Watcher) removeDir(path string) {
	w.mu.Lock()
	prefix := path + string(filepath.Separator)
	for p, wd := range w.pathToWd {
		if p == path || len(p) > len(prefix) && p[:len(prefix)] == prefix {
			unix.InotifyRmWatch(w.fd, uint32(wd))
			delete(w.pathToWd, p)
			delete(w.wdToPath, wd)
		}
	}
	w.mu.Unlock()

	w.store.RemoveSubtree(path)
}

// fileAdded implements the contract's file-added protocol: detect,
// consult the broken-file marker and stored etag, optimistically mark
// broken, extract, then insert (which clears the marker).
func (w *Watcher) fileAdded(path string) {
	d, err := w.extractor.Detect(path)
	if err != nil {
		return
	}

	broken, err := w.store.IsBrokenFile(path, d.Etag)
	if err == nil && broken {
		w.store.Insert(fallbackRecord(d))
		return
	}

	if stored, err := w.store.GetETag(path); err == nil && stored == d.Etag {
		return
	}

	w.store.InsertBrokenFile(path, d.Etag)

	f, err := w.extractor.Extract(d)
	if err != nil {
		f = fallbackRecord(d)
	}
	w.store.Insert(f)
}

func fallbackRecord(d *media.DetectedFile) *media.File {
	return &media.File{
		Filename:         d.Filename,
		ContentType:      d.ContentType,
		Etag:             d.Etag,
		ModificationTime: d.Mtime,
		Type:             d.Type,
	}
}

// Run drains the inotify FD whenever it is readable, dispatching events
// until ready no longer reports events pending (the caller's event loop
// is expected to call Run again once the FD is next readable).
func (w *Watcher) Run() {
	buf := make([]byte, 64*1024)
	changed := false

	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil || n <= 0 {
			break
		}
		changed = w.handleBatch(buf[:n]) || changed
	}

	if changed && w.invalidate != nil {
		w.invalidate.Invalidate()
	}
}

func (w *Watcher) handleBatch(buf []byte) bool {
	changed := false
	offset := 0
	headerSize := int(unsafe.Sizeof(unix.InotifyEvent{}))

	for offset+headerSize <= len(buf) {
		var raw unix.InotifyEvent
		reader := bytes.NewReader(buf[offset : offset+headerSize])
		binary.Read(reader, binary.LittleEndian, &raw)

		nameStart := offset + headerSize
		nameEnd := nameStart + int(raw.Len)
		if nameEnd > len(buf) {
			break
		}
		name := ""
		if raw.Len > 0 {
			name = string(bytes.TrimRight(buf[nameStart:nameEnd], "\x00"))
		}
		offset = nameEnd

		if w.handleEvent(raw, name) {
			changed = true
		}
	}
	return changed
}

func (w *Watcher) handleEvent(ev unix.InotifyEvent, name string) bool {
	w.mu.Lock()
	dir, known := w.wdToPath[ev.Wd]
	w.mu.Unlock()
	if !known {
		return false
	}

	mask := ev.Mask
	isDir := mask&unix.IN_ISDIR != 0
	var path string
	if name != "" {
		path = filepath.Join(dir, name)
	} else {
		path = dir
	}

	switch {
	case mask&unix.IN_IGNORED != 0 || mask&unix.IN_UNMOUNT != 0 || mask&unix.IN_DELETE_SELF != 0:
		w.removeDir(dir)
		return true

	case mask&unix.IN_CREATE != 0 && isDir:
		w.AddDir(path)
		return true

	case mask&unix.IN_CREATE != 0:
		// File may still be open for write; wait for CLOSE_WRITE/MOVED_TO.
		return false

	case (mask&unix.IN_CLOSE_WRITE != 0 || mask&unix.IN_MOVED_TO != 0) && isDir:
		w.AddDir(path)
		return true

	case mask&unix.IN_CLOSE_WRITE != 0 || mask&unix.IN_MOVED_TO != 0:
		w.fileAdded(path)
		return true

	case (mask&unix.IN_DELETE != 0 || mask&unix.IN_MOVED_FROM != 0) && isDir:
		w.mu.Lock()
		_, watched := w.pathToWd[path]
		w.mu.Unlock()
		if watched {
			w.removeDir(path)
			return true
		}
		w.store.RemoveSubtree(path)
		return true

	case mask&unix.IN_DELETE != 0 || mask&unix.IN_MOVED_FROM != 0:
		w.store.Remove(path)
		return true
	}

	return false
}
