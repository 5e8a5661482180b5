// Package volume implements the Volume Manager: serializes mount/unmount
// lifecycle events behind a coalescing queue, driving each attach
// through restore, prune, bulk scan and watch installation, and each
// detach through archive and watcher teardown.
package volume

import (
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/music-janitor/internal/catalog"
	"github.com/franz/music-janitor/internal/extractor"
	"github.com/franz/music-janitor/internal/fsguard"
	"github.com/franz/music-janitor/internal/invalidate"
	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/report"
	"github.com/franz/music-janitor/internal/scanner"
	"github.com/franz/music-janitor/internal/util"
	"github.com/franz/music-janitor/internal/watcher"
)

// progressPulse is the wall-clock cadence of mid-scan transaction
// commits and invalidation pulses.
const progressPulse = 10 * time.Second

type action int

const (
	added action = iota
	removed
)

type event struct {
	action action
	path   string
}

// Manager serializes volume attach/detach events behind a single queue,
// coalescing repeat events for the same path (latest wins) and running
// the drain loop on its own goroutine.
type Manager struct {
	store        *catalog.Store
	extractor    *extractor.Extractor
	invalidate   *invalidate.Sender
	events       *report.EventLogger
	showProgress bool

	mu        sync.Mutex
	queue     []event
	scheduled bool
	watchers  map[string]*watcher.Watcher
}

// New returns a Manager driving store/extractor/invalidate. showProgress
// enables a terminal progress bar during bulk scans. events may be
// report.NullLogger() to disable structured event logging.
func New(store *catalog.Store, ext *extractor.Extractor, inv *invalidate.Sender, events *report.EventLogger, showProgress bool) *Manager {
	return &Manager{
		store:        store,
		extractor:    ext,
		invalidate:   inv,
		events:       events,
		showProgress: showProgress,
		watchers:     make(map[string]*watcher.Watcher),
	}
}

// QueueAddVolume enqueues an attach event for path, dropping any earlier
// queued event for the same path first, and schedules the drain loop if
// it isn't already running.
func (m *Manager) QueueAddVolume(path string) {
	m.enqueue(event{action: added, path: path})
}

// QueueRemoveVolume enqueues a detach event for path.
func (m *Manager) QueueRemoveVolume(path string) {
	m.enqueue(event{action: removed, path: path})
}

func (m *Manager) enqueue(e event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queue = coalesce(m.queue, e)

	if !m.scheduled {
		m.scheduled = true
		go m.drain()
	}
}

// coalesce appends e to queue, first dropping any earlier queued event
// for the same path (latest wins).
func coalesce(queue []event, e event) []event {
	filtered := queue[:0]
	for _, existing := range queue {
		if existing.path != e.path {
			filtered = append(filtered, existing)
		}
	}
	return append(filtered, e)
}

// Idle reports whether no drain callback is pending and the queue is
// empty.
func (m *Manager) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.scheduled && len(m.queue) == 0
}

func (m *Manager) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.scheduled = false
			m.mu.Unlock()
			break
		}
		next := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		switch next.action {
		case added:
			m.processAdded(next.path)
		case removed:
			m.processRemoved(next.path)
		}
	}

	if m.invalidate != nil {
		m.invalidate.Invalidate()
	}
}

func (m *Manager) processAdded(path string) {
	m.mu.Lock()
	_, attached := m.watchers[path]
	m.mu.Unlock()
	if attached {
		return
	}
	if fsguard.IsRootlike(path) || fsguard.IsOpticalDisc(path) || fsguard.HasOptOutMarker(path) {
		return
	}

	prefix := path
	if len(prefix) == 0 || prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	if err := m.store.RestoreItems(prefix); err != nil {
		util.ErrorLog("volume: restore %s: %v", path, err)
		m.events.LogError(path, err)
	}
	if err := m.store.PruneDeleted(); err != nil {
		util.ErrorLog("volume: prune after restoring %s: %v", path, err)
		m.events.LogError(path, err)
	}

	m.bulkScan(path)

	w, err := watcher.New(m.store, m.extractor, m.invalidate)
	if err != nil {
		util.ErrorLog("volume: open watcher for %s: %v", path, err)
		m.events.LogError(path, err)
		return
	}
	if err := w.AddDir(path); err != nil {
		util.ErrorLog("volume: watch %s: %v", path, err)
		m.events.LogError(path, err)
		w.Close()
		return
	}

	m.mu.Lock()
	m.watchers[path] = w
	m.mu.Unlock()

	go m.runWatcher(path, w)
}

func (m *Manager) processRemoved(path string) {
	m.mu.Lock()
	w, attached := m.watchers[path]
	delete(m.watchers, path)
	m.mu.Unlock()
	if !attached {
		return
	}

	prefix := path
	if len(prefix) == 0 || prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	if err := m.store.ArchiveItems(prefix); err != nil {
		util.ErrorLog("volume: archive %s: %v", path, err)
		m.events.LogError(path, err)
	}
	w.Close()
}

// runWatcher polls the watcher's inotify FD until it reports the watched
// set has gone empty (the subtree was entirely removed from under it).
func (m *Manager) runWatcher(path string, w *watcher.Watcher) {
	for {
		w.Run()
		if w.Stopped() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// bulkScan walks path with the Directory Scanner, running every detected
// file through the same broken/unchanged/extract/fallback sequence the
// watcher's fileAdded uses, batching inserts behind a transaction that
// commits (and pulses an invalidation) every progressPulse.
func (m *Manager) bulkScan(path string) {
	s := scanner.New(m.extractor, path, media.AllMedia)

	tx, err := m.store.BeginTransaction()
	if err != nil {
		util.ErrorLog("volume: begin bulk scan transaction for %s: %v", path, err)
		return
	}
	defer tx.End()

	var bar *progressbar.ProgressBar
	if m.showProgress {
		bar = progressbar.Default(-1, "scanning "+path)
	}

	lastPulse := time.Now()
	for {
		d, err := s.Next()
		if err != nil {
			break
		}

		m.scanOne(tx, d)
		if bar != nil {
			bar.Add(1)
		}

		if time.Since(lastPulse) >= progressPulse {
			if err := tx.Commit(); err != nil {
				util.ErrorLog("volume: commit mid-scan for %s: %v", path, err)
				return
			}
			if m.invalidate != nil {
				m.invalidate.Invalidate()
			}
			lastPulse = time.Now()
		}
	}

	if err := tx.Commit(); err != nil {
		util.ErrorLog("volume: final commit for %s: %v", path, err)
	}
}

func (m *Manager) scanOne(tx *catalog.Transaction, d *media.DetectedFile) {
	m.events.LogScan(d.Filename, d.ContentType)

	broken, err := m.store.IsBrokenFile(d.Filename, d.Etag)
	if err == nil && broken {
		m.store.InsertTx(tx, extractor.FallbackExtract(d))
		m.events.LogExtract(d.Filename, true, nil)
		return
	}

	if stored, err := m.store.GetETag(d.Filename); err == nil && stored == d.Etag {
		return
	}

	m.store.InsertBrokenFile(d.Filename, d.Etag)

	f, err := m.extractor.Extract(d)
	if err != nil {
		f = extractor.FallbackExtract(d)
	}
	m.store.InsertTx(tx, f)
	m.events.LogExtract(d.Filename, err != nil, err)
}
