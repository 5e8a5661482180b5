// Package scanner implements the Directory Scanner: a restartable lazy
// depth-first iterator over a subtree, classifying each regular file it
// finds and skipping rootlike, opt-out-marked and hidden directories.
package scanner

import (
	"os"
	"path/filepath"

	"github.com/franz/music-janitor/internal/fsguard"
	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

// Detector is the classification capability the scanner needs from the
// Metadata Extractor.
type Detector interface {
	Detect(path string) (*media.DetectedFile, error)
}

type frame struct {
	dir     string
	entries []os.DirEntry
	index   int
}

// Scanner is a lazy, restartable producer of DetectedFile values over a
// subtree rooted at root, filtered to the requested media type
// (media.AllMedia emits every classifiable file). Not safe for
// concurrent use.
type Scanner struct {
	detector Detector
	filter   media.Type
	stack    []frame
	done     bool
}

// New returns a Scanner rooted at root. The root directory itself is not
// subject to the rootlike/opt-out checks (callers apply those before
// deciding to scan it at all); its descendants are.
func New(detector Detector, root string, filter media.Type) *Scanner {
	return &Scanner{
		detector: detector,
		filter:   filter,
		stack:    []frame{{dir: root}},
	}
}

// Next returns the next matching DetectedFile, or util.ErrEndOfIteration
// once the subtree is exhausted.
func (s *Scanner) Next() (*media.DetectedFile, error) {
	if s.done {
		return nil, util.ErrEndOfIteration
	}

	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]

		if top.entries == nil {
			entries, err := os.ReadDir(top.dir)
			if err != nil {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			top.entries = entries
		}

		if top.index >= len(top.entries) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		entry := top.entries[top.index]
		top.index++

		if fsguard.IsHidden(entry.Name()) {
			continue
		}

		path := filepath.Join(top.dir, entry.Name())

		if entry.IsDir() {
			if fsguard.IsRootlike(path) || fsguard.HasOptOutMarker(path) {
				continue
			}
			s.stack = append(s.stack, frame{dir: path})
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		d, err := s.detector.Detect(path)
		if err != nil {
			continue
		}
		if s.filter != media.AllMedia && d.Type != s.filter {
			continue
		}
		return d, nil
	}

	s.done = true
	return nil, util.ErrEndOfIteration
}
