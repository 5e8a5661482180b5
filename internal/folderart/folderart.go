// Package folderart resolves the representative album-art file for a
// directory, caching results across two generations so repeated lookups
// for files in the same album avoid re-scanning the directory.
package folderart

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheSize is the number of entries a generation holds before it is
// retired and a fresh generation starts collecting.
const cacheSize = 50

// artBasenames and artExtensions are ranked candidate lists: a file is
// art only if its basename and extension (case-insensitively) both
// appear here, and ties prefer the earlier basename, then the earlier
// extension.
var artBasenames = []string{"cover", "album", "albumart", ".folder", "folder"}
var artExtensions = []string{"jpeg", "jpg", "png"}

type entry struct {
	art     string
	modTime time.Time
}

// Resolver finds the album-art file for a directory, backed by a
// bounded, mtime-invalidated cache. The zero value is ready to use.
type Resolver struct {
	mu      sync.Mutex
	current map[string]entry
	prior   map[string]entry
}

// New returns a ready Resolver.
func New() *Resolver {
	return &Resolver{current: make(map[string]entry)}
}

// ArtForDirectory returns the path to the best-matching art file directly
// inside directory, or "" if none exists or directory cannot be read.
func (r *Resolver) ArtForDirectory(directory string) string {
	info, err := os.Lstat(directory)
	if err != nil || !info.IsDir() {
		return ""
	}
	mtime := info.ModTime()

	r.mu.Lock()
	defer r.mu.Unlock()

	cached, ok := r.current[directory]
	update := false
	if !ok {
		if r.prior != nil {
			if c, ok2 := r.prior[directory]; ok2 {
				cached = c
				update = true
			}
		}
	}

	if !cached.modTime.Equal(mtime) {
		cached = entry{art: detectAlbumArt(directory), modTime: mtime}
		update = true
	}

	if update {
		if r.current == nil {
			r.current = make(map[string]entry)
		}
		r.current[directory] = cached
		if len(r.current) > cacheSize {
			r.prior = r.current
			r.current = make(map[string]entry)
		}
	}
	return cached.art
}

// ArtForFile returns the art file for the directory containing filename.
func (r *Resolver) ArtForFile(filename string) string {
	dir := filepath.Dir(filename)
	return r.ArtForDirectory(dir + string(filepath.Separator))
}

// detectAlbumArt scans directory for the best-scoring art candidate:
// lower basename rank wins, ties broken by lower extension rank.
func detectAlbumArt(directory string) string {
	if directory != "" && !strings.HasSuffix(directory, "/") {
		directory += "/"
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		return ""
	}

	type candidate struct {
		name  string
		score int
	}
	var candidates []candidate
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := filepath.Ext(name)
		if ext == "" {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(name, ext))
		extension := strings.ToLower(strings.TrimPrefix(ext, "."))

		baseIdx := indexOf(artBasenames, base)
		if baseIdx < 0 {
			continue
		}
		extIdx := indexOf(artExtensions, extension)
		if extIdx < 0 {
			continue
		}
		score := baseIdx*len(artBasenames) + extIdx
		candidates = append(candidates, candidate{name, score})
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	return directory + candidates[0].name
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
