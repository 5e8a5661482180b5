// Package fsguard implements the directory-skip heuristics shared by the
// scanner, the subtree watcher and the catalog's prune pass: rootlike
// directories, optical-disc layouts and the .nomedia opt-out marker.
package fsguard

import (
	"os"
	"path/filepath"
	"strings"
)

// OptOutMarker is the regular file whose presence in a directory exempts
// that directory and all its descendants from indexing.
const OptOutMarker = ".nomedia"

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsRootlike reports whether dir looks like an OS root: it contains all
// of usr/, var/, bin/, or it contains a "Program Files" subdirectory.
func IsRootlike(dir string) bool {
	return (dirExists(filepath.Join(dir, "usr")) &&
		dirExists(filepath.Join(dir, "var")) &&
		dirExists(filepath.Join(dir, "bin"))) ||
		dirExists(filepath.Join(dir, "Program Files"))
}

// IsOpticalDisc reports whether dir looks like an optical disc layout:
// both AUDIO_TS/ and VIDEO_TS/ present, or a BDMV/ child.
func IsOpticalDisc(dir string) bool {
	return (dirExists(filepath.Join(dir, "AUDIO_TS")) && dirExists(filepath.Join(dir, "VIDEO_TS"))) ||
		dirExists(filepath.Join(dir, "BDMV"))
}

// HasOptOutMarker reports whether dir directly contains a .nomedia file.
func HasOptOutMarker(dir string) bool {
	return fileExists(filepath.Join(dir, OptOutMarker))
}

// IsHidden reports whether name (a single path segment) is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// AncestorCache memoizes HasOptOutMarker lookups across one call that
// walks many paths under overlapping ancestors (e.g. catalog pruning).
type AncestorCache map[string]bool

// Blocked reports whether any directory containing path, from its parent
// up to root, carries the opt-out marker, memoizing per-directory results
// in c.
func (c AncestorCache) Blocked(path string) bool {
	dir := filepath.Dir(path)
	for {
		if blocked, ok := c[dir]; ok {
			if blocked {
				return true
			}
		} else {
			blocked = HasOptOutMarker(dir)
			c[dir] = blocked
			if blocked {
				return true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
