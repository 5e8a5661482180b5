package util

import (
	"os"
	"syscall"
)

// IsSameFilesystem checks if two paths are on the same filesystem
// by comparing their device IDs (st_dev).
// Returns (true, nil) if on same filesystem
// Returns (false, nil) if on different filesystems
// Returns (false, err) if paths cannot be stat'd
func IsSameFilesystem(path1, path2 string) (bool, error) {
	stat1, err := os.Stat(path1)
	if err != nil {
		return false, err
	}

	stat2, err := os.Stat(path2)
	if err != nil {
		return false, err
	}

	sysStat1, ok1 := stat1.Sys().(*syscall.Stat_t)
	sysStat2, ok2 := stat2.Sys().(*syscall.Stat_t)

	if !ok1 || !ok2 {
		return false, nil
	}

	return sysStat1.Dev == sysStat2.Dev, nil
}

// SameDirectory reports whether path1 and path2 name the same directory,
// via device+inode rather than string comparison (handles bind mounts and
// symlinked paths). Used to skip seeding a watched volume that XDG
// resolves to $HOME itself.
func SameDirectory(path1, path2 string) bool {
	s1, err := os.Stat(path1)
	if err != nil {
		return false
	}
	s2, err := os.Stat(path2)
	if err != nil {
		return false
	}
	d1, ok1 := s1.Sys().(*syscall.Stat_t)
	d2, ok2 := s2.Sys().(*syscall.Stat_t)
	if !ok1 || !ok2 {
		return false
	}
	return d1.Dev == d2.Dev && d1.Ino == d2.Ino
}
