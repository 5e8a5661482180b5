package util

import (
	"os"

	"github.com/spf13/viper"
)

// CacheDir returns the directory holding the catalog database, honoring
// MEDIASCANNER_CACHEDIR and falling back to $XDG_CACHE_HOME/mediascanner-2.0
// (or ~/.cache/mediascanner-2.0 if XDG_CACHE_HOME is unset).
func CacheDir() string {
	if v := viper.GetString("cachedir"); v != "" {
		return v
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg + "/mediascanner-2.0"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache/mediascanner-2.0"
	}
	return home + "/.cache/mediascanner-2.0"
}

// UseDBus reports whether clients should talk to the daemon over its RPC
// façade rather than opening the catalog store in-process.
func UseDBus() bool {
	return viper.GetBool("use_dbus")
}

// ExtractorCrashAfter returns the worker's crash-after-N-extractions test
// hook value, or -1 if unset (disabled).
func ExtractorCrashAfter() int {
	v := viper.GetInt("extractor_crash_after")
	if v == 0 && os.Getenv("MEDIASCANNER_EXTRACTOR_CRASH_AFTER") == "" {
		return -1
	}
	return v
}

// ForceRun reports whether the daemon should auto-start regardless of the
// desktop-environment guard (MEDIASCANNER_RUN=1 or --force).
func ForceRun() bool {
	return viper.GetBool("run") || os.Getenv("MEDIASCANNER_RUN") == "1"
}
