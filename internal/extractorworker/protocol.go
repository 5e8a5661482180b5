// Package extractorworker implements the crash-isolated metadata probe:
// a subprocess (the running binary re-invoked with a hidden subcommand)
// that performs the streaming-pipeline probe on audio and video files via
// ffprobe, communicating with its parent over a JSON-lines stdio
// protocol. Isolating the probe in its own process means a crash on a
// malformed codec kills the worker, not the daemon.
package extractorworker

import "github.com/franz/music-janitor/internal/media"

// Request is one probe request sent from client to worker. ID
// correlates the reply with the call that made it, for log tracing
// across the worker's stdin/stdout pipe.
type Request struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Etag        string `json:"etag"`
	ContentType string `json:"content_type"`
	Mtime       uint64 `json:"mtime"`
	Type        int    `json:"type"`
}

// Response is the worker's reply: either a populated File or an error
// message. Err is empty on success. ID echoes the Request's ID.
type Response struct {
	ID   string      `json:"id"`
	File *media.File `json:"file,omitempty"`
	Err  string      `json:"err,omitempty"`
}

// CrashAfterEnv names the environment variable tests use to force the
// worker to exit without replying after a fixed number of requests.
const CrashAfterEnv = "MEDIASCANNER_EXTRACTOR_CRASH_AFTER"

// QuiescentExit is how long the worker waits without a request before it
// exits on its own; the client respawns it on the next probe.
const QuiescentExit = 30
