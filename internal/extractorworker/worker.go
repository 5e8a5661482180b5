package extractorworker

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"
)

// Run is the worker process's main loop: read one JSON Request per line
// from r, probe it, write one JSON Response per line to w. The worker
// exits on its own after QuiescentExit seconds without a request, and
// (when the crash-after test hook is set) exits abruptly without
// replying once its counter reaches zero, simulating the codec crash the
// probe is isolated against.
func Run(r io.Reader, w io.Writer) {
	crashAfter := crashAfterFromEnv()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(w)

	timer := time.AfterFunc(QuiescentExit*time.Second, func() { os.Exit(0) })
	defer timer.Stop()

	for scanner.Scan() {
		timer.Reset(QuiescentExit * time.Second)

		if crashAfter >= 0 {
			if crashAfter == 0 {
				os.Exit(1)
			}
			crashAfter--
		}

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			enc.Encode(Response{Err: err.Error()})
			continue
		}

		f, err := probe(req)
		if err != nil {
			enc.Encode(Response{ID: req.ID, Err: err.Error()})
			continue
		}
		enc.Encode(Response{ID: req.ID, File: f})
	}
}

func crashAfterFromEnv() int {
	v := os.Getenv(CrashAfterEnv)
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
