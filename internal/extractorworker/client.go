package extractorworker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

// WorkerSubcommand is the hidden cobra subcommand the daemon binary
// re-invokes itself with to become a worker process.
const WorkerSubcommand = "__extract-worker"

// Client owns the lifecycle of a single worker subprocess and the
// request/reply protocol with it. The zero value is ready to use; the
// worker is spawned lazily on first Extract call. Each method holds
// c.mu, so concurrent calls are serialized one at a time.
type Client struct {
	mu         sync.Mutex
	cmd        *exec.Cmd
	generation string
	stdin      io.WriteCloser
	stdout     *bufio.Scanner
}

// Extract sends req to the worker and returns its reply. If the worker's
// reply channel closes before a response arrives, it returns
// util.ErrNoReply and the worker process is discarded; the caller is
// expected to retry once via a fresh Client or after calling Restart.
func (c *Client) Extract(req Request) (*media.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStarted(); err != nil {
		return nil, fmt.Errorf("start extractor worker: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		c.discard()
		return nil, util.ErrNoReply
	}

	if !c.stdout.Scan() {
		c.discard()
		return nil, util.ErrNoReply
	}

	var resp Response
	if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode worker response: %w", err)
	}
	if resp.ID != req.ID {
		util.WarnLog("extractor worker %s: reply id %s did not match request %s", c.generation, resp.ID, req.ID)
		c.discard()
		return nil, util.ErrNoReply
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("%w: %s", util.ErrExtractFailed, resp.Err)
	}
	return resp.File, nil
}

// Restart discards any running worker; the next Extract call spawns a
// fresh one. Used by the extractor client's recreate-and-retry-once
// recovery after a NoReply.
func (c *Client) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discard()
}

// Close terminates the worker process, if any.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discard()
}

func (c *Client) discard() {
	if c.stdin != nil {
		c.stdin.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
		c.cmd.Wait()
	}
	c.cmd = nil
	c.generation = ""
	c.stdin = nil
	c.stdout = nil
}

func (c *Client) ensureStarted() error {
	if c.cmd != nil {
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, WorkerSubcommand)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	c.cmd = cmd
	c.generation = uuid.NewString()
	c.stdin = stdin
	c.stdout = scanner
	util.DebugLog("spawned extractor worker generation %s (pid %d)", c.generation, cmd.Process.Pid)
	return nil
}
