package bridge

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// errDeadline is the cancellation cause recorded when the per-request timer fires.
var errDeadline = errors.New("inference deadline exceeded")

// exitGrace bounds how long Close waits for a child that reached EOF to exit.
var exitGrace = 500 * time.Millisecond

// SpawnSpec describes one CLI invocation.
type SpawnSpec struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

// BuildArgs returns the CLI arguments (after the binary itself) for one prompt.
// The prompt is passed as a single argv element; no shell is involved.
func BuildArgs(cfg Config, prompt string) []string {
	return []string{
		"--model", cfg.ModelPath,
		"--model-lib", cfg.ModelLib,
		"--device", cfg.Device,
		"--with-prompt", prompt,
	}
}

// Child is a running CLI process with stdout and stderr merged into one
// lossily UTF-8 decoded stream. It is owned by a single request.
type Child struct {
	cmd      *exec.Cmd
	out      *os.File
	r        io.Reader
	ctx      context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	started  time.Time
	deadline time.Time

	closeOnce sync.Once
	eof       bool
	waitErr   error
}

// Spawn starts the CLI. The child is killed, together with its process group,
// when ctx is canceled or spec.Timeout elapses.
func Spawn(ctx context.Context, spec SpawnSpec) (*Child, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return nil, spawnError{path: spec.Path, err: errors.New("cli path is empty")}
	}
	if spec.Timeout <= 0 {
		return nil, spawnError{path: spec.Path, err: errors.New("timeout must be positive")}
	}
	started := time.Now()
	cctx, cancel := context.WithTimeoutCause(ctx, spec.Timeout, errDeadline)

	pr, pw, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, spawnError{path: spec.Path, err: err}
	}
	cmd := exec.CommandContext(cctx, spec.Path, spec.Args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	configureProcessGroup(cmd)
	cmd.Cancel = func() error {
		err := killProcessGroup(cmd)
		if err == nil {
			childrenKilled.Inc()
		}
		return err
	}
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		cancel()
		return nil, spawnError{path: spec.Path, err: err}
	}
	// The child holds its own copy of the write end; EOF arrives once it and
	// every descendant sharing the pipe are gone.
	_ = pw.Close()

	return &Child{
		cmd:      cmd,
		out:      pr,
		r:        transform.NewReader(pr, unicode.UTF8.NewDecoder()),
		ctx:      cctx,
		cancel:   cancel,
		timeout:  spec.Timeout,
		started:  started,
		deadline: started.Add(spec.Timeout),
	}, nil
}

// PID returns the process id of the child.
func (c *Child) PID() int { return c.cmd.Process.Pid }

// Read reads decoded output. Invalid byte sequences are replaced with U+FFFD.
func (c *Child) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if errors.Is(err, io.EOF) {
		c.eof = true
	}
	return n, err
}

// Done is closed when the child's context ends (deadline, caller cancel or Close).
func (c *Child) Done() <-chan struct{} { return c.ctx.Done() }

// Expired reports whether the wall-clock deadline has passed.
func (c *Child) Expired() bool { return !time.Now().Before(c.deadline) }

// TimedOut reports whether the child ran into its deadline.
func (c *Child) TimedOut() bool {
	return c.Expired() || errors.Is(context.Cause(c.ctx), errDeadline)
}

// TimeoutError returns the error describing this child's deadline.
func (c *Child) TimeoutError() error {
	return timeoutError{seconds: int(c.timeout / time.Second)}
}

// Elapsed returns the time since spawn.
func (c *Child) Elapsed() time.Duration { return time.Since(c.started) }

// Kill terminates the child's process group without waiting.
func (c *Child) Kill() { c.cancel() }

// Close reaps the child and releases the pipe. A child whose output was not
// fully drained is killed at once; one that closed its output but keeps
// running gets exitGrace to exit before it is killed. It is safe to call more
// than once.
func (c *Child) Close() error {
	c.closeOnce.Do(func() {
		if !c.eof {
			c.cancel()
		}
		waited := make(chan error, 1)
		go func() { waited <- c.cmd.Wait() }()
		grace := time.NewTimer(exitGrace)
		select {
		case c.waitErr = <-waited:
		case <-grace.C:
			c.cancel()
			c.waitErr = <-waited
		}
		grace.Stop()
		c.cancel()
		// Descendants that detached from the pipe still share the group.
		_ = killProcessGroup(c.cmd)
		_ = c.out.Close()
	})
	return c.waitErr
}

// ExitCode returns the exit status once Close has returned, or -1.
func (c *Child) ExitCode() int {
	if c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}
