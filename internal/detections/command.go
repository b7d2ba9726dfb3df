package detections

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ErrDetectorFailed is returned when the external detector process exits with an error.
// Frames read before the failure stay valid.
var ErrDetectorFailed = errors.New("detector process failed")

// stderrTail keeps last bytes of detector diagnostics for error messages
const stderrTail = 4096

// Command runs an external detector and reads its stdout as JSON lines
type Command struct {
	*Reader
	cmd    *exec.Cmd
	stderr *tailBuffer
	waited bool
	err    error
}

// StartCommand launches detector process. Extra arguments (for example the video path)
// are appended to argv. The process is killed when ctx is done.
func StartCommand(ctx context.Context, argv []string, extra ...string) (*Command, error) {
	if len(argv) == 0 {
		return nil, errors.New("detector command is empty")
	}
	args := append(append([]string{}, argv[1:]...), extra...)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("detector stdout: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start detector %s: %w", argv[0], err)
	}
	c := &Command{cmd: cmd, stderr: stderr}
	reader, err := NewReader(stdout)
	if err != nil {
		_ = c.wait()
		return nil, err
	}
	c.Reader = reader
	return c, nil
}

// Next returns next frame; at the end of output the process exit status is checked
func (c *Command) Next(ctx context.Context) (Frame, error) {
	frame, err := c.Reader.Next(ctx)
	if errors.Is(err, io.EOF) {
		if waitErr := c.wait(); waitErr != nil {
			return Frame{}, waitErr
		}
	}
	return frame, err
}

func (c *Command) wait() error {
	if c.waited {
		return c.err
	}
	c.waited = true
	if err := c.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(c.stderr.String())
		if msg != "" {
			c.err = fmt.Errorf("%w: %v: %s", ErrDetectorFailed, err, msg)
		} else {
			c.err = fmt.Errorf("%w: %v", ErrDetectorFailed, err)
		}
	}
	return c.err
}

// Close stops the detector if it is still running and reaps it
func (c *Command) Close() error {
	if !c.waited && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.wait()
		return nil
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
