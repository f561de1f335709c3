package tunnel

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// registrationPattern matches the line cloudflared emits once it has
// registered a connection with the edge. The connector ID is the only
// structured information the process ever reports back.
var registrationPattern = regexp.MustCompile(`Registered tunnel connection.*connectorID=([0-9a-fA-F-]+)`)

// connectorArgs is the fixed startup argument sequence. The secret is
// never part of it: argument lists are visible to every process on the
// host, inherited environment variables are not.
var connectorArgs = []string{"tunnel", "--no-autoupdate", "run"}

// tokenEnvVar is the environment variable cloudflared reads the tunnel
// secret from.
const tokenEnvVar = "TUNNEL_TOKEN"

// SupervisorConfig configures the connector supervisor.
type SupervisorConfig struct {
	// BinaryPath is the absolute path of the connector executable.
	// Required; binary discovery is the caller's concern.
	BinaryPath string

	// Timeout bounds how long Start waits for the registration line.
	// Default: 30 seconds
	Timeout time.Duration

	// GracePeriod is how long Stop waits after a termination signal
	// before escalating to a kill signal.
	// Default: 1.5 seconds
	GracePeriod time.Duration

	// LogLimit bounds the number of captured output lines.
	// Default: 100
	LogLimit int
}

// Supervisor starts and supervises connector processes. Each Start call
// constructs an independent process; supervision is not reentrant.
type Supervisor struct {
	config SupervisorConfig
}

// NewSupervisor creates a supervisor.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = 1500 * time.Millisecond
	}
	if config.LogLimit <= 0 {
		config.LogLimit = 100
	}

	return &Supervisor{config: config}
}

// Handle is a live connector process. It is owned exclusively by the
// caller that started it and is done once Stop returns.
type Handle struct {
	// ConnectorID is the identifier the connector reported when it
	// registered with the edge.
	ConnectorID string

	// PID is the connector's process ID.
	PID int

	proc *process
}

// Running reports whether the connector process is still alive.
func (h *Handle) Running() bool {
	select {
	case <-h.proc.waitDone:
		return false
	default:
		return true
	}
}

// Logs returns a snapshot of the captured output lines, oldest first.
func (h *Handle) Logs() []string {
	return h.proc.snapshotLogs()
}

// Stop terminates the connector. It is an idempotent no-op if the
// process already exited; otherwise it sends a termination signal,
// waits up to the grace period for a natural exit, escalates to a kill
// signal, and returns only once the exit is confirmed.
func (h *Handle) Stop() {
	h.proc.stop()
}

// Start spawns the connector and waits for the first of: the
// registration line on its output, process exit, timeout, or context
// cancellation. On every failure path the child is terminated before
// the error is returned; a half-started process is never left behind.
func (s *Supervisor) Start(ctx context.Context, secretToken string) (*Handle, error) {
	if s.config.BinaryPath == "" {
		return nil, &StartError{Reason: ReasonSpawn, Err: errors.New("tunnel: binary path is required")}
	}
	if secretToken == "" {
		return nil, &StartError{Reason: ReasonSpawn, Err: errors.New("tunnel: secret token is required")}
	}

	cmd := exec.Command(s.config.BinaryPath, connectorArgs...)
	cmd.Env = append(os.Environ(), tokenEnvVar+"="+secretToken)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartError{Reason: ReasonSpawn, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &StartError{Reason: ReasonSpawn, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Reason: ReasonSpawn, Err: err}
	}

	p := &process{
		cmd:         cmd,
		gracePeriod: s.config.GracePeriod,
		logLimit:    s.config.LogLimit,
		waitDone:    make(chan struct{}),
	}

	// registered settles at most once; the buffered slot means a fast
	// registration is never missed even if nobody is selecting yet.
	registered := make(chan string, 1)

	var scanners errgroup.Group
	scanners.Go(func() error { p.scan(stdout, registered); return nil })
	scanners.Go(func() error { p.scan(stderr, registered); return nil })

	// Reap the process once both pipes are drained. Closing waitDone is
	// the single exit signal everything else selects on.
	go func() {
		_ = scanners.Wait()
		p.waitErr = cmd.Wait()
		close(p.waitDone)
	}()

	timer := time.NewTimer(s.config.Timeout)
	defer timer.Stop()

	select {
	case id := <-registered:
		return &Handle{ConnectorID: id, PID: cmd.Process.Pid, proc: p}, nil

	case <-p.waitDone:
		return nil, &StartError{
			Reason:   ReasonExited,
			ExitCode: exitCode(p.waitErr),
			Logs:     p.snapshotLogs(),
		}

	case <-timer.C:
		p.stop()
		return nil, &StartError{
			Reason: ReasonTimeout,
			Logs:   p.snapshotLogs(),
		}

	case <-ctx.Done():
		p.stop()
		return nil, &StartError{
			Reason: ReasonCanceled,
			Err:    ctx.Err(),
			Logs:   p.snapshotLogs(),
		}
	}
}

// process is the shared state between Start, the scanner goroutines,
// the reaper, and Stop.
type process struct {
	cmd         *exec.Cmd
	gracePeriod time.Duration

	mu       sync.Mutex
	logs     []string
	logLimit int

	waitDone chan struct{} // closed once cmd.Wait has returned
	waitErr  error         // valid only after waitDone is closed
}

// scan reads one output stream line by line, feeding the log buffer and
// watching for the registration pattern. It returns when the stream
// closes, which happens when the process exits.
func (p *process) scan(r io.Reader, registered chan<- string) {
	scanner := bufio.NewScanner(r)
	// The default 64 KiB token limit is too small for some connector
	// log lines; an aborted scan would leave the pipe undrained and
	// block the child on a full buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.appendLog(line)

		if m := registrationPattern.FindStringSubmatch(line); m != nil {
			select {
			case registered <- m[1]:
			default: // already settled
			}
		}
	}

	// A line beyond even the raised limit aborts the scan; keep
	// draining so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// appendLog appends a line, dropping the oldest once the bound is hit.
func (p *process) appendLog(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.logs) == p.logLimit {
		copy(p.logs, p.logs[1:])
		p.logs[p.logLimit-1] = line
		return
	}
	p.logs = append(p.logs, line)
}

func (p *process) snapshotLogs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}

// stop terminates the process with escalating force and returns once
// exit is confirmed. Safe to call multiple times and from multiple
// goroutines; signaling an already-dead process is harmless.
func (p *process) stop() {
	select {
	case <-p.waitDone:
		return
	default:
	}

	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	timer := time.NewTimer(p.gracePeriod)
	defer timer.Stop()
	select {
	case <-p.waitDone:
		return
	case <-timer.C:
	}

	_ = p.cmd.Process.Kill()
	<-p.waitDone
}

// exitCode extracts the exit code from cmd.Wait's error. Returns -1 for
// signal-killed processes, matching os/exec's convention.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
