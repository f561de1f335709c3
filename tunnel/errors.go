package tunnel

import "fmt"

// StartReason classifies why the connector failed to start.
type StartReason string

const (
	// ReasonSpawn indicates the connector process could not be started.
	ReasonSpawn StartReason = "spawn failed"

	// ReasonExited indicates the process exited before registering a
	// tunnel connection.
	ReasonExited StartReason = "process exited before registering"

	// ReasonTimeout indicates the process did not register within the
	// configured timeout.
	ReasonTimeout StartReason = "did not register within timeout"

	// ReasonCanceled indicates the caller's context was canceled
	// before the process registered.
	ReasonCanceled StartReason = "canceled before registering"
)

// StartError is the typed failure returned by Supervisor.Start. It
// carries the captured connector output so callers can log enough
// context to diagnose the failure.
type StartError struct {
	Reason StartReason

	// Err is the underlying cause, if any (spawn error, context error).
	Err error

	// ExitCode is the process exit code. Meaningful only for
	// ReasonExited; -1 when the process was killed by a signal.
	ExitCode int

	// Logs are the captured output lines, oldest first, bounded by the
	// supervisor's log limit.
	Logs []string
}

func (e *StartError) Error() string {
	switch {
	case e.Reason == ReasonExited:
		return fmt.Sprintf("tunnel: connector %s (exit code %d)", e.Reason, e.ExitCode)
	case e.Err != nil:
		return fmt.Sprintf("tunnel: connector %s: %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("tunnel: connector %s", e.Reason)
	}
}

func (e *StartError) Unwrap() error { return e.Err }
