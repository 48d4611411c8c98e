package initseq

import (
	"context"
	"fmt"
	"strings"

	"github.com/limacina/launcher/internal/core"
	"github.com/limacina/launcher/internal/server"
)

// FailurePolicy decides what a task failure means for the join.
type FailurePolicy int

const (
	// Propagate reports the failure in the join result.
	Propagate FailurePolicy = iota
	// Suppress drops the failure; the task's own default stands.
	Suppress
)

func (p FailurePolicy) String() string {
	switch p {
	case Propagate:
		return "propagate"
	case Suppress:
		return "suppress"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// JoinMode decides whether propagated failures block readiness.
type JoinMode string

const (
	// JoinFailFast keeps the application loading when any propagated task
	// fails.
	JoinFailFast JoinMode = "fail-fast"
	// JoinBestEffort logs propagated failures and becomes ready anyway.
	JoinBestEffort JoinMode = "best-effort"
)

// ParseJoinMode validates a mode name. Empty means JoinFailFast.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", JoinFailFast:
		return JoinFailFast, nil
	case JoinBestEffort:
		return JoinBestEffort, nil
	default:
		return "", fmt.Errorf("invalid join mode: %s (must be '%s' or '%s')", s, JoinFailFast, JoinBestEffort)
	}
}

// Task is one asynchronous fetch joined by the sequencer.
type Task struct {
	Name   string
	Run    func(ctx context.Context) error
	Policy FailurePolicy
}

func (t Task) run(ctx context.Context) error {
	if t.Run == nil {
		return fmt.Errorf("task %s has no run function", t.Name)
	}
	return t.Run(ctx)
}

// TaskFailure names a failed task and its error.
type TaskFailure struct {
	Task string
	Err  error
}

// JoinError lists every propagated task failure of one join.
type JoinError struct {
	Failures []TaskFailure
}

func (e *JoinError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Task, f.Err)
	}
	return "initialization tasks failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the task errors to errors.Is and errors.As.
func (e *JoinError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Failed reports whether the named task is among the failures.
func (e *JoinError) Failed(name string) bool {
	for _, f := range e.Failures {
		if f.Task == name {
			return true
		}
	}
	return false
}

// Task names used by the default task set.
const (
	TaskServerStatus = "server-status"
	TaskHomeDir      = "home-dir"
)

// ServerStatusTask fetches the current server's status. Its failures
// propagate.
func ServerStatusTask(p *server.Provider) Task {
	return Task{
		Name: TaskServerStatus,
		Run: func(ctx context.Context) error {
			_, err := p.GetServerInfo(ctx, "")
			return err
		},
		Policy: Propagate,
	}
}

// HomeDirTask resolves the home directory through the host bridge. The
// accessor already swallows bridge failures; the policy is Suppress so the
// choice is visible at the join.
func HomeDirTask(a *core.Accessor) Task {
	return Task{
		Name: TaskHomeDir,
		Run: func(ctx context.Context) error {
			a.GetHomeDir(ctx)
			return nil
		},
		Policy: Suppress,
	}
}

// DefaultTasks is the launcher's initialization set: server status and home
// directory, run concurrently.
func DefaultTasks(p *server.Provider, a *core.Accessor) []Task {
	return []Task{ServerStatusTask(p), HomeDirTask(a)}
}
