package initseq

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/limacina/launcher/internal/core"
)

// DefaultFloorDelay is the minimum wait between a successful join and the
// readiness commit.
const DefaultFloorDelay = 200 * time.Millisecond

// Sequencer gates application readiness on a set of concurrent tasks and a
// floor delay. It is safe for concurrent use; concurrent Initialize calls
// are serialised.
type Sequencer struct {
	state *core.State
	tasks []Task
	floor time.Duration
	mode  JoinMode

	mu sync.Mutex

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithFloorDelay overrides DefaultFloorDelay. Negative values are treated
// as zero.
func WithFloorDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d < 0 {
			d = 0
		}
		s.floor = d
	}
}

// WithJoinMode selects fail-fast or best-effort readiness.
func WithJoinMode(mode JoinMode) Option {
	return func(s *Sequencer) {
		s.mode = mode
	}
}

// New creates a sequencer committing readiness into state once tasks have
// joined.
func New(state *core.State, tasks []Task, opts ...Option) *Sequencer {
	s := &Sequencer{
		state: state,
		tasks: append([]Task(nil), tasks...),
		floor: DefaultFloorDelay,
		mode:  JoinFailFast,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize runs the sequence once: start every task, wait for all of them,
// wait the floor delay, then clear the loading flag.
//
// If the loading flag is already cleared it returns nil without running
// anything. In fail-fast mode a failed Propagate task aborts the sequence
// with a *JoinError and the flag stays set. In best-effort mode failures are
// logged and the sequence continues. A cancelled context aborts the floor
// delay and leaves the flag set.
func (s *Sequencer) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsLoading() {
		log.Printf("[DEBUG] initialization skipped: application already ready")
		return nil
	}

	start := time.Now()
	log.Printf("[INFO] initialization started (%d tasks, floor %s, mode %s)", len(s.tasks), s.floor, s.mode)

	if err := s.join(ctx); err != nil {
		if s.mode == JoinFailFast {
			log.Printf("[ERROR] initialization failed, application stays loading: %v", err)
			return err
		}
		log.Printf("[WARN] initialization continuing after failures: %v", err)
	}

	if err := s.sleep(ctx, s.floor); err != nil {
		return fmt.Errorf("initialization interrupted during floor delay: %w", err)
	}

	s.state.MarkReady()
	log.Printf("[INFO] application ready after %s", time.Since(start).Round(time.Millisecond))
	return nil
}

// join starts every task before waiting on any of them and collects the
// failures of Propagate tasks. The group has no shared context, so one
// failure never cancels a sibling.
func (s *Sequencer) join(ctx context.Context) error {
	results := make([]error, len(s.tasks))

	var g errgroup.Group
	for i, task := range s.tasks {
		g.Go(func() error {
			results[i] = task.run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	var joinErr JoinError
	for i, err := range results {
		if err == nil {
			continue
		}
		task := s.tasks[i]
		if task.Policy == Suppress {
			log.Printf("[DEBUG] task %s failed, suppressed: %v", task.Name, err)
			continue
		}
		joinErr.Failures = append(joinErr.Failures, TaskFailure{Task: task.Name, Err: err})
	}
	if len(joinErr.Failures) == 0 {
		return nil
	}
	return &joinErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
