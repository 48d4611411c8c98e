package core

import "sync"

// State is the application readiness container: the loading flag gating the
// UI and the home directory reported by the host bridge.
//
// isLoading starts true and is cleared at most once by MarkReady. homeDir is
// written only by Accessor on a successful bridge call.
type State struct {
	mu        sync.RWMutex
	isLoading bool
	homeDir   string

	readyOnce sync.Once
	ready     chan struct{}
}

// NewState returns a State in the loading phase.
func NewState() *State {
	return &State{
		isLoading: true,
		ready:     make(chan struct{}),
	}
}

// IsLoading reports whether the readiness flag is still set.
func (s *State) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// HomeDir returns the stored home directory, or "" if none was stored.
func (s *State) HomeDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.homeDir
}

// MarkReady clears the loading flag and releases everyone waiting on Ready.
// Only the first call has an effect. It reports whether this call made the
// transition.
func (s *State) MarkReady() bool {
	transitioned := false
	s.readyOnce.Do(func() {
		s.mu.Lock()
		s.isLoading = false
		s.mu.Unlock()
		close(s.ready)
		transitioned = true
	})
	return transitioned
}

// Ready returns a channel that is closed once the loading flag is cleared.
func (s *State) Ready() <-chan struct{} {
	return s.ready
}

// Snapshot is a point-in-time copy of State suitable for encoding.
type Snapshot struct {
	IsLoading bool   `json:"isLoading"`
	HomeDir   string `json:"homeDir"`
}

// Snapshot copies the current fields.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{IsLoading: s.isLoading, HomeDir: s.homeDir}
}

func (s *State) setHomeDir(dir string) {
	s.mu.Lock()
	s.homeDir = dir
	s.mu.Unlock()
}
