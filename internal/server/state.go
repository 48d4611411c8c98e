package server

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDescriptorNotFound is returned when the selected server name matches no
// descriptor in the server list.
var ErrDescriptorNotFound = errors.New("server descriptor not found")

// Descriptor identifies one game server instance.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	URLLauncher string `json:"urlLauncher" yaml:"url_launcher"`
	URLStatus   string `json:"urlStatus" yaml:"url_status"`
}

// State holds the latest server status document, the selected server name
// and the ordered server list.
type State struct {
	mu         sync.RWMutex
	serverInfo *Status
	serverName string
	serverList []Descriptor
}

// NewState creates a State selecting serverName from list.
func NewState(serverName string, list []Descriptor) *State {
	copied := make([]Descriptor, len(list))
	copy(copied, list)
	return &State{
		serverName: serverName,
		serverList: copied,
	}
}

// ServerName returns the selected server name.
func (s *State) ServerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverName
}

// SetServerName changes the selected server. The name is not validated;
// lookups report ErrDescriptorNotFound if it matches nothing.
func (s *State) SetServerName(name string) {
	s.mu.Lock()
	s.serverName = name
	s.mu.Unlock()
}

// Servers returns a copy of the server list.
func (s *State) Servers() []Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Descriptor, len(s.serverList))
	copy(out, s.serverList)
	return out
}

// CurrentServer returns the first descriptor whose Name equals the selected
// server name.
func (s *State) CurrentServer() (Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.serverList {
		if d.Name == s.serverName {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Current is CurrentServer with the miss reported as ErrDescriptorNotFound.
func (s *State) Current() (Descriptor, error) {
	d, ok := s.CurrentServer()
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrDescriptorNotFound, s.ServerName())
	}
	return d, nil
}

// Info returns the last stored status document, or nil if none was fetched.
func (s *State) Info() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo
}

func (s *State) setInfo(status *Status) {
	s.mu.Lock()
	s.serverInfo = status
	s.mu.Unlock()
}

// Snapshot is a point-in-time copy of State suitable for encoding.
type Snapshot struct {
	ServerInfo any          `json:"serverInfo"`
	ServerName string       `json:"serverName"`
	ServerList []Descriptor `json:"serverList"`
}

// Snapshot copies the current fields. ServerInfo is the verbatim document,
// or an empty object if nothing was fetched yet.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ServerInfo: map[string]any{},
		ServerName: s.serverName,
		ServerList: make([]Descriptor, len(s.serverList)),
	}
	copy(snap.ServerList, s.serverList)
	if s.serverInfo != nil && len(s.serverInfo.Raw) > 0 {
		snap.ServerInfo = s.serverInfo.Raw
	}
	return snap
}
