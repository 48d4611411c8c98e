package core

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
)

// ErrBridgeUnavailable is returned by bridges that have no host runtime
// behind them.
var ErrBridgeUnavailable = errors.New("host bridge not available")

// HostBridge is the host runtime's directory lookup.
type HostBridge interface {
	CheckDir(ctx context.Context) (string, error)
}

// BridgeFunc adapts a plain function to HostBridge.
type BridgeFunc func(ctx context.Context) (string, error)

// CheckDir calls f.
func (f BridgeFunc) CheckDir(ctx context.Context) (string, error) {
	return f(ctx)
}

// OSBridge resolves the current user's home directory from the operating
// system.
type OSBridge struct{}

// CheckDir returns the user's home directory.
func (OSBridge) CheckDir(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", NewCodedError(CodeHomeDir, err)
	}
	return dir, nil
}

// UnavailableBridge always fails, modelling a context with no host runtime.
type UnavailableBridge struct{}

// CheckDir returns ErrBridgeUnavailable.
func (UnavailableBridge) CheckDir(ctx context.Context) (string, error) {
	return "", ErrBridgeUnavailable
}

// Accessor stores the bridge's directory into State and never surfaces a
// bridge failure.
type Accessor struct {
	state  *State
	bridge HostBridge
}

// NewAccessor creates an accessor writing into state. A nil bridge behaves
// like UnavailableBridge.
func NewAccessor(state *State, bridge HostBridge) *Accessor {
	if bridge == nil {
		bridge = UnavailableBridge{}
	}
	return &Accessor{state: state, bridge: bridge}
}

// GetHomeDir asks the bridge for the home directory. On success the path is
// stored and returned; on any failure nothing is stored and "" is returned.
func (a *Accessor) GetHomeDir(ctx context.Context) string {
	dir, err := a.bridge.CheckDir(ctx)
	if err != nil {
		log.Printf("[DEBUG] host bridge failed, home directory left empty: %v", err)
		return ""
	}
	a.state.setHomeDir(dir)
	return dir
}

// DeleteDir removes path and everything below it.
func DeleteDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return NewCodedError(CodeDeleteDir, err)
	}
	return nil
}

// EnsureDir creates path (and parents) if it does not exist and checks that
// it is a directory.
func EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Clean(path), 0755); err != nil {
		return NewCodedError(CodeCreateDir, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return NewCodedError(CodeStatDir, err)
	}
	if !info.IsDir() {
		return NewCodedError(CodeStatDir, errors.New(path+" is not a directory"))
	}
	return nil
}
