// Package persist provides small key-value stores for launcher state that
// must survive restarts: profile settings, last selected server and the like.
//
// Values are JSON objects. Save shallow-merges the given fields over what is
// already stored (one level deep, new keys win), Get returns nil when the id
// has never been saved, Remove deletes the entry and Clear deletes all of
// them. There is no expiry and
// no schema versioning.
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned for ids that are empty or cannot be used as keys.
var ErrInvalidID = errors.New("invalid store id")

// Store is a key-value store of JSON objects.
type Store interface {
	Save(ctx context.Context, id string, data map[string]any) error
	Get(ctx context.Context, id string) (map[string]any, error)
	Remove(ctx context.Context, id string) error
	// Clear deletes every entry.
	Clear(ctx context.Context) error
	Close() error
}

// merge overlays data onto existing one level deep. existing may be nil.
func merge(existing, data map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(data))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
