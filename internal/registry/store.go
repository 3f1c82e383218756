package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/rsjoin/internal/cluster"
	"github.com/imamik/rsjoin/internal/util/naming"
)

// Store is the narrow contract over the backing key-value service.
type Store interface {
	// Get returns the value at key. A missing key is reported as found=false
	// with a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// List returns every key/value pair under prefix, keyed by full path.
	List(ctx context.Context, prefix string) (map[string]string, error)
	// Put writes value at key. With overwrite=false an existing key is left
	// unchanged and reported as an error.
	Put(ctx context.Context, key, value string, overwrite bool) error
}

// Require reads a value that must already exist. A missing key is a
// *cluster.ConfigError; a failed read is a *cluster.TransportError.
func Require(ctx context.Context, store Store, key string) (string, error) {
	value, found, err := store.Get(ctx, key)
	if err != nil {
		return "", cluster.Transport("registry get "+key, err)
	}
	if !found || strings.TrimSpace(value) == "" {
		return "", &cluster.ConfigError{Field: key, Reason: "required registry entry is missing"}
	}
	return value, nil
}

// Slots converts a prefix listing into slot -> value.
func Slots(entries map[string]string) map[string]string {
	out := make(map[string]string, len(entries))
	for key, value := range entries {
		out[naming.SlotFromPath(key)] = value
	}
	return out
}

// KeyExistsError is returned by Put when overwrite is false and the key is set.
type KeyExistsError struct {
	Key string
}

func (e *KeyExistsError) Error() string {
	return fmt.Sprintf("registry key %s already exists", e.Key)
}
