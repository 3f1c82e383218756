package testing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/imamik/rsjoin/internal/registry"
)

// MemoryRegistry is an in-memory registry.Store.
type MemoryRegistry struct {
	mu     sync.Mutex
	values map[string]string
	puts   []string

	// Error injection, keyed by exact key or prefix.
	GetErr  map[string]error
	ListErr map[string]error
	PutErr  map[string]error
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		values:  make(map[string]string),
		GetErr:  make(map[string]error),
		ListErr: make(map[string]error),
		PutErr:  make(map[string]error),
	}
}

// Set writes a value without recording a Put.
func (r *MemoryRegistry) Set(key, value string) *MemoryRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return r
}

func (r *MemoryRegistry) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.GetErr[key]; err != nil {
		return "", false, err
	}
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemoryRegistry) List(_ context.Context, prefix string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ListErr[prefix]; err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for k, v := range r.values {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func (r *MemoryRegistry) Put(_ context.Context, key, value string, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.PutErr[key]; err != nil {
		return err
	}
	if _, exists := r.values[key]; exists && !overwrite {
		return &registry.KeyExistsError{Key: key}
	}
	r.values[key] = value
	r.puts = append(r.puts, key)
	return nil
}

// Value returns the stored value at key.
func (r *MemoryRegistry) Value(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

// Puts returns the keys written through Put, in order.
func (r *MemoryRegistry) Puts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.puts...)
}

// Snapshot returns a sorted copy of all keys and values.
func (r *MemoryRegistry) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Keys returns all keys, sorted.
func (r *MemoryRegistry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
