// Package consul implements the registry on the Consul KV store.
package consul

import (
	"context"
	"fmt"
	"strings"

	consulapi "github.com/hashicorp/consul/api"

	"github.com/imamik/rsjoin/internal/registry"
)

// KV is the subset of the Consul KV API used by Store.
type KV interface {
	Get(key string, q *consulapi.QueryOptions) (*consulapi.KVPair, *consulapi.QueryMeta, error)
	List(prefix string, q *consulapi.QueryOptions) (consulapi.KVPairs, *consulapi.QueryMeta, error)
	Put(p *consulapi.KVPair, q *consulapi.WriteOptions) (*consulapi.WriteMeta, error)
	CAS(p *consulapi.KVPair, q *consulapi.WriteOptions) (bool, *consulapi.WriteMeta, error)
}

// Store is a registry.Store over Consul KV. Registry paths keep their leading
// slash; Consul keys do not.
type Store struct {
	kv KV
}

var _ registry.Store = (*Store)(nil)

// NewClient connects to the agent at addr.
func NewClient(addr string) (*Store, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return NewStore(client.KV()), nil
}

// NewStore returns a Store over kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	pair, _, err := s.kv.Get(toKey(key), (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return "", false, fmt.Errorf("consul get %s: %w", key, err)
	}
	if pair == nil {
		return "", false, nil
	}
	return string(pair.Value), true, nil
}

func (s *Store) List(ctx context.Context, prefix string) (map[string]string, error) {
	pairs, _, err := s.kv.List(toKey(prefix), (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("consul list %s: %w", prefix, err)
	}
	entries := make(map[string]string, len(pairs))
	for _, p := range pairs {
		// folder markers
		if strings.HasSuffix(p.Key, "/") {
			continue
		}
		entries["/"+p.Key] = string(p.Value)
	}
	return entries, nil
}

// Put writes value at key. Without overwrite the write is a check-and-set
// against index 0, which only succeeds if the key does not exist.
func (s *Store) Put(ctx context.Context, key, value string, overwrite bool) error {
	pair := &consulapi.KVPair{Key: toKey(key), Value: []byte(value)}
	w := (&consulapi.WriteOptions{}).WithContext(ctx)

	if overwrite {
		if _, err := s.kv.Put(pair, w); err != nil {
			return fmt.Errorf("consul put %s: %w", key, err)
		}
		return nil
	}

	ok, _, err := s.kv.CAS(pair, w)
	if err != nil {
		return fmt.Errorf("consul put %s: %w", key, err)
	}
	if !ok {
		return &registry.KeyExistsError{Key: key}
	}
	return nil
}

func toKey(path string) string {
	return strings.TrimPrefix(path, "/")
}
