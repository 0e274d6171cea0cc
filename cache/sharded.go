// Package cache provides a sharded concurrent map for handle-keyed lookup
// tables that are read on every intercepted call.
package cache

import (
	"sync"
)

const (
	// ShardCount is the number of shards. It is a power of 2 so that shard
	// selection is a mask.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// Hasher computes the hash used to pick a key's shard.
type Hasher[K any] func(K) uint64

// Handle returns a hasher for integer handle types. Handles are mixed
// with a multiplicative hash, since hosts often allocate them with
// aligned strides that would all land in one shard.
func Handle[K ~uint64 | ~uint32]() Hasher[K] {
	return func(k K) uint64 {
		return uint64(k) * 0x9e3779b97f4a7c15 >> 32
	}
}

// Sharded is a map split across ShardCount shards, each with its own
// reader/writer lock. Lookups of different keys rarely contend.
//
// Unlike an LRU cache, Sharded never evicts: entries stay until deleted.
//
// Sharded is safe for concurrent use.
type Sharded[K comparable, V any] struct {
	shards [ShardCount]shard[K, V]
	hasher Hasher[K]
}

type shard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// NewSharded creates an empty map selecting shards with hasher.
func NewSharded[K comparable, V any](hasher Hasher[K]) *Sharded[K, V] {
	m := &Sharded[K, V]{hasher: hasher}
	for i := range m.shards {
		m.shards[i].entries = make(map[K]V)
	}
	return m
}

func (m *Sharded[K, V]) shard(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&shardMask]
}

// Get returns the value stored for key.
func (m *Sharded[K, V]) Get(key K) (V, bool) {
	s := m.shard(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value for key.
func (m *Sharded[K, V]) Set(key K, value V) {
	s := m.shard(key)
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

// GetOrCreate returns the value for key, storing create() first when the
// key is absent. create runs under the shard lock and at most once per
// missing key.
func (m *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	s := m.shard(key)

	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok = s.entries[key]; ok {
		return v
	}
	v = create()
	s.entries[key] = v
	return v
}

// Update replaces the value for key with fn(old, present) under the
// shard lock. When fn returns keep == false the key is deleted.
func (m *Sharded[K, V]) Update(key K, fn func(old V, present bool) (v V, keep bool)) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, present := s.entries[key]
	v, keep := fn(old, present)
	if keep {
		s.entries[key] = v
	} else {
		delete(s.entries, key)
	}
}

// Delete removes key and reports whether it was present.
func (m *Sharded[K, V]) Delete(key K) bool {
	s := m.shard(key)
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return ok
}

// Len returns the number of entries. Concurrent writers make it a
// snapshot at best.
func (m *Sharded[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// ShardLen returns the number of entries in shard i.
func (m *Sharded[K, V]) ShardLen(i int) int {
	if i < 0 || i >= ShardCount {
		return 0
	}
	s := &m.shards[i]
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes every entry.
func (m *Sharded[K, V]) Clear() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		clear(s.entries)
		s.mu.Unlock()
	}
}
