package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Operation names used by MemoryStore fault injection and by metrics.
const (
	OpPut    = "put"
	OpList   = "list"
	OpDelete = "delete"
)

var errMemoryStoreDown = errors.New("memory store is down")

// MemoryStore is an in-process RemoteStore. It backs the memory:// mode and
// doubles as the injectable fake in tests, with fault injection per
// operation.
type MemoryStore struct {
	mu       sync.Mutex
	keys     []string
	blobs    map[string][]byte
	down     bool
	failures map[string]int
	calls    map[string]int
}

// NewMemoryStore returns an empty, healthy MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs:    map[string][]byte{},
		failures: map[string]int{},
		calls:    map[string]int{},
	}
}

// SetDown makes every operation fail until called again with false.
func (m *MemoryStore) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// FailNext makes the next N calls of OP fail.
func (m *MemoryStore) FailNext(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = n
}

// Calls returns how many times OP was attempted.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// injectLocked must be called with mu held.
func (m *MemoryStore) injectLocked(op string) error {
	m.calls[op]++
	if m.down {
		return TransientError(op, errMemoryStoreDown)
	}
	if m.failures[op] > 0 {
		m.failures[op]--
		return TransientError(op, errMemoryStoreDown)
	}
	return nil
}

// Put stores a copy of DATA under KEY.
func (m *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectLocked(OpPut); err != nil {
		return err
	}
	if _, exists := m.blobs[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

// List returns the blobs of COLLECTION in insertion order.
func (m *MemoryStore) List(ctx context.Context, collection string) ([]Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectLocked(OpList); err != nil {
		return nil, err
	}
	prefix := collection + "/"
	var blobs []Blob
	for _, key := range m.keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		c, id, ok := ParseKey(key)
		if !ok {
			continue
		}
		blobs = append(blobs, Blob{Collection: c, ID: id, Data: append([]byte(nil), m.blobs[key]...)})
	}
	return blobs, nil
}

// Delete removes KEY.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectLocked(OpDelete); err != nil {
		return err
	}
	if _, exists := m.blobs[key]; !exists {
		return BlobNotFoundError(key)
	}
	delete(m.blobs, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return nil
}

// URI returns the memory:// location of KEY.
func (m *MemoryStore) URI(key string) string {
	return "memory://" + key
}

// Close is a no-op.
func (m *MemoryStore) Close(context.Context) error {
	return nil
}
