package testsupport

import (
	"context"
	"sort"
	"sync"

	"recbase/internal/services"
)

// MemoryBlob is an in-memory blob.Store. FailPut makes every Put fail with
// ErrStorageUnavailable.
type MemoryBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	FailPut bool
}

// NewMemoryBlob constructs an empty MemoryBlob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{objects: make(map[string][]byte)}
}

func (m *MemoryBlob) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut {
		return services.Wrap(services.ErrStorageUnavailable, services.StageBlob, "put", key, nil)
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBlob) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, services.StageBlob, "get", key, nil)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlob) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Keys lists stored keys in sorted order.
func (m *MemoryBlob) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
