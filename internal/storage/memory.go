package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps objects in a map. Upload and remove failures can be
// injected for tests.
type MemoryStore struct {
	mu      sync.Mutex
	base    string
	objects map[string][]byte
	uploads int

	UploadErr error
	RemoveErr error
}

func NewMemoryStore(publicBase string) *MemoryStore {
	if publicBase == "" {
		publicBase = "memory://objects"
	}
	return &MemoryStore{base: publicBase, objects: make(map[string][]byte)}
}

func (m *MemoryStore) Upload(_ context.Context, path, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.uploads++
	m.objects[path] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Download(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Remove(_ context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for _, p := range paths {
		delete(m.objects, p)
	}
	return nil
}

func (m *MemoryStore) PublicURL(path string) string {
	return joinURL(m.base, path)
}

// Paths lists stored object paths in order
func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Uploads counts successful uploads
func (m *MemoryStore) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
