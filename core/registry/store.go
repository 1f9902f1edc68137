package registry

import (
	"context"
	"fmt"
	"sync"
)

// Store persists model artifacts, one entry per version.
type Store interface {
	// Versions lists every stored version label, complete or not.
	Versions(ctx context.Context) ([]string, error)
	// Complete reports whether all parts of version are present.
	Complete(ctx context.Context, version string) bool
	Read(ctx context.Context, version string) (Artifact, error)
	Write(ctx context.Context, a Artifact) error
}

// MemoryStore keeps artifacts in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]Artifact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[string]Artifact)}
}

func (m *MemoryStore) Versions(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.artifacts))
	for v := range m.artifacts {
		out = append(out, v)
	}
	return out, nil
}

func (m *MemoryStore) Complete(_ context.Context, version string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[version]
	return ok && a.Regressor != nil && a.Scaler != nil
}

func (m *MemoryStore) Read(_ context.Context, version string) (Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[version]
	if !ok {
		return Artifact{}, fmt.Errorf("version %s: %w", version, ErrVersionNotFound)
	}
	return a, nil
}

func (m *MemoryStore) Write(_ context.Context, a Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifacts[a.Version] = a
	return nil
}
