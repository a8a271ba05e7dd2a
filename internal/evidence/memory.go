// Package evidence holds the adapters behind the claim engine's evidence
// store port: reference registries and the phone verification flow.
package evidence

import (
	"context"
	"sync"

	"velvet/internal/claims/models"
	dErrors "velvet/pkg/domain-errors"
)

// MemoryStore is an in-process reference registry for tests and local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	refs map[string]models.EvidenceKind
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[string]models.EvidenceKind)}
}

// Put registers a reference with its kind.
func (s *MemoryStore) Put(ref string, kind models.EvidenceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref] = kind
}

// Register implements the phone flow's Registry port.
func (s *MemoryStore) Register(_ context.Context, ref string, kind models.EvidenceKind) error {
	s.Put(ref, kind)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, ref string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.refs[ref]
	return ok, nil
}

func (s *MemoryStore) Kind(_ context.Context, ref string) (models.EvidenceKind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kind, ok := s.refs[ref]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeNotFound, "unknown evidence reference %q", ref)
	}
	return kind, nil
}
