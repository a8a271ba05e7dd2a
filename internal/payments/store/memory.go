// Package store persists payment verification transactions.
package store

import (
	"context"
	"sort"
	"sync"

	"velvet/internal/payments/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

// InMemory is the mutex-guarded transaction store for tests and dev mode.
type InMemory struct {
	mu  sync.RWMutex
	txs map[id.TransactionID]*models.Transaction
}

func NewInMemory() *InMemory {
	return &InMemory{txs: make(map[id.TransactionID]*models.Transaction)}
}

func (s *InMemory) Create(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; ok {
		return sentinel.ErrConflict
	}
	tx.Version = 1
	s.txs[tx.ID] = tx.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return tx.Clone(), nil
}

func (s *InMemory) ListByEstablishment(_ context.Context, establishmentID id.EstablishmentID) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range s.txs {
		if tx.EstablishmentID == establishmentID {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

// Execute serializes a read-validate-mutate cycle on one transaction.
// The mutation runs against a working copy; a failed mutation leaves the
// stored record untouched.
func (s *InMemory) Execute(
	_ context.Context,
	txID id.TransactionID,
	validate func(*models.Transaction) error,
	mutate func(*models.Transaction) error,
) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.txs[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.Version++
	s.txs[txID] = working
	return working.Clone(), nil
}
