// Package store persists claims. The in-memory implementation backs unit
// tests and dev mode; PostgresStore is the durable variant. Both enforce the
// one-active-claim-per-resource invariant through a normalized
// resource -> active-claim index maintained under the same lock as the claim
// write.
package store

import (
	"context"
	"sort"
	"sync"

	"velvet/internal/claims/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded claim store.
type InMemory struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*models.Claim
	// active is the claim-lock: at most one non-terminal claim per resource.
	active map[id.ResourceID]id.ClaimID
}

func NewInMemory() *InMemory {
	return &InMemory{
		claims: make(map[id.ClaimID]*models.Claim),
		active: make(map[id.ResourceID]id.ClaimID),
	}
}

// Create inserts a pending claim, taking the resource's claim slot.
// Returns sentinel.ErrAlreadyUsed when another claim is active on the
// resource, sentinel.ErrConflict on id reuse.
func (s *InMemory) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[claim.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, taken := s.active[claim.ResourceID]; taken {
		return sentinel.ErrAlreadyUsed
	}

	cp := claim.Clone()
	cp.Version = 1
	s.claims[claim.ID] = cp
	s.active[claim.ResourceID] = claim.ID
	claim.Version = cp.Version
	return nil
}

func (s *InMemory) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return claim.Clone(), nil
}

// ActiveByResource returns the resource's non-terminal claim, if any.
func (s *InMemory) ActiveByResource(_ context.Context, resourceID id.ResourceID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claimID, ok := s.active[resourceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.claims[claimID].Clone(), nil
}

// ListByResource returns every claim ever made on the resource, oldest first.
// This is the re-claim chain.
func (s *InMemory) ListByResource(_ context.Context, resourceID id.ResourceID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, claim := range s.claims {
		if claim.ResourceID == resourceID {
			out = append(out, claim.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// ListByState returns claims in the given state, oldest first (review queues).
func (s *InMemory) ListByState(_ context.Context, state models.ClaimState) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, claim := range s.claims {
		if claim.State == state {
			out = append(out, claim.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

// Execute runs an atomic validate-then-mutate on one claim, holding the store
// lock across both. validate and mutate see a working copy; the copy is
// committed only when both succeed, so a failed mutation leaves the stored
// claim untouched. Transitions on the same claim are fully serialized.
//
// When the mutation re-activates a terminal claim (dispute of a decided
// claim) the claim slot is re-armed; if another claim took the slot in the
// meantime, Execute fails with sentinel.ErrConflict.
func (s *InMemory) Execute(
	_ context.Context,
	claimID id.ClaimID,
	validate func(*models.Claim) error,
	mutate func(*models.Claim) error,
) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.claims[claimID]
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

	wasActive := stored.State.IsActive()
	nowActive := working.State.IsActive()
	if !wasActive && nowActive {
		if holder, taken := s.active[working.ResourceID]; taken && holder != claimID {
			return nil, sentinel.ErrConflict
		}
		s.active[working.ResourceID] = claimID
	}
	if wasActive && !nowActive {
		delete(s.active, working.ResourceID)
	}

	working.Version = stored.Version + 1
	s.claims[claimID] = working
	return working.Clone(), nil
}
