// Package catalog adapts the platform's venue/profile catalog to the narrow
// interfaces the claim and payment engines consume. The in-memory adapter
// backs tests and dev mode; production wires the real catalog service here.
package catalog

import (
	"context"
	"sync"
	"time"

	"velvet/internal/claims/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

// MemoryCatalog holds resources and VIP subscription expiries in memory.
type MemoryCatalog struct {
	mu            sync.RWMutex
	resources     map[id.ResourceID]*models.Resource
	subscriptions map[id.EstablishmentID]time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		resources:     make(map[id.ResourceID]*models.Resource),
		subscriptions: make(map[id.EstablishmentID]time.Time),
	}
}

// AddResource seeds a resource. Intended for wiring and tests.
func (c *MemoryCatalog) AddResource(res *models.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *res
	c.resources[res.ID] = &cp
}

func (c *MemoryCatalog) Resource(_ context.Context, resourceID id.ResourceID) (*models.Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.resources[resourceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (c *MemoryCatalog) SetController(_ context.Context, resourceID id.ResourceID, controller *id.ActorID, applied *id.ClaimID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.resources[resourceID]
	if !ok {
		return sentinel.ErrNotFound
	}
	res.Controller = copyActor(controller)
	res.AppliedClaimID = copyClaim(applied)
	return nil
}

func (c *MemoryCatalog) SetSelfManaged(_ context.Context, resourceID id.ResourceID, by *id.ActorID, applied *id.ClaimID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.resources[resourceID]
	if !ok {
		return sentinel.ErrNotFound
	}
	res.SelfManagedBy = copyActor(by)
	res.AppliedClaimID = copyClaim(applied)
	return nil
}

// ExtendVIP activates or extends an establishment's VIP subscription by the
// given number of days. The extension anchors on whichever is later: the
// current expiry or from - a lapsed subscription restarts at from, an active
// one stacks on top. Returns the new expiry.
func (c *MemoryCatalog) ExtendVIP(_ context.Context, establishmentID id.EstablishmentID, from time.Time, days int) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	anchor := from
	if current, ok := c.subscriptions[establishmentID]; ok && current.After(anchor) {
		anchor = current
	}
	expiry := anchor.AddDate(0, 0, days)
	c.subscriptions[establishmentID] = expiry
	return expiry, nil
}

// VIPExpiry returns the current subscription expiry, zero time when none.
func (c *MemoryCatalog) VIPExpiry(_ context.Context, establishmentID id.EstablishmentID) (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[establishmentID], nil
}

func copyActor(a *id.ActorID) *id.ActorID {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

func copyClaim(c *id.ClaimID) *id.ClaimID {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
