// Package ports declares the narrow interfaces the claim engine consumes.
// Adapters live elsewhere; the engine never sees their concrete types.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"velvet/internal/audit"
	"velvet/internal/claims/models"
	"velvet/internal/notify"
	id "velvet/pkg/domain"
)

// Catalog is the establishment/profile catalog collaborator. Reading the
// controller and writing controller/self-managed marks are the only catalog
// operations this core performs.
type Catalog interface {
	// Resource returns the catalog's view of a claimable resource.
	// Returns sentinel.ErrNotFound when the resource does not exist.
	Resource(ctx context.Context, resourceID id.ResourceID) (*models.Resource, error)

	// SetController writes the resource's controller. applied records the
	// claim whose approval produced the write (nil when reversing).
	SetController(ctx context.Context, resourceID id.ResourceID, controller *id.ActorID, applied *id.ClaimID) error

	// SetSelfManaged marks or clears the profile's self-managed state
	// without touching the controller.
	SetSelfManaged(ctx context.Context, resourceID id.ResourceID, by *id.ActorID, applied *id.ClaimID) error
}

// EvidenceStore resolves opaque evidence references. The core checks
// existence and kind, never content.
type EvidenceStore interface {
	Exists(ctx context.Context, ref string) (bool, error)
	Kind(ctx context.Context, ref string) (models.EvidenceKind, error)
}

// Notifier receives decision outcomes as events.
type Notifier interface {
	Emit(ctx context.Context, event notify.Event) error
}

// Audit receives the append-only audit trail.
type Audit interface {
	Emit(ctx context.Context, event audit.Event) error
}
