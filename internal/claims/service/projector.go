package service

import (
	"context"

	"velvet/internal/claims/models"
	"velvet/internal/claims/policy"
	"velvet/internal/claims/ports"
	dErrors "velvet/pkg/domain-errors"
)

// Projector writes an approved claim's effect onto the catalog resource, and
// undoes it when an admin override-rejects a previously approved claim.
//
// Projection is idempotent over the resource's AppliedClaimID: applying the
// same claim twice is a no-op, so a retry after a partial failure between
// claim commit and catalog write converges instead of double-writing.
type Projector struct {
	catalog ports.Catalog
}

func NewProjector(catalog ports.Catalog) *Projector {
	return &Projector{catalog: catalog}
}

// Apply projects an approved claim onto its resource.
func (p *Projector) Apply(ctx context.Context, claim *models.Claim) error {
	resource, err := p.catalog.Resource(ctx, claim.ResourceID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource for projection")
	}
	if resource.AppliedClaimID != nil && *resource.AppliedClaimID == claim.ID {
		return nil
	}

	claimID := claim.ID
	claimantID := claim.ClaimantID
	switch policy.EffectFor(claim.ClaimType) {
	case policy.EffectTransferOwnership:
		if err := p.catalog.SetController(ctx, claim.ResourceID, &claimantID, &claimID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer ownership")
		}
	case policy.EffectMarkSelfManaged:
		if err := p.catalog.SetSelfManaged(ctx, claim.ResourceID, &claimantID, &claimID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark profile self-managed")
		}
	default:
		return dErrors.Newf(dErrors.CodeInternal, "no projection effect for claim type %s", claim.ClaimType)
	}
	return nil
}

// Reverse undoes the projection of a claim whose approval an admin
// override-rejected. The pre-claim controller comes from the snapshot taken
// at approval time, never from recomputation. A resource whose applied claim
// is not this one has already moved on; reversing then would clobber a newer
// approval, so Reverse is a no-op.
func (p *Projector) Reverse(ctx context.Context, claim *models.Claim) error {
	if !claim.PriorRecorded {
		return nil
	}
	resource, err := p.catalog.Resource(ctx, claim.ResourceID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource for reversal")
	}
	if resource.AppliedClaimID == nil || *resource.AppliedClaimID != claim.ID {
		return nil
	}

	switch policy.EffectFor(claim.ClaimType) {
	case policy.EffectTransferOwnership:
		if err := p.catalog.SetController(ctx, claim.ResourceID, claim.PriorController, nil); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore prior controller")
		}
	case policy.EffectMarkSelfManaged:
		if err := p.catalog.SetSelfManaged(ctx, claim.ResourceID, nil, nil); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear self-managed mark")
		}
	default:
		return dErrors.Newf(dErrors.CodeInternal, "no projection effect for claim type %s", claim.ClaimType)
	}
	return nil
}
