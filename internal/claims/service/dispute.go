package service

import (
	"context"
	"errors"

	"velvet/internal/audit"
	"velvet/internal/claims/models"
	"velvet/internal/claims/policy"
	"velvet/internal/notify"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/sentinel"
	"velvet/pkg/requestcontext"
)

// DisputeRequest escalates a claim to admin review.
type DisputeRequest struct {
	ClaimID id.ClaimID
	Reason  string
}

// Dispute moves a claim into the disputed state. Legal from any state,
// including terminal ones: contesting a rejection or an approval re-opens
// the outcome. Disputing a terminal claim re-takes the resource's active
// slot; if a newer claim already holds it the dispute fails with a conflict.
func (s *Service) Dispute(ctx context.Context, req DisputeRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.Dispute")
	defer span.End()

	actorID, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.Reason == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a dispute must state its grounds")
	}

	now := requestcontext.Now(ctx)
	decision := models.Decision{
		ActorID:   actorID,
		ActorRole: role,
		Action:    models.ActionDispute,
		Reason:    req.Reason,
		DecidedAt: now,
	}

	claim, err := s.store.Execute(ctx, req.ClaimID,
		func(c *models.Claim) error {
			if err := policy.CheckDisputant(c, actorID); err != nil {
				return err
			}
			return c.CanApply(models.ActionDispute, req.Reason)
		},
		func(c *models.Claim) error {
			return c.ApplyDecision(decision)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a newer claim is active on this resource; dispute that claim instead")
		}
		return nil, err
	}

	s.audit(ctx, actorID, audit.ActionClaimDisputed, claim.ID.String(), req.Reason)
	s.emit(ctx, notify.Event{
		Type:          notify.EventClaimDisputed,
		ClaimID:       claim.ID.String(),
		RecipientID:   claim.ClaimantID,
		ReasonOrNotes: req.Reason,
		OccurredAt:    now,
	})
	if s.metrics != nil {
		s.metrics.ClaimsDisputed.Inc()
	}
	s.log(ctx, "claim disputed", "claim_id", claim.ID, "disputant_id", actorID)
	return claim, nil
}

// ResolveRequest is an admin override on a disputed claim.
type ResolveRequest struct {
	ClaimID id.ClaimID
	Action  models.Action
	Reason  string
}

// Resolve closes a dispute with override_approve or override_reject.
// Override approval projects the claim's effect; override rejection of a
// claim that had been approved restores the pre-claim controller from the
// snapshot taken at approval time.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.Resolve")
	defer span.End()

	actorID, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckResolver(role); err != nil {
		return nil, err
	}
	switch req.Action {
	case models.ActionOverrideApprove, models.ActionOverrideReject:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "%s does not resolve a dispute", req.Action)
	}

	now := requestcontext.Now(ctx)
	decision := models.Decision{
		ActorID:   actorID,
		ActorRole: role,
		Action:    req.Action,
		Reason:    req.Reason,
		DecidedAt: now,
	}

	claim, err := s.store.Execute(ctx, req.ClaimID,
		func(c *models.Claim) error {
			return c.CanApply(req.Action, req.Reason)
		},
		func(c *models.Claim) error {
			if req.Action == models.ActionOverrideApprove {
				resource, err := s.catalog.Resource(ctx, c.ResourceID)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource")
				}
				c.RecordPriorController(resource.Controller)
			}
			return c.ApplyDecision(decision)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, err
	}

	switch req.Action {
	case models.ActionOverrideApprove:
		if err := s.projector.Apply(ctx, claim); err != nil {
			return nil, err
		}
	case models.ActionOverrideReject:
		if err := s.projector.Reverse(ctx, claim); err != nil {
			return nil, err
		}
	}

	s.audit(ctx, actorID, audit.ActionClaimResolved, claim.ID.String(), req.Reason)
	s.emit(ctx, notify.Event{
		Type:          notify.EventClaimOverride,
		ClaimID:       claim.ID.String(),
		RecipientID:   claim.ClaimantID,
		ReasonOrNotes: req.Reason,
		OccurredAt:    now,
	})
	if s.metrics != nil {
		s.metrics.ClaimsResolved.Inc()
	}
	s.log(ctx, "dispute resolved",
		"claim_id", claim.ID,
		"action", req.Action,
		"state", claim.State,
	)
	return claim, nil
}
