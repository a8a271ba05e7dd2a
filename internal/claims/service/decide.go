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

// DecideRequest carries a reviewer action on a claim. The acting reviewer
// comes from the request context.
type DecideRequest struct {
	ClaimID id.ClaimID
	Action  models.Action
	Reason  string
}

// Decide applies a reviewer action: approve, reject, or request_info.
// Disputes and overrides have dedicated entry points with their own
// authorization; routing them here is an invalid transition for the caller.
func (s *Service) Decide(ctx context.Context, req DecideRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.Decide")
	defer span.End()

	actorID, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	switch req.Action {
	case models.ActionApprove, models.ActionReject, models.ActionRequestInfo:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "%s is not a reviewer decision", req.Action)
	}

	current, err := s.findClaim(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}
	resource, err := s.catalog.Resource(ctx, current.ResourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource")
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
			if err := policy.CheckReviewer(c, actorID, role, resource.Controller); err != nil {
				return err
			}
			return c.CanApply(req.Action, req.Reason)
		},
		func(c *models.Claim) error {
			if req.Action == models.ActionApprove {
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

	if req.Action == models.ActionApprove {
		if err := s.projector.Apply(ctx, claim); err != nil {
			s.log(ctx, "projection failed after approval; retry will converge",
				"claim_id", claim.ID, "error", err)
			return nil, err
		}
	}

	s.audit(ctx, actorID, audit.ActionClaimDecided, claim.ID.String(), req.Reason)
	s.emit(ctx, notify.Event{
		Type:          decisionEventType(req.Action),
		ClaimID:       claim.ID.String(),
		RecipientID:   claim.ClaimantID,
		ReasonOrNotes: req.Reason,
		OccurredAt:    now,
	})
	s.countDecision(req.Action)
	s.log(ctx, "claim decided",
		"claim_id", claim.ID,
		"action", req.Action,
		"state", claim.State,
	)
	return claim, nil
}

// UpdateEvidenceRequest carries a claimant's response to an info request.
type UpdateEvidenceRequest struct {
	ClaimID   id.ClaimID
	Evidence  models.Evidence
	Statement string
}

// UpdateEvidence replaces the evidence on an info_requested claim and
// returns it to pending. Only the claimant may respond, and the new bundle
// must still satisfy the claim type's evidence policy.
func (s *Service) UpdateEvidence(ctx context.Context, req UpdateEvidenceRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.UpdateEvidence")
	defer span.End()

	actorID, _, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.findClaim(ctx, req.ClaimID)
	if err != nil {
		return nil, err
	}

	evidence := req.Evidence.Normalize()
	if err := policy.CheckEvidence(current.ClaimType, evidence); err != nil {
		return nil, err
	}
	if err := s.verifyEvidenceRefs(ctx, evidence); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err := s.store.Execute(ctx, req.ClaimID,
		func(c *models.Claim) error {
			return c.CanUpdateEvidence(actorID)
		},
		func(c *models.Claim) error {
			c.ApplyEvidenceUpdate(evidence, req.Statement, now)
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, err
	}

	s.audit(ctx, actorID, audit.ActionEvidenceUpdated, claim.ID.String(), "")
	s.log(ctx, "claim evidence updated", "claim_id", claim.ID)
	return claim, nil
}

func decisionEventType(action models.Action) notify.EventType {
	switch action {
	case models.ActionApprove:
		return notify.EventClaimApproved
	case models.ActionReject:
		return notify.EventClaimRejected
	default:
		return notify.EventClaimInfoRequested
	}
}

func (s *Service) countDecision(action models.Action) {
	if s.metrics == nil {
		return
	}
	switch action {
	case models.ActionApprove:
		s.metrics.ClaimsApproved.Inc()
	case models.ActionReject:
		s.metrics.ClaimsRejected.Inc()
	}
}
