// Package service orchestrates the claim lifecycle: submission, reviewer
// decisions, disputes and admin resolution. State legality lives on the
// Claim aggregate, per-claim-type rules in the policy package; this layer
// wires stores, collaborators, and side effects together.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"velvet/internal/audit"
	claimmetrics "velvet/internal/claims/metrics"
	"velvet/internal/claims/models"
	"velvet/internal/claims/policy"
	"velvet/internal/claims/ports"
	"velvet/internal/notify"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/sentinel"
	"velvet/pkg/requestcontext"
)

// Store persists claims. Implementations must serialize transitions on the
// same claim and enforce the one-active-claim invariant on Create.
type Store interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	ActiveByResource(ctx context.Context, resourceID id.ResourceID) (*models.Claim, error)
	ListByResource(ctx context.Context, resourceID id.ResourceID) ([]*models.Claim, error)
	ListByState(ctx context.Context, state models.ClaimState) ([]*models.Claim, error)
	Execute(ctx context.Context, claimID id.ClaimID, validate func(*models.Claim) error, mutate func(*models.Claim) error) (*models.Claim, error)
}

// Service is the claim & verification engine.
type Service struct {
	store     Store
	catalog   ports.Catalog
	evidence  ports.EvidenceStore
	projector *Projector
	notifier  ports.Notifier
	auditor   ports.Audit
	logger    *slog.Logger
	metrics   *claimmetrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAuditor(a ports.Audit) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *claimmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the service. Catalog and evidence store are mandatory
// collaborators; everything else is optional.
func New(store Store, catalog ports.Catalog, evidence ports.EvidenceStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		catalog:   catalog,
		evidence:  evidence,
		projector: NewProjector(catalog),
		tracer:    otel.Tracer("claims"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest carries a validated claim submission. The claimant comes
// from the request context, never the body.
type SubmitRequest struct {
	ResourceID id.ResourceID
	ClaimType  models.ClaimType
	Tier       models.Tier
	Evidence   models.Evidence
	Statement  string
}

// Submit validates and stores a new claim in state pending.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "claims.Submit")
	defer span.End()

	claimantID, _, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.ResourceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "resource_id is required")
	}

	resource, err := s.catalog.Resource(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resource not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource")
	}

	if err := policy.CheckTarget(req.ClaimType, claimantID, resource.Controller); err != nil {
		return nil, err
	}

	evidence := req.Evidence.Normalize()
	if err := policy.CheckEvidence(req.ClaimType, evidence); err != nil {
		return nil, err
	}
	if err := s.verifyEvidenceRefs(ctx, evidence); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	claim, err := models.NewClaim(id.NewClaimID(), req.ResourceID, resource.Kind, req.ClaimType, req.Tier, claimantID, evidence, req.Statement, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	s.linkReclaimChain(ctx, claim)

	if err := s.store.Create(ctx, claim); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateClaim, "another claim is already active on this resource")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create claim")
	}

	s.audit(ctx, claimantID, audit.ActionClaimSubmitted, claim.ID.String(), "")
	s.emit(ctx, notify.Event{
		Type:        notify.EventClaimSubmitted,
		ClaimID:     claim.ID.String(),
		RecipientID: reviewerRecipient(claim, resource),
		OccurredAt:  now,
	})
	if s.metrics != nil {
		s.metrics.ClaimsSubmitted.Inc()
	}
	s.log(ctx, "claim submitted",
		"claim_id", claim.ID,
		"resource_id", claim.ResourceID,
		"claim_type", claim.ClaimType,
		"resubmissions", claim.Resubmissions,
	)
	return claim, nil
}

// Get returns a claim to an actor involved with it: claimant, the resource's
// controller, a moderator, or an admin.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	actorID, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	claim, err := s.findClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, claim, actorID, role); err != nil {
		return nil, err
	}
	return claim, nil
}

// ChainByResource returns every claim on a resource, oldest first, to the
// resource's reviewer or an admin. This is the re-claim chain a reviewer
// inspects to judge evidence freshness.
func (s *Service) ChainByResource(ctx context.Context, resourceID id.ResourceID) ([]*models.Claim, error) {
	actorID, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if role != id.RoleAdmin && role != id.RoleModerator {
		resource, err := s.catalog.Resource(ctx, resourceID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "resource not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resource")
		}
		if resource.Controller == nil || *resource.Controller != actorID {
			return nil, dErrors.New(dErrors.CodeForbidden, "not a reviewer of this resource")
		}
	}
	claims, err := s.store.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// Queue returns the review queue for a state. Moderators and admins only.
func (s *Service) Queue(ctx context.Context, state models.ClaimState) ([]*models.Claim, error) {
	_, role, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if role != id.RoleAdmin && role != id.RoleModerator {
		return nil, dErrors.New(dErrors.CodeForbidden, "review queues are restricted to moderators and admins")
	}
	claims, err := s.store.ListByState(ctx, state)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}
	return claims, nil
}

// linkReclaimChain attaches the prior rejected claim, if any, and bumps the
// resubmission counter. Best effort: a missing chain never blocks submission.
func (s *Service) linkReclaimChain(ctx context.Context, claim *models.Claim) {
	prior, err := s.store.ListByResource(ctx, claim.ResourceID)
	if err != nil {
		return
	}
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].State == models.ClaimStateRejected {
			priorID := prior[i].ID
			claim.ResubmissionOf = &priorID
			claim.Resubmissions = prior[i].Resubmissions + 1
			return
		}
	}
}

// verifyEvidenceRefs checks each present reference against the evidence
// store: it must exist and be of the declared kind.
func (s *Service) verifyEvidenceRefs(ctx context.Context, evidence models.Evidence) error {
	for wantKind, ref := range evidence.Refs() {
		exists, err := s.evidence.Exists(ctx, ref)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check evidence reference")
		}
		if !exists {
			return dErrors.Newf(dErrors.CodeValidation, "evidence reference %q does not exist", ref)
		}
		kind, err := s.evidence.Kind(ctx, ref)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve evidence kind")
		}
		if kind != wantKind {
			return dErrors.Newf(dErrors.CodeValidation, "evidence reference %q is a %s, expected %s", ref, kind, wantKind)
		}
	}
	return nil
}

func (s *Service) findClaim(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "claim id is required")
	}
	claim, err := s.store.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}
	return claim, nil
}

func (s *Service) authorizeView(ctx context.Context, claim *models.Claim, actorID id.ActorID, role id.Role) error {
	if role == id.RoleAdmin || role == id.RoleModerator {
		return nil
	}
	if claim.ClaimantID == actorID {
		return nil
	}
	resource, err := s.catalog.Resource(ctx, claim.ResourceID)
	if err == nil && resource.Controller != nil && *resource.Controller == actorID {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "not involved with this claim")
}

func (s *Service) requireActor(ctx context.Context) (id.ActorID, id.Role, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return id.ActorID{}, "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return actorID, requestcontext.Role(ctx), nil
}

// reviewerRecipient picks who should hear about a new submission: the
// resource's controller when there is one, otherwise the claimant (ack) -
// routing house-managed claims to the moderator pool is the notification
// collaborator's concern.
func reviewerRecipient(claim *models.Claim, resource *models.Resource) id.ActorID {
	if resource.Controller != nil {
		return *resource.Controller
	}
	return claim.ClaimantID
}

func (s *Service) audit(ctx context.Context, actorID id.ActorID, action, subject, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   actorID,
		ActorRole: requestcontext.Role(ctx),
		Subject:   subject,
		Action:    action,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}

func (s *Service) emit(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, event); err != nil {
		s.log(ctx, "failed to emit notification event", "type", event.Type, "error", err)
	}
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}
