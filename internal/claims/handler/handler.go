// Package handler exposes the claim engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"velvet/internal/claims/models"
	"velvet/internal/claims/service"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/httputil"
	"velvet/pkg/requestcontext"
)

// Service defines the claim operations the handler fronts.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Claim, error)
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	ChainByResource(ctx context.Context, resourceID id.ResourceID) ([]*models.Claim, error)
	Queue(ctx context.Context, state models.ClaimState) ([]*models.Claim, error)
	Decide(ctx context.Context, req service.DecideRequest) (*models.Claim, error)
	UpdateEvidence(ctx context.Context, req service.UpdateEvidenceRequest) (*models.Claim, error)
	Dispute(ctx context.Context, req service.DisputeRequest) (*models.Claim, error)
	Resolve(ctx context.Context, req service.ResolveRequest) (*models.Claim, error)
}

// Handler wires claim endpoints to the claim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts claim endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.HandleSubmit)
	r.Get("/claims", h.HandleQueue)
	r.Get("/claims/{claimID}", h.HandleGet)
	r.Post("/claims/{claimID}/decision", h.HandleDecision)
	r.Post("/claims/{claimID}/evidence", h.HandleEvidenceUpdate)
	r.Post("/claims/{claimID}/dispute", h.HandleDispute)
	r.Post("/claims/{claimID}/resolve", h.HandleResolve)
	r.Get("/resources/{resourceID}/claims", h.HandleChain)
}

// HandleSubmit handles POST /claims.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.Submit(ctx, req.ToDomain())
	if err != nil {
		h.logger.WarnContext(ctx, "claim submission failed",
			"request_id", requestID,
			"resource_id", req.ResourceID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromClaim(claim))
}

// HandleGet handles GET /claims/{claimID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "claim id must be a valid id"))
		return
	}
	claim, err := h.service.Get(ctx, claimID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleQueue handles GET /claims?state=pending.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := models.ClaimState(r.URL.Query().Get("state"))
	switch state {
	case models.ClaimStatePending, models.ClaimStateInfoRequested, models.ClaimStateDisputed,
		models.ClaimStateApproved, models.ClaimStateRejected:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "state query parameter is required"))
		return
	}

	claims, err := h.service.Queue(ctx, state)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims))
}

// HandleDecision handles POST /claims/{claimID}/decision.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "claim id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.Decide(ctx, service.DecideRequest{
		ClaimID: claimID,
		Action:  req.parsedAction,
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "claim decision failed",
			"request_id", requestID,
			"claim_id", claimID,
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleEvidenceUpdate handles POST /claims/{claimID}/evidence.
func (h *Handler) HandleEvidenceUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "claim id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[EvidenceUpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.UpdateEvidence(ctx, service.UpdateEvidenceRequest{
		ClaimID: claimID,
		Evidence: models.Evidence{
			SelfieRef:   req.Evidence.SelfieRef,
			DocumentRef: req.Evidence.DocumentRef,
			PhoneToken:  req.Evidence.PhoneToken,
		},
		Statement: req.Statement,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleDispute handles POST /claims/{claimID}/dispute.
func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "claim id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DisputeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.Dispute(ctx, service.DisputeRequest{
		ClaimID: claimID,
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "claim dispute failed",
			"request_id", requestID,
			"claim_id", claimID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleResolve handles POST /claims/{claimID}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "claim id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claim, err := h.service.Resolve(ctx, service.ResolveRequest{
		ClaimID: claimID,
		Action:  req.parsedAction,
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "dispute resolution failed",
			"request_id", requestID,
			"claim_id", claimID,
			"action", req.Action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaim(claim))
}

// HandleChain handles GET /resources/{resourceID}/claims.
func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resourceID, err := id.ParseResourceID(chi.URLParam(r, "resourceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "resource id must be a valid id"))
		return
	}
	claims, err := h.service.ChainByResource(ctx, resourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromClaims(claims))
}
