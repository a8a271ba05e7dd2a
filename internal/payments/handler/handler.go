// Package handler exposes the cash verification ledger over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"velvet/internal/payments/models"
	"velvet/internal/payments/service"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/httputil"
	"velvet/pkg/requestcontext"
)

// Service defines the payment operations the handler fronts.
type Service interface {
	Record(ctx context.Context, req service.RecordRequest) (*models.Transaction, error)
	Verify(ctx context.Context, txID id.TransactionID, notes string) (*models.Transaction, error)
	Reject(ctx context.Context, txID id.TransactionID, reason string) (*models.Transaction, error)
	Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	ListByEstablishment(ctx context.Context, establishmentID id.EstablishmentID) ([]*models.Transaction, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts payment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payments", h.HandleRecord)
	r.Get("/payments/{transactionID}", h.HandleGet)
	r.Post("/payments/{transactionID}/verify", h.HandleVerify)
	r.Post("/payments/{transactionID}/reject", h.HandleReject)
	r.Get("/establishments/{establishmentID}/payments", h.HandleList)
}

// RecordRequest is the HTTP request body for POST /payments.
type RecordRequest struct {
	EstablishmentID string `json:"establishment_id"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
	Tier            string `json:"tier"`
	DurationDays    int    `json:"duration_days"`

	parsedEstablishmentID id.EstablishmentID
}

func (r *RecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	establishmentID, err := id.ParseEstablishmentID(strings.TrimSpace(r.EstablishmentID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "establishment_id must be a valid id")
	}
	r.parsedEstablishmentID = establishmentID
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Tier = strings.TrimSpace(r.Tier)
	return nil
}

// DecisionRequest is the HTTP request body for verify/reject endpoints.
type DecisionRequest struct {
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// TransactionResponse is the wire shape of a payment verification.
type TransactionResponse struct {
	ID              string     `json:"id"`
	EstablishmentID string     `json:"establishment_id"`
	AmountCents     int64      `json:"amount_cents"`
	Currency        string     `json:"currency"`
	Tier            string     `json:"tier"`
	DurationDays    int        `json:"duration_days"`
	SubmittedBy     string     `json:"submitted_by"`
	State           string     `json:"state"`
	Notes           string     `json:"notes,omitempty"`
	DecidedBy       string     `json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
}

func FromTransaction(t *models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              t.ID.String(),
		EstablishmentID: t.EstablishmentID.String(),
		AmountCents:     t.AmountCents,
		Currency:        t.Currency,
		Tier:            t.Tier,
		DurationDays:    t.DurationDays,
		SubmittedBy:     t.SubmittedBy.String(),
		State:           string(t.State),
		Notes:           t.Notes,
		DecidedAt:       t.DecidedAt,
		SubmittedAt:     t.SubmittedAt,
	}
	if t.DecidedBy != nil {
		resp.DecidedBy = t.DecidedBy.String()
	}
	return resp
}

// HandleRecord handles POST /payments.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Record(ctx, service.RecordRequest{
		EstablishmentID: req.parsedEstablishmentID,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Tier:            req.Tier,
		DurationDays:    req.DurationDays,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "payment record failed",
			"request_id", requestID,
			"establishment_id", req.EstablishmentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTransaction(tx))
}

// HandleGet handles GET /payments/{transactionID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "transaction id must be a valid id"))
		return
	}
	tx, err := h.service.Get(ctx, txID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleVerify handles POST /payments/{transactionID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "transaction id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Verify(ctx, txID, strings.TrimSpace(req.Notes))
	if err != nil {
		h.logger.WarnContext(ctx, "payment verification failed",
			"request_id", requestID,
			"transaction_id", txID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleReject handles POST /payments/{transactionID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "transaction id must be a valid id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, err := h.service.Reject(ctx, txID, strings.TrimSpace(req.Reason))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(tx))
}

// HandleList handles GET /establishments/{establishmentID}/payments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	establishmentID, err := id.ParseEstablishmentID(chi.URLParam(r, "establishmentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "establishment id must be a valid id"))
		return
	}
	txs, err := h.service.ListByEstablishment(ctx, establishmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, FromTransaction(tx))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
