// Package handler exposes the phone verification flow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/httputil"
	"velvet/pkg/requestcontext"
)

// PhoneService issues and confirms phone verification codes.
type PhoneService interface {
	Request(ctx context.Context, phone string) error
	Confirm(ctx context.Context, phone, code string) (string, error)
}

type Handler struct {
	phone  PhoneService
	logger *slog.Logger
}

func New(phone PhoneService, logger *slog.Logger) *Handler {
	return &Handler{phone: phone, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evidence/phone/request", h.HandleRequest)
	r.Post("/evidence/phone/confirm", h.HandleConfirm)
}

// PhoneRequest is the HTTP request body for POST /evidence/phone/request.
type PhoneRequest struct {
	Phone string `json:"phone"`
}

func (r *PhoneRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	}
	return nil
}

// PhoneConfirm is the HTTP request body for POST /evidence/phone/confirm.
type PhoneConfirm struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (r *PhoneConfirm) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Phone = strings.TrimSpace(r.Phone)
	r.Code = strings.TrimSpace(r.Code)
	if r.Phone == "" || r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "phone and code are required")
	}
	return nil
}

// HandleRequest handles POST /evidence/phone/request.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PhoneRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.phone.Request(ctx, req.Phone); err != nil {
		h.logger.WarnContext(ctx, "phone code request failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// HandleConfirm handles POST /evidence/phone/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PhoneConfirm](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	ref, err := h.phone.Confirm(ctx, req.Phone, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"phone_token": ref})
}
