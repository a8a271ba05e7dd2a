package handler

import (
	"strings"

	"velvet/internal/claims/models"
	"velvet/internal/claims/service"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

const maxStatementLength = 2000

// SubmitRequest is the HTTP request body for POST /claims.
type SubmitRequest struct {
	ResourceID string `json:"resource_id"`
	ClaimType  string `json:"claim_type"`
	Tier       string `json:"tier,omitempty"`
	Statement  string `json:"statement,omitempty"`
	Evidence   struct {
		SelfieRef   string `json:"selfie_ref,omitempty"`
		DocumentRef string `json:"document_ref,omitempty"`
		PhoneToken  string `json:"phone_token,omitempty"`
	} `json:"evidence"`

	parsedResourceID id.ResourceID
	parsedClaimType  models.ClaimType
	parsedTier       models.Tier
}

func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	resourceID, err := id.ParseResourceID(strings.TrimSpace(r.ResourceID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "resource_id must be a valid id")
	}
	r.parsedResourceID = resourceID

	claimType, err := models.ParseClaimType(strings.TrimSpace(r.ClaimType))
	if err != nil {
		return err
	}
	r.parsedClaimType = claimType

	tier, err := models.ParseTier(strings.TrimSpace(r.Tier))
	if err != nil {
		return err
	}
	r.parsedTier = tier

	if len(r.Statement) > maxStatementLength {
		return dErrors.New(dErrors.CodeValidation, "statement is too long")
	}
	return nil
}

// ToDomain builds the service request.
func (r *SubmitRequest) ToDomain() service.SubmitRequest {
	return service.SubmitRequest{
		ResourceID: r.parsedResourceID,
		ClaimType:  r.parsedClaimType,
		Tier:       r.parsedTier,
		Evidence: models.Evidence{
			SelfieRef:   r.Evidence.SelfieRef,
			DocumentRef: r.Evidence.DocumentRef,
			PhoneToken:  r.Evidence.PhoneToken,
		},
		Statement: strings.TrimSpace(r.Statement),
	}
}

// DecisionRequest is the HTTP request body for POST /claims/{id}/decision.
type DecisionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`

	parsedAction models.Action
}

func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	action, err := models.ParseAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedAction = action
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// EvidenceUpdateRequest is the HTTP request body for POST /claims/{id}/evidence.
type EvidenceUpdateRequest struct {
	Statement string `json:"statement,omitempty"`
	Evidence  struct {
		SelfieRef   string `json:"selfie_ref,omitempty"`
		DocumentRef string `json:"document_ref,omitempty"`
		PhoneToken  string `json:"phone_token,omitempty"`
	} `json:"evidence"`
}

func (r *EvidenceUpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Statement) > maxStatementLength {
		return dErrors.New(dErrors.CodeValidation, "statement is too long")
	}
	return nil
}

// DisputeRequest is the HTTP request body for POST /claims/{id}/dispute.
type DisputeRequest struct {
	Reason string `json:"reason"`
}

func (r *DisputeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// ResolveRequest is the HTTP request body for POST /claims/{id}/resolve.
type ResolveRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`

	parsedAction models.Action
}

func (r *ResolveRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	action, err := models.ParseAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedAction = action
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}
