package handler

import (
	"time"

	"velvet/internal/claims/models"
)

// ClaimResponse is the wire shape of a claim with its decision history.
type ClaimResponse struct {
	ID            string             `json:"id"`
	ResourceID    string             `json:"resource_id"`
	ResourceKind  string             `json:"resource_kind"`
	ClaimType     string             `json:"claim_type"`
	Tier          string             `json:"tier,omitempty"`
	ClaimantID    string             `json:"claimant_id"`
	State         string             `json:"state"`
	Statement     string             `json:"statement,omitempty"`
	Evidence      EvidenceResponse   `json:"evidence"`
	Decisions     []DecisionResponse `json:"decisions"`
	ResubmissionOf string            `json:"resubmission_of,omitempty"`
	Resubmissions int                `json:"resubmissions"`
	SubmittedAt   time.Time          `json:"submitted_at"`
	DecidedAt     *time.Time         `json:"decided_at,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type EvidenceResponse struct {
	SelfieRef   string `json:"selfie_ref,omitempty"`
	DocumentRef string `json:"document_ref,omitempty"`
	PhoneToken  string `json:"phone_token,omitempty"`
}

type DecisionResponse struct {
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// FromClaim maps the aggregate onto the wire shape.
func FromClaim(c *models.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:           c.ID.String(),
		ResourceID:   c.ResourceID.String(),
		ResourceKind: string(c.ResourceKind),
		ClaimType:    string(c.ClaimType),
		Tier:         string(c.Tier),
		ClaimantID:   c.ClaimantID.String(),
		State:        string(c.State),
		Statement:    c.Statement,
		Evidence: EvidenceResponse{
			SelfieRef:   c.Evidence.SelfieRef,
			DocumentRef: c.Evidence.DocumentRef,
			PhoneToken:  c.Evidence.PhoneToken,
		},
		Decisions:     make([]DecisionResponse, 0, len(c.Decisions)),
		Resubmissions: c.Resubmissions,
		SubmittedAt:   c.SubmittedAt,
		DecidedAt:     c.DecidedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.ResubmissionOf != nil {
		resp.ResubmissionOf = c.ResubmissionOf.String()
	}
	for _, d := range c.Decisions {
		resp.Decisions = append(resp.Decisions, DecisionResponse{
			ActorID:   d.ActorID.String(),
			ActorRole: string(d.ActorRole),
			Action:    string(d.Action),
			Reason:    d.Reason,
			DecidedAt: d.DecidedAt,
		})
	}
	return resp
}

// FromClaims maps a claim list oldest first.
func FromClaims(claims []*models.Claim) []ClaimResponse {
	out := make([]ClaimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, FromClaim(c))
	}
	return out
}
