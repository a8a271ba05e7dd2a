// Package audit captures the append-only trail of every claim and payment
// decision. The claim's embedded decision history answers "what happened to
// this claim"; the audit trail answers "what did this actor do, from where".
package audit

import (
	"time"

	id "velvet/pkg/domain"
)

// Action names for audit events.
const (
	ActionClaimSubmitted  = "claim_submitted"
	ActionEvidenceUpdated = "claim_evidence_updated"
	ActionClaimDecided    = "claim_decided"
	ActionClaimDisputed   = "claim_disputed"
	ActionClaimResolved   = "claim_resolved"
	ActionPaymentRecorded = "payment_recorded"
	ActionPaymentVerified = "payment_verified"
	ActionPaymentRejected = "payment_rejected"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	ActorID   id.ActorID
	ActorRole id.Role

	// Subject is the entity acted on: claim id or transaction id.
	Subject string
	Action  string
	Reason  string

	// Request provenance, captured for forensics.
	RequestID string
	ClientIP  string
	UserAgent string
}
