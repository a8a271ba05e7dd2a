// Package notify defines the outbound notification events the core emits on
// claim and payment transitions. Delivery and formatting (email, push,
// realtime) are the consuming collaborator's concern.
package notify

import (
	"time"

	id "velvet/pkg/domain"
)

// EventType enumerates every notification the core emits.
type EventType string

const (
	EventClaimSubmitted     EventType = "claim_submitted"
	EventClaimApproved      EventType = "claim_approved"
	EventClaimRejected      EventType = "claim_rejected"
	EventClaimInfoRequested EventType = "claim_info_requested"
	EventClaimDisputed      EventType = "claim_disputed"
	EventClaimOverride      EventType = "claim_override"
	EventPaymentVerified    EventType = "payment_verified"
	EventPaymentRejected    EventType = "payment_rejected"
)

// Event is emitted for every terminal or informational transition. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Type          EventType  `json:"type"`
	ClaimID       string     `json:"claim_id,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	RecipientID   id.ActorID `json:"recipient_id"`
	ReasonOrNotes string     `json:"reason_or_notes,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
