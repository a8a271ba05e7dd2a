// Package models holds the cash payment verification aggregate. It mirrors
// the claim decision shape in miniature: pending, one terminal decision,
// immutable afterwards except for admin notes.
package models

import (
	"time"

	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

// TransactionState is the lifecycle state of a payment verification.
type TransactionState string

const (
	TransactionStatePending  TransactionState = "pending"
	TransactionStateVerified TransactionState = "verified"
	TransactionStateRejected TransactionState = "rejected"
)

// IsTerminal reports whether the transaction has been decided.
func (s TransactionState) IsTerminal() bool {
	return s == TransactionStateVerified || s == TransactionStateRejected
}

// Transaction records an off-platform cash payment for a VIP subscription,
// awaiting manual admin confirmation. The owner is the payer, so owner
// self-review is excluded by construction: only admins decide.
type Transaction struct {
	ID              id.TransactionID   `json:"id"`
	EstablishmentID id.EstablishmentID `json:"establishment_id"`
	AmountCents     int64              `json:"amount_cents"`
	Currency        string             `json:"currency"`
	Tier            string             `json:"tier"`
	DurationDays    int                `json:"duration_days"`
	SubmittedBy     id.ActorID         `json:"submitted_by"`
	State           TransactionState   `json:"state"`

	// Notes stay mutable after the decision; everything else freezes.
	Notes string `json:"notes,omitempty"`

	DecidedBy   *id.ActorID `json:"decided_by,omitempty"`
	DecidedAt   *time.Time  `json:"decided_at,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`

	Version int `json:"-"`
}

// NewTransaction constructs a pending payment verification.
func NewTransaction(txID id.TransactionID, establishmentID id.EstablishmentID, amountCents int64, currency, tier string, durationDays int, submittedBy id.ActorID, now time.Time) (*Transaction, error) {
	if txID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transaction id is required")
	}
	if establishmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "establishment id is required")
	}
	if submittedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submitter id is required")
	}
	if amountCents <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if currency == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "currency is required")
	}
	if durationDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration must be positive")
	}
	return &Transaction{
		ID:              txID,
		EstablishmentID: establishmentID,
		AmountCents:     amountCents,
		Currency:        currency,
		Tier:            tier,
		DurationDays:    durationDays,
		SubmittedBy:     submittedBy,
		State:           TransactionStatePending,
		SubmittedAt:     now,
	}, nil
}

// CanDecide checks that the transaction is still open. A decided
// transaction is immutable except for notes.
func (t *Transaction) CanDecide() error {
	if t.State.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "payment already %s", t.State)
	}
	return nil
}

// ApplyVerify marks the payment verified. Notes are optional.
func (t *Transaction) ApplyVerify(adminID id.ActorID, notes string, now time.Time) error {
	if err := t.CanDecide(); err != nil {
		return err
	}
	t.State = TransactionStateVerified
	if notes != "" {
		t.Notes = notes
	}
	t.DecidedBy = &adminID
	t.DecidedAt = &now
	return nil
}

// ApplyReject marks the payment rejected. A reason is mandatory and is
// surfaced to the submitting owner.
func (t *Transaction) ApplyReject(adminID id.ActorID, reason string, now time.Time) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeReasonRequired, "a reason is required to reject a payment")
	}
	if err := t.CanDecide(); err != nil {
		return err
	}
	t.State = TransactionStateRejected
	t.Notes = reason
	t.DecidedBy = &adminID
	t.DecidedAt = &now
	return nil
}

// AmendNotes replaces the admin notes. The only field that stays writable
// after a decision.
func (t *Transaction) AmendNotes(notes string) {
	t.Notes = notes
}

// Clone returns a deep copy for stores that hand out snapshots.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.DecidedBy != nil {
		v := *t.DecidedBy
		cp.DecidedBy = &v
	}
	if t.DecidedAt != nil {
		v := *t.DecidedAt
		cp.DecidedAt = &v
	}
	return &cp
}
