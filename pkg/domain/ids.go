// Package domain holds shared domain primitives: typed identifiers and the
// actor-role vocabulary. IDs are distinct named types over uuid.UUID so the
// compiler rejects cross-type assignment (a ClaimID can never be passed where
// a ResourceID is expected).
//
// Construct IDs from untrusted input via the ParseX functions; direct casting
// bypasses validation and is reserved for trusted code paths and tests.
package domain

import (
	"github.com/google/uuid"

	dErrors "velvet/pkg/domain-errors"
)

type (
	// ActorID identifies a platform user: claimant, owner, moderator or admin.
	ActorID uuid.UUID

	// ClaimID identifies a claim record.
	ClaimID uuid.UUID

	// ResourceID identifies a claimable resource (establishment or employee
	// profile). The resource kind travels separately.
	ResourceID uuid.UUID

	// EstablishmentID identifies an establishment in the catalog.
	EstablishmentID uuid.UUID

	// TransactionID identifies a cash payment verification transaction.
	TransactionID uuid.UUID
)

func (id ActorID) String() string         { return uuid.UUID(id).String() }
func (id ClaimID) String() string         { return uuid.UUID(id).String() }
func (id ResourceID) String() string      { return uuid.UUID(id).String() }
func (id EstablishmentID) String() string { return uuid.UUID(id).String() }
func (id TransactionID) String() string   { return uuid.UUID(id).String() }

func (id ActorID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ResourceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EstablishmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// NewActorID mints a fresh actor identifier.
func NewActorID() ActorID { return ActorID(uuid.New()) }

// NewClaimID mints a fresh claim identifier.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewResourceID mints a fresh resource identifier.
func NewResourceID() ResourceID { return ResourceID(uuid.New()) }

// NewEstablishmentID mints a fresh establishment identifier.
func NewEstablishmentID() EstablishmentID { return EstablishmentID(uuid.New()) }

// NewTransactionID mints a fresh transaction identifier.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseActorID validates and returns an ActorID.
func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(u), nil
}

// ParseClaimID validates and returns a ClaimID.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ClaimID{}, err
	}
	return ClaimID(u), nil
}

// ParseResourceID validates and returns a ResourceID.
func ParseResourceID(s string) (ResourceID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ResourceID{}, err
	}
	return ResourceID(u), nil
}

// ParseEstablishmentID validates and returns an EstablishmentID.
func ParseEstablishmentID(s string) (EstablishmentID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EstablishmentID{}, err
	}
	return EstablishmentID(u), nil
}

// ParseTransactionID validates and returns a TransactionID.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}
