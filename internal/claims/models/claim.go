package models

import (
	"time"

	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

// ClaimState is the lifecycle state of a claim.
type ClaimState string

const (
	ClaimStatePending       ClaimState = "pending"
	ClaimStateInfoRequested ClaimState = "info_requested"
	ClaimStateDisputed      ClaimState = "disputed"
	ClaimStateApproved      ClaimState = "approved"
	ClaimStateRejected      ClaimState = "rejected"
)

// IsTerminal reports whether no further reviewer action can change the
// claim's outcome except through dispute/override.
func (s ClaimState) IsTerminal() bool {
	return s == ClaimStateApproved || s == ClaimStateRejected
}

// IsActive reports whether the claim occupies its resource's claim slot.
// Disputed claims stay active: the slot is not released until an admin
// resolves the dispute.
func (s ClaimState) IsActive() bool {
	return !s.IsTerminal()
}

// ClaimType selects the policy applied to a claim.
type ClaimType string

const (
	ClaimTypeEstablishmentOwnership ClaimType = "establishment_ownership"
	ClaimTypeEmployeeSelfClaim      ClaimType = "employee_self_claim"
)

// ParseClaimType validates a claim type at the trust boundary.
func ParseClaimType(s string) (ClaimType, error) {
	switch t := ClaimType(s); t {
	case ClaimTypeEstablishmentOwnership, ClaimTypeEmployeeSelfClaim:
		return t, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown claim type: %q", s)
	}
}

// Tier distinguishes standard and VIP ownership claims.
type Tier string

const (
	TierStandard Tier = "standard"
	TierVIP      Tier = "vip"
)

// ParseTier validates a tier, defaulting empty input to standard.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case "":
		return TierStandard, nil
	case TierStandard, TierVIP:
		return t, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown tier: %q", s)
	}
}

// Action is a reviewer (or disputant) action evaluated against the state
// machine.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestInfo     Action = "request_info"
	ActionDispute         Action = "dispute"
	ActionOverrideApprove Action = "override_approve"
	ActionOverrideReject  Action = "override_reject"
)

// ParseAction validates an action at the trust boundary.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApprove, ActionReject, ActionRequestInfo,
		ActionDispute, ActionOverrideApprove, ActionOverrideReject:
		return a, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown action: %q", s)
	}
}

// RequiresReason reports whether the action must carry a non-empty reason.
// Rejection reasons are surfaced verbatim to the claimant.
func (a Action) RequiresReason() bool {
	return a == ActionReject || a == ActionOverrideReject
}

// transitions maps each action to its legal source states and the state it
// produces. Disputes are legal from any state including terminal ones: a
// claimant contests a rejection, a third party contests an approval.
var transitions = map[Action]struct {
	from map[ClaimState]bool
	to   ClaimState
}{
	ActionApprove:         {from: map[ClaimState]bool{ClaimStatePending: true, ClaimStateInfoRequested: true}, to: ClaimStateApproved},
	ActionReject:          {from: map[ClaimState]bool{ClaimStatePending: true, ClaimStateInfoRequested: true}, to: ClaimStateRejected},
	ActionRequestInfo:     {from: map[ClaimState]bool{ClaimStatePending: true}, to: ClaimStateInfoRequested},
	ActionDispute:         {from: map[ClaimState]bool{ClaimStatePending: true, ClaimStateInfoRequested: true, ClaimStateApproved: true, ClaimStateRejected: true}, to: ClaimStateDisputed},
	ActionOverrideApprove: {from: map[ClaimState]bool{ClaimStateDisputed: true}, to: ClaimStateApproved},
	ActionOverrideReject:  {from: map[ClaimState]bool{ClaimStateDisputed: true}, to: ClaimStateRejected},
}

// Decision is an immutable record appended to a claim's history on every
// reviewer action.
type Decision struct {
	ActorID   id.ActorID `json:"actor_id"`
	ActorRole id.Role    `json:"actor_role"`
	Action    Action     `json:"action"`
	Reason    string     `json:"reason,omitempty"`
	DecidedAt time.Time  `json:"decided_at"`
}

// Claim is the aggregate root for an ownership or self-management request.
//
// Invariants:
//   - State changes only through CanApply + ApplyDecision
//   - Decision history is append-only; at most one terminal decision is
//     effective (disputes re-open the outcome, overrides close it again)
//   - PriorController is snapshotted exactly once, when the claim is first
//     approved, so a later override_reject restores the pre-claim controller
//     by lookup instead of recomputation
//   - Claims are never hard-deleted; rejected claims anchor the re-claim chain
type Claim struct {
	ID           id.ClaimID    `json:"id"`
	ResourceID   id.ResourceID `json:"resource_id"`
	ResourceKind ResourceKind  `json:"resource_kind"`
	ClaimType    ClaimType     `json:"claim_type"`
	Tier         Tier          `json:"tier,omitempty"`
	ClaimantID   id.ActorID    `json:"claimant_id"`
	Evidence     Evidence      `json:"evidence"`
	Statement    string        `json:"statement,omitempty"`
	State        ClaimState    `json:"state"`
	Decisions    []Decision    `json:"decisions"`

	// PriorController holds the resource's controller at the moment of first
	// approval (nil = house-managed). Valid only when PriorRecorded is true.
	PriorController *id.ActorID `json:"prior_controller,omitempty"`
	PriorRecorded   bool        `json:"prior_recorded"`

	// ResubmissionOf links a re-claim to the rejected claim it replaces.
	ResubmissionOf *id.ClaimID `json:"resubmission_of,omitempty"`
	Resubmissions  int         `json:"resubmissions"`

	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Version backs optimistic concurrency in stores.
	Version int `json:"-"`
}

// NewClaim constructs a pending claim, validating construction invariants.
// Evidence sufficiency is the policy layer's concern, not the constructor's.
func NewClaim(claimID id.ClaimID, resourceID id.ResourceID, kind ResourceKind, claimType ClaimType, tier Tier, claimantID id.ActorID, evidence Evidence, statement string, now time.Time) (*Claim, error) {
	if claimID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claim id is required")
	}
	if resourceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "resource id is required")
	}
	if claimantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "claimant id is required")
	}
	if !kind.Accepts(claimType) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "claim type %s cannot target a %s resource", claimType, kind)
	}
	if claimType == ClaimTypeEmployeeSelfClaim && tier == TierVIP {
		return nil, dErrors.New(dErrors.CodeValidation, "tier applies to ownership claims only")
	}
	return &Claim{
		ID:           claimID,
		ResourceID:   resourceID,
		ResourceKind: kind,
		ClaimType:    claimType,
		Tier:         tier,
		ClaimantID:   claimantID,
		Evidence:     evidence,
		Statement:    statement,
		State:        ClaimStatePending,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}, nil
}

// CanApply checks whether the action is legal from the claim's current state.
// Returns CodeReasonRequired before CodeInvalidTransition so a reviewer who
// forgot a reason is told so even on a legal transition.
func (c *Claim) CanApply(action Action, reason string) error {
	if action.RequiresReason() && reason == "" {
		return dErrors.Newf(dErrors.CodeReasonRequired, "a reason is required to %s a claim", action)
	}
	t, ok := transitions[action]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "unknown action %q", action)
	}
	if !t.from[c.State] {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot %s a claim in state %s", action, c.State)
	}
	return nil
}

// ApplyDecision appends the decision record and moves the state machine.
// Call CanApply first; ApplyDecision re-checks and fails closed.
func (c *Claim) ApplyDecision(d Decision) error {
	if err := c.CanApply(d.Action, d.Reason); err != nil {
		return err
	}
	c.State = transitions[d.Action].to
	c.Decisions = append(c.Decisions, d)
	c.UpdatedAt = d.DecidedAt
	if c.State.IsTerminal() {
		at := d.DecidedAt
		c.DecidedAt = &at
	} else {
		c.DecidedAt = nil
	}
	return nil
}

// CanUpdateEvidence checks the claimant-side transition info_requested -> pending.
func (c *Claim) CanUpdateEvidence(actorID id.ActorID) error {
	if actorID != c.ClaimantID {
		return dErrors.New(dErrors.CodeForbidden, "only the claimant may update evidence")
	}
	if c.State != ClaimStateInfoRequested {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot update evidence on a claim in state %s", c.State)
	}
	return nil
}

// ApplyEvidenceUpdate replaces the evidence bundle and returns the claim to
// the reviewer's queue. Evidence updates are not reviewer decisions, so the
// decision history is untouched; the audit trail records them separately.
func (c *Claim) ApplyEvidenceUpdate(evidence Evidence, statement string, now time.Time) {
	c.Evidence = evidence
	if statement != "" {
		c.Statement = statement
	}
	c.State = ClaimStatePending
	c.UpdatedAt = now
}

// RecordPriorController snapshots the pre-claim controller exactly once.
func (c *Claim) RecordPriorController(controller *id.ActorID) {
	if c.PriorRecorded {
		return
	}
	if controller != nil {
		v := *controller
		c.PriorController = &v
	}
	c.PriorRecorded = true
}

// Clone returns a deep copy. Stores hand out copies so callers can never
// mutate persisted state behind the store's back.
func (c *Claim) Clone() *Claim {
	cp := *c
	cp.Decisions = make([]Decision, len(c.Decisions))
	copy(cp.Decisions, c.Decisions)
	if c.PriorController != nil {
		v := *c.PriorController
		cp.PriorController = &v
	}
	if c.ResubmissionOf != nil {
		v := *c.ResubmissionOf
		cp.ResubmissionOf = &v
	}
	if c.DecidedAt != nil {
		v := *c.DecidedAt
		cp.DecidedAt = &v
	}
	return &cp
}

// LastDecision returns the most recent decision, or nil for an undecided claim.
func (c *Claim) LastDecision() *Decision {
	if len(c.Decisions) == 0 {
		return nil
	}
	return &c.Decisions[len(c.Decisions)-1]
}
