// Package policy holds the per-claim-type rules: evidence requirements,
// submission targeting, and reviewer authorization. This is pure domain
// logic - no I/O, no side effects - so the one decision engine in the
// service layer stays generic over claim types.
package policy

import (
	"velvet/internal/claims/models"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

// Effect tells the projector what an approval changes on the resource.
type Effect string

const (
	// EffectTransferOwnership sets the resource controller to the claimant.
	EffectTransferOwnership Effect = "transfer_ownership"

	// EffectMarkSelfManaged marks the profile self-managed by the claimant
	// while the owning establishment's management link stays intact.
	EffectMarkSelfManaged Effect = "mark_self_managed"
)

// rules is the claim-type policy table.
var rules = map[models.ClaimType]struct {
	requiresEvidence bool
	effect           Effect
	// allowOwnedTarget permits claims on resources that already have a
	// controller. Employee self-claims target profiles an owner created;
	// ownership claims target only unclaimed establishments.
	allowOwnedTarget bool
}{
	models.ClaimTypeEstablishmentOwnership: {
		requiresEvidence: true,
		effect:           EffectTransferOwnership,
		allowOwnedTarget: false,
	},
	models.ClaimTypeEmployeeSelfClaim: {
		requiresEvidence: true,
		effect:           EffectMarkSelfManaged,
		allowOwnedTarget: true,
	},
}

// EffectFor returns the projector effect for an approved claim type.
func EffectFor(t models.ClaimType) Effect {
	return rules[t].effect
}

// CheckEvidence applies the claim type's evidence requirement.
// Rule priority (fail-fast):
//  1. Requirement applies to the claim type at all
//  2. At least one complete verification path is present
//
// Presenting both paths (selfie+document and phone token) is accepted.
func CheckEvidence(t models.ClaimType, e models.Evidence) error {
	if !rules[t].requiresEvidence {
		return nil
	}
	if !e.HasIdentityPath() {
		return dErrors.New(dErrors.CodeMissingEvidence,
			"provide either a selfie with an ID document, or a phone verification token")
	}
	return nil
}

// CheckTarget validates the submission against the resource's current
// controller.
func CheckTarget(t models.ClaimType, claimantID id.ActorID, controller *id.ActorID) error {
	if controller != nil && *controller == claimantID {
		return dErrors.New(dErrors.CodeAlreadyController, "claimant already controls this resource")
	}
	if controller != nil && !rules[t].allowOwnedTarget {
		return dErrors.New(dErrors.CodeResourceClaimed, "resource already has a controller")
	}
	return nil
}

// CheckReviewer authorizes a non-override reviewer action (approve, reject,
// request_info) while the claim is pending or info_requested:
//   - the resource's current controller reviews claims on their resource
//   - a moderator reviews claims on house-managed resources: ownership
//     claims on unclaimed establishments, self-claims on profiles with no
//     owner to ask
//
// Admins do not act here; their only path is through dispute resolution.
func CheckReviewer(c *models.Claim, actorID id.ActorID, role id.Role, controller *id.ActorID) error {
	if controller != nil {
		if *controller == actorID {
			return nil
		}
		return dErrors.New(dErrors.CodeUnauthorized, "only the resource controller may review this claim")
	}
	if role == id.RoleModerator {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "only a moderator may review claims on house-managed resources")
}

// CheckDisputant authorizes raising a dispute: the claimant contesting an
// outcome, the resource controller, or any third party contesting an
// approval. Anonymous escalation is not allowed.
func CheckDisputant(c *models.Claim, actorID id.ActorID) error {
	if actorID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required to dispute")
	}
	return nil
}

// CheckResolver authorizes resolving a dispute: admin role only.
func CheckResolver(role id.Role) error {
	if role != id.RoleAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "only an admin may resolve a disputed claim")
	}
	return nil
}
