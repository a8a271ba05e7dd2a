package models

import (
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

// ResourceKind distinguishes the two claimable resource spaces. Ownership
// claims and employee self-claims target disjoint kinds, so an owner who is
// also a claimed employee is two independent claims, never a conflict.
type ResourceKind string

const (
	ResourceKindEstablishment   ResourceKind = "establishment"
	ResourceKindEmployeeProfile ResourceKind = "employee_profile"
)

// ParseResourceKind validates a resource kind at the trust boundary.
func ParseResourceKind(s string) (ResourceKind, error) {
	switch k := ResourceKind(s); k {
	case ResourceKindEstablishment, ResourceKindEmployeeProfile:
		return k, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown resource kind: %q", s)
	}
}

// Accepts reports whether the claim type may target this resource kind.
func (k ResourceKind) Accepts(t ClaimType) bool {
	switch t {
	case ClaimTypeEstablishmentOwnership:
		return k == ResourceKindEstablishment
	case ClaimTypeEmployeeSelfClaim:
		return k == ResourceKindEmployeeProfile
	default:
		return false
	}
}

// Resource mirrors the catalog's view of a claimable resource as this core
// needs it: identity, kind, current controller, dual-control marker and the
// projector's idempotency anchor. The catalog owns the full record.
type Resource struct {
	ID   id.ResourceID
	Kind ResourceKind

	// Controller is the owner currently authorized to manage the resource.
	// Nil means house-managed (no owner).
	Controller *id.ActorID

	// SelfManagedBy marks an employee profile whose subject claimed it.
	// The owning establishment's management link stays intact (dual control).
	SelfManagedBy *id.ActorID

	// AppliedClaimID records the claim whose approval was last projected onto
	// this resource. Re-projection of the same claim is a no-op.
	AppliedClaimID *id.ClaimID
}

// ProfilePermissions is the dual-control split over a self-claimed employee
// profile: the owner and the employee each hold a disjoint set of rights.
type ProfilePermissions struct {
	EditBio              bool `json:"edit_bio"`
	EditCoreFields       bool `json:"edit_core_fields"`
	RemoveFromEstablishment bool `json:"remove_from_establishment"`
	ReceiveNotifications bool `json:"receive_notifications"`
}

// PermissionsFor returns the rights an actor holds over an employee profile
// after a self-claim has been approved.
func (r *Resource) PermissionsFor(actorID id.ActorID) ProfilePermissions {
	if r.SelfManagedBy != nil && *r.SelfManagedBy == actorID {
		return ProfilePermissions{
			EditBio:              true,
			EditCoreFields:       true,
			ReceiveNotifications: true,
		}
	}
	if r.Controller != nil && *r.Controller == actorID {
		return ProfilePermissions{
			RemoveFromEstablishment: true,
		}
	}
	return ProfilePermissions{}
}
