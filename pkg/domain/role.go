package domain

import dErrors "velvet/pkg/domain-errors"

// Role describes what an authenticated actor is allowed to do. Roles are
// resolved by the auth middleware from the session token; the core never
// issues or validates credentials itself.
type Role string

const (
	// RoleUser is a regular platform user: claimants, employees.
	RoleUser Role = "user"

	// RoleOwner marks an establishment owner. Ownership of a specific
	// resource is still checked against the catalog per request.
	RoleOwner Role = "owner"

	// RoleModerator reviews employee self-claims on house-managed profiles.
	RoleModerator Role = "moderator"

	// RoleAdmin can resolve disputes and verify cash payments.
	RoleAdmin Role = "admin"
)

var validRoles = map[Role]bool{
	RoleUser:      true,
	RoleOwner:     true,
	RoleModerator: true,
	RoleAdmin:     true,
}

// ParseRole validates a role string at the trust boundary.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role: %q", s)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }
