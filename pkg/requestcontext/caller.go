package requestcontext

import "slices"

// Role is a realm role granted by the identity provider.
type Role string

const (
	RoleIstruttore Role = "istruttore"
	RoleDirigente  Role = "dirigente"
	RoleAdmin      Role = "admin"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	Subject  string
	Username string
	Roles    []Role
}

// Identity is the name recorded on records and audit events: the username
// when the token carries one, otherwise the subject.
func (c Caller) Identity() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Subject
}

// HasRole reports whether the caller holds role.
func (c Caller) HasRole(role Role) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (c Caller) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAuthenticated reports whether the caller carries any identity.
func (c Caller) IsAuthenticated() bool {
	return c.Identity() != ""
}
