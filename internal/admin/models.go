// Package admin proxies user administration to the identity provider.
package admin

import (
	"context"
	"slices"

	"atti/pkg/requestcontext"
)

// User is an identity-provider account as seen by the back office.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Enabled   bool
	Roles     []requestcontext.Role
}

// NewUser describes an account to create. Roles may be empty.
type NewUser struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Roles     []requestcontext.Role
}

// UserUpdate carries the fields to change; nil means unchanged.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Enabled   *bool
}

func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Enabled == nil
}

// ManagedRoles are the realm roles this application assigns. Other realm
// roles (defaults, offline_access) are left alone.
var ManagedRoles = []requestcontext.Role{
	requestcontext.RoleIstruttore,
	requestcontext.RoleDirigente,
	requestcontext.RoleAdmin,
}

func IsManagedRole(r requestcontext.Role) bool {
	return slices.Contains(ManagedRoles, r)
}

// IdentityProvider manages accounts in the realm.
type IdentityProvider interface {
	ListUsers(ctx context.Context) ([]*User, error)
	CreateUser(ctx context.Context, in NewUser) (*User, error)
	UpdateUser(ctx context.Context, userID string, update UserUpdate) error
	SetRoles(ctx context.Context, userID string, roles []requestcontext.Role) error
	SendPasswordReset(ctx context.Context, userID string) error
}
