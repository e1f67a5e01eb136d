package admin

import (
	"context"

	"atti/pkg/requestcontext"
)

// PlaceholderUserID is returned for every account created without a
// configured identity provider.
const PlaceholderUserID = "nuovo-id-generato"

// Placeholder accepts every request without contacting an identity provider.
// It is selected when Keycloak is not configured.
type Placeholder struct{}

func (Placeholder) ListUsers(context.Context) ([]*User, error) {
	return []*User{}, nil
}

func (Placeholder) CreateUser(_ context.Context, in NewUser) (*User, error) {
	return &User{ID: PlaceholderUserID, Username: in.Username, Enabled: true}, nil
}

func (Placeholder) UpdateUser(context.Context, string, UserUpdate) error {
	return nil
}

func (Placeholder) SetRoles(context.Context, string, []requestcontext.Role) error {
	return nil
}

func (Placeholder) SendPasswordReset(context.Context, string) error {
	return nil
}
