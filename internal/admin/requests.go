package admin

import (
	"strings"

	dErrors "atti/pkg/domain-errors"
	platformstrings "atti/pkg/platform/strings"
	"atti/pkg/requestcontext"
)

type CreateUserRequest struct {
	Username  string   `json:"username"`
	FirstName string   `json:"nome"`
	LastName  string   `json:"cognome"`
	Email     string   `json:"email"`
	Roles     []string `json:"ruoli"`
}

func (r *CreateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "Campo 'username' obbligatorio")
	}
	_, err := parseRoles(r.Roles)
	return err
}

func (r *CreateUserRequest) NewUser() NewUser {
	roles, _ := parseRoles(r.Roles)
	return NewUser{
		Username:  r.Username,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.TrimSpace(r.Email),
		Roles:     roles,
	}
}

type UpdateUserRequest struct {
	FirstName *string `json:"nome"`
	LastName  *string `json:"cognome"`
	Email     *string `json:"email"`
	Enabled   *bool   `json:"abilitato"`
}

func (r *UpdateUserRequest) Validate() error {
	if r == nil || r.Update().IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "Nessun campo da aggiornare")
	}
	return nil
}

func (r *UpdateUserRequest) Update() UserUpdate {
	return UserUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Enabled:   r.Enabled,
	}
}

// SetRolesRequest replaces the caller's managed roles. An empty list revokes
// them all; a missing list is rejected.
type SetRolesRequest struct {
	Roles *[]string `json:"ruoli"`
}

func (r *SetRolesRequest) Validate() error {
	if r == nil || r.Roles == nil {
		return dErrors.New(dErrors.CodeValidation, "Campo 'ruoli' obbligatorio")
	}
	_, err := parseRoles(*r.Roles)
	return err
}

func (r *SetRolesRequest) RoleList() []requestcontext.Role {
	roles, _ := parseRoles(*r.Roles)
	return roles
}

func parseRoles(raw []string) ([]requestcontext.Role, error) {
	out := make([]requestcontext.Role, 0, len(raw))
	for _, s := range platformstrings.DedupeAndTrimLower(raw) {
		role := requestcontext.Role(s)
		if !IsManagedRole(role) {
			return nil, dErrors.New(dErrors.CodeValidation, "ruolo non valido: "+s)
		}
		out = append(out, role)
	}
	return out, nil
}
