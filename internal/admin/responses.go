package admin

type UserResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"nome,omitempty"`
	LastName  string   `json:"cognome,omitempty"`
	Email     string   `json:"email,omitempty"`
	Enabled   bool     `json:"abilitato"`
	Roles     []string `json:"ruoli"`
}

func FromUser(u *User) *UserResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Enabled:   u.Enabled,
		Roles:     roles,
	}
}

func FromUsers(users []*User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}
