// Package keycloak implements admin.IdentityProvider against the Keycloak
// Admin REST API, authenticated as a service account.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"atti/internal/admin"
	dErrors "atti/pkg/domain-errors"
	"atti/pkg/requestcontext"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	realm   string
	http    *http.Client
}

// New builds a client for realm. Tokens are fetched from the realm's token
// endpoint with the client credentials grant and refreshed on expiry.
func New(ctx context.Context, baseURL, realm, clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/realms/" + url.PathEscape(realm) + "/protocol/openid-connect/token",
	}
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = defaultTimeout
	return &Client{baseURL: baseURL, realm: realm, http: httpClient}
}

type userRepresentation struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Enabled   bool   `json:"enabled"`
}

type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) ListUsers(ctx context.Context) ([]*admin.User, error) {
	var reps []userRepresentation
	if err := c.do(ctx, http.MethodGet, "/users?briefRepresentation=false&max=1000", nil, &reps); err != nil {
		return nil, err
	}
	users := make([]*admin.User, 0, len(reps))
	for _, rep := range reps {
		roles, err := c.realmRoles(ctx, rep.ID)
		if err != nil {
			return nil, err
		}
		u := toUser(rep)
		for _, r := range roles {
			if role := requestcontext.Role(r.Name); admin.IsManagedRole(role) {
				u.Roles = append(u.Roles, role)
			}
		}
		users = append(users, u)
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, in admin.NewUser) (*admin.User, error) {
	rep := userRepresentation{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Enabled:   true,
	}
	resp, err := c.send(ctx, http.MethodPost, "/users", rep)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	// Keycloak answers 201 with the new user's URL in Location.
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, dErrors.New(dErrors.CodeUnavailable, "identity provider returned no user location")
	}
	rep.ID = path.Base(location)

	u := toUser(rep)
	if len(in.Roles) > 0 {
		if err := c.SetRoles(ctx, rep.ID, in.Roles); err != nil {
			return nil, err
		}
		u.Roles = in.Roles
	}
	return u, nil
}

func (c *Client) UpdateUser(ctx context.Context, userID string, update admin.UserUpdate) error {
	// Keycloak ignores absent attributes on PUT.
	body := map[string]any{}
	if update.FirstName != nil {
		body["firstName"] = *update.FirstName
	}
	if update.LastName != nil {
		body["lastName"] = *update.LastName
	}
	if update.Email != nil {
		body["email"] = *update.Email
	}
	if update.Enabled != nil {
		body["enabled"] = *update.Enabled
	}
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), body, nil)
}

// SetRoles makes roles the user's exact set of managed realm roles.
func (c *Client) SetRoles(ctx context.Context, userID string, roles []requestcontext.Role) error {
	current, err := c.realmRoles(ctx, userID)
	if err != nil {
		return err
	}

	var revoke []roleRepresentation
	held := map[string]bool{}
	for _, r := range current {
		role := requestcontext.Role(r.Name)
		if !admin.IsManagedRole(role) {
			continue
		}
		held[r.Name] = true
		if !slices.Contains(roles, role) {
			revoke = append(revoke, r)
		}
	}

	var grant []roleRepresentation
	for _, role := range roles {
		if held[string(role)] {
			continue
		}
		var rep roleRepresentation
		if err := c.do(ctx, http.MethodGet, "/roles/"+url.PathEscape(string(role)), nil, &rep); err != nil {
			return err
		}
		grant = append(grant, rep)
	}

	mappings := "/users/" + url.PathEscape(userID) + "/role-mappings/realm"
	if len(grant) > 0 {
		if err := c.do(ctx, http.MethodPost, mappings, grant, nil); err != nil {
			return err
		}
	}
	if len(revoke) > 0 {
		if err := c.do(ctx, http.MethodDelete, mappings, revoke, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) SendPasswordReset(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/execute-actions-email", []string{"UPDATE_PASSWORD"}, nil)
}

func (c *Client) realmRoles(ctx context.Context, userID string) ([]roleRepresentation, error) {
	var roles []roleRepresentation
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/role-mappings/realm", nil, &roles)
	return roles, err
}

func (c *Client) do(ctx context.Context, method, resource string, body, out any) error {
	resp, err := c.send(ctx, method, resource, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "invalid identity provider response")
	}
	return nil
}

// send performs the request and maps non-2xx statuses to coded errors. The
// caller owns the response body on success.
func (c *Client) send(ctx context.Context, method, resource string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, resource, err)
		}
		reader = bytes.NewReader(b)
	}
	endpoint := c.baseURL + "/admin/realms/" + url.PathEscape(c.realm) + resource
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, resource, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider unreachable")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil, statusError(method, resource, resp.StatusCode)
}

func statusError(method, resource string, status int) error {
	switch status {
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case http.StatusConflict:
		return dErrors.New(dErrors.CodeConflict, "user already exists")
	case http.StatusBadRequest:
		return dErrors.New(dErrors.CodeValidation, "identity provider rejected the request")
	default:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("identity provider %s %s returned %d", method, resource, status))
	}
}

func toUser(rep userRepresentation) *admin.User {
	return &admin.User{
		ID:        rep.ID,
		Username:  rep.Username,
		FirstName: rep.FirstName,
		LastName:  rep.LastName,
		Email:     rep.Email,
		Enabled:   rep.Enabled,
	}
}
