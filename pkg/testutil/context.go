package testutil

import (
	"net/http"

	"atti/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request context, as the
// auth middleware would after validating a bearer token.
func WithCaller(req *http.Request, caller requestcontext.Caller) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRoles is shorthand for a caller identified by username holding roles.
func WithRoles(req *http.Request, username string, roles ...requestcontext.Role) *http.Request {
	return WithCaller(req, requestcontext.Caller{
		Subject:  "sub-" + username,
		Username: username,
		Roles:    roles,
	})
}

// WithRequestID sets the correlation id handlers log under.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
