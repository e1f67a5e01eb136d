package jwttoken

import (
	"atti/pkg/requestcontext"
)

// ToCaller maps token claims onto the request caller.
func ToCaller(claims *Claims) requestcontext.Caller {
	roles := make([]requestcontext.Role, 0, len(claims.RealmAccess.Roles))
	for _, r := range claims.RealmAccess.Roles {
		roles = append(roles, requestcontext.Role(r))
	}
	return requestcontext.Caller{
		Subject:  claims.Subject,
		Username: claims.PreferredUsername,
		Roles:    roles,
	}
}

// JWTServiceAdapter satisfies middleware.TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (requestcontext.Caller, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.Caller{}, err
	}
	return ToCaller(claims), nil
}
