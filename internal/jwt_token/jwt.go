package jwttoken

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "atti/pkg/domain-errors"
)

// Claims mirrors the access tokens issued by the realm: roles live under
// realm_access and the human-readable login under preferred_username.
type Claims struct {
	PreferredUsername string      `json:"preferred_username,omitempty"`
	RealmAccess       RealmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

type RealmAccess struct {
	Roles []string `json:"roles"`
}

// JWTService validates access tokens. A service built with NewJWTService can
// also mint HS256 tokens for local development and tests.
type JWTService struct {
	method     jwt.SigningMethod
	signingKey []byte
	publicKey  *rsa.PublicKey
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		method:     jwt.SigningMethodHS256,
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// NewRS256Verifier builds a verification-only service from a PEM encoded
// realm public key.
func NewRS256Verifier(publicKeyPEM string, issuer string, audience string) (*JWTService, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse realm public key: %w", err)
	}
	return &JWTService{
		method:    jwt.SigningMethodRS256,
		publicKey: key,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

func (s *JWTService) GenerateAccessToken(subject string, username string, roles []string, expiresIn time.Duration) (string, error) {
	if s.signingKey == nil {
		return "", errors.New("token signing not configured")
	}
	now := time.Now()
	claims := Claims{
		PreferredUsername: username,
		RealmAccess:       RealmAccess{Roles: roles},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if s.audience != "" {
		claims.Audience = []string{s.audience}
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{s.method.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if s.publicKey != nil {
			return s.publicKey, nil
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" && claims.PreferredUsername == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no identity")
	}
	return claims, nil
}
