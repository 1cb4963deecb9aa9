// Package auth authenticates control sessions: a single shared secret
// (the operator's JWT secret) gates issuance of a session token, which
// every subsequent control-plane request then carries. There is no
// multi-user model here — a RINA IPC manager's control device is opened
// by one operator process, not logged into by many distinct identities.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken        = errors.New("controlapi: invalid session token")
	ErrExpiredToken        = errors.New("controlapi: session token has expired")
	ErrTokenSigningFailed  = errors.New("controlapi: failed to sign session token")
	ErrInvalidSecretLength = errors.New("controlapi: JWT secret must be at least 32 bytes")
)

// Claims is the session token payload: a subject identifying the
// control device and nothing else, in place of dittofs's
// username/role/groups triple.
type Claims struct {
	jwt.RegisteredClaims

	// Subject identifies the control device session, e.g. "rinactl" or
	// an operator-supplied label.
	Subject string `json:"sub_label"`
}

// Service issues and validates control-session tokens.
type Service struct {
	secret string
	issuer string
	ttl    time.Duration
}

// NewService creates a Service signing tokens with secret, which must
// be at least 32 bytes (the HS256 minimum dittofs's jwt_service.go
// enforces). ttl is the session token lifetime.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{secret: secret, issuer: "rinad", ttl: ttl}, nil
}

// CheckSecret reports whether candidate matches the shared secret this
// Service signs tokens with, in constant time.
func (s *Service) CheckSecret(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.secret)) == 1
}

// IssueToken signs a new session token for subject.
func (s *Service) IssueToken(subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Subject: subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, ErrTokenSigningFailed
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies tokenString, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
