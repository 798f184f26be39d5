// Package session carries the caller's authenticated identity into every
// workflow operation explicitly instead of through shared global state.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

var (
	ErrNoToken = errors.New("session token is missing")
	ErrExpired = errors.New("session has expired")
)

type Session struct {
	Token     string
	UserID    string
	Name      string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// FromToken builds a session from a backend-issued JWT. The signature is not
// checked: the backend verifies it on every request, the client only reads
// the claims to pick the role path and to fail fast on expiry.
func FromToken(token string) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	s := &Session{
		Token:  token,
		UserID: firstString(claims, "id", "_id", "userId", "sub"),
		Name:   firstString(claims, "name", "username"),
		Email:  firstString(claims, "email"),
		Role:   Role(strings.ToLower(firstString(claims, "role"))),
	}
	if s.Role == "" {
		s.Role = RoleUser
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Validate checks the session is usable at the given instant.
func (s *Session) Validate(now time.Time) error {
	if s == nil || s.Token == "" {
		return ErrNoToken
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		return ErrExpired
	}
	switch s.Role {
	case RoleUser, RoleVendor, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("unknown session role %q", s.Role)
	}
}

// BasePath returns the role-scoped path prefix, e.g. "/user".
func (s *Session) BasePath() string {
	return "/" + string(s.Role)
}

// AuthorizationHeader returns the value for the Authorization header.
func (s *Session) AuthorizationHeader() string {
	return "Bearer " + s.Token
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
