package jwtauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes short-lived access tokens from refresh tokens
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Claims represents parsed and validated JWT claims
type Claims struct {
	Subject   string    // User identifier (sub claim)
	Issuer    string    // Token issuer (iss claim)
	IssuedAt  time.Time // Issue time (iat claim)
	ExpiresAt time.Time // Expiration time (exp claim)
	JWTID     string    // JWT ID (jti claim)
	Email     string
	Roles     []string // Ordered, de-duplicated role names
	Plan      string   // Subscription tag, empty when the account has none
	Kind      TokenKind
}

// Identity converts verified claims into the identity context handed to downstream code.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Roles:  append([]string(nil), c.Roles...),
		Plan:   c.Plan,
	}
}

// wireClaims is the JSON payload signed into a token.
type wireClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	Plan  string   `json:"plan,omitempty"`
	Type  string   `json:"type,omitempty"`
}

func toWireClaims(c *Claims) *wireClaims {
	w := &wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: c.Subject,
			Issuer:  c.Issuer,
			ID:      c.JWTID,
		},
		Email: c.Email,
		Roles: normalizeRoles(c.Roles),
		Plan:  c.Plan,
	}
	if !c.IssuedAt.IsZero() {
		w.IssuedAt = jwt.NewNumericDate(c.IssuedAt)
	}
	if !c.ExpiresAt.IsZero() {
		w.ExpiresAt = jwt.NewNumericDate(c.ExpiresAt)
	}
	// Access tokens carry no marker.
	if c.Kind == KindRefresh {
		w.Type = string(KindRefresh)
	}
	return w
}

// fromWireClaims checks the structural invariants and builds typed claims.
func fromWireClaims(w *wireClaims) (*Claims, error) {
	if w.Subject == "" {
		return nil, NewValidationError(ErrMalformed, "subject claim is missing", nil)
	}
	if w.IssuedAt == nil {
		return nil, NewValidationError(ErrMalformed, "issued-at claim is missing", nil)
	}
	if w.ExpiresAt == nil {
		return nil, NewValidationError(ErrMalformed, "expiry claim is missing", nil)
	}
	if !w.ExpiresAt.Time.After(w.IssuedAt.Time) {
		return nil, NewValidationError(ErrMalformed, "expiry must be after issued-at", nil)
	}

	var kind TokenKind
	switch w.Type {
	case "", string(KindAccess):
		kind = KindAccess
	case string(KindRefresh):
		kind = KindRefresh
	default:
		return nil, NewValidationError(ErrMalformed, "unknown token type "+w.Type, nil)
	}

	return &Claims{
		Subject:   w.Subject,
		Issuer:    w.Issuer,
		IssuedAt:  w.IssuedAt.Time,
		ExpiresAt: w.ExpiresAt.Time,
		JWTID:     w.ID,
		Email:     w.Email,
		Roles:     normalizeRoles(w.Roles),
		Plan:      w.Plan,
		Kind:      kind,
	}, nil
}

// normalizeRoles drops empty and repeated names, keeping first occurrence order.
func normalizeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
