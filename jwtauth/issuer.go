package jwtauth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenPair is the access/refresh pair returned at login
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessClaims  *Claims
	RefreshClaims *Claims
}

// Issuer builds signed access and refresh tokens
type Issuer struct {
	key             []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	newID           func() string
}

// NewIssuer creates an issuer bound to the signing key and lifetimes in cfg
func NewIssuer(cfg *Config) *Issuer {
	return &Issuer{
		key:             cfg.signingKey,
		issuer:          cfg.issuer,
		accessTokenTTL:  cfg.accessTokenTTL,
		refreshTokenTTL: cfg.refreshTokenTTL,
		newID:           func() string { return uuid.New().String() },
	}
}

// Issue signs a token of the given kind for identity, valid from now for the kind's TTL
func (i *Issuer) Issue(identity Identity, kind TokenKind, now time.Time) (string, *Claims, error) {
	if len(i.key) == 0 {
		return "", nil, NewValidationError(ErrConfigError, "signing secret is not configured", nil)
	}
	if identity.UserID == "" {
		return "", nil, fmt.Errorf("cannot issue token: user id is empty")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", nil, fmt.Errorf("cannot issue token: unknown kind %q", kind)
	}

	// NumericDate has second precision; truncating here keeps the returned
	// claims equal to what the token carries.
	issuedAt := now.Truncate(time.Second)
	claims := &Claims{
		Subject:   identity.UserID,
		Issuer:    i.issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(i.ttl(kind)),
		JWTID:     i.newID(),
		Email:     identity.Email,
		Roles:     normalizeRoles(identity.Roles),
		Plan:      identity.Plan,
		Kind:      kind,
	}

	token, err := EncodeToken(claims, i.key)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// IssuePair signs a fresh access token and refresh token sharing the same issue time
func (i *Issuer) IssuePair(identity Identity, now time.Time) (*TokenPair, error) {
	access, accessClaims, err := i.Issue(identity, KindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := i.Issue(identity, KindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// TTL returns the lifetime applied to tokens of kind
func (i *Issuer) TTL(kind TokenKind) time.Duration {
	return i.ttl(kind)
}

func (i *Issuer) ttl(kind TokenKind) time.Duration {
	if kind == KindRefresh {
		return i.refreshTokenTTL
	}
	return i.accessTokenTTL
}
