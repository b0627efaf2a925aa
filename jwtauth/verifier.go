package jwtauth

import (
	"fmt"
	"time"
)

// Verifier validates tokens against the signing key without consulting any store
type Verifier struct {
	key    []byte
	issuer string
}

// NewVerifier creates a verifier bound to the signing key and issuer in cfg
func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{
		key:    cfg.signingKey,
		issuer: cfg.issuer,
	}
}

// Verify decodes token and checks issuer and expiry at now.
// Expiry is compared in epoch milliseconds; now == exp is already expired.
func (v *Verifier) Verify(token string, now time.Time) (*Claims, error) {
	claims, err := DecodeToken(token, v.key)
	if err != nil {
		return nil, err
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, NewValidationError(ErrMalformed, fmt.Sprintf("unexpected issuer %q", claims.Issuer), nil)
	}

	if now.UnixMilli() >= claims.ExpiresAt.UnixMilli() {
		return nil, NewValidationError(
			ErrExpired,
			fmt.Sprintf("token expired at %v", claims.ExpiresAt),
			nil,
		)
	}

	return claims, nil
}

// VerifyKind verifies token and additionally requires it to be of kind
func (v *Verifier) VerifyKind(token string, kind TokenKind, now time.Time) (*Claims, error) {
	claims, err := v.Verify(token, now)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, NewValidationError(
			ErrWrongKind,
			fmt.Sprintf("expected %s token, got %s", kind, claims.Kind),
			nil,
		)
	}
	return claims, nil
}
