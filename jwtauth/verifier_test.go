package jwtauth

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestVerifyExpiryBoundary tests that a token is valid on [iat, exp) and expired from exp on
func TestVerifyExpiryBoundary(t *testing.T) {
	cfg := mustCreateConfig(WithHS512(testSecret), WithAccessTokenTTL(15*time.Minute))
	issuer := NewIssuer(cfg)
	verifier := NewVerifier(cfg)

	issuedAt := time.Unix(1_700_000_000, 0)
	token, claims, err := issuer.Issue(Identity{UserID: "u1"}, KindAccess, issuedAt)
	if err != nil {
		t.Fatalf("Failed to issue: %v", err)
	}

	tests := []struct {
		name     string
		at       time.Time
		wantCode ErrorCode
	}{
		{name: "at iat", at: issuedAt},
		{name: "one minute in", at: issuedAt.Add(time.Minute)},
		{name: "one millisecond before exp", at: claims.ExpiresAt.Add(-time.Millisecond)},
		{name: "exactly at exp", at: claims.ExpiresAt, wantCode: ErrExpired},
		{name: "after exp", at: claims.ExpiresAt.Add(time.Hour), wantCode: ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(token, tt.at)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Expected valid token, got %v", err)
				}
				return
			}
			if CodeOf(err) != tt.wantCode {
				t.Errorf("Expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

// TestIssueClaims tests the shape of issued claims
func TestIssueClaims(t *testing.T) {
	cfg := mustCreateConfig(
		WithHS512(testSecret),
		WithIssuer("test-issuer"),
		WithAccessTokenTTL(10*time.Minute),
		WithRefreshTokenTTL(48*time.Hour),
	)
	issuer := NewIssuer(cfg)
	now := time.Unix(1_700_000_000, 750*int64(time.Millisecond))

	identity := Identity{
		UserID: "u1",
		Email:  "a@x.io",
		Roles:  []string{"ROLE_USER", "ROLE_PREMIUM", "ROLE_USER"},
		Plan:   "PREMIUM",
	}

	pair, err := issuer.IssuePair(identity, now)
	if err != nil {
		t.Fatalf("Failed to issue pair: %v", err)
	}

	access := pair.AccessClaims
	if !access.IssuedAt.Equal(time.Unix(1_700_000_000, 0)) {
		t.Errorf("Expected iat truncated to the second, got %v", access.IssuedAt)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt); got != 10*time.Minute {
		t.Errorf("Expected access lifetime 10m, got %v", got)
	}
	if got := pair.RefreshClaims.ExpiresAt.Sub(pair.RefreshClaims.IssuedAt); got != 48*time.Hour {
		t.Errorf("Expected refresh lifetime 48h, got %v", got)
	}
	if access.Kind != KindAccess || pair.RefreshClaims.Kind != KindRefresh {
		t.Errorf("Unexpected kinds %s/%s", access.Kind, pair.RefreshClaims.Kind)
	}
	if access.Issuer != "test-issuer" {
		t.Errorf("Expected issuer test-issuer, got %s", access.Issuer)
	}
	if !reflect.DeepEqual(access.Roles, []string{"ROLE_USER", "ROLE_PREMIUM"}) {
		t.Errorf("Expected de-duplicated roles, got %v", access.Roles)
	}
	if access.JWTID == "" || access.JWTID == pair.RefreshClaims.JWTID {
		t.Errorf("Expected distinct non-empty jti values, got %q and %q", access.JWTID, pair.RefreshClaims.JWTID)
	}

	// What the token carries equals what Issue returned
	decoded, err := NewVerifier(cfg).Verify(pair.AccessToken, now)
	if err != nil {
		t.Fatalf("Failed to verify: %v", err)
	}
	if !decoded.IssuedAt.Equal(access.IssuedAt) || !decoded.ExpiresAt.Equal(access.ExpiresAt) {
		t.Errorf("Decoded times differ: got %v/%v want %v/%v",
			decoded.IssuedAt, decoded.ExpiresAt, access.IssuedAt, access.ExpiresAt)
	}
	if decoded.JWTID != access.JWTID || decoded.Subject != access.Subject || decoded.Plan != access.Plan {
		t.Errorf("Decoded claims differ:\n got %+v\nwant %+v", decoded, access)
	}

	if issuer.TTL(KindRefresh) != 48*time.Hour || issuer.TTL(KindAccess) != 10*time.Minute {
		t.Error("TTL does not reflect configuration")
	}
}

func TestIssueRejectsEmptyUserID(t *testing.T) {
	issuer := NewIssuer(mustCreateConfig(WithHS512(testSecret)))
	if _, _, err := issuer.Issue(Identity{}, KindAccess, time.Now()); err == nil {
		t.Fatal("Expected error for empty user id")
	}
	if _, _, err := issuer.Issue(Identity{UserID: "u1"}, TokenKind("id"), time.Now()); err == nil {
		t.Fatal("Expected error for unknown kind")
	}
}

// TestVerifyKindCrossRejection tests that access and refresh tokens are not interchangeable
func TestVerifyKindCrossRejection(t *testing.T) {
	cfg := mustCreateConfig(WithHS512(testSecret))
	issuer := NewIssuer(cfg)
	verifier := NewVerifier(cfg)
	now := time.Now()

	pair, err := issuer.IssuePair(Identity{UserID: "u1"}, now)
	if err != nil {
		t.Fatalf("Failed to issue: %v", err)
	}

	if _, err := verifier.VerifyKind(pair.RefreshToken, KindAccess, now); CodeOf(err) != ErrWrongKind {
		t.Errorf("Refresh token accepted as access: %v", err)
	}
	if _, err := verifier.VerifyKind(pair.AccessToken, KindRefresh, now); CodeOf(err) != ErrWrongKind {
		t.Errorf("Access token accepted as refresh: %v", err)
	}
	if _, err := verifier.VerifyKind(pair.AccessToken, KindAccess, now); err != nil {
		t.Errorf("Access token rejected as access: %v", err)
	}
	if _, err := verifier.VerifyKind(pair.RefreshToken, KindRefresh, now); err != nil {
		t.Errorf("Refresh token rejected as refresh: %v", err)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	issuing := mustCreateConfig(WithHS512(testSecret), WithIssuer("someone-else"))
	verifying := mustCreateConfig(WithHS512(testSecret))

	token, _, err := NewIssuer(issuing).Issue(Identity{UserID: "u1"}, KindAccess, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue: %v", err)
	}

	_, err = NewVerifier(verifying).Verify(token, time.Now())
	if CodeOf(err) != ErrMalformed || !strings.Contains(err.Error(), "issuer") {
		t.Errorf("Expected issuer mismatch, got %v", err)
	}
}
