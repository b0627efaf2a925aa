// Package session implements login, refresh and logout on top of the jwtauth
// issuer and verifier and an identity store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Wang-tianhao/edge-auth-go/identity"
	"github.com/Wang-tianhao/edge-auth-go/jwtauth"
)

// TokenTypeBearer is the token_type of every Result
const TokenTypeBearer = "Bearer"

// Result is returned by Login and Refresh
type Result struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	TokenType    string           `json:"tokenType"`
	ExpiresIn    int64            `json:"expiresIn"` // access token lifetime in seconds
	Identity     jwtauth.Identity `json:"user"`
}

// Service is the session lifecycle controller. It is safe for concurrent use.
type Service struct {
	store         identity.Store
	issuer        *jwtauth.Issuer
	verifier      *jwtauth.Verifier
	rotateRefresh bool
	phoneRegion   string
	logger        *slog.Logger
	now           func() time.Time
	dummyHash     func() string
}

// Option configures a Service
type Option func(*Service)

// WithRefreshRotation makes Refresh issue a new refresh token on every use
func WithRefreshRotation(rotate bool) Option {
	return func(s *Service) { s.rotateRefresh = rotate }
}

// WithPhoneRegion sets the region used for phone credentials without a country code
func WithPhoneRegion(region string) Option {
	return func(s *Service) { s.phoneRegion = region }
}

// WithLogger enables session event logging
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the controller to its store, issuer and verifier
func NewService(store identity.Store, issuer *jwtauth.Issuer, verifier *jwtauth.Verifier, opts ...Option) *Service {
	s := &Service{
		store:       store,
		issuer:      issuer,
		verifier:    verifier,
		phoneRegion: identity.DefaultPhoneRegion,
		now:         time.Now,
		dummyHash:   identity.DummyHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates credential (an email or a phone number) with password and
// issues an access/refresh pair. Unknown accounts and wrong passwords both return
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, credential, password string) (*Result, error) {
	account, err := s.lookup(ctx, credential)
	if err != nil && !errors.Is(err, identity.ErrNotFound) {
		return nil, s.upstream(ctx, "login lookup", err)
	}

	// Always pay for one bcrypt compare so a missing account is not faster
	hash := s.dummyHash()
	if account != nil {
		hash = account.PasswordHash
	}
	if cmpErr := identity.ComparePassword(password, hash); cmpErr != nil || account == nil {
		if cmpErr != nil && !errors.Is(cmpErr, identity.ErrMismatchedPassword) && account != nil {
			s.log(ctx, slog.LevelError, "stored password hash is unusable", "user_id", account.ID, "error", cmpErr)
		}
		s.log(ctx, slog.LevelInfo, "login rejected", "reason", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.checkStatus(ctx, account, now, "login"); err != nil {
		return nil, err
	}

	if err := s.store.RecordLogin(ctx, account.ID, now); err != nil {
		return nil, s.upstream(ctx, "record login", err)
	}

	pair, err := s.issuer.IssuePair(toIdentity(account), now)
	if err != nil {
		return nil, fmt.Errorf("session: issue tokens: %w", err)
	}

	s.log(ctx, slog.LevelInfo, "login succeeded", "user_id", account.ID, "jti", pair.AccessClaims.JWTID)
	return s.result(pair.AccessToken, pair.RefreshToken, pair.AccessClaims), nil
}

// Refresh exchanges a refresh token for a new access token after re-checking the
// account. The refresh token is rotated only when WithRefreshRotation is set;
// otherwise the presented one is returned unchanged.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	now := s.now()

	claims, err := s.verifier.VerifyKind(refreshToken, jwtauth.KindRefresh, now)
	if err != nil {
		s.log(ctx, slog.LevelInfo, "refresh rejected", "reason", string(jwtauth.CodeOf(err)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	account, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			s.log(ctx, slog.LevelInfo, "refresh rejected", "reason", "account_missing", "user_id", claims.Subject)
			return nil, ErrInvalidCredentials
		}
		return nil, s.upstream(ctx, "refresh lookup", err)
	}

	if err := s.checkStatus(ctx, account, now, "refresh"); err != nil {
		return nil, err
	}

	id := toIdentity(account)
	access, accessClaims, err := s.issuer.Issue(id, jwtauth.KindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("session: issue access token: %w", err)
	}

	refresh := refreshToken
	if s.rotateRefresh {
		refresh, _, err = s.issuer.Issue(id, jwtauth.KindRefresh, now)
		if err != nil {
			return nil, fmt.Errorf("session: issue refresh token: %w", err)
		}
	}

	s.log(ctx, slog.LevelInfo, "refresh succeeded", "user_id", account.ID, "rotated", s.rotateRefresh)
	return s.result(access, refresh, accessClaims), nil
}

// Logout is stateless: no token is invalidated server side and the client is
// expected to discard its tokens. A presented token is verified so the event
// can be attributed; an invalid one returns ErrInvalidToken.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		s.log(ctx, slog.LevelInfo, "logout", "user_id", "")
		return nil
	}

	claims, err := s.verifier.Verify(token, s.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	s.log(ctx, slog.LevelInfo, "logout", "user_id", claims.Subject, "jti", claims.JWTID, "kind", string(claims.Kind))
	return nil
}

// lookup tries the credential as an email, then as a phone number
func (s *Service) lookup(ctx context.Context, credential string) (*identity.Account, error) {
	account, err := s.store.FindByEmail(ctx, credential)
	if err == nil || !errors.Is(err, identity.ErrNotFound) {
		return account, err
	}

	if !identity.LooksLikePhone(credential) {
		return nil, identity.ErrNotFound
	}
	phone, perr := identity.NormalizePhone(credential, s.phoneRegion)
	if perr != nil {
		return nil, identity.ErrNotFound
	}
	return s.store.FindByPhone(ctx, phone)
}

func (s *Service) checkStatus(ctx context.Context, account *identity.Account, now time.Time, op string) error {
	if !account.Enabled {
		s.log(ctx, slog.LevelInfo, op+" rejected", "reason", "account_disabled", "user_id", account.ID)
		return ErrAccountDisabled
	}
	if account.Locked(now) {
		s.log(ctx, slog.LevelInfo, op+" rejected", "reason", "account_locked", "user_id", account.ID,
			"locked_until", account.LockedUntil)
		return ErrAccountLocked
	}
	return nil
}

func (s *Service) upstream(ctx context.Context, op string, err error) error {
	s.log(ctx, slog.LevelError, "identity store call failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, op, err)
}

func (s *Service) result(access, refresh string, accessClaims *jwtauth.Claims) *Result {
	return &Result{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.issuer.TTL(jwtauth.KindAccess) / time.Second),
		Identity:     accessClaims.Identity(),
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID, ok := jwtauth.GetRequestID(ctx); ok {
		args = append(args, "request_id", requestID)
	}
	s.logger.Log(ctx, level, msg, args...)
}

func toIdentity(a *identity.Account) jwtauth.Identity {
	return jwtauth.Identity{
		UserID: a.ID,
		Email:  a.Email,
		Roles:  a.Roles,
		Plan:   a.Plan,
	}
}
