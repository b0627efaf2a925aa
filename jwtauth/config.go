package jwtauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultIssuer          = "edge-auth"
)

// AccountStatusChecker reports whether the account behind a verified token may
// still authenticate. An error means the answer is unknown (store unreachable).
type AccountStatusChecker interface {
	AccountActive(ctx context.Context, userID string) (bool, error)
}

// Config holds immutable configuration for token issuance, verification and the edge filter
type Config struct {
	signingKey      []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	publicPaths     *PathRules
	publicMethods   *PathRules
	logger          *slog.Logger
	clock           func() time.Time
	statusChecker   AccountStatusChecker
}

// ConfigOption is a functional option for configuring the middleware
type ConfigOption func(*Config) error

// NewConfig creates a new immutable configuration with the given options.
// A missing signing secret is a CONFIG_ERROR; callers should treat it as fatal.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		issuer:          DefaultIssuer,
		accessTokenTTL:  DefaultAccessTokenTTL,
		refreshTokenTTL: DefaultRefreshTokenTTL,
		publicPaths:     &PathRules{},
		publicMethods:   &PathRules{},
		clock:           time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, NewValidationError(ErrConfigError, fmt.Sprintf("configuration error: %v", err), err)
		}
	}

	if len(cfg.signingKey) == 0 {
		return nil, NewValidationError(ErrConfigError, "signing secret must be configured (use WithHS512)", nil)
	}

	return cfg, nil
}

// WithHS512 configures HMAC-SHA512 signing and verification with the given secret
func WithHS512(secret []byte) ConfigOption {
	return func(c *Config) error {
		if len(secret) < MinSecretLength {
			return fmt.Errorf("HS512 secret must be at least %d bytes (512 bits), got %d bytes", MinSecretLength, len(secret))
		}
		c.signingKey = append([]byte(nil), secret...)
		return nil
	}
}

// WithIssuer sets the iss claim written into issued tokens and required on verification
func WithIssuer(issuer string) ConfigOption {
	return func(c *Config) error {
		if issuer == "" {
			return fmt.Errorf("issuer cannot be empty")
		}
		c.issuer = issuer
		return nil
	}
}

// WithAccessTokenTTL sets the access token lifetime
func WithAccessTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) error {
		if ttl < time.Second {
			return fmt.Errorf("access token TTL must be at least 1s, got %v", ttl)
		}
		c.accessTokenTTL = ttl
		return nil
	}
}

// WithRefreshTokenTTL sets the refresh token lifetime
func WithRefreshTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) error {
		if ttl < time.Second {
			return fmt.Errorf("refresh token TTL must be at least 1s, got %v", ttl)
		}
		c.refreshTokenTTL = ttl
		return nil
	}
}

// WithPublicPaths sets the ordered HTTP path patterns that pass the filter without a token
func WithPublicPaths(patterns ...string) ConfigOption {
	return func(c *Config) error {
		rules, err := NewPathRules(patterns...)
		if err != nil {
			return err
		}
		c.publicPaths = rules
		return nil
	}
}

// WithPublicMethods sets the ordered gRPC full-method patterns that pass without a token
func WithPublicMethods(patterns ...string) ConfigOption {
	return func(c *Config) error {
		rules, err := NewPathRules(patterns...)
		if err != nil {
			return err
		}
		c.publicMethods = rules
		return nil
	}
}

// WithLogger sets a structured logger for security events
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithClock overrides the time source used by the filter and interceptors
func WithClock(clock func() time.Time) ConfigOption {
	return func(c *Config) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithAccountStatusChecker makes the filter reject tokens of disabled or locked accounts.
// This adds one store lookup per protected request.
func WithAccountStatusChecker(checker AccountStatusChecker) ConfigOption {
	return func(c *Config) error {
		c.statusChecker = checker
		return nil
	}
}

// Algorithm returns the JWS algorithm used for signing and verification
func (c *Config) Algorithm() string {
	return signingMethod.Alg()
}

func (c *Config) Issuer() string {
	return c.issuer
}

func (c *Config) AccessTokenTTL() time.Duration {
	return c.accessTokenTTL
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return c.refreshTokenTTL
}

func (c *Config) PublicPaths() *PathRules {
	return c.publicPaths
}

func (c *Config) PublicMethods() *PathRules {
	return c.publicMethods
}

func (c *Config) Logger() *slog.Logger {
	return c.logger
}

// Now returns the current time from the configured clock
func (c *Config) Now() time.Time {
	return c.clock()
}
