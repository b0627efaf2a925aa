// Package config handles process configuration for the gateway binary,
// layering defaults, an optional JSON file, environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Wang-tianhao/edge-auth-go/jwtauth"
)

// ErrMissingSecret is returned when no signing secret was configured anywhere
var ErrMissingSecret = errors.New("config: signing secret is required (set EDGE_AUTH_SECRET, -secret or \"secret\" in the config file)")

// Config holds runtime settings for the gateway.
//
// Fields:
//   - HTTPAddr / GRPCAddr: listen addresses; an empty GRPCAddr disables gRPC.
//   - DatabaseDSN: SQLite DSN for the identity store.
//   - Secret: HS512 signing secret, verbatim or "base64:<std base64>". No default.
//   - PublicPaths / PublicMethods: ordered patterns passed without a token.
//   - StoreTimeout: per-request deadline for identity store calls.
//   - UpstreamURL: where protected traffic not served locally is proxied.
//   - CheckAccountStatus: off by default. When off the edge trusts any valid access
//     token until it expires, and disabled or locked accounts are only refused at
//     login and refresh.
type Config struct {
	HTTPAddr            string
	GRPCAddr            string
	DatabaseDSN         string
	Secret              string
	Issuer              string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	PublicPaths         []string
	PublicMethods       []string
	RotateRefreshTokens bool
	StoreTimeout        time.Duration
	CheckAccountStatus  bool
	UpstreamURL         string
	AllowedOrigins      []string
	PhoneRegion         string
	LogLevel            string
}

// LoadDefaults populates Config with development defaults. Secret stays empty.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":9090"
	c.DatabaseDSN = "edge-auth.db"
	c.Issuer = jwtauth.DefaultIssuer
	c.AccessTokenTTL = jwtauth.DefaultAccessTokenTTL
	c.RefreshTokenTTL = jwtauth.DefaultRefreshTokenTTL
	c.PublicPaths = []string{"/health", "/api/v1/auth/**"}
	c.PublicMethods = []string{"/grpc.health.v1.Health/**"}
	c.StoreTimeout = 5 * time.Second
	c.PhoneRegion = "US"
	c.LogLevel = "info"
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional JSON file (-c / -config), the environment and finally flags.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, getenv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values no layer can fix later
func (c *Config) Validate() error {
	if c.Secret == "" {
		return ErrMissingSecret
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: http_addr must not be empty")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("config: store_timeout must be positive, got %v", c.StoreTimeout)
	}
	if c.UpstreamURL != "" {
		u, err := url.Parse(c.UpstreamURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: upstream_url %q is not an absolute URL", c.UpstreamURL)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// AuthOptions translates the token settings into jwtauth options
func (c *Config) AuthOptions() ([]jwtauth.ConfigOption, error) {
	secret, err := jwtauth.ParseSecret(c.Secret)
	if err != nil {
		return nil, fmt.Errorf("config: secret: %w", err)
	}
	return []jwtauth.ConfigOption{
		jwtauth.WithHS512(secret),
		jwtauth.WithIssuer(c.Issuer),
		jwtauth.WithAccessTokenTTL(c.AccessTokenTTL),
		jwtauth.WithRefreshTokenTTL(c.RefreshTokenTTL),
		jwtauth.WithPublicPaths(c.PublicPaths...),
		jwtauth.WithPublicMethods(c.PublicMethods...),
	}, nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// splitList splits a comma separated list, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
