package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable the gateway reads
const EnvPrefix = "EDGE_AUTH_"

// parseEnv overlays EDGE_AUTH_* variables. Unset or empty variables are ignored.
func parseEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	get := func(key string) string { return getenv(EnvPrefix + key) }

	stringVars := map[string]*string{
		"HTTP_ADDR":    &cfg.HTTPAddr,
		"GRPC_ADDR":    &cfg.GRPCAddr,
		"DATABASE_DSN": &cfg.DatabaseDSN,
		"SECRET":       &cfg.Secret,
		"ISSUER":       &cfg.Issuer,
		"UPSTREAM_URL": &cfg.UpstreamURL,
		"PHONE_REGION": &cfg.PhoneRegion,
		"LOG_LEVEL":    &cfg.LogLevel,
	}
	for key, dst := range stringVars {
		if v := get(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &cfg.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": &cfg.RefreshTokenTTL,
		"STORE_TIMEOUT":     &cfg.StoreTimeout,
	}
	for key, dst := range durations {
		if v := get(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"ROTATE_REFRESH_TOKENS": &cfg.RotateRefreshTokens,
		"CHECK_ACCOUNT_STATUS":  &cfg.CheckAccountStatus,
	}
	for key, dst := range bools {
		if v := get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	lists := map[string]*[]string{
		"PUBLIC_PATHS":    &cfg.PublicPaths,
		"PUBLIC_METHODS":  &cfg.PublicMethods,
		"ALLOWED_ORIGINS": &cfg.AllowedOrigins,
	}
	for key, dst := range lists {
		if v := get(key); v != "" {
			*dst = splitList(v)
		}
	}
	return nil
}
