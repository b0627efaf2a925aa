package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// jsonConfig is the file layout. Pointer fields distinguish "absent" from
// "zero" so a partial file only overrides what it names.
type jsonConfig struct {
	HTTPAddr            *string   `json:"http_addr"`
	GRPCAddr            *string   `json:"grpc_addr"`
	DatabaseDSN         *string   `json:"database_dsn"`
	Secret              *string   `json:"secret"`
	Issuer              *string   `json:"issuer"`
	AccessTokenTTL      *Duration `json:"access_token_ttl"`
	RefreshTokenTTL     *Duration `json:"refresh_token_ttl"`
	PublicPaths         []string  `json:"public_paths"`
	PublicMethods       []string  `json:"public_methods"`
	RotateRefreshTokens *bool     `json:"rotate_refresh_tokens"`
	StoreTimeout        *Duration `json:"store_timeout"`
	CheckAccountStatus  *bool     `json:"check_account_status"`
	UpstreamURL         *string   `json:"upstream_url"`
	AllowedOrigins      []string  `json:"allowed_origins"`
	PhoneRegion         *string   `json:"phone_region"`
	LogLevel            *string   `json:"log_level"`
}

// parseJSON overlays the file named by -c / -config, if any
func parseJSON(cfg *Config, args []string) error {
	path := configFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCAddr, c.GRPCAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.Secret, c.Secret)
	setString(&cfg.Issuer, c.Issuer)
	setString(&cfg.UpstreamURL, c.UpstreamURL)
	setString(&cfg.PhoneRegion, c.PhoneRegion)
	setString(&cfg.LogLevel, c.LogLevel)
	if c.AccessTokenTTL != nil {
		cfg.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		cfg.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.StoreTimeout != nil {
		cfg.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.RotateRefreshTokens != nil {
		cfg.RotateRefreshTokens = *c.RotateRefreshTokens
	}
	if c.CheckAccountStatus != nil {
		cfg.CheckAccountStatus = *c.CheckAccountStatus
	}
	if c.PublicPaths != nil {
		cfg.PublicPaths = c.PublicPaths
	}
	if c.PublicMethods != nil {
		cfg.PublicMethods = c.PublicMethods
	}
	if c.AllowedOrigins != nil {
		cfg.AllowedOrigins = c.AllowedOrigins
	}
	return nil
}

// configFileFlag finds -c/-config (also with = and double dash forms) in args
func configFileFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		switch strings.TrimLeft(name, "-") {
		case "c", "config":
			if !strings.HasPrefix(name, "-") {
				continue
			}
			if hasValue {
				return value
			}
			if i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
