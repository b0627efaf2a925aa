package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// listValue is a flag.Value for comma separated lists
type listValue struct {
	dst *[]string
}

func (l listValue) String() string {
	if l.dst == nil {
		return ""
	}
	return strings.Join(*l.dst, ",")
}

func (l listValue) Set(s string) error {
	*l.dst = splitList(s)
	return nil
}

// parseFlags applies command-line flags last, so they win over every other layer.
//
// Supported flags:
//
//	-c, -config string          JSON config file (read by parseJSON)
//	-http-addr string           HTTP listen address
//	-grpc-addr string           gRPC listen address, empty disables gRPC
//	-db string                  SQLite DSN
//	-secret string              HS512 signing secret
//	-issuer string              token issuer
//	-access-ttl duration        access token lifetime
//	-refresh-ttl duration       refresh token lifetime
//	-public-paths list          comma separated public path patterns
//	-public-methods list        comma separated public gRPC method patterns
//	-rotate-refresh             rotate refresh tokens on use
//	-store-timeout duration     identity store deadline per request
//	-check-account-status       re-check account status on every protected request;
//	                            off means disabled or locked accounts are only
//	                            refused at login and refresh
//	-upstream string            upstream base URL
//	-allowed-origins list       CORS origins
//	-phone-region string        default phone region
//	-log-level string           debug, info, warn or error
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("edge-auth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configFile string
	fs.StringVar(&configFile, "c", "", "JSON config file")
	fs.StringVar(&configFile, "config", "", "JSON config file")

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC listen address, empty disables gRPC")
	fs.StringVar(&cfg.DatabaseDSN, "db", cfg.DatabaseDSN, "SQLite DSN")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "HS512 signing secret")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "token issuer")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token lifetime")
	fs.Var(listValue{&cfg.PublicPaths}, "public-paths", "comma separated public path patterns")
	fs.Var(listValue{&cfg.PublicMethods}, "public-methods", "comma separated public gRPC method patterns")
	fs.BoolVar(&cfg.RotateRefreshTokens, "rotate-refresh", cfg.RotateRefreshTokens, "rotate refresh tokens on use")
	fs.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "identity store deadline per request")
	fs.BoolVar(&cfg.CheckAccountStatus, "check-account-status", cfg.CheckAccountStatus, "re-check account status per request (when off, disabled or locked accounts are only refused at login and refresh)")
	fs.StringVar(&cfg.UpstreamURL, "upstream", cfg.UpstreamURL, "upstream base URL")
	fs.Var(listValue{&cfg.AllowedOrigins}, "allowed-origins", "comma separated CORS origins")
	fs.StringVar(&cfg.PhoneRegion, "phone-region", cfg.PhoneRegion, "default phone region")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: flags: %w", err)
	}
	return nil
}
