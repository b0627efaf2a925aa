package jwtauth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// bearerPrefix is matched case-sensitively, with exactly one space
const bearerPrefix = "Bearer "

// extractTokenFromHeader extracts JWT token from Authorization header
// Expected format: "Authorization: Bearer <token>"
func extractTokenFromHeader(r *http.Request) (string, error) {
	values := r.Header.Values("Authorization")
	if len(values) == 0 || values[0] == "" {
		return "", NewValidationError(ErrMissingToken, "authorization header not found", nil)
	}
	if len(values) > 1 {
		return "", NewValidationError(ErrMalformed, "multiple authorization headers", nil)
	}
	return parseBearer(values[0])
}

// extractTokenFromMetadata extracts JWT token from gRPC metadata
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", NewValidationError(ErrMissingToken, "authorization metadata not found", nil)
	}
	if len(values) > 1 {
		return "", NewValidationError(ErrMalformed, "multiple authorization values", nil)
	}
	return parseBearer(values[0])
}

func parseBearer(authHeader string) (string, error) {
	token, found := strings.CutPrefix(authHeader, bearerPrefix)
	if !found {
		return "", NewValidationError(ErrMalformed, "invalid authorization header format, expected 'Bearer <token>'", nil)
	}
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", NewValidationError(ErrMalformed, "bearer token is empty or contains whitespace", nil)
	}
	return token, nil
}

// BearerToken returns the token from the request's Authorization header using
// the same rules as the edge filter.
func BearerToken(r *http.Request) (string, error) {
	return extractTokenFromHeader(r)
}
