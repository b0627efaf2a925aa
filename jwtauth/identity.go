package jwtauth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Headers carrying the trusted identity to downstream services
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRoles = "X-User-Roles"
	HeaderUserPlan  = "X-User-Plan"
)

var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRoles, HeaderUserPlan}

// Identity is the per-request identity derived from a verified access token
type Identity struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Plan   string   `json:"plan,omitempty"`
}

// HasRole reports whether the identity carries role
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// stripIdentityHeaders removes any client-supplied identity headers
func stripIdentityHeaders(h http.Header) {
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

// setIdentityHeaders overwrites the identity headers from a verified identity
func setIdentityHeaders(h http.Header, id Identity) {
	stripIdentityHeaders(h)
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderUserEmail, id.Email)
	h.Set(HeaderUserRoles, strings.Join(id.Roles, ","))
	h.Set(HeaderUserPlan, id.Plan)
}

// IdentityFromHeaders reads the identity the edge filter forwarded.
// Only trust this behind the gateway; returns false when no user id is present.
func IdentityFromHeaders(h http.Header) (Identity, bool) {
	userID := h.Get(HeaderUserID)
	if userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Email:  h.Get(HeaderUserEmail),
		Roles:  splitRoles(h.Get(HeaderUserRoles)),
		Plan:   h.Get(HeaderUserPlan),
	}, true
}

// identityMetadataKeys are the lower-cased gRPC metadata equivalents of the headers
var identityMetadataKeys = []string{
	strings.ToLower(HeaderUserID),
	strings.ToLower(HeaderUserEmail),
	strings.ToLower(HeaderUserRoles),
	strings.ToLower(HeaderUserPlan),
}

// stripIdentityMetadata removes any caller-supplied identity keys from md
func stripIdentityMetadata(md metadata.MD) {
	for _, key := range identityMetadataKeys {
		delete(md, key)
	}
}

// setIdentityMetadata overwrites the identity keys in md
func setIdentityMetadata(md metadata.MD, id Identity) {
	stripIdentityMetadata(md)
	md.Set(identityMetadataKeys[0], id.UserID)
	md.Set(identityMetadataKeys[1], id.Email)
	md.Set(identityMetadataKeys[2], strings.Join(id.Roles, ","))
	md.Set(identityMetadataKeys[3], id.Plan)
}

// IdentityFromMetadata reads identity forwarded by UnaryClientInterceptor, or
// written into the incoming metadata by the server interceptors
func IdentityFromMetadata(md metadata.MD) (Identity, bool) {
	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}
	userID := first(identityMetadataKeys[0])
	if userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Email:  first(identityMetadataKeys[1]),
		Roles:  splitRoles(first(identityMetadataKeys[2])),
		Plan:   first(identityMetadataKeys[3]),
	}, true
}

func splitRoles(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
