package jwtauth

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MinSecretLength is the minimum HS512 secret size in bytes (512 bits).
const MinSecretLength = 64

// ParseSecret decodes an HMAC secret from its configured text form.
// Values prefixed with "base64:" are standard base64 decoded; anything else is
// used verbatim as bytes.
func ParseSecret(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("secret is empty")
	}

	encoded, isBase64 := strings.CutPrefix(raw, "base64:")
	if !isBase64 {
		return []byte(raw), nil
	}

	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Try the URL-safe alphabet before giving up
		if urlSecret, urlErr := base64.RawURLEncoding.DecodeString(encoded); urlErr == nil {
			return urlSecret, nil
		}
		return nil, fmt.Errorf("failed to decode base64 secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret is empty")
	}
	return secret, nil
}
