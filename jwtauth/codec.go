package jwtauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxTokenLength caps the size of a token accepted for decoding.
const MaxTokenLength = 8 << 10

var (
	signingMethod = jwt.SigningMethodHS512

	// The signature is checked by decodeSignature before the parser runs,
	// so the parser only has to decode the payload.
	payloadParser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
)

// EncodeToken signs claims into a compact HS512 JWT.
func EncodeToken(claims *Claims, key []byte) (string, error) {
	if len(key) == 0 {
		return "", NewValidationError(ErrConfigError, "signing secret is not configured", nil)
	}
	if claims == nil {
		return "", fmt.Errorf("claims must not be nil")
	}
	// NumericDate carries whole seconds; anything finer would be dropped on the wire.
	for name, ts := range map[string]time.Time{"issued-at": claims.IssuedAt, "expiry": claims.ExpiresAt} {
		if !ts.Equal(ts.Truncate(time.Second)) {
			return "", NewValidationError(ErrMalformed, name+" must be a whole second", nil)
		}
	}
	if !claims.IssuedAt.IsZero() && !claims.ExpiresAt.After(claims.IssuedAt) {
		return "", NewValidationError(ErrMalformed, "expiry must be after issued-at", nil)
	}

	token := jwt.NewWithClaims(signingMethod, toWireClaims(claims))
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// DecodeToken checks a token's algorithm, signature and structure and returns its claims.
// It does not look at the clock; expiry is the Verifier's job.
func DecodeToken(tokenString string, key []byte) (*Claims, error) {
	if len(key) == 0 {
		return nil, NewValidationError(ErrConfigError, "signing secret is not configured", nil)
	}
	if len(tokenString) > MaxTokenLength {
		return nil, NewValidationError(ErrMalformed, "token exceeds maximum length", nil)
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, NewValidationError(ErrMalformed, "token must have three segments", nil)
	}

	if err := validateAlgorithm(parts[0]); err != nil {
		return nil, err
	}

	if err := verifySignature(parts, key); err != nil {
		return nil, err
	}

	wire := &wireClaims{}
	token, err := payloadParser.ParseWithClaims(tokenString, wire, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, NewValidationError(ErrMalformed, "malformed token payload", err)
	}
	if !token.Valid {
		return nil, NewValidationError(ErrInvalidSignature, "token is invalid", nil)
	}

	return fromWireClaims(wire)
}

// validateAlgorithm ensures the header names HS512 and nothing else
func validateAlgorithm(headerSegment string) error {
	alg, err := algorithmFromHeader(headerSegment)
	if err != nil {
		return err
	}

	// Reject "none" algorithm explicitly (case-insensitive check)
	if strings.EqualFold(alg, "none") {
		return NewValidationError(ErrNoneAlgorithm, "none algorithm not allowed", nil)
	}

	// Case-sensitive match; "hs512" is not HS512
	if alg != signingMethod.Alg() {
		return NewValidationError(
			ErrUnsupportedAlgorithm,
			fmt.Sprintf("algorithm %s not supported (available: %s)", alg, signingMethod.Alg()),
			nil,
		)
	}
	return nil
}

// verifySignature recomputes the HMAC over header.payload before the payload is parsed,
// so any altered payload byte surfaces as INVALID_SIGNATURE rather than MALFORMED.
func verifySignature(parts []string, key []byte) error {
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return NewValidationError(ErrInvalidSignature, "signature segment is not valid base64url", err)
	}

	signingString := parts[0] + "." + parts[1]
	if err := signingMethod.Verify(signingString, sig, key); err != nil {
		return NewValidationError(ErrInvalidSignature, "invalid signature", err)
	}
	return nil
}

// algorithmFromHeader decodes the JOSE header and returns its alg field
func algorithmFromHeader(headerSegment string) (string, error) {
	headerBytes, err := base64.RawURLEncoding.DecodeString(headerSegment)
	if err != nil {
		return "", NewValidationError(ErrMalformed, "token header is not valid base64url", err)
	}

	var header map[string]interface{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return "", NewValidationError(ErrMalformed, "token header is not valid JSON", err)
	}

	raw, exists := header["alg"]
	if !exists {
		return "", NewValidationError(ErrMalformed, "missing algorithm in token header", nil)
	}
	alg, ok := raw.(string)
	if !ok {
		return "", NewValidationError(ErrMalformed, "algorithm header must be a string", nil)
	}
	return alg, nil
}

// extractAlgorithmFromToken extracts the algorithm from a JWT token header for logging.
// Returns "MALFORMED" if extraction fails.
func extractAlgorithmFromToken(token string) string {
	header, _, found := strings.Cut(token, ".")
	if !found {
		return "MALFORMED"
	}
	alg, err := algorithmFromHeader(header)
	if err != nil {
		return "MALFORMED"
	}
	return alg
}
