package jwtauth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Client-facing rejection messages. Verification failures share one message so
// responses never reveal whether a token expired or was tampered with.
const (
	MessageAuthRequired       = "authentication required"
	MessageMalformedHeader    = "malformed authorization header"
	MessageInvalidToken       = "invalid or expired token"
	MessageServiceUnavailable = "service unavailable"
)

// HeaderRequestID carries the correlation id between gateway and downstream services
const HeaderRequestID = "X-Request-ID"

// decision is the terminal state of the filter for one request
type decision struct {
	status  int
	message string
	claims  *Claims
	token   string
	err     error
	public  bool
	pattern string
}

// JWTAuth returns a Gin middleware handler that authorizes every request at the edge.
//
// Requests whose path matches a public pattern pass through. All others need an
// "Authorization: Bearer <access token>"; on success the verified identity is
// written to X-User-* headers (replacing anything the client sent) and to the
// request context. Failures abort with 401 {"success": false, "message": ...}.
func JWTAuth(cfg *Config) gin.HandlerFunc {
	verifier := NewVerifier(cfg)

	return func(c *gin.Context) {
		startTime := time.Now()

		// Generate or extract request ID for correlation
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request.Header.Set(HeaderRequestID, requestID)
		}
		c.Header(HeaderRequestID, requestID)

		// Client-supplied identity never reaches a handler, public or not
		stripIdentityHeaders(c.Request.Header)

		path := c.Request.URL.Path
		d := authorize(c.Request.Context(), cfg, verifier, cfg.PublicPaths(), path, func() (string, error) {
			return extractTokenFromHeader(c.Request)
		})

		if d.public {
			logPublicPass(cfg, requestID, path, d.pattern)
			c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), requestID))
			c.Next()
			return
		}

		if d.err != nil {
			logAuthFailure(cfg, requestID, path, d.token, d.err, time.Since(startTime))
			c.AbortWithStatusJSON(d.status, buildErrorResponse(d.message))
			return
		}

		identity := d.claims.Identity()
		setIdentityHeaders(c.Request.Header, identity)

		// Inject identity, claims and request ID into context
		ctx := WithIdentity(c.Request.Context(), identity)
		ctx = WithClaims(ctx, d.claims)
		ctx = WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		logAuthSuccess(cfg, requestID, path, d.claims, d.token, time.Since(startTime))

		// Continue to next handler
		c.Next()
	}
}

// authorize runs path classification, token extraction, verification and the
// optional account status check. It is shared by the HTTP filter and the gRPC
// interceptors; statuses are HTTP codes and the gRPC side maps them.
func authorize(ctx context.Context, cfg *Config, verifier *Verifier, rules *PathRules, path string, extract func() (string, error)) decision {
	if pattern, ok := rules.Match(path); ok {
		return decision{public: true, pattern: pattern}
	}

	token, err := extract()
	if err != nil {
		msg := MessageMalformedHeader
		if CodeOf(err) == ErrMissingToken {
			msg = MessageAuthRequired
		}
		return decision{status: http.StatusUnauthorized, message: msg, err: err}
	}

	claims, err := verifier.VerifyKind(token, KindAccess, cfg.Now())
	if err != nil {
		return decision{status: http.StatusUnauthorized, message: MessageInvalidToken, token: token, err: err}
	}

	if cfg.statusChecker != nil {
		active, err := cfg.statusChecker.AccountActive(ctx, claims.Subject)
		if err != nil {
			return decision{
				status:  http.StatusServiceUnavailable,
				message: MessageServiceUnavailable,
				token:   token,
				err:     err,
			}
		}
		if !active {
			return decision{
				status:  http.StatusUnauthorized,
				message: MessageInvalidToken,
				token:   token,
				err:     NewValidationError(ErrAccountInactive, "account is disabled or locked", nil),
			}
		}
	}

	return decision{claims: claims, token: token}
}

// getErrorCode extracts the error code from a validation error
func getErrorCode(err error) string {
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return "UNKNOWN"
}

// buildErrorResponse constructs the structured rejection body
func buildErrorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
	}
}
