package jwtauth

import (
	"log/slog"
	"time"
)

// SecurityEvent represents a structured security log entry
type SecurityEvent struct {
	EventType     string        // "success", "public" or "failure"
	Timestamp     time.Time     // Event timestamp
	RequestID     string        // Correlation ID
	Path          string        // HTTP path or gRPC full method
	UserID        string        // Subject from claims (empty on failure)
	Algorithm     string        // Algorithm used or attempted
	FailureReason string        // Error code (on failure)
	TokenPreview  string        // Redacted token preview
	Latency       time.Duration // Validation latency
}

// LogValue implements slog.LogValuer for structured logging with redaction
func (e SecurityEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("event", e.EventType),
		slog.Time("timestamp", e.Timestamp),
		slog.String("request_id", e.RequestID),
		slog.String("path", e.Path),
		slog.String("user_id", e.UserID),
		slog.String("algorithm", e.Algorithm),
		slog.String("failure_reason", e.FailureReason),
		slog.String("token", redactToken(e.TokenPreview)),
		slog.Duration("latency", e.Latency),
	)
}

// redactToken redacts sensitive token data
func redactToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// logSecurityEvent emits a security event via the configured logger
func logSecurityEvent(logger *slog.Logger, event SecurityEvent) {
	if logger == nil {
		return // Logging disabled
	}

	switch event.EventType {
	case "failure":
		logger.Warn("authentication failed", "auth_event", event)
	case "public":
		logger.Debug("public path passed through", "auth_event", event)
	default:
		logger.Info("authentication succeeded", "auth_event", event)
	}
}

// logAuthSuccess logs a successful authentication event
func logAuthSuccess(cfg *Config, requestID, path string, claims *Claims, token string, latency time.Duration) {
	if cfg.Logger() == nil {
		return
	}

	logSecurityEvent(cfg.Logger(), SecurityEvent{
		EventType:    "success",
		Timestamp:    cfg.Now(),
		RequestID:    requestID,
		Path:         path,
		UserID:       claims.Subject,
		Algorithm:    extractAlgorithmFromToken(token),
		TokenPreview: token,
		Latency:      latency,
	})
}

// logAuthFailure logs a failed authentication event
func logAuthFailure(cfg *Config, requestID, path, token string, err error, latency time.Duration) {
	if cfg.Logger() == nil {
		return
	}

	event := SecurityEvent{
		EventType:     "failure",
		Timestamp:     cfg.Now(),
		RequestID:     requestID,
		Path:          path,
		FailureReason: getErrorCode(err),
		TokenPreview:  token,
		Latency:       latency,
	}
	if token != "" {
		event.Algorithm = extractAlgorithmFromToken(token)
	}

	logSecurityEvent(cfg.Logger(), event)
}

// logPublicPass logs a request let through by a public pattern
func logPublicPass(cfg *Config, requestID, path, pattern string) {
	if cfg.Logger() == nil {
		return
	}

	logSecurityEvent(cfg.Logger(), SecurityEvent{
		EventType: "public",
		Timestamp: cfg.Now(),
		RequestID: requestID,
		Path:      path,
		Algorithm: pattern,
	})
}
