package jwtauth

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestSecurityEvent_Success tests that successful validations log the subject and algorithm
func TestSecurityEvent_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := filterConfig(WithLogger(logger))

	token, _, err := NewIssuer(cfg).Issue(Identity{UserID: "user123"}, KindAccess, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderRequestID, "test-req-123")
	echoRouter(cfg).ServeHTTP(httptest.NewRecorder(), req)

	event := lastAuthEvent(t, &buf)
	if event["event"] != "success" {
		t.Errorf("Expected success event, got %v", event["event"])
	}
	if event["user_id"] != "user123" {
		t.Errorf("Expected user_id=user123, got %v", event["user_id"])
	}
	if event["algorithm"] != "HS512" {
		t.Errorf("Expected algorithm=HS512, got %v", event["algorithm"])
	}
	if event["request_id"] != "test-req-123" || event["path"] != "/api/v1/orders" {
		t.Errorf("Unexpected correlation fields %v", event)
	}
	if strings.Contains(buf.String(), token) {
		t.Error("Full token found in log output")
	}
}

// TestSecurityEvent_Failure tests that failed validations log the attempted algorithm and reason
func TestSecurityEvent_Failure(t *testing.T) {
	tests := []struct {
		name                string
		authHeader          string
		expectedAlg         string
		expectedFailureCode string
	}{
		{
			name:                "Unsupported ES256 logs algorithm=ES256",
			authHeader:          "Bearer eyJhbGciOiJFUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1c2VyMTIzIn0.invalid",
			expectedAlg:         "ES256",
			expectedFailureCode: "UNSUPPORTED_ALGORITHM",
		},
		{
			name:                "Malformed token logs MALFORMED",
			authHeader:          "Bearer invalid.token.structure",
			expectedAlg:         "MALFORMED",
			expectedFailureCode: "MALFORMED",
		},
		{
			name:                "None algorithm logs algorithm=none",
			authHeader:          "Bearer eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyMTIzIn0.",
			expectedAlg:         "none",
			expectedFailureCode: "NONE_ALGORITHM",
		},
		{
			name:                "Missing header logs no algorithm",
			expectedAlg:         "",
			expectedFailureCode: "MISSING_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			cfg := filterConfig(WithLogger(logger))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			echoRouter(cfg).ServeHTTP(httptest.NewRecorder(), req)

			event := lastAuthEvent(t, &buf)
			if event["event"] != "failure" {
				t.Errorf("Expected failure event, got %v", event["event"])
			}
			if event["algorithm"] != tt.expectedAlg {
				t.Errorf("Expected algorithm=%q, got %v", tt.expectedAlg, event["algorithm"])
			}
			if event["failure_reason"] != tt.expectedFailureCode {
				t.Errorf("Expected failure_reason=%s, got %v", tt.expectedFailureCode, event["failure_reason"])
			}
		})
	}
}

func TestSecurityEvent_PublicPassLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := filterConfig(WithLogger(logger))

	echoRouter(cfg).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Errorf("Expected no output at info level, got %s", buf.String())
	}

	buf.Reset()
	debugLogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg = filterConfig(WithLogger(debugLogger))
	echoRouter(cfg).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	event := lastAuthEvent(t, &buf)
	if event["event"] != "public" || event["path"] != "/health" {
		t.Errorf("Unexpected public event %v", event)
	}
}

func TestRedactToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{token: "", want: ""},
		{token: "short", want: "***"},
		{token: "12345678", want: "***"},
		{token: "eyJhbGciOiJIUzUxMiJ9.payload.sig", want: "eyJhbGci..."},
	}
	for _, tt := range tests {
		if got := redactToken(tt.token); got != tt.want {
			t.Errorf("redactToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

// lastAuthEvent parses the final JSON log line and returns its auth_event group
func lastAuthEvent(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output: %v\nOutput: %s", err, buf.String())
	}
	authEvent, ok := logEntry["auth_event"].(map[string]interface{})
	if !ok {
		t.Fatalf("Log entry missing auth_event field: %+v", logEntry)
	}
	return authEvent
}
