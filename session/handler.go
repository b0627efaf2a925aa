package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Wang-tianhao/edge-auth-go/jwtauth"
)

// DefaultTimeout bounds the identity store work of one auth request
const DefaultTimeout = 5 * time.Second

// Client-facing messages
const (
	MessageInvalidRequest     = "invalid request"
	MessageInvalidCredentials = "invalid credentials"
	MessageAccountDisabled    = "account is disabled"
	MessageAccountLocked      = "account is locked"
	MessageInternalError      = "internal error"
)

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

// Validate will validate the payload
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}

// RefreshRequest is the body of POST /refresh
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will validate the payload
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required, validation.Length(1, jwtauth.MaxTokenLength)),
	)
}

// Handler exposes a Service over HTTP
type Handler struct {
	service *Service
	timeout time.Duration
	logger  *slog.Logger
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithTimeout sets the per-request deadline for store calls
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithHandlerLogger logs responses the handler could not map
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

func NewHandler(service *Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts login, refresh and logout on r, typically the
// /api/v1/auth group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	result, err := h.service.Login(ctx, req.Credential, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, cancel := h.withTimeout(c)
	defer cancel()

	result, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Logout accepts an optional "Authorization: Bearer <token>" naming the session
// being ended. Nothing is revoked server side.
func (h *Handler) Logout(c *gin.Context) {
	token, err := jwtauth.BearerToken(c.Request)
	if err != nil && jwtauth.CodeOf(err) != jwtauth.ErrMissingToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": jwtauth.MessageMalformedHeader})
		return
	}

	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"loggedOut": true}})
}

type validatable interface {
	Validate() error
}

func (h *Handler) bind(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": MessageInvalidRequest})
		return false
	}
	if err := req.Validate(); err != nil {
		body := gin.H{"success": false, "message": MessageInvalidRequest}
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			body["errors"] = fieldErrs
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return false
	}
	return true
}

func (h *Handler) withTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// fail maps service errors to status codes and messages
func (h *Handler) fail(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, MessageInternalError

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, MessageInvalidCredentials
	case errors.Is(err, ErrInvalidToken):
		status, message = http.StatusUnauthorized, jwtauth.MessageInvalidToken
	case errors.Is(err, ErrAccountDisabled):
		status, message = http.StatusUnauthorized, MessageAccountDisabled
	case errors.Is(err, ErrAccountLocked):
		status, message = http.StatusUnauthorized, MessageAccountLocked
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, context.DeadlineExceeded):
		status, message = http.StatusServiceUnavailable, jwtauth.MessageServiceUnavailable
	default:
		if h.logger != nil {
			h.logger.ErrorContext(c.Request.Context(), "unmapped session error", "error", err)
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
