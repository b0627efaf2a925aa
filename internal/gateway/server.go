// Package gateway hosts the edge: the HTTP router with the authorization
// filter in front of the session endpoints and the upstream proxy, and a gRPC
// server guarded by the same rules.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Wang-tianhao/edge-auth-go/identity"
	"github.com/Wang-tianhao/edge-auth-go/internal/config"
	"github.com/Wang-tianhao/edge-auth-go/jwtauth"
	"github.com/Wang-tianhao/edge-auth-go/session"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server
const ShutdownTimeout = 10 * time.Second

const serviceName = "edge-auth"

// Server is the gateway process: one gin engine and one gRPC server sharing
// a single jwtauth configuration.
type Server struct {
	cfg     *config.Config
	auth    *jwtauth.Config
	router  *gin.Engine
	grpc    *grpc.Server
	health  *health.Server
	proxy   *httputil.ReverseProxy
	session *session.Handler
	logger  *slog.Logger
}

type options struct {
	logger   *slog.Logger
	authOpts []jwtauth.ConfigOption
}

// Option customizes NewServer
type Option func(*options)

// WithLogger sets the logger used by the gateway and the edge filter
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAuthOptions appends jwtauth options after the ones derived from config
func WithAuthOptions(opts ...jwtauth.ConfigOption) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// NewServer wires the edge filter, session controller and proxy around store.
func NewServer(cfg *config.Config, store identity.Store, opts ...Option) (*Server, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	authOpts, err := cfg.AuthOptions()
	if err != nil {
		return nil, err
	}
	authOpts = append(authOpts, jwtauth.WithLogger(o.logger))
	if cfg.CheckAccountStatus {
		authOpts = append(authOpts, jwtauth.WithAccountStatusChecker(timeoutChecker{
			next:    identity.StatusChecker{Store: store},
			timeout: cfg.StoreTimeout,
		}))
	}
	authOpts = append(authOpts, o.authOpts...)

	authCfg, err := jwtauth.NewConfig(authOpts...)
	if err != nil {
		return nil, fmt.Errorf("gateway: auth config: %w", err)
	}

	service := session.NewService(store,
		jwtauth.NewIssuer(authCfg),
		jwtauth.NewVerifier(authCfg),
		session.WithRefreshRotation(cfg.RotateRefreshTokens),
		session.WithPhoneRegion(cfg.PhoneRegion),
		session.WithLogger(o.logger),
		session.WithClock(authCfg.Now),
	)

	s := &Server{
		cfg:  cfg,
		auth: authCfg,
		session: session.NewHandler(service,
			session.WithTimeout(cfg.StoreTimeout),
			session.WithHandlerLogger(o.logger),
		),
		logger: o.logger,
	}

	if cfg.UpstreamURL != "" {
		target, err := url.Parse(cfg.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("gateway: upstream: %w", err)
		}
		s.proxy = newProxy(target, o.logger)
	}

	s.router = gin.New()
	s.router.Use(Recovery(o.logger))
	s.router.Use(RequestLogger(o.logger))
	s.router.Use(CORS(cfg.AllowedOrigins))
	s.router.Use(jwtauth.JWTAuth(authCfg))
	s.setupRoutes()

	s.health = health.NewServer()
	s.grpc = grpc.NewServer(
		grpc.ChainUnaryInterceptor(jwtauth.UnaryServerInterceptor(authCfg)),
		grpc.ChainStreamInterceptor(jwtauth.StreamServerInterceptor(authCfg)),
	)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return s, nil
}

// setupRoutes registers local routes. Everything else falls through to NoRoute.
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	s.session.RegisterRoutes(s.router.Group("/api/v1/auth"))

	s.router.GET("/api/v1/me", s.handleGetCurrentUser())

	s.router.NoRoute(s.handleNoRoute())
}

// handleGetCurrentUser echoes the identity the edge filter established
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := jwtauth.GetIdentity(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": jwtauth.MessageAuthRequired})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": id})
	}
}

// Handler exposes the HTTP router
func (s *Server) Handler() http.Handler {
	return s.router
}

// GRPCServer exposes the gRPC server so callers can register more services
// before serving.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpc
}

// Run listens on the configured addresses and serves until ctx is done.
// An empty GRPCAddr disables the gRPC listener.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	httpLis, err := lc.Listen(ctx, "tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("gateway: listen http: %w", err)
	}

	var grpcLis net.Listener
	if s.cfg.GRPCAddr != "" {
		grpcLis, err = lc.Listen(ctx, "tcp", s.cfg.GRPCAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("gateway: listen grpc: %w", err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve runs the HTTP server on httpLis and, when non-nil, the gRPC server on
// grpcLis. It returns after both have stopped; a nil error means ctx ended
// and shutdown was clean.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server starting", "addr", httpLis.Addr().String())
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: http: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			s.logger.Info("grpc server starting", "addr", grpcLis.Addr().String())
			if err := s.grpc.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gateway: grpc: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")

		s.health.Shutdown()
		if grpcLis != nil {
			s.grpc.GracefulStop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("gateway: http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// timeoutChecker bounds each per-request account status lookup
type timeoutChecker struct {
	next    jwtauth.AccountStatusChecker
	timeout time.Duration
}

func (t timeoutChecker) AccountActive(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.AccountActive(ctx, userID)
}
