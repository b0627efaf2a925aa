package jwtauth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor for JWT authentication.
// Methods matching the WithPublicMethods patterns pass without a token.
func UnaryServerInterceptor(cfg *Config) grpc.UnaryServerInterceptor {
	verifier := NewVerifier(cfg)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, err := authorizeGRPC(ctx, cfg, verifier, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns the streaming counterpart of UnaryServerInterceptor
func StreamServerInterceptor(cfg *Config) grpc.StreamServerInterceptor {
	verifier := NewVerifier(cfg)

	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authorizeGRPC(ss.Context(), cfg, verifier, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}

// UnaryClientInterceptor forwards the identity found in the call context to the
// next service as x-user-* metadata, replacing any values already present.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if identity, ok := GetIdentity(ctx); ok {
			md, _ := metadata.FromOutgoingContext(ctx)
			md = md.Copy()
			setIdentityMetadata(md, identity)
			if requestID, ok := GetRequestID(ctx); ok {
				md.Set(lowerRequestID, requestID)
			}
			ctx = metadata.NewOutgoingContext(ctx, md)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

const lowerRequestID = "x-request-id"

// identityStream overrides the stream context with the authenticated one
type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}

func authorizeGRPC(ctx context.Context, cfg *Config, verifier *Verifier, method string) (context.Context, error) {
	startTime := time.Now()

	md, _ := metadata.FromIncomingContext(ctx)
	md = md.Copy()

	// Client-supplied identity never reaches a handler, public or not
	stripIdentityMetadata(md)
	ctx = metadata.NewIncomingContext(ctx, md)

	// Generate request ID for correlation unless the caller sent one
	requestID := uuid.New().String()
	if values := md.Get(lowerRequestID); len(values) > 0 && values[0] != "" {
		requestID = values[0]
	}

	d := authorize(ctx, cfg, verifier, cfg.PublicMethods(), method, func() (string, error) {
		return extractTokenFromMetadata(md)
	})

	if d.public {
		logPublicPass(cfg, requestID, method, d.pattern)
		return WithRequestID(ctx, requestID), nil
	}

	if d.err != nil {
		logAuthFailure(cfg, requestID, method, d.token, d.err, time.Since(startTime))
		return nil, status.Error(grpcCode(d.status), d.message)
	}

	// Inject identity, claims and request ID into context
	identity := d.claims.Identity()
	setIdentityMetadata(md, identity)
	ctx = metadata.NewIncomingContext(ctx, md)
	ctx = WithIdentity(ctx, identity)
	ctx = WithClaims(ctx, d.claims)
	ctx = WithRequestID(ctx, requestID)

	logAuthSuccess(cfg, requestID, method, d.claims, d.token, time.Since(startTime))

	return ctx, nil
}

func grpcCode(httpStatus int) codes.Code {
	if httpStatus == http.StatusServiceUnavailable {
		return codes.Unavailable
	}
	return codes.Unauthenticated
}
