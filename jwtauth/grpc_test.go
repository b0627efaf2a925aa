package jwtauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func grpcConfig(opts ...ConfigOption) *Config {
	base := []ConfigOption{
		WithHS512(testSecret),
		WithPublicMethods("/grpc.health.v1.Health/**"),
	}
	return mustCreateConfig(append(base, opts...)...)
}

// TestUnaryServerInterceptor tests authentication of unary calls
func TestUnaryServerInterceptor(t *testing.T) {
	cfg := grpcConfig()
	interceptor := UnaryServerInterceptor(cfg)
	pair, err := NewIssuer(cfg).IssuePair(Identity{UserID: "u1", Roles: []string{"ROLE_USER"}}, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue tokens: %v", err)
	}

	tests := []struct {
		name         string
		method       string
		md           metadata.MD
		wantCode     codes.Code
		wantIdentity bool
	}{
		{
			name:     "public health check",
			method:   "/grpc.health.v1.Health/Check",
			wantCode: codes.OK,
		},
		{
			name:     "missing metadata",
			method:   "/orders.v1.OrderService/List",
			wantCode: codes.Unauthenticated,
		},
		{
			name:         "valid access token",
			method:       "/orders.v1.OrderService/List",
			md:           metadata.Pairs("authorization", "Bearer "+pair.AccessToken),
			wantCode:     codes.OK,
			wantIdentity: true,
		},
		{
			name:     "refresh token",
			method:   "/orders.v1.OrderService/List",
			md:       metadata.Pairs("authorization", "Bearer "+pair.RefreshToken),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "missing bearer prefix",
			method:   "/orders.v1.OrderService/List",
			md:       metadata.Pairs("authorization", pair.AccessToken),
			wantCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}

			var handlerCtx context.Context
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				handlerCtx = ctx
				return "ok", nil
			}

			_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)
			if status.Code(err) != tt.wantCode {
				t.Fatalf("Expected %v, got %v", tt.wantCode, err)
			}
			if tt.wantCode != codes.OK {
				if handlerCtx != nil {
					t.Error("Handler ran for a rejected call")
				}
				return
			}

			identity, ok := GetIdentity(handlerCtx)
			if ok != tt.wantIdentity {
				t.Fatalf("Expected identity=%v, got %v", tt.wantIdentity, ok)
			}
			if ok && (identity.UserID != "u1" || !identity.HasRole("ROLE_USER")) {
				t.Errorf("Unexpected identity %+v", identity)
			}
			if _, ok := GetRequestID(handlerCtx); !ok {
				t.Error("Expected request id in handler context")
			}
		})
	}
}

func TestUnaryServerInterceptorStatusUnavailable(t *testing.T) {
	cfg := grpcConfig(WithAccountStatusChecker(&stubStatusChecker{err: errors.New("db down")}))
	token, _, _ := NewIssuer(cfg).Issue(Identity{UserID: "u1"}, KindAccess, time.Now())

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	_, err := UnaryServerInterceptor(cfg)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/orders.v1.OrderService/List"},
		func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil })

	if status.Code(err) != codes.Unavailable {
		t.Fatalf("Expected Unavailable, got %v", err)
	}
	if status.Convert(err).Message() != MessageServiceUnavailable {
		t.Errorf("Unexpected message %q", status.Convert(err).Message())
	}
}

// TestUnaryServerInterceptorOverwritesSpoofedMetadata tests that caller x-user-* metadata never reaches a handler
func TestUnaryServerInterceptorOverwritesSpoofedMetadata(t *testing.T) {
	cfg := grpcConfig()
	token, _, _ := NewIssuer(cfg).Issue(Identity{UserID: "u1", Roles: []string{"ROLE_USER"}}, KindAccess, time.Now())
	interceptor := UnaryServerInterceptor(cfg)

	spoofed := func(pairs ...string) context.Context {
		md := metadata.Pairs("x-user-id", "admin", "x-user-roles", "ROLE_ADMIN", "x-trace", "keep")
		return metadata.NewIncomingContext(context.Background(), metadata.Join(md, metadata.Pairs(pairs...)))
	}

	tests := []struct {
		name     string
		method   string
		ctx      context.Context
		wantID   string
		wantRole string
	}{
		{
			name:     "protected method",
			method:   "/orders.v1.OrderService/List",
			ctx:      spoofed("authorization", "Bearer "+token),
			wantID:   "u1",
			wantRole: "ROLE_USER",
		},
		{
			name:   "public method",
			method: "/grpc.health.v1.Health/Check",
			ctx:    spoofed(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var md metadata.MD
			_, err := interceptor(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method},
				func(ctx context.Context, req interface{}) (interface{}, error) {
					md, _ = metadata.FromIncomingContext(ctx)
					return nil, nil
				})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			id, ok := IdentityFromMetadata(md)
			if tt.wantID == "" {
				if ok {
					t.Errorf("Spoofed identity survived on a public method: %+v", id)
				}
			} else {
				if !ok || id.UserID != tt.wantID {
					t.Errorf("Expected user %q, got %+v", tt.wantID, id)
				}
				if got := md.Get("x-user-roles"); len(got) != 1 || got[0] != tt.wantRole {
					t.Errorf("Expected roles %q, got %v", tt.wantRole, got)
				}
			}
			if got := md.Get("x-trace"); len(got) != 1 || got[0] != "keep" {
				t.Errorf("Unrelated metadata dropped: %v", got)
			}
		})
	}

	// The caller's metadata map is left untouched
	original, _ := metadata.FromIncomingContext(tests[0].ctx)
	if got := original.Get("x-user-id"); len(got) != 1 || got[0] != "admin" {
		t.Errorf("Caller metadata was mutated: %v", got)
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	cfg := grpcConfig()
	token, _, _ := NewIssuer(cfg).Issue(Identity{UserID: "u1"}, KindAccess, time.Now())
	interceptor := StreamServerInterceptor(cfg)
	info := &grpc.StreamServerInfo{FullMethod: "/orders.v1.OrderService/Watch"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	var got Identity
	err := interceptor(nil, &fakeServerStream{ctx: ctx}, info, func(srv interface{}, ss grpc.ServerStream) error {
		got = MustGetIdentity(ss.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("Expected u1, got %q", got.UserID)
	}

	err = interceptor(nil, &fakeServerStream{ctx: context.Background()}, info, func(interface{}, grpc.ServerStream) error {
		t.Error("Handler ran without a token")
		return nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}
}

// TestUnaryClientInterceptor tests identity propagation to the next hop
func TestUnaryClientInterceptor(t *testing.T) {
	identity := Identity{UserID: "u1", Email: "a@x.io", Roles: []string{"ROLE_USER", "ROLE_PREMIUM"}, Plan: "PREMIUM"}
	ctx := WithIdentity(context.Background(), identity)
	ctx = WithRequestID(ctx, "req-1")
	ctx = metadata.AppendToOutgoingContext(ctx, "x-user-id", "spoofed", "x-trace", "keep")

	var sent metadata.MD
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		sent, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}

	if err := UnaryClientInterceptor()(ctx, "/orders.v1.OrderService/List", nil, nil, nil, invoker); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	forwarded, ok := IdentityFromMetadata(sent)
	if !ok {
		t.Fatal("Expected identity in outgoing metadata")
	}
	if forwarded.UserID != "u1" || forwarded.Plan != "PREMIUM" || len(forwarded.Roles) != 2 {
		t.Errorf("Unexpected forwarded identity %+v", forwarded)
	}
	if got := sent.Get("x-user-id"); len(got) != 1 {
		t.Errorf("Expected a single x-user-id value, got %v", got)
	}
	if got := sent.Get("x-trace"); len(got) != 1 || got[0] != "keep" {
		t.Errorf("Unrelated metadata dropped: %v", got)
	}
	if got := sent.Get("x-request-id"); len(got) != 1 || got[0] != "req-1" {
		t.Errorf("Expected request id forwarded, got %v", got)
	}
}

func TestUnaryClientInterceptorWithoutIdentity(t *testing.T) {
	var sent metadata.MD
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		sent, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	if err := UnaryClientInterceptor()(context.Background(), "/x/Y", nil, nil, nil, invoker); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := IdentityFromMetadata(sent); ok {
		t.Error("Identity forwarded from an anonymous context")
	}
}
