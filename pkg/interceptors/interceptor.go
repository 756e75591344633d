// Package interceptors provides the gRPC interceptors installed on the gNMI server.
package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// Interceptor provides both unary and streaming interceptor logic.
type Interceptor interface {
	UnaryInterceptor() grpc.UnaryServerInterceptor
	StreamInterceptor() grpc.StreamServerInterceptor
}

// Chain runs interceptors in order; the first one sees the call first.
type Chain struct {
	interceptors []Interceptor
}

// NewChain creates a chain of the given interceptors.
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// ServerOptions returns the options installing the chain on a grpc.Server.
func (c *Chain) ServerOptions() []grpc.ServerOption {
	if c == nil || len(c.interceptors) == 0 {
		return nil
	}
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(c.UnaryInterceptor()),
		grpc.StreamInterceptor(c.StreamInterceptor()),
	}
}

// UnaryInterceptor folds the chain into one grpc.UnaryServerInterceptor.
func (c *Chain) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return c.unary(0, ctx, req, info, handler)
	}
}

func (c *Chain) unary(i int, ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, final grpc.UnaryHandler) (interface{}, error) {
	if i == len(c.interceptors) {
		return final(ctx, req)
	}
	next := func(ctx context.Context, req interface{}) (interface{}, error) {
		return c.unary(i+1, ctx, req, info, final)
	}
	return c.interceptors[i].UnaryInterceptor()(ctx, req, info, next)
}

// StreamInterceptor folds the chain into one grpc.StreamServerInterceptor.
func (c *Chain) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return c.stream(0, srv, ss, info, handler)
	}
}

func (c *Chain) stream(i int, srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, final grpc.StreamHandler) error {
	if i == len(c.interceptors) {
		return final(srv, ss)
	}
	next := func(srv interface{}, ss grpc.ServerStream) error {
		return c.stream(i+1, srv, ss, info, final)
	}
	return c.interceptors[i].StreamInterceptor()(srv, ss, info, next)
}
