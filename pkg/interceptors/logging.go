package interceptors

import (
	"context"
	"time"

	"github.com/golang/glog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// Logging logs every RPC with its peer, status code and duration. Successful calls
// are logged at verbosity 2.
type Logging struct{}

func (Logging) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(ctx, info.FullMethod, start, err)
		return resp, err
	}
}

func (Logging) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(ss.Context(), info.FullMethod, start, err)
		return err
	}
}

func logCall(ctx context.Context, method string, start time.Time, err error) {
	from := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		from = p.Addr.String()
	}
	elapsed := time.Since(start)
	if err != nil {
		glog.Warningf("%s from %s failed after %v: %s", method, from, elapsed, status.Code(err))
		return
	}
	glog.V(2).Infof("%s from %s completed in %v", method, from, elapsed)
}
