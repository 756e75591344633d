package interceptors

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Metrics counts RPCs by method and status code.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics registers the request counter on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmd",
			Subsystem: "grpc",
			Name:      "requests_total",
			Help:      "gRPC requests handled, by method and status code.",
		}, []string{"method", "code"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		m.observe(info.FullMethod, err)
		return resp, err
	}
}

func (m *Metrics) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, ss)
		m.observe(info.FullMethod, err)
		return err
	}
}

func (m *Metrics) observe(method string, err error) {
	m.requests.WithLabelValues(method, status.Code(err).String()).Inc()
}
