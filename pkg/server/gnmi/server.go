// Package gnmi serves the published module attributes over a read-only gNMI service.
package gnmi

import (
	"context"

	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

// StateReader is the view of the module monitor the server needs.
type StateReader interface {
	Ports() []string
	State(name string) (*monitor.State, error)
}

// Server implements the gNMI gRPC service for transceiver state.
// It provides capabilities discovery and read-only access to the pm_info and
// dom_info attributes of every port.
type Server struct {
	gnmi.UnimplementedGNMIServer
	states StateReader
}

// NewServer creates a new gNMI server reading snapshots from states.
func NewServer(states StateReader) *Server {
	return &Server{
		states: states,
	}
}

// Set is rejected; module attributes are written by the monitor only.
func (s *Server) Set(ctx context.Context, req *gnmi.SetRequest) (*gnmi.SetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "module attributes are read-only")
}
