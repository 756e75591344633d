// Package server provides the gRPC server exposing the module daemon's read-only
// query surface. It supports both TLS and insecure listeners and enables gRPC
// reflection for tools such as grpcurl.
package server

import (
	"net"
	"os"

	"github.com/golang/glog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"
)

// Server owns the gRPC server and its listener.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServerWithTLS creates a server listening on addr. When useTLS is set, certFile
// and keyFile must name a PEM certificate and key. extra is appended to the server
// options.
func NewServerWithTLS(addr string, useTLS bool, certFile, keyFile string, extra ...grpc.ServerOption) (*Server, error) {
	glog.V(1).Infof("Creating new server listening on %s (TLS: %t)", addr, useTLS)

	opts := append([]grpc.ServerOption(nil), extra...)
	if useTLS {
		if _, err := os.Stat(certFile); err != nil {
			glog.Errorf("TLS certificate file not usable: %s", certFile)
			return nil, err
		}
		if _, err := os.Stat(keyFile); err != nil {
			glog.Errorf("TLS key file not usable: %s", keyFile)
			return nil, err
		}
		creds, err := credentials.NewServerTLSFromFile(certFile, keyFile)
		if err != nil {
			glog.Errorf("Failed to load TLS credentials: %v", err)
			return nil, err
		}
		opts = append(opts, grpc.Creds(creds))
		glog.V(1).Infof("TLS enabled with cert: %s, key: %s", certFile, keyFile)
	} else {
		// nosemgrep: go.grpc.security.grpc-server-insecure-connection.grpc-server-insecure-connection
		glog.V(1).Info("TLS disabled - using insecure connection")
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		glog.Errorf("Failed to listen on %s: %v", addr, err)
		return nil, err
	}

	grpcServer := grpc.NewServer(opts...)
	reflection.Register(grpcServer)

	glog.V(1).Infof("Server created successfully, listening on %s", lis.Addr().String())
	return &Server{
		grpcServer: grpcServer,
		listener:   lis,
	}, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves requests until the server is stopped.
func (s *Server) Start() error {
	glog.Infof("Starting gRPC server on %s", s.listener.Addr().String())
	return s.grpcServer.Serve(s.listener)
}

// Stop waits for in-flight RPCs and stops the server.
func (s *Server) Stop() {
	glog.Info("Gracefully stopping server...")
	s.grpcServer.GracefulStop()
	glog.Info("Server stopped")
}
