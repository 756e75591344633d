package gnmi

import (
	"context"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Get retrieves the requested paths from the target device.
// This implements the gNMI Get RPC for read-only access to module attributes.
func (s *Server) Get(ctx context.Context, req *gnmi.GetRequest) (*gnmi.GetResponse, error) {
	glog.V(2).Infof("Received gNMI Get request for %d paths", len(req.Path))

	if len(req.Path) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no paths specified in Get request")
	}
	if enc := req.GetEncoding(); enc != gnmi.Encoding_JSON && enc != gnmi.Encoding_JSON_IETF {
		return nil, status.Errorf(codes.Unimplemented, "unsupported encoding %s", enc)
	}

	resp := &gnmi.GetResponse{
		Notification: []*gnmi.Notification{
			{
				Timestamp: time.Now().UnixNano(),
				Prefix:    req.GetPrefix(),
				Update:    []*gnmi.Update{},
			},
		},
	}

	for i, path := range req.Path {
		glog.V(3).Infof("Processing path %d: %s", i+1, pathToString(path))

		update, err := s.processPath(req.GetPrefix(), path)
		if err != nil {
			glog.Errorf("Failed to process path %s: %v", pathToString(path), err)
			return nil, err
		}
		resp.Notification[0].Update = append(resp.Notification[0].Update, update)
	}

	glog.V(2).Infof("Get request completed successfully, returning %d updates",
		len(resp.Notification[0].Update))

	return resp, nil
}

// processPath handles individual path requests and routes them to appropriate handlers.
func (s *Server) processPath(prefix, path *gnmi.Path) (*gnmi.Update, error) {
	if path == nil {
		return nil, status.Error(codes.InvalidArgument, "nil path in request")
	}

	full := joinPath(prefix, path)
	switch {
	case isTransceiverPath(full):
		return s.handleTransceiverPath(path, full)
	default:
		return nil, status.Errorf(codes.NotFound, "path not found: %s (supported: %s)",
			pathToString(full), strings.Join(getSupportedPaths(), ", "))
	}
}
