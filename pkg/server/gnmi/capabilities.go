package gnmi

import (
	"context"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
)

// transceiverModel is the single model served.
var transceiverModel = &gnmi.ModelData{
	Name:         "sonic-transceiver",
	Organization: "SONiC",
	Version:      "1.0.0",
}

// Capabilities advertises the transceiver model and the JSON encodings.
func (s *Server) Capabilities(ctx context.Context, req *gnmi.CapabilityRequest) (*gnmi.CapabilityResponse, error) {
	glog.V(2).Info("Received gNMI Capabilities request")

	return &gnmi.CapabilityResponse{
		SupportedModels:    []*gnmi.ModelData{transceiverModel},
		SupportedEncodings: []gnmi.Encoding{gnmi.Encoding_JSON, gnmi.Encoding_JSON_IETF},
		GNMIVersion:        "0.7.0",
	}, nil
}

// getSupportedPaths lists the served paths, quoted in NotFound errors.
func getSupportedPaths() []string {
	base := "/" + elemSonic + "/" + elemTransceiver + "[" + keyName + "=" + wildcard + "]"
	return []string{base, base + "/" + leafPMInfo, base + "/" + leafDOMInfo}
}
