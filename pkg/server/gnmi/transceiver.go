package gnmi

import (
	"encoding/json"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
	"github.com/sonic-net/sonic-pmd/pkg/publisher"
)

// handleTransceiverPath serves /sonic/transceiver[name=<port>|*][/pm-info|/dom-info].
func (s *Server) handleTransceiverPath(path, full *gnmi.Path) (*gnmi.Update, error) {
	name, err := extractPortName(full)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid transceiver path: %v", err)
	}
	leaf, err := transceiverLeaf(full)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid transceiver path: %v", err)
	}

	var value interface{}
	if name == wildcard {
		all := make(map[string]interface{})
		for _, port := range s.states.Ports() {
			st, err := s.states.State(port)
			if err != nil {
				continue
			}
			all[port] = portValue(st, leaf)
		}
		value = all
	} else {
		st, err := s.states.State(name)
		if err != nil {
			return nil, status.Errorf(codes.NotFound, "transceiver %s not found", name)
		}
		value = portValue(st, leaf)
	}
	glog.V(3).Infof("Serving %s", pathToString(full))

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to marshal response: %v", err)
	}

	return &gnmi.Update{
		Path: path,
		Val: &gnmi.TypedValue{
			Value: &gnmi.TypedValue_JsonVal{
				JsonVal: jsonBytes,
			},
		},
	}, nil
}

// portValue renders one port; a port without DOM reading has an empty dom-info.
func portValue(st *monitor.State, leaf string) interface{} {
	pm, dom := publisher.Flatten(st)
	if dom == nil {
		dom = map[string]string{}
	}
	switch leaf {
	case leafPMInfo:
		return pm
	case leafDOMInfo:
		return dom
	default:
		return map[string]map[string]string{
			leafPMInfo:  pm,
			leafDOMInfo: dom,
		}
	}
}
