package gnmi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openconfig/gnmi/proto/gnmi"
)

// Path element names.
const (
	elemSonic       = "sonic"
	elemTransceiver = "transceiver"
	keyName         = "name"
	leafPMInfo      = "pm-info"
	leafDOMInfo     = "dom-info"
	wildcard        = "*"
)

// pathToString converts a gNMI path to a string representation for logging and debugging.
// Keys are rendered in sorted order (e.g., transceiver[name=Ethernet0]).
func pathToString(path *gnmi.Path) string {
	if path == nil {
		return "/"
	}

	parts := make([]string, 0, len(path.Elem))
	for _, elem := range path.Elem {
		part := elem.Name
		if len(elem.Key) > 0 {
			keys := make([]string, 0, len(elem.Key))
			for k, v := range elem.Key {
				keys = append(keys, fmt.Sprintf("%s=%s", k, v))
			}
			sort.Strings(keys)
			part += "[" + strings.Join(keys, ",") + "]"
		}
		parts = append(parts, part)
	}

	return "/" + strings.Join(parts, "/")
}

// joinPath prepends the request prefix to path.
func joinPath(prefix, path *gnmi.Path) *gnmi.Path {
	if prefix == nil || len(prefix.Elem) == 0 {
		return path
	}
	elems := make([]*gnmi.PathElem, 0, len(prefix.Elem)+len(path.Elem))
	elems = append(elems, prefix.Elem...)
	elems = append(elems, path.Elem...)
	return &gnmi.Path{Origin: path.Origin, Target: path.Target, Elem: elems}
}

// isTransceiverPath checks if the path starts with /sonic/transceiver.
func isTransceiverPath(path *gnmi.Path) bool {
	return len(path.Elem) >= 2 &&
		path.Elem[0].Name == elemSonic &&
		path.Elem[1].Name == elemTransceiver
}

// extractPortName extracts the port from /sonic/transceiver[name=<port>]/...
func extractPortName(path *gnmi.Path) (string, error) {
	if !isTransceiverPath(path) {
		return "", fmt.Errorf("not a transceiver path: %s", pathToString(path))
	}

	name, ok := path.Elem[1].Key[keyName]
	if !ok || name == "" {
		return "", fmt.Errorf("port not specified, expected format: /sonic/transceiver[name=<port>]/...")
	}
	return name, nil
}

// transceiverLeaf returns the requested leaf, or "" for the whole transceiver.
func transceiverLeaf(path *gnmi.Path) (string, error) {
	switch len(path.Elem) {
	case 2:
		return "", nil
	case 3:
		switch leaf := path.Elem[2].Name; leaf {
		case leafPMInfo, leafDOMInfo:
			return leaf, nil
		default:
			return "", fmt.Errorf("unsupported transceiver leaf %q", leaf)
		}
	default:
		return "", fmt.Errorf("invalid transceiver path: %s", pathToString(path))
	}
}
