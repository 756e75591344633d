package gnmi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"
	"github.com/openconfig/gnmi/proto/gnmi"
)

// AllPorts selects every port of the daemon.
const AllPorts = "*"

// TransceiverInfo is the pair of attribute maps the daemon publishes for one port.
type TransceiverInfo struct {
	PMInfo  map[string]string `json:"pm-info"`
	DOMInfo map[string]string `json:"dom-info"`
}

// TransceiverPath builds /sonic/transceiver[name=<port>] with an optional leaf
// ("pm-info" or "dom-info").
func TransceiverPath(port, leaf string) *gnmi.Path {
	path := &gnmi.Path{
		Elem: []*gnmi.PathElem{
			{Name: "sonic"},
			{Name: "transceiver", Key: map[string]string{"name": port}},
		},
	}
	if leaf != "" {
		path.Elem = append(path.Elem, &gnmi.PathElem{Name: leaf})
	}
	return path
}

// GetPMInfo retrieves the pm_info map of port.
func (c *Client) GetPMInfo(ctx context.Context, port string) (map[string]string, error) {
	var pm map[string]string
	if err := c.getJSON(ctx, port, "pm-info", &pm); err != nil {
		return nil, err
	}
	return pm, nil
}

// GetDOMInfo retrieves the dom_info map of port; the map is empty when the module
// reports no DOM.
func (c *Client) GetDOMInfo(ctx context.Context, port string) (map[string]string, error) {
	var dom map[string]string
	if err := c.getJSON(ctx, port, "dom-info", &dom); err != nil {
		return nil, err
	}
	return dom, nil
}

// GetTransceivers retrieves both maps for every port, keyed by port name.
func (c *Client) GetTransceivers(ctx context.Context) (map[string]TransceiverInfo, error) {
	var all map[string]TransceiverInfo
	if err := c.getJSON(ctx, AllPorts, "", &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Snapshot reads both maps of each named port through a ONCE subscription.
func (c *Client) Snapshot(ctx context.Context, ports ...string) (map[string]TransceiverInfo, error) {
	paths := make([]*gnmi.Path, 0, len(ports))
	for _, port := range ports {
		if port == "" || port == AllPorts {
			return nil, fmt.Errorf("invalid port name %q", port)
		}
		paths = append(paths, TransceiverPath(port, ""))
	}

	notifications, err := c.SubscribeOnce(ctx, paths)
	if err != nil {
		return nil, err
	}
	if len(notifications) != len(ports) {
		return nil, fmt.Errorf("expected %d notifications, got %d", len(ports), len(notifications))
	}

	all := make(map[string]TransceiverInfo, len(ports))
	for i, n := range notifications {
		if len(n.Update) == 0 {
			return nil, fmt.Errorf("no data received for transceiver %s", ports[i])
		}
		var info TransceiverInfo
		if err := json.Unmarshal(n.Update[0].Val.GetJsonVal(), &info); err != nil {
			return nil, fmt.Errorf("failed to parse transceiver %s: %w", ports[i], err)
		}
		all[ports[i]] = info
	}
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, port, leaf string, v interface{}) error {
	if port == "" {
		return fmt.Errorf("port name is required")
	}

	glog.V(2).Infof("Requesting transceiver %s %s", port, leaf)
	resp, err := c.Get(ctx, []*gnmi.Path{TransceiverPath(port, leaf)}, gnmi.Encoding_JSON)
	if err != nil {
		return fmt.Errorf("failed to get transceiver %s: %w", port, err)
	}

	if len(resp.Notification) == 0 || len(resp.Notification[0].Update) == 0 {
		return fmt.Errorf("no data received for transceiver %s", port)
	}

	update := resp.Notification[0].Update[0]
	jsonVal := update.Val.GetJsonVal()
	if jsonVal == nil {
		return fmt.Errorf("expected JSON response, got %T", update.Val.GetValue())
	}
	if err := json.Unmarshal(jsonVal, v); err != nil {
		return fmt.Errorf("failed to parse transceiver response: %w", err)
	}
	return nil
}
