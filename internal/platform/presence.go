package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

const presenceRetries = 2

// Target receives the insert and remove events derived from presence changes.
type Target interface {
	Insert(ctx context.Context, name string, src monitor.ImageSource) (monitor.Outcome, error)
	Remove(ctx context.Context, name string) (monitor.Outcome, error)
}

// Poller samples the presence file of every watched port and turns edges into
// module events.
type Poller struct {
	ports    []Port
	target   Target
	interval time.Duration
	present  map[string]bool
}

// NewPoller returns a poller over the given ports. Ports without a presence file are
// ignored.
func NewPoller(ports []Port, target Target, interval time.Duration) *Poller {
	p := &Poller{target: target, interval: interval, present: make(map[string]bool)}
	for _, port := range ports {
		if port.Presence != "" && port.EEPROM != "" {
			p.ports = append(p.ports, port)
		}
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if len(p.ports) == 0 {
		return
	}
	glog.V(1).Infof("Polling presence of %d ports every %v", len(p.ports), p.interval)
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll samples every port once.
func (p *Poller) Poll(ctx context.Context) {
	for _, port := range p.ports {
		present, err := readPresence(port.Presence)
		if err != nil {
			glog.Errorf("unable to read module presence: %s: %v", port.Name, err)
			continue
		}
		if present == p.present[port.Name] {
			continue
		}

		if present {
			_, err = p.target.Insert(ctx, port.Name, port.Source())
		} else {
			_, err = p.target.Remove(ctx, port.Name)
		}
		if err != nil {
			glog.Errorf("%s: presence change not applied: %v", port.Name, err)
			continue
		}
		p.present[port.Name] = present
	}
}

func readPresence(path string) (bool, error) {
	var err error
	for attempt := 0; attempt <= presenceRetries; attempt++ {
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			return parsePresence(data)
		}
		glog.V(2).Infof("module presence read failed, retrying: %s", path)
	}
	return false, err
}

func parsePresence(data []byte) (bool, error) {
	s := string(bytes.TrimSpace(data))
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return false, fmt.Errorf("invalid presence value %q", s)
	}
	return v != 0, nil
}
