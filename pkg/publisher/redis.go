package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

// STATE_DB tables written per port.
const (
	PMInfoTable  = "TRANSCEIVER_PM_INFO"
	DOMInfoTable = "TRANSCEIVER_DOM_INFO"

	keySeparator = "|"
)

// Key returns the STATE_DB key of port in table.
func Key(table, port string) string {
	return table + keySeparator + port
}

// PortOf extracts the port name from a table key.
func PortOf(key string) string {
	if i := strings.Index(key, keySeparator); i >= 0 {
		return key[i+1:]
	}
	return key
}

// Writer replaces hashes atomically.
type Writer interface {
	ReplaceHashes(ctx context.Context, hashes map[string]map[string]string) error
}

// Reader reads back published hashes.
type Reader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Redis publishes snapshots to STATE_DB. It implements monitor.Sink.
type Redis struct {
	w Writer
}

// NewRedis returns a publisher writing through w.
func NewRedis(w Writer) *Redis {
	return &Redis{w: w}
}

// Publish replaces both tables of the port in a single transaction, so a reader
// never sees pm_info and dom_info of different generations.
func (r *Redis) Publish(ctx context.Context, st *monitor.State) error {
	pm, dom := Flatten(st)
	err := r.w.ReplaceHashes(ctx, map[string]map[string]string{
		Key(PMInfoTable, st.Port):  pm,
		Key(DOMInfoTable, st.Port): dom,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", st.Port, err)
	}
	glog.V(3).Infof("%s: published generation %d (%d pm, %d dom attributes)",
		st.Port, st.Generation, len(pm), len(dom))
	return nil
}

// Load reads the published maps of port. dom is empty when no reading is stored.
func Load(ctx context.Context, r Reader, port string) (pm, dom map[string]string, err error) {
	if pm, err = r.HGetAll(ctx, Key(PMInfoTable, port)); err != nil {
		return nil, nil, err
	}
	if dom, err = r.HGetAll(ctx, Key(DOMInfoTable, port)); err != nil {
		return nil, nil, err
	}
	return pm, dom, nil
}
