// Package monitor owns the per-port module state machine.
//
// Every port gets a worker goroutine that drains its own FIFO event queue, so events
// for one port are applied in order while ports never contend with each other. The
// worker is the only writer of a port's State; readers load the current snapshot
// through an atomic pointer.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/golang/glog"
	"github.com/maruel/natural"

	"github.com/sonic-net/sonic-pmd/pkg/dom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

var (
	// ErrNoSuchPort is returned for events addressed to a port missing from the table.
	ErrNoSuchPort = errors.New("no such interface")
	// ErrStopped is returned once the monitor has been stopped.
	ErrStopped = errors.New("monitor stopped")
)

// Presence of a module in its cage.
type Presence int

const (
	Absent Presence = iota
	Present
)

func (p Presence) String() string {
	if p == Present {
		return "present"
	}
	return "absent"
}

// Outcome is the effect an insert or remove event had on its port.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Removed
	NotPresent
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	case NotPresent:
		return "not present"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// State is an immutable snapshot of one port. A new value is stored for every change.
type State struct {
	Port       string
	Family     eeprom.Family
	Presence   Presence
	Record     *transceiver.Record // nil when absent
	DOM        *dom.Reading        // nil when unavailable
	Generation uint64

	// Source describes where the image was read from.
	Source string
	// Err is the decode failure behind an unrecognized record.
	Err error
}

// Present reports whether a module occupies the port.
func (s *State) Present() bool {
	return s != nil && s.Presence == Present
}

// ImageSource reads the EEPROM image of an inserted module.
type ImageSource interface {
	ReadImage(ctx context.Context) (eeprom.Image, error)
}

// ImageFunc adapts a function to ImageSource.
type ImageFunc func(ctx context.Context) (eeprom.Image, error)

func (f ImageFunc) ReadImage(ctx context.Context) (eeprom.Image, error) { return f(ctx) }

// Sink receives every snapshot after it has been stored.
type Sink interface {
	Publish(ctx context.Context, st *State) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, st *State) error

func (f SinkFunc) Publish(ctx context.Context, st *State) error { return f(ctx, st) }

// PortSpec declares one port of the platform.
type PortSpec struct {
	Name   string
	Family eeprom.Family
}

// Options tune the monitor.
type Options struct {
	// ReadTimeout bounds every EEPROM read attempt.
	ReadTimeout time.Duration
	// ReadRetries is the number of extra attempts after a failed read.
	ReadRetries int
	// DOMInterval is the period of DOM refreshes; zero disables them.
	DOMInterval time.Duration
	// QueueHint sizes the initial event queue of each port.
	QueueHint int64
}

// DefaultOptions returns the options used by the daemon when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ReadTimeout: 2 * time.Second,
		ReadRetries: 2,
		DOMInterval: 10 * time.Second,
		QueueHint:   8,
	}
}

// Monitor tracks the modules of a fixed set of ports.
type Monitor struct {
	opts  Options
	sinks []Sink
	ports map[string]*port
	names []string

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds the port table. It is never modified afterwards.
func New(specs []PortSpec, opts Options, sinks ...Sink) (*Monitor, error) {
	if len(specs) == 0 {
		return nil, errors.New("no ports configured")
	}
	def := DefaultOptions()
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.ReadRetries < 0 {
		opts.ReadRetries = 0
	}
	if opts.QueueHint <= 0 {
		opts.QueueHint = def.QueueHint
	}

	m := &Monitor{
		opts:  opts,
		sinks: sinks,
		ports: make(map[string]*port, len(specs)),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, errors.New("port without a name")
		}
		if _, dup := m.ports[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate port %q", spec.Name)
		}
		p := &port{
			name:   spec.Name,
			family: spec.Family,
			queue:  queue.New(opts.QueueHint),
		}
		p.state.Store(&State{Port: spec.Name, Family: spec.Family, Presence: Absent})
		m.ports[spec.Name] = p
		m.names = append(m.names, spec.Name)
	}
	sort.Sort(natural.StringSlice(m.names))
	return m, nil
}

// Start launches the port workers and publishes the initial absent state of every
// port. It returns immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)
		for _, name := range m.names {
			p := m.ports[name]
			if err := p.queue.Put(event{kind: evPublish}); err != nil {
				glog.Errorf("%s: failed to queue initial state: %v", name, err)
			}
			m.wg.Add(1)
			go m.run(p)
		}
		if m.opts.DOMInterval > 0 {
			m.wg.Add(1)
			go m.refreshLoop(m.opts.DOMInterval)
		}
		glog.Infof("Monitoring %d ports", len(m.names))
	})
}

// Stop terminates the workers and waits for them. Events still queued fail with
// ErrStopped.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		for _, name := range m.names {
			for _, item := range m.ports[name].queue.Dispose() {
				item.(event).reply(result{err: ErrStopped})
			}
		}
		m.wg.Wait()
		glog.Info("Module monitor stopped")
	})
}

// Insert presents the module readable through src on port and waits until the
// worker has applied it. Inserting into an occupied port replaces the module.
func (m *Monitor) Insert(ctx context.Context, name string, src ImageSource) (Outcome, error) {
	if src == nil {
		return 0, errors.New("nil image source")
	}
	return m.submit(ctx, name, event{kind: evInsert, src: src})
}

// Remove empties port and waits until the worker has applied it. Removing from an
// empty port reports NotPresent and changes nothing.
func (m *Monitor) Remove(ctx context.Context, name string) (Outcome, error) {
	return m.submit(ctx, name, event{kind: evRemove})
}

// RefreshDOM schedules a DOM re-read on every port holding a DOM capable module.
// Refreshes are dropped by the worker when the module changed in the meantime.
func (m *Monitor) RefreshDOM() {
	for _, name := range m.names {
		p := m.ports[name]
		st := p.state.Load()
		if !st.Present() || !transceiver.IsDOMCapable(st.Record.Connector) {
			continue
		}
		if err := p.queue.Put(event{kind: evRefresh, generation: st.Generation}); err != nil {
			return
		}
	}
}

// Ports returns the port names in natural order.
func (m *Monitor) Ports() []string {
	return append([]string(nil), m.names...)
}

// HasPort reports whether name is in the port table.
func (m *Monitor) HasPort(name string) bool {
	_, ok := m.ports[name]
	return ok
}

// State returns the current snapshot of port.
func (m *Monitor) State(name string) (*State, error) {
	p, ok := m.ports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPort, name)
	}
	return p.state.Load(), nil
}

// States returns the current snapshot of every port in natural order.
func (m *Monitor) States() []*State {
	states := make([]*State, 0, len(m.names))
	for _, name := range m.names {
		states = append(states, m.ports[name].state.Load())
	}
	return states
}

func (m *Monitor) submit(ctx context.Context, name string, ev event) (Outcome, error) {
	p, ok := m.ports[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchPort, name)
	}
	ev.done = make(chan result, 1)
	if err := p.queue.Put(ev); err != nil {
		return 0, ErrStopped
	}
	select {
	case r := <-ev.done:
		return r.outcome, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (m *Monitor) refreshLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.RefreshDOM()
		case <-m.ctx.Done():
			return
		}
	}
}
