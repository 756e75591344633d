package monitor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/pkg/dom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

type eventKind int

const (
	evPublish eventKind = iota
	evInsert
	evRemove
	evRefresh
)

type event struct {
	kind       eventKind
	src        ImageSource
	generation uint64 // evRefresh: generation the refresh was scheduled for
	done       chan result
}

type result struct {
	outcome Outcome
	err     error
}

func (e event) reply(r result) {
	if e.done != nil {
		e.done <- r
	}
}

type port struct {
	name   string
	family eeprom.Family
	queue  *queue.Queue
	state  atomic.Pointer[State]

	// src is the source of the module currently inserted. Worker only.
	src ImageSource
}

func (m *Monitor) run(p *port) {
	defer m.wg.Done()
	for {
		items, err := p.queue.Get(1)
		if err != nil {
			glog.V(2).Infof("%s: worker exiting: %v", p.name, err)
			return
		}
		for _, item := range items {
			ev := item.(event)
			ev.reply(m.handle(p, ev))
		}
	}
}

func (m *Monitor) handle(p *port, ev event) result {
	switch ev.kind {
	case evPublish:
		m.publish(p.state.Load())
	case evInsert:
		return result{outcome: m.insert(p, ev.src)}
	case evRemove:
		return result{outcome: m.remove(p)}
	case evRefresh:
		m.refresh(p, ev.generation)
	}
	return result{}
}

func (m *Monitor) insert(p *port, src ImageSource) Outcome {
	prev := p.state.Load()
	if prev.Present() {
		glog.Infof("%s: module replaced", p.name)
	}

	st := &State{
		Port:       p.name,
		Family:     p.family,
		Presence:   Present,
		Generation: prev.Generation + 1,
		Source:     describe(src),
	}
	img, err := m.read(p.name, src)
	if err != nil {
		st.Record = transceiver.Unrecognized()
		st.Err = eeprom.NewMalformed("eeprom read failed", err)
	} else {
		st.Record, st.Err = transceiver.Decode(img, p.family)
		if st.Err == nil {
			st.DOM = dom.Decode(img, st.Record)
		}
	}
	logInsert(st)

	p.src = src
	p.state.Store(st)
	m.publish(st)
	return Inserted
}

func (m *Monitor) remove(p *port) Outcome {
	prev := p.state.Load()
	if !prev.Present() {
		glog.V(1).Infof("%s: remove on empty port ignored", p.name)
		return NotPresent
	}

	st := &State{
		Port:       p.name,
		Family:     p.family,
		Presence:   Absent,
		Generation: prev.Generation + 1,
	}
	glog.Infof("%s: module removed", p.name)

	p.src = nil
	p.state.Store(st)
	m.publish(st)
	return Removed
}

func (m *Monitor) refresh(p *port, generation uint64) {
	cur := p.state.Load()
	if cur.Generation != generation || !cur.Present() || p.src == nil {
		glog.V(2).Infof("%s: stale DOM refresh for generation %d dropped", p.name, generation)
		return
	}
	if !transceiver.IsDOMCapable(cur.Record.Connector) {
		return
	}

	next := *cur
	img, err := m.read(p.name, p.src)
	if err != nil {
		glog.Warningf("%s: DOM refresh failed: %v", p.name, err)
		if cur.DOM == nil {
			return
		}
		next.DOM = nil
	} else {
		next.DOM = dom.Decode(img, cur.Record)
	}
	p.state.Store(&next)
	m.publish(&next)
}

// read fetches the image, retrying failed attempts. Each attempt is bounded by
// ReadTimeout even when the source ignores its context.
func (m *Monitor) read(name string, src ImageSource) (eeprom.Image, error) {
	var err error
	for attempt := 0; attempt <= m.opts.ReadRetries; attempt++ {
		var img eeprom.Image
		img, err = m.readOnce(src)
		if err == nil {
			return img, nil
		}
		if m.ctx.Err() != nil {
			break
		}
		glog.V(1).Infof("%s: eeprom read attempt %d failed: %v", name, attempt+1, err)
	}
	return eeprom.Image{}, err
}

func (m *Monitor) readOnce(src ImageSource) (eeprom.Image, error) {
	ctx, cancel := context.WithTimeout(m.ctx, m.opts.ReadTimeout)
	defer cancel()

	type readResult struct {
		img eeprom.Image
		err error
	}
	ch := make(chan readResult, 1)
	go func() {
		img, err := src.ReadImage(ctx)
		ch <- readResult{img, err}
	}()

	select {
	case r := <-ch:
		return r.img, r.err
	case <-ctx.Done():
		return eeprom.Image{}, ctx.Err()
	}
}

func (m *Monitor) publish(st *State) {
	for _, sink := range m.sinks {
		if err := sink.Publish(m.ctx, st); err != nil {
			glog.Errorf("%s: publish generation %d failed: %v", st.Port, st.Generation, err)
		}
	}
}

func logInsert(st *State) {
	switch {
	case st.Err == nil:
		glog.Infof("%s: module inserted: %s (%s %s)", st.Port, st.Record.Connector,
			st.Record.Vendor.Name, st.Record.Vendor.PartNumber)
	case eeprom.KindOf(st.Err) == eeprom.UnknownConnector:
		glog.Infof("%s: module inserted, not recognized: %v", st.Port, st.Err)
	default:
		glog.Warningf("%s: module inserted, eeprom unusable: %v", st.Port, st.Err)
	}
}

func describe(src ImageSource) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}
