package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom/eepromtest"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

type recorder struct {
	mu     sync.Mutex
	states []*State
}

func (r *recorder) Publish(_ context.Context, st *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
	return nil
}

func (r *recorder) all() []*State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*State(nil), r.states...)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) last() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func image(img eeprom.Image) ImageFunc {
	return func(context.Context) (eeprom.Image, error) { return img, nil }
}

var testPorts = []PortSpec{
	{Name: "Ethernet10", Family: eeprom.FamilySFP},
	{Name: "Ethernet2", Family: eeprom.FamilySFP},
	{Name: "Ethernet1", Family: eeprom.FamilySFP},
	{Name: "Ethernet52", Family: eeprom.FamilyQSFP},
}

func startMonitor(t *testing.T, opts Options) (*Monitor, *recorder) {
	t.Helper()
	rec := &recorder{}
	m, err := New(testPorts, opts, rec)
	require.NoError(t, err)
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	require.Eventually(t, func() bool { return rec.len() == len(testPorts) },
		time.Second, 5*time.Millisecond)
	return m, rec
}

func testOptions() Options {
	return Options{ReadTimeout: 200 * time.Millisecond, ReadRetries: 2}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)

	_, err = New([]PortSpec{{Name: "Ethernet1"}, {Name: "Ethernet1"}}, Options{})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]PortSpec{{Name: ""}}, Options{})
	assert.Error(t, err)

	m, err := New(testPorts, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ethernet1", "Ethernet2", "Ethernet10", "Ethernet52"}, m.Ports())
	assert.True(t, m.HasPort("Ethernet52"))
	assert.False(t, m.HasPort("Ethernet0"))
	assert.Equal(t, DefaultOptions().ReadTimeout, m.opts.ReadTimeout)
}

func TestInitialState(t *testing.T) {
	m, rec := startMonitor(t, testOptions())

	for _, st := range rec.all() {
		assert.Equal(t, Absent, st.Presence, st.Port)
		assert.Nil(t, st.Record)
		assert.Nil(t, st.DOM)
		assert.Zero(t, st.Generation)
	}
	for _, st := range m.States() {
		assert.False(t, st.Present())
	}
	st, err := m.State("Ethernet52")
	require.NoError(t, err)
	assert.Equal(t, eeprom.FamilyQSFP, st.Family)
}

func TestInsertRemove(t *testing.T) {
	m, rec := startMonitor(t, testOptions())
	ctx := context.Background()

	out, err := m.Insert(ctx, "Ethernet1", image(eepromtest.AvagoSR().Image()))
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)

	st, err := m.State("Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, Present, st.Presence)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, transceiver.SFPSR, st.Record.Connector)
	assert.NoError(t, st.Err)
	require.NotNil(t, st.DOM)
	assert.InDelta(t, 35.5, st.DOM.Temperature, 0.01)
	assert.Same(t, st, rec.last())

	out, err = m.Remove(ctx, "Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, Removed, out)
	st, _ = m.State("Ethernet1")
	assert.Equal(t, Absent, st.Presence)
	assert.Equal(t, uint64(2), st.Generation)
	assert.Nil(t, st.Record)
	assert.Nil(t, st.DOM)
	assert.Same(t, st, rec.last())

	published := rec.len()
	out, err = m.Remove(ctx, "Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, NotPresent, out)
	st, _ = m.State("Ethernet1")
	assert.Equal(t, uint64(2), st.Generation)
	assert.Equal(t, published, rec.len())
}

func TestHotSwap(t *testing.T) {
	m, _ := startMonitor(t, testOptions())
	ctx := context.Background()

	_, err := m.Insert(ctx, "Ethernet2", image(eepromtest.MolexDAC().Image()))
	require.NoError(t, err)
	st, _ := m.State("Ethernet2")
	require.NotNil(t, st.Record.CableLength)
	assert.Nil(t, st.DOM)

	out, err := m.Insert(ctx, "Ethernet2", image(eepromtest.AvagoSR().Image()))
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)
	st, _ = m.State("Ethernet2")
	assert.Equal(t, uint64(2), st.Generation)
	assert.Equal(t, transceiver.SFPSR, st.Record.Connector)
	assert.Nil(t, st.Record.CableLength)
	assert.Empty(t, st.Record.CableTechnology)
	assert.NotNil(t, st.DOM)
}

func TestDegradedInsert(t *testing.T) {
	m, _ := startMonitor(t, testOptions())
	ctx := context.Background()

	tests := []struct {
		name string
		port string
		src  ImageSource
		kind eeprom.DecodeKind
	}{
		{
			name: "corrupted",
			port: "Ethernet1",
			src:  image(eeprom.SplitImage(eepromtest.AvagoSRCorrupted())),
			kind: eeprom.Malformed,
		},
		{
			name: "wrong family",
			port: "Ethernet52",
			src:  image(eepromtest.AvagoSR().Image()),
			kind: eeprom.Malformed,
		},
		{
			name: "read error",
			port: "Ethernet2",
			src: ImageFunc(func(context.Context) (eeprom.Image, error) {
				return eeprom.Image{}, errors.New("i2c nack")
			}),
			kind: eeprom.Malformed,
		},
		{
			name: "unknown connector",
			port: "Ethernet10",
			src: func() ImageSource {
				sfp := eepromtest.AvagoSR()
				sfp.TenGig = 0
				return image(sfp.Image())
			}(),
			kind: eeprom.UnknownConnector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Insert(ctx, tt.port, tt.src)
			require.NoError(t, err)
			assert.Equal(t, Inserted, out)

			st, _ := m.State(tt.port)
			assert.Equal(t, Present, st.Presence)
			assert.Equal(t, transceiver.Unrecognized(), st.Record)
			assert.Nil(t, st.DOM)
			require.Error(t, st.Err)
			assert.Equal(t, tt.kind, eeprom.KindOf(st.Err))
		})
	}
}

func TestReadRetries(t *testing.T) {
	m, _ := startMonitor(t, testOptions())
	ctx := context.Background()

	var calls int32
	flaky := ImageFunc(func(context.Context) (eeprom.Image, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return eeprom.Image{}, errors.New("busy")
		}
		return eepromtest.MellanoxCR4().Image(), nil
	})
	_, err := m.Insert(ctx, "Ethernet52", flaky)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	st, _ := m.State("Ethernet52")
	assert.True(t, st.Record.Supported())

	atomic.StoreInt32(&calls, 0)
	broken := ImageFunc(func(context.Context) (eeprom.Image, error) {
		atomic.AddInt32(&calls, 1)
		return eeprom.Image{}, errors.New("no ack")
	})
	_, err = m.Insert(ctx, "Ethernet52", broken)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	st, _ = m.State("Ethernet52")
	assert.False(t, st.Record.Supported())
	assert.ErrorContains(t, st.Err, "no ack")
}

func TestReadTimeout(t *testing.T) {
	m, _ := startMonitor(t, Options{ReadTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	release := make(chan struct{})
	defer close(release)
	stuck := ImageFunc(func(context.Context) (eeprom.Image, error) {
		<-release
		return eeprom.Image{}, nil
	})

	start := time.Now()
	_, err := m.Insert(ctx, "Ethernet1", stuck)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	st, _ := m.State("Ethernet1")
	assert.Equal(t, transceiver.Unrecognized(), st.Record)
	assert.Equal(t, eeprom.Malformed, eeprom.KindOf(st.Err))
	assert.ErrorIs(t, st.Err, context.DeadlineExceeded)
}

func TestNoSuchPort(t *testing.T) {
	m, _ := startMonitor(t, testOptions())

	_, err := m.Insert(context.Background(), "Ethernet99", image(eepromtest.AvagoSR().Image()))
	assert.ErrorIs(t, err, ErrNoSuchPort)
	_, err = m.Remove(context.Background(), "Ethernet99")
	assert.ErrorIs(t, err, ErrNoSuchPort)
	_, err = m.State("Ethernet99")
	assert.ErrorIs(t, err, ErrNoSuchPort)
}

func TestRepeatedCycles(t *testing.T) {
	m, _ := startMonitor(t, testOptions())
	ctx := context.Background()

	var records []*transceiver.Record
	for i := 0; i < 3; i++ {
		_, err := m.Insert(ctx, "Ethernet52", image(eepromtest.AvagoSR4().Image()))
		require.NoError(t, err)
		st, _ := m.State("Ethernet52")
		records = append(records, st.Record)
		_, err = m.Remove(ctx, "Ethernet52")
		require.NoError(t, err)
	}
	assert.Equal(t, records[0], records[1])
	assert.Equal(t, records[1], records[2])

	st, _ := m.State("Ethernet52")
	assert.Equal(t, uint64(6), st.Generation)
	assert.Nil(t, st.Record)
}

func TestRefreshDOM(t *testing.T) {
	m, rec := startMonitor(t, testOptions())
	ctx := context.Background()

	var temp atomic.Value
	temp.Store(40.0)
	src := ImageFunc(func(context.Context) (eeprom.Image, error) {
		sfp := eepromtest.AvagoSR()
		sfp.Diag.Temperature = temp.Load().(float64)
		return sfp.Image(), nil
	})
	_, err := m.Insert(ctx, "Ethernet1", src)
	require.NoError(t, err)
	_, err = m.Insert(ctx, "Ethernet2", image(eepromtest.MolexDAC().Image()))
	require.NoError(t, err)
	published := rec.len()

	temp.Store(52.5)
	m.RefreshDOM()
	require.Eventually(t, func() bool { return rec.len() == published+1 },
		time.Second, 5*time.Millisecond)

	st := rec.last()
	assert.Equal(t, "Ethernet1", st.Port)
	assert.Equal(t, uint64(1), st.Generation)
	assert.InDelta(t, 52.5, st.DOM.Temperature, 0.01)
}

func TestStaleRefreshDropped(t *testing.T) {
	m, rec := startMonitor(t, testOptions())
	ctx := context.Background()

	_, err := m.Insert(ctx, "Ethernet1", image(eepromtest.AvagoSR().Image()))
	require.NoError(t, err)
	_, err = m.Insert(ctx, "Ethernet1", image(eepromtest.AvagoSR().Image()))
	require.NoError(t, err)
	published := rec.len()

	require.NoError(t, m.ports["Ethernet1"].queue.Put(event{kind: evRefresh, generation: 1}))
	// A remove queued behind the refresh proves the refresh was processed.
	_, err = m.Remove(ctx, "Ethernet1")
	require.NoError(t, err)

	assert.Equal(t, published+1, rec.len())
	assert.Equal(t, Absent, rec.last().Presence)
}

func TestRefreshDOMReadFailure(t *testing.T) {
	m, rec := startMonitor(t, testOptions())
	ctx := context.Background()

	var fail atomic.Bool
	src := ImageFunc(func(context.Context) (eeprom.Image, error) {
		if fail.Load() {
			return eeprom.Image{}, errors.New("i2c timeout")
		}
		return eepromtest.AvagoSR().Image(), nil
	})
	_, err := m.Insert(ctx, "Ethernet1", src)
	require.NoError(t, err)
	st, err := m.State("Ethernet1")
	require.NoError(t, err)
	require.NotNil(t, st.DOM)
	published := rec.len()

	fail.Store(true)
	m.RefreshDOM()
	require.Eventually(t, func() bool { return rec.len() == published+1 },
		time.Second, 5*time.Millisecond)

	last := rec.last()
	assert.Equal(t, "Ethernet1", last.Port)
	assert.Equal(t, uint64(1), last.Generation)
	assert.Equal(t, transceiver.SFPSR, last.Record.Connector)
	assert.Nil(t, last.DOM)
	st, err = m.State("Ethernet1")
	require.NoError(t, err)
	assert.Nil(t, st.DOM)

	// Without a reading to clear, a failed refresh publishes nothing.
	m.RefreshDOM()
	_, err = m.Remove(ctx, "Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, published+2, rec.len())
}

func TestPortsIndependent(t *testing.T) {
	opts := testOptions()
	opts.ReadTimeout = 5 * time.Second
	m, _ := startMonitor(t, opts)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	blocked := ImageFunc(func(ctx context.Context) (eeprom.Image, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return eeprom.Image{}, ctx.Err()
		}
		return eepromtest.AvagoSR().Image(), nil
	})
	done := make(chan error, 1)
	go func() {
		_, err := m.Insert(ctx, "Ethernet1", blocked)
		done <- err
	}()
	<-started

	begin := time.Now()
	_, err := m.Insert(ctx, "Ethernet2", image(eepromtest.MolexDAC().Image()))
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), time.Second)
	st, err := m.State("Ethernet2")
	require.NoError(t, err)
	assert.Equal(t, transceiver.SFPDAC, st.Record.Connector)

	select {
	case <-done:
		t.Fatal("insert on Ethernet1 finished before its read was released")
	default:
	}
	close(release)
	require.NoError(t, <-done)
	st, err = m.State("Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, transceiver.SFPSR, st.Record.Connector)
}

func TestPeriodicRefresh(t *testing.T) {
	opts := testOptions()
	opts.DOMInterval = 10 * time.Millisecond
	m, rec := startMonitor(t, opts)

	_, err := m.Insert(context.Background(), "Ethernet52", image(eepromtest.AvagoSR4().Image()))
	require.NoError(t, err)
	published := rec.len()
	require.Eventually(t, func() bool { return rec.len() > published+1 },
		time.Second, 5*time.Millisecond)
}

func TestStop(t *testing.T) {
	m, _ := startMonitor(t, testOptions())
	m.Stop()

	_, err := m.Insert(context.Background(), "Ethernet1", image(eepromtest.AvagoSR().Image()))
	assert.ErrorIs(t, err, ErrStopped)
	m.Stop()
}

func TestSinkErrorsDoNotBlock(t *testing.T) {
	failing := SinkFunc(func(context.Context, *State) error { return errors.New("down") })
	m, err := New(testPorts, testOptions(), failing)
	require.NoError(t, err)
	m.Start(context.Background())
	defer m.Stop()

	out, err := m.Insert(context.Background(), "Ethernet1", image(eepromtest.AvagoSR().Image()))
	require.NoError(t, err)
	assert.Equal(t, Inserted, out)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := eepromtest.WriteFile(t, dir, eepromtest.SFPSRAvago, eepromtest.AvagoSR().Bytes())

	img, err := FileSource(path).ReadImage(context.Background())
	require.NoError(t, err)
	assert.Len(t, img.Serial, eeprom.PageSize)
	assert.Len(t, img.Diag, eeprom.PageSize)
	assert.Equal(t, path, describe(FileSource(path)))

	_, err = FileSource(dir + "/missing.bin").ReadImage(context.Background())
	assert.Error(t, err)
}

func TestDeviceSource(t *testing.T) {
	dir := t.TempDir()
	data := eepromtest.AvagoSR().Bytes()
	a0 := eepromtest.WriteFile(t, dir, "eeprom", data[:eeprom.PageSize])
	a2 := eepromtest.WriteFile(t, dir, "dom_eeprom", data[eeprom.PageSize:])

	img, err := DeviceSource{Serial: a0, Diag: a2}.ReadImage(context.Background())
	require.NoError(t, err)
	rec, err := transceiver.Decode(img, eeprom.FamilySFP)
	require.NoError(t, err)
	assert.Equal(t, transceiver.SFPSR, rec.Connector)
	assert.Len(t, img.Diag, eeprom.PageSize)

	both := eepromtest.WriteFile(t, dir, "both", data)
	img, err = DeviceSource{Serial: both}.ReadImage(context.Background())
	require.NoError(t, err)
	assert.Len(t, img.Diag, eeprom.PageSize)

	_, err = DeviceSource{Serial: a0, Diag: dir + "/none"}.ReadImage(context.Background())
	assert.Error(t, err)
}
