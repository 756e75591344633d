package control

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonic-net/sonic-pmd/internal/redis"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom/eepromtest"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
	"github.com/sonic-net/sonic-pmd/pkg/publisher"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

func newMonitor(t *testing.T) *monitor.Monitor {
	t.Helper()
	m, err := monitor.New([]monitor.PortSpec{
		{Name: "Ethernet1", Family: eeprom.FamilySFP},
		{Name: "Ethernet49", Family: eeprom.FamilyQSFP},
	}, monitor.Options{ReadTimeout: time.Second})
	require.NoError(t, err)
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m
}

func TestRequestEncoding(t *testing.T) {
	val, err := EncodeRequest(Request{Line: "insert Ethernet1 /tmp/a.bin", ReplyTo: "r1"})
	require.NoError(t, err)
	assert.Equal(t, `["sim","insert Ethernet1 /tmp/a.bin","reply_to","r1"]`, val)

	req, err := DecodeRequest(val)
	require.NoError(t, err)
	assert.Equal(t, Request{Line: "insert Ethernet1 /tmp/a.bin", ReplyTo: "r1"}, req)

	val, err = EncodeRequest(Request{Line: "dump"})
	require.NoError(t, err)
	assert.Equal(t, `["sim","dump"]`, val)

	for _, bad := range []string{`not json`, `["sim"]`, `["sim","dump","reply_to"]`, `["set","dump"]`} {
		_, err := DecodeRequest(bad)
		assert.Error(t, err, bad)
	}
}

func TestReplyEncoding(t *testing.T) {
	val, err := EncodeReply(okReply(MsgInserted))
	require.NoError(t, err)
	assert.Equal(t, `["ok","Pluggable module inserted"]`, val)

	r, err := DecodeReply(val)
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Equal(t, MsgInserted, r.String())

	_, err = DecodeReply(`["ok"]`)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr string
	}{
		{line: "insert Ethernet1 /tmp/x.bin", want: Command{Verb: VerbInsert, Port: "Ethernet1", Path: "/tmp/x.bin"}},
		{line: `insert Ethernet1 "/tmp/my dumps/x.bin"`, want: Command{Verb: VerbInsert, Port: "Ethernet1", Path: "/tmp/my dumps/x.bin"}},
		{line: "remove Ethernet1", want: Command{Verb: VerbRemove, Port: "Ethernet1"}},
		{line: "dump", want: Command{Verb: VerbDump}},
		{line: "dump Ethernet1", want: Command{Verb: VerbDump, Port: "Ethernet1"}},
		{line: "", wantErr: "empty"},
		{line: "insert Ethernet1", wantErr: "Usage"},
		{line: "remove", wantErr: "Usage"},
		{line: "dump a b", wantErr: "Usage"},
		{line: "reset Ethernet1", wantErr: MsgUnknownVerb},
		{line: `insert Ethernet1 "unterminated`, wantErr: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Parse(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestExecute(t *testing.T) {
	m := newMonitor(t)
	ctx := context.Background()
	dir := t.TempDir()
	sr := eepromtest.WriteFile(t, dir, eepromtest.SFPSRAvago, eepromtest.AvagoSR().Bytes())
	short := eepromtest.WriteFile(t, dir, "short.bin", make([]byte, 10))

	steps := []struct {
		name   string
		cmd    Command
		status string
		msg    string
	}{
		{"remove empty", Command{Verb: VerbRemove, Port: "Ethernet1"}, StatusError, MsgNotPresent},
		{"insert", Command{Verb: VerbInsert, Port: "Ethernet1", Path: sr}, StatusOK, MsgInserted},
		{"insert unknown port", Command{Verb: VerbInsert, Port: "Ethernet7", Path: sr}, StatusError, MsgNoSuchPort},
		{"insert missing file", Command{Verb: VerbInsert, Port: "Ethernet1", Path: filepath.Join(dir, "none.bin")}, StatusError, MsgCantOpen},
		{"insert directory", Command{Verb: VerbInsert, Port: "Ethernet1", Path: dir}, StatusError, MsgCantOpen},
		{"insert short file", Command{Verb: VerbInsert, Port: "Ethernet49", Path: short}, StatusError, MsgShortRead},
		{"replace with short file", Command{Verb: VerbInsert, Port: "Ethernet1", Path: short}, StatusError, MsgShortRead},
		{"remove", Command{Verb: VerbRemove, Port: "Ethernet1"}, StatusOK, MsgRemoved},
		{"remove unknown port", Command{Verb: VerbRemove, Port: "Ethernet7"}, StatusError, MsgNoSuchPort},
		{"dump unknown port", Command{Verb: VerbDump, Port: "Ethernet7"}, StatusError, MsgNoSuchPort},
		{"unknown verb", Command{Verb: "reset"}, StatusError, MsgUnknownVerb},
	}

	for _, step := range steps {
		r := Execute(ctx, m, step.cmd)
		assert.Equal(t, step.status, r.Status, step.name)
		assert.Equal(t, step.msg, r.Message, step.name)
	}

	st, err := m.State("Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.Generation)
	assert.Nil(t, st.Record)

	st, err = m.State("Ethernet49")
	require.NoError(t, err)
	require.True(t, st.Present())
	assert.Equal(t, eeprom.Malformed, eeprom.KindOf(st.Err))
	pm, dom := publisher.Flatten(st)
	assert.Equal(t, map[string]string{"connector": "unknown", "connector_status": "unrecognized"}, pm)
	assert.Nil(t, dom)
}

func TestExecuteShortFileReplacesModule(t *testing.T) {
	m := newMonitor(t)
	ctx := context.Background()
	dir := t.TempDir()
	sr := eepromtest.WriteFile(t, dir, eepromtest.SFPSRAvago, eepromtest.AvagoSR().Bytes())
	short := eepromtest.WriteFile(t, dir, "short.bin", eepromtest.AvagoSR().Bytes()[:eeprom.PageSize-1])

	require.True(t, Execute(ctx, m, Command{Verb: VerbInsert, Port: "Ethernet1", Path: sr}).OK())
	r := Execute(ctx, m, Command{Verb: VerbInsert, Port: "Ethernet1", Path: short})
	assert.Equal(t, MsgShortRead, r.Message)

	st, err := m.State("Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Generation)
	pm, dom := publisher.Flatten(st)
	assert.Equal(t, map[string]string{"connector": "unknown", "connector_status": "unrecognized"}, pm)
	assert.Nil(t, dom)
}

func TestDump(t *testing.T) {
	m := newMonitor(t)
	ctx := context.Background()
	path := eepromtest.WriteFile(t, t.TempDir(), eepromtest.QSFPSR4Avago, eepromtest.AvagoSR4().Bytes())

	require.True(t, Execute(ctx, m, Command{Verb: VerbInsert, Port: "Ethernet49", Path: path}).OK())

	r := Execute(ctx, m, Command{Verb: VerbDump})
	require.True(t, r.OK())
	lines := strings.Split(r.Message, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Ethernet1: absent generation 0", lines[0])
	assert.Equal(t, "Ethernet49: present QSFP_SR4 supported from "+path+" generation 1", lines[1])

	r = Execute(ctx, m, Command{Verb: VerbDump, Port: "Ethernet1"})
	assert.Equal(t, "Ethernet1: absent generation 0", r.Message)
}

func TestServerClient(t *testing.T) {
	mr := miniredis.RunT(t)
	bus, err := redis.NewClient(&redis.Config{Addr: mr.Addr(), DB: redis.StateDB, Timeout: time.Second})
	require.NoError(t, err)
	defer bus.Close()

	m := newMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(bus, "", m).Serve(ctx, ready) }()
	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("server failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not subscribe")
	}

	client := NewClient(bus, DefaultChannel)
	path := eepromtest.WriteFile(t, t.TempDir(), eepromtest.SFPDACMolex, eepromtest.MolexDAC().Bytes())

	sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
	defer sendCancel()

	r, err := client.Send(sendCtx, "insert Ethernet1 "+path)
	require.NoError(t, err)
	assert.Equal(t, okReply(MsgInserted), r)
	st, _ := m.State("Ethernet1")
	assert.Equal(t, transceiver.SFPDAC, st.Record.Connector)

	r, err = client.Send(sendCtx, "remove Ethernet9")
	require.NoError(t, err)
	assert.Equal(t, errorReply(MsgNoSuchPort), r)

	r, err = client.Send(sendCtx, "frobnicate")
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Contains(t, r.Message, MsgUnknownVerb)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

// stalledTarget holds inserts on one port until release is closed.
type stalledTarget struct {
	Target
	port    string
	release chan struct{}
}

func (s *stalledTarget) Insert(ctx context.Context, name string, src monitor.ImageSource) (monitor.Outcome, error) {
	if name == s.port {
		select {
		case <-s.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.Target.Insert(ctx, name, src)
}

func TestServerStalledPortDoesNotBlockOthers(t *testing.T) {
	mr := miniredis.RunT(t)
	bus, err := redis.NewClient(&redis.Config{Addr: mr.Addr(), DB: redis.StateDB, Timeout: time.Second})
	require.NoError(t, err)
	defer bus.Close()

	target := &stalledTarget{Target: newMonitor(t), port: "Ethernet1", release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(bus, "", target).Serve(ctx, ready) }()
	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("server failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not subscribe")
	}

	client := NewClient(bus, DefaultChannel)
	dir := t.TempDir()
	dac := eepromtest.WriteFile(t, dir, eepromtest.SFPDACMolex, eepromtest.MolexDAC().Bytes())
	sr4 := eepromtest.WriteFile(t, dir, eepromtest.QSFPSR4Avago, eepromtest.AvagoSR4().Bytes())

	stalled := make(chan Reply, 1)
	go func() {
		sendCtx, sendCancel := context.WithTimeout(ctx, 10*time.Second)
		defer sendCancel()
		r, err := client.Send(sendCtx, "insert Ethernet1 "+dac)
		if err != nil {
			r = errorReply(err.Error())
		}
		stalled <- r
	}()

	sendCtx, sendCancel := context.WithTimeout(ctx, time.Second)
	defer sendCancel()
	r, err := client.Send(sendCtx, "insert Ethernet49 "+sr4)
	require.NoError(t, err)
	assert.Equal(t, okReply(MsgInserted), r)

	r, err = client.Send(sendCtx, "dump Ethernet49")
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Contains(t, r.Message, "QSFP_SR4 supported")

	select {
	case r := <-stalled:
		t.Fatalf("stalled insert replied early: %+v", r)
	default:
	}

	close(target.release)
	select {
	case r := <-stalled:
		assert.Equal(t, okReply(MsgInserted), r)
	case <-time.After(5 * time.Second):
		t.Fatal("stalled insert never replied")
	}
	st, err := target.State("Ethernet1")
	require.NoError(t, err)
	assert.Equal(t, transceiver.SFPDAC, st.Record.Connector)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClientTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	bus, err := redis.NewClient(&redis.Config{Addr: mr.Addr(), Timeout: time.Second})
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = NewClient(bus, "").Send(ctx, "dump")
	assert.ErrorContains(t, err, "no reply from daemon")
}
