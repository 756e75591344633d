package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonic-net/sonic-pmd/pkg/dom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom/eepromtest"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

func state(t *testing.T, port string, img eeprom.Image, generation uint64) *monitor.State {
	t.Helper()
	rec, err := transceiver.Decode(img, eeprom.FamilyAuto)
	return &monitor.State{
		Port:       port,
		Presence:   monitor.Present,
		Record:     rec,
		DOM:        dom.Decode(img, rec),
		Generation: generation,
		Err:        err,
	}
}

func TestPublish(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Publish(ctx, state(t, "Ethernet1", eepromtest.AvagoSR().Image(), 1)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.present.WithLabelValues("Ethernet1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.supported.WithLabelValues("Ethernet1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generation.WithLabelValues("Ethernet1")))
	assert.InDelta(t, 35.5, testutil.ToFloat64(c.temperature.WithLabelValues("Ethernet1")), 0.01)
	assert.InDelta(t, 3.3, testutil.ToFloat64(c.voltage.WithLabelValues("Ethernet1")), 0.001)
	assert.InDelta(t, 0.55, testutil.ToFloat64(c.txPower.WithLabelValues("Ethernet1", "1")), 0.001)

	require.NoError(t, c.Publish(ctx, state(t, "Ethernet49", eepromtest.AvagoSR4().Image(), 1)))
	assert.Equal(t, 5, testutil.CollectAndCount(c.rxPower))
	assert.Equal(t, 1, testutil.CollectAndCount(c.txPower))
	assert.InDelta(t, 6.6, testutil.ToFloat64(c.txBias.WithLabelValues("Ethernet49", "4")), 0.001)

	require.NoError(t, c.Publish(ctx, &monitor.State{Port: "Ethernet1", Generation: 2}))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.present.WithLabelValues("Ethernet1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.supported.WithLabelValues("Ethernet1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.generation.WithLabelValues("Ethernet1")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.temperature))
	assert.Equal(t, 0, testutil.CollectAndCount(c.txPower))
	assert.Equal(t, 4, testutil.CollectAndCount(c.txBias))
}

func TestUnsupportedModule(t *testing.T) {
	c := New()
	img := eeprom.SplitImage(eepromtest.AvagoSRCorrupted())
	require.NoError(t, c.Publish(context.Background(), state(t, "Ethernet1", img, 1)))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.present.WithLabelValues("Ethernet1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.supported.WithLabelValues("Ethernet1")))
	assert.Equal(t, 0, testutil.CollectAndCount(c.temperature))
}

func TestHandler(t *testing.T) {
	c := New()
	require.NoError(t, c.Publish(context.Background(), state(t, "Ethernet1", eepromtest.MolexDAC().Image(), 1)))

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `pmd_module_present{port="Ethernet1"} 1`), body)
	assert.NotContains(t, body, "pmd_dom_temperature_celsius{")
}
