// Package metrics exports module state and DOM readings as Prometheus gauges.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

const namespace = "pmd"

// Collector holds the gauges of every port. It implements monitor.Sink.
type Collector struct {
	registry *prometheus.Registry

	present     *prometheus.GaugeVec
	supported   *prometheus.GaugeVec
	generation  *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	voltage     *prometheus.GaugeVec
	txBias      *prometheus.GaugeVec
	txPower     *prometheus.GaugeVec
	rxPower     *prometheus.GaugeVec
}

// New registers the gauges on a fresh registry.
func New() *Collector {
	portGauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, append([]string{"port"}, labels...))
	}

	c := &Collector{
		registry:    prometheus.NewRegistry(),
		present:     portGauge("module", "present", "1 while a module is inserted."),
		supported:   portGauge("module", "supported", "1 while the inserted module is classified as supported."),
		generation:  portGauge("module", "generation", "Insert and remove transitions seen by the port."),
		temperature: portGauge("dom", "temperature_celsius", "Module temperature."),
		voltage:     portGauge("dom", "voltage_volts", "Module supply voltage."),
		txBias:      portGauge("dom", "tx_bias_milliamps", "Laser bias current.", "lane"),
		txPower:     portGauge("dom", "tx_power_milliwatts", "Transmitted optical power.", "lane"),
		rxPower:     portGauge("dom", "rx_power_milliwatts", "Received optical power.", "lane"),
	}
	c.registry.MustRegister(c.present, c.supported, c.generation,
		c.temperature, c.voltage, c.txBias, c.txPower, c.rxPower)
	return c
}

// Registry returns the registry holding the gauges.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Publish updates the gauges of st.Port.
func (c *Collector) Publish(_ context.Context, st *monitor.State) error {
	port := st.Port
	c.present.WithLabelValues(port).Set(boolValue(st.Present()))
	c.supported.WithLabelValues(port).Set(boolValue(st.Present() && st.Record.Supported()))
	c.generation.WithLabelValues(port).Set(float64(st.Generation))

	c.clearDOM(port)
	if !st.Present() || st.DOM == nil {
		return nil
	}
	c.temperature.WithLabelValues(port).Set(st.DOM.Temperature)
	c.voltage.WithLabelValues(port).Set(st.DOM.Voltage)
	for i, lane := range st.DOM.Lanes {
		l := strconv.Itoa(i + 1)
		c.txBias.WithLabelValues(port, l).Set(lane.TxBias)
		c.rxPower.WithLabelValues(port, l).Set(lane.RxPower)
		if lane.TxPower != 0 {
			c.txPower.WithLabelValues(port, l).Set(lane.TxPower)
		}
	}
	return nil
}

func (c *Collector) clearDOM(port string) {
	labels := prometheus.Labels{"port": port}
	c.temperature.Delete(labels)
	c.voltage.Delete(labels)
	c.txBias.DeletePartialMatch(labels)
	c.txPower.DeletePartialMatch(labels)
	c.rxPower.DeletePartialMatch(labels)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
