// Package show renders published transceiver attributes as CLI text.
package show

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	natural "github.com/maruel/natural"

	"github.com/sonic-net/sonic-pmd/pkg/dom"
	"github.com/sonic-net/sonic-pmd/pkg/publisher"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

// NoDOM is printed for ports without DOM information.
const NoDOM = " % No DOM information available"

// Transceiver is the published state of one port.
type Transceiver struct {
	Port    string
	PMInfo  map[string]string
	DOMInfo map[string]string
}

// Present reports whether a module is seated.
func (t *Transceiver) Present() bool {
	c, ok := t.PMInfo[publisher.AttrConnector]
	return ok && c != string(transceiver.ConnectorAbsent)
}

var vendorLines = []struct {
	label string
	attr  string
}{
	{"Vendor name", publisher.AttrVendorName},
	{"Vendor OUI", publisher.AttrVendorOUI},
	{"Part number", publisher.AttrVendorPartNumber},
	{"Part revision", publisher.AttrVendorRevision},
	{"Serial number", publisher.AttrVendorSerialNumber},
	{"Cable technology", publisher.AttrCableTechnology},
	{"Cable length", publisher.AttrCableLength},
	{"Max speed", publisher.AttrMaxSpeed},
	{"Supported speeds", publisher.AttrSupportedSpeeds},
}

// SortPorts orders ts by port name in natural order.
func SortPorts(ts []Transceiver) {
	sort.Slice(ts, func(i, j int) bool {
		return natural.Less(ts[i].Port, ts[j].Port)
	})
}

// Transceivers writes the module summary of every port.
func Transceivers(w io.Writer, ts []Transceiver) error {
	SortPorts(ts)
	var b strings.Builder
	for i := range ts {
		if i > 0 {
			b.WriteString("\n")
		}
		writeTransceiver(&b, &ts[i])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTransceiver(b *strings.Builder, t *Transceiver) {
	fmt.Fprintf(b, "Interface %s:\n", t.Port)
	if !t.Present() {
		b.WriteString(" Transceiver module: not present\n")
		return
	}
	fmt.Fprintf(b, " Transceiver module: %s\n", t.PMInfo[publisher.AttrConnector])
	fmt.Fprintf(b, " Connector status: %s\n", t.PMInfo[publisher.AttrConnectorStatus])
	for _, l := range vendorLines {
		if v, ok := t.PMInfo[l.attr]; ok {
			if l.attr == publisher.AttrCableLength {
				v += "m"
			}
			fmt.Fprintf(b, " %s: %s\n", l.label, v)
		}
	}
}

type sensorLine struct {
	key   string
	label string
	unit  string
}

func domSensors(info map[string]string) []sensorLine {
	lines := []sensorLine{
		{dom.SensorTemperature, "Temperature", "C"},
		{dom.SensorVcc, "Voltage", "V"},
		{dom.SensorTxBias, "Bias current", "mA"},
		{dom.SensorRxPower, "Rx power", "mW"},
		{dom.SensorTxPower, "Tx power", "mW"},
	}
	for lane := 0; lane < 4; lane++ {
		bias := dom.QSFPLaneSensor(dom.SensorTxBias, lane)
		if _, ok := info[bias]; ok {
			lines = append(lines, sensorLine{bias, fmt.Sprintf("Bias current (lane %d)", lane+1), "mA"})
		}
	}
	for lane := 0; lane < 4; lane++ {
		rx := dom.QSFPLaneSensor(dom.SensorRxPower, lane)
		if _, ok := info[rx]; ok {
			lines = append(lines, sensorLine{rx, fmt.Sprintf("Rx power (lane %d)", lane+1), "mW"})
		}
	}
	return lines
}

var levels = []struct {
	suffix string
	label  string
}{
	{"high_alarm", "high alarm"},
	{"low_alarm", "low alarm"},
	{"high_warning", "high warning"},
	{"low_warning", "low warning"},
}

// DOM writes the DOM information of one port.
func DOM(w io.Writer, t Transceiver) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Interface %s:\n", t.Port)
	if !t.Present() || len(t.DOMInfo) == 0 {
		b.WriteString(NoDOM + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, s := range domSensors(t.DOMInfo) {
		v, ok := t.DOMInfo[s.key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, " %s: %s\n", s.label, formatMeasure(v, s.unit))
		for _, l := range levels {
			if flag, ok := t.DOMInfo[s.key+"_"+l.suffix]; ok {
				fmt.Fprintf(&b, " %s %s: %s\n", s.label, l.label, onOff(flag))
			}
		}
		for _, l := range levels {
			if th, ok := t.DOMInfo[s.key+"_"+l.suffix+"_threshold"]; ok {
				fmt.Fprintf(&b, " %s %s threshold: %s\n", s.label, l.label, formatMeasure(th, s.unit))
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatMeasure(v, unit string) string {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.V(2).Infof("Unable to parse DOM value %q: %v", v, err)
		return v
	}
	return fmt.Sprintf("%.2f%s", f, unit)
}

func onOff(v string) string {
	if on, err := strconv.ParseBool(v); err == nil && on {
		return "On"
	}
	return "Off"
}
