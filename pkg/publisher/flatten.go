// Package publisher turns module snapshots into the flat attribute maps stored in
// STATE_DB.
package publisher

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sonic-net/sonic-pmd/pkg/dom"
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

// pm_info attribute names.
const (
	AttrConnector          = "connector"
	AttrConnectorStatus    = "connector_status"
	AttrCableLength        = "cable_length"
	AttrCableTechnology    = "cable_technology"
	AttrMaxSpeed           = "max_speed"
	AttrSupportedSpeeds    = "supported_speeds"
	AttrVendorName         = "vendor_name"
	AttrVendorOUI          = "vendor_oui"
	AttrVendorPartNumber   = "vendor_part_number"
	AttrVendorRevision     = "vendor_revision"
	AttrVendorSerialNumber = "vendor_serial_number"
)

// Flatten renders st as its pm_info and dom_info maps. domInfo is nil when the port
// has no DOM reading.
func Flatten(st *monitor.State) (pmInfo, domInfo map[string]string) {
	rec := transceiver.Absent()
	if st.Present() && st.Record != nil {
		rec = st.Record
	}
	pmInfo = Record(rec)
	if st.Present() && st.DOM != nil {
		domInfo = Reading(st.DOM)
	}
	return pmInfo, domInfo
}

// Record renders the pm_info map of a classified record.
func Record(rec *transceiver.Record) map[string]string {
	m := map[string]string{
		AttrConnector:       string(rec.Connector),
		AttrConnectorStatus: string(rec.Status),
	}
	if !rec.Supported() {
		return m
	}

	if rec.CableLength != nil {
		m[AttrCableLength] = strconv.Itoa(*rec.CableLength)
	}
	if rec.CableTechnology != "" {
		m[AttrCableTechnology] = string(rec.CableTechnology)
	}
	if rec.MaxSpeed > 0 {
		m[AttrMaxSpeed] = strconv.Itoa(rec.MaxSpeed)
	}
	if len(rec.SupportedSpeeds) > 0 {
		speeds := make([]string, len(rec.SupportedSpeeds))
		for i, s := range rec.SupportedSpeeds {
			speeds[i] = strconv.Itoa(s)
		}
		m[AttrSupportedSpeeds] = strings.Join(speeds, ",")
	}
	for attr, v := range map[string]string{
		AttrVendorName:         rec.Vendor.Name,
		AttrVendorOUI:          rec.Vendor.OUI,
		AttrVendorPartNumber:   rec.Vendor.PartNumber,
		AttrVendorRevision:     rec.Vendor.Revision,
		AttrVendorSerialNumber: rec.Vendor.SerialNumber,
	} {
		// Blank fields are omitted, never published as "".
		if v != "" {
			m[attr] = v
		}
	}
	return m
}

// Reading renders the dom_info map of a DOM reading.
func Reading(r *dom.Reading) map[string]string {
	m := map[string]string{
		dom.SensorTemperature: FormatValue(r.Temperature),
		dom.SensorVcc:         FormatValue(r.Voltage),
	}

	switch r.Family {
	case eeprom.FamilyQSFP:
		for i, lane := range r.Lanes {
			m[dom.QSFPLaneSensor(dom.SensorTxBias, i)] = FormatValue(lane.TxBias)
			m[dom.QSFPLaneSensor(dom.SensorRxPower, i)] = FormatValue(lane.RxPower)
		}
	default:
		if len(r.Lanes) > 0 {
			m[dom.SensorTxBias] = FormatValue(r.Lanes[0].TxBias)
			m[dom.SensorTxPower] = FormatValue(r.Lanes[0].TxPower)
			m[dom.SensorRxPower] = FormatValue(r.Lanes[0].RxPower)
		}
	}

	for sensor, l := range r.Thresholds {
		m[sensor+"_high_alarm_threshold"] = FormatValue(l.HighAlarm)
		m[sensor+"_low_alarm_threshold"] = FormatValue(l.LowAlarm)
		m[sensor+"_high_warning_threshold"] = FormatValue(l.HighWarning)
		m[sensor+"_low_warning_threshold"] = FormatValue(l.LowWarning)
	}
	for sensor, f := range r.Flags {
		m[sensor+"_high_alarm"] = strconv.FormatBool(f.HighAlarm)
		m[sensor+"_low_alarm"] = strconv.FormatBool(f.LowAlarm)
		m[sensor+"_high_warning"] = strconv.FormatBool(f.HighWarning)
		m[sensor+"_low_warning"] = strconv.FormatBool(f.LowWarning)
	}
	return m
}

// FormatValue formats a DOM measurement the way it is stored.
func FormatValue(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
