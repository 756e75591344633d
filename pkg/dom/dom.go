// Package dom decodes digital optical monitoring (DOM) telemetry.
//
// SFP modules expose monitors on the A2 page (SFF-8472 section 9); QSFP modules
// expose them in the lower page of the serial ID address space (SFF-8636 section
// 6.2). Values are converted with the fixed linear scales of the internally
// calibrated format and reported as read; no range checks are applied.
package dom

import (
	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/transceiver"
)

// Scale factors of internally calibrated monitors.
const (
	TemperatureLSB = 1.0 / 256 // C
	VoltageLSB     = 0.0001    // V
	BiasLSB        = 0.002     // mA
	PowerLSB       = 0.0001    // mW
)

// Lane holds the per-channel monitors. TxPower is only measured on SFP modules.
type Lane struct {
	TxBias  float64 // mA
	TxPower float64 // mW
	RxPower float64 // mW
}

// Limits are the four thresholds configured for a sensor.
type Limits struct {
	HighAlarm   float64
	LowAlarm    float64
	HighWarning float64
	LowWarning  float64
}

// Flags are the four alarm and warning indications of a sensor.
type Flags struct {
	HighAlarm   bool
	LowAlarm    bool
	HighWarning bool
	LowWarning  bool
}

// Reading is one decoded snapshot of a module's monitors.
type Reading struct {
	Family      eeprom.Family
	Temperature float64 // C
	Voltage     float64 // V
	Lanes       []Lane

	// Thresholds are keyed by sensor name; QSFP modules keep them on page 03, which
	// is not read.
	Thresholds map[string]Limits
	Flags      map[string]Flags
}

// Sensor names, used as attribute key stems.
const (
	SensorTemperature = "temperature"
	SensorVcc         = "vcc"
	SensorTxBias      = "tx_bias"
	SensorTxPower     = "tx_power"
	SensorRxPower     = "rx_power"
)

// Decode extracts a Reading from img for the classified record rec.
//
// It returns nil when the connector is not DOM capable, when the module does not
// advertise diagnostics, or when the monitoring page is missing or truncated.
func Decode(img eeprom.Image, rec *transceiver.Record) *Reading {
	if rec == nil || !transceiver.IsDOMCapable(rec.Connector) {
		return nil
	}

	switch rec.Family {
	case eeprom.FamilySFP:
		return decodeSFP(img)
	case eeprom.FamilyQSFP:
		return decodeQSFP(img)
	case eeprom.FamilyAuto:
		return nil
	}
	return nil
}

// Available reports whether img advertises monitors that Decode can read for a
// module of the given family.
func Available(img eeprom.Image, family eeprom.Family) bool {
	switch family {
	case eeprom.FamilySFP:
		return sfpAvailable(img)
	case eeprom.FamilyQSFP:
		return qsfpAvailable(img)
	case eeprom.FamilyAuto:
		return false
	}
	return false
}

func word(b []byte, off int) uint16 {
	return uint16(b[off])<<8 | uint16(b[off+1])
}

func temperature(b []byte, off int) float64 {
	return float64(int16(word(b, off))) * TemperatureLSB
}

func voltage(b []byte, off int) float64 {
	return float64(word(b, off)) * VoltageLSB
}

func bias(b []byte, off int) float64 {
	return float64(word(b, off)) * BiasLSB
}

func power(b []byte, off int) float64 {
	return float64(word(b, off)) * PowerLSB
}

func bit(b byte, n uint) bool {
	return b&(1<<n) != 0
}
