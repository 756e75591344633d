package dom

import (
	"fmt"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
)

// Lower page offsets (SFF-8636 tables 6-4, 6-7 and 6-8).
const (
	qsfpTempFlags    = 6
	qsfpVccFlags     = 7
	qsfpRxPowerFlags = 9  // lanes 1-2, 3-4
	qsfpTxBiasFlags  = 11 // lanes 1-2, 3-4
	qsfpTemperature  = 22
	qsfpVcc          = 26
	qsfpRxPower      = 34
	qsfpTxBias       = 42

	qsfpLanes    = 4
	qsfpLowerLen = 128
	qsfpDiagType = 220
)

// QSFPLaneSensor returns the per-lane sensor name, e.g. "tx2_bias" or "rx4_power".
func QSFPLaneSensor(sensor string, lane int) string {
	switch sensor {
	case SensorTxBias:
		return fmt.Sprintf("tx%d_bias", lane+1)
	case SensorRxPower:
		return fmt.Sprintf("rx%d_power", lane+1)
	case SensorTxPower:
		return fmt.Sprintf("tx%d_power", lane+1)
	}
	return sensor
}

func qsfpAvailable(img eeprom.Image) bool {
	data := img.Serial
	if len(data) <= qsfpDiagType || len(data) < qsfpLowerLen {
		return false
	}
	return data[qsfpDiagType]&eeprom.QSFPDiagAvgPower != 0
}

func decodeQSFP(img eeprom.Image) *Reading {
	if !qsfpAvailable(img) {
		return nil
	}
	lower := img.Serial[:qsfpLowerLen]

	r := &Reading{
		Family:      eeprom.FamilyQSFP,
		Temperature: temperature(lower, qsfpTemperature),
		Voltage:     voltage(lower, qsfpVcc),
		Lanes:       make([]Lane, qsfpLanes),
		Flags:       make(map[string]Flags, 2+2*qsfpLanes),
	}
	for i := range r.Lanes {
		r.Lanes[i] = Lane{
			TxBias:  bias(lower, qsfpTxBias+2*i),
			RxPower: power(lower, qsfpRxPower+2*i),
		}
	}

	r.Flags[SensorTemperature] = nibbleFlags(lower[qsfpTempFlags] >> 4)
	r.Flags[SensorVcc] = nibbleFlags(lower[qsfpVccFlags] >> 4)
	for i := 0; i < qsfpLanes; i++ {
		r.Flags[QSFPLaneSensor(SensorRxPower, i)] = laneFlags(lower[qsfpRxPowerFlags:], i)
		r.Flags[QSFPLaneSensor(SensorTxBias, i)] = laneFlags(lower[qsfpTxBiasFlags:], i)
	}
	return r
}

// laneFlags picks the nibble of lane i from a two byte flag block: the high nibble of
// each byte holds the odd lane.
func laneFlags(b []byte, i int) Flags {
	v := b[i/2]
	if i%2 == 0 {
		return nibbleFlags(v >> 4)
	}
	return nibbleFlags(v & 0x0f)
}

// nibbleFlags decodes high alarm, low alarm, high warning, low warning from bits 3..0.
func nibbleFlags(n byte) Flags {
	return Flags{
		HighAlarm:   bit(n, 3),
		LowAlarm:    bit(n, 2),
		HighWarning: bit(n, 1),
		LowWarning:  bit(n, 0),
	}
}
