package dom

import "github.com/sonic-net/sonic-pmd/pkg/eeprom"

// A2 page offsets (SFF-8472 table 9-5).
const (
	a2Thresholds   = 0
	a2Temperature  = 96
	a2Vcc          = 98
	a2TxBias       = 100
	a2TxPower      = 102
	a2RxPower      = 104
	a2AlarmFlags   = 112
	a2WarningFlags = 116

	// a2MinLen covers thresholds, live values and flags.
	a2MinLen = 128

	sfpDiagType    = 92
	sfpDiagRequire = eeprom.SFPDiagImplemented | eeprom.SFPDiagInternalCal | eeprom.SFPDiagAvgPower
)

// sfpSensors lists the threshold blocks in A2 order with their decoders.
var sfpSensors = []struct {
	name   string
	decode func([]byte, int) float64
}{
	{SensorTemperature, temperature},
	{SensorVcc, voltage},
	{SensorTxBias, bias},
	{SensorTxPower, power},
	{SensorRxPower, power},
}

func sfpAvailable(img eeprom.Image) bool {
	if len(img.Serial) <= sfpDiagType || len(img.Diag) < a2MinLen {
		return false
	}
	diag := img.Serial[sfpDiagType]
	return diag&sfpDiagRequire == sfpDiagRequire && diag&eeprom.SFPDiagAddrChange == 0
}

func decodeSFP(img eeprom.Image) *Reading {
	if !sfpAvailable(img) {
		return nil
	}
	a2 := img.Diag

	r := &Reading{
		Family:      eeprom.FamilySFP,
		Temperature: temperature(a2, a2Temperature),
		Voltage:     voltage(a2, a2Vcc),
		Lanes: []Lane{{
			TxBias:  bias(a2, a2TxBias),
			TxPower: power(a2, a2TxPower),
			RxPower: power(a2, a2RxPower),
		}},
		Thresholds: make(map[string]Limits, len(sfpSensors)),
		Flags:      make(map[string]Flags, len(sfpSensors)),
	}

	for i, s := range sfpSensors {
		off := a2Thresholds + i*8
		r.Thresholds[s.name] = Limits{
			HighAlarm:   s.decode(a2, off),
			LowAlarm:    s.decode(a2, off+2),
			HighWarning: s.decode(a2, off+4),
			LowWarning:  s.decode(a2, off+6),
		}
	}

	// Each sensor owns a high/low bit pair, temperature first from bit 7 of the
	// first flag byte.
	for i, s := range sfpSensors {
		pos := 15 - 2*i
		r.Flags[s.name] = Flags{
			HighAlarm:   flagBit(a2[a2AlarmFlags:], pos),
			LowAlarm:    flagBit(a2[a2AlarmFlags:], pos-1),
			HighWarning: flagBit(a2[a2WarningFlags:], pos),
			LowWarning:  flagBit(a2[a2WarningFlags:], pos-1),
		}
	}
	return r
}

// flagBit reads bit pos of a big-endian 16-bit flag word.
func flagBit(b []byte, pos int) bool {
	if pos >= 8 {
		return bit(b[0], uint(pos-8))
	}
	return bit(b[1], uint(pos))
}
