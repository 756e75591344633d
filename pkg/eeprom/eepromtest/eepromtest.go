// Package eepromtest builds transceiver EEPROM images for tests and simulation.
//
// Builders lay fields out at their SFF-8472/SFF-8636 offsets and seal the check
// codes, so every image produced here decodes unless it is damaged on purpose.
package eepromtest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
)

// Vendor identification written into a serial ID page.
type Vendor struct {
	Name         string
	OUI          [3]byte
	PartNumber   string
	Revision     string
	SerialNumber string
}

// SFP describes an SFF-8472 module.
type SFP struct {
	Vendor
	Connector    byte
	TenGig       byte // byte 3
	GigE         byte // byte 6
	CableTech    byte // byte 8
	BitRate      byte
	LengthCopper byte
	DiagType     byte
	Diag         *SFPDiag
}

// SFPDiag is the content of an A2 page in engineering units.
type SFPDiag struct {
	Temperature float64 // C
	Vcc         float64 // V
	TxBias      float64 // mA
	TxPower     float64 // mW
	RxPower     float64 // mW

	// Thresholds are high alarm, low alarm, high warning, low warning per sensor.
	TempThresholds    [4]float64
	VccThresholds     [4]float64
	BiasThresholds    [4]float64
	TxPowerThresholds [4]float64
	RxPowerThresholds [4]float64

	AlarmFlags   [2]byte // bytes 112..113
	WarningFlags [2]byte // bytes 116..117
}

// Bytes returns the flat dump: A0 page, followed by the A2 page when Diag is set.
func (s SFP) Bytes() []byte {
	a0 := make([]byte, eeprom.PageSize)
	a0[0] = eeprom.IDSFP
	a0[1] = 0x04
	a0[2] = s.Connector
	a0[3] = s.TenGig
	a0[6] = s.GigE
	a0[8] = s.CableTech
	a0[11] = 0x06
	a0[12] = s.BitRate
	a0[18] = s.LengthCopper
	putASCII(a0, 20, 16, s.Name)
	copy(a0[37:40], s.OUI[:])
	putASCII(a0, 40, 16, s.PartNumber)
	putASCII(a0, 56, 4, s.Revision)
	putASCII(a0, 68, 16, s.SerialNumber)
	putASCII(a0, 84, 8, "150101  ")
	a0[92] = s.DiagType
	a0[94] = 0x05
	eeprom.Seal(a0, eeprom.FamilySFP)

	if s.Diag == nil {
		return a0
	}
	return append(a0, s.Diag.Bytes()...)
}

// Image returns the dump split into pages.
func (s SFP) Image() eeprom.Image {
	return eeprom.SplitImage(s.Bytes())
}

// Bytes encodes the A2 page.
func (d SFPDiag) Bytes() []byte {
	a2 := make([]byte, eeprom.PageSize)
	for i, v := range d.TempThresholds {
		putU16(a2, i*2, uint16(Temperature(v)))
	}
	for i, v := range d.VccThresholds {
		putU16(a2, 8+i*2, Voltage(v))
	}
	for i, v := range d.BiasThresholds {
		putU16(a2, 16+i*2, Bias(v))
	}
	for i, v := range d.TxPowerThresholds {
		putU16(a2, 24+i*2, Power(v))
	}
	for i, v := range d.RxPowerThresholds {
		putU16(a2, 32+i*2, Power(v))
	}
	putU16(a2, 96, uint16(Temperature(d.Temperature)))
	putU16(a2, 98, Voltage(d.Vcc))
	putU16(a2, 100, Bias(d.TxBias))
	putU16(a2, 102, Power(d.TxPower))
	putU16(a2, 104, Power(d.RxPower))
	copy(a2[112:114], d.AlarmFlags[:])
	copy(a2[116:118], d.WarningFlags[:])
	return a2
}

// QSFP describes an SFF-8636 module.
type QSFP struct {
	Vendor
	Identifier    byte
	Connector     byte
	Eth           byte // byte 131
	ExtCompliance byte // byte 192
	BitRate       byte
	LengthCopper  byte
	DiagType      byte
	Monitors      *QSFPMonitors
}

// QSFPMonitors is the lower page monitor content in engineering units.
type QSFPMonitors struct {
	Temperature float64    // C
	Vcc         float64    // V
	RxPower     [4]float64 // mW
	TxBias      [4]float64 // mA

	// Latched interrupt flags: byte 6 temperature, byte 7 Vcc, bytes 9..10 RX power,
	// bytes 11..12 TX bias.
	TempFlags    byte
	VccFlags     byte
	RxPowerFlags [2]byte
	TxBiasFlags  [2]byte
}

// Bytes returns lower page plus upper page 00.
func (q QSFP) Bytes() []byte {
	id := q.Identifier
	if id == 0 {
		id = eeprom.IDQSFPPlus
	}
	b := make([]byte, eeprom.PageSize)
	b[0] = id
	if m := q.Monitors; m != nil {
		b[6] = m.TempFlags
		b[7] = m.VccFlags
		copy(b[9:11], m.RxPowerFlags[:])
		copy(b[11:13], m.TxBiasFlags[:])
		putU16(b, 22, uint16(Temperature(m.Temperature)))
		putU16(b, 26, Voltage(m.Vcc))
		for i := 0; i < 4; i++ {
			putU16(b, 34+i*2, Power(m.RxPower[i]))
			putU16(b, 42+i*2, Bias(m.TxBias[i]))
		}
	}

	b[128] = id
	b[130] = q.Connector
	b[131] = q.Eth
	b[139] = 0x05
	b[140] = q.BitRate
	b[146] = q.LengthCopper
	putASCII(b, 148, 16, q.Name)
	copy(b[165:168], q.OUI[:])
	putASCII(b, 168, 16, q.PartNumber)
	putASCII(b, 184, 2, q.Revision)
	b[192] = q.ExtCompliance
	putASCII(b, 196, 16, q.SerialNumber)
	putASCII(b, 212, 8, "150101  ")
	b[220] = q.DiagType
	eeprom.Seal(b, eeprom.FamilyQSFP)
	return b
}

// Image returns the QSFP dump as an Image.
func (q QSFP) Image() eeprom.Image {
	return eeprom.SplitImage(q.Bytes())
}

// Temperature encodes degrees C as a signed 1/256 C word.
func Temperature(c float64) int16 {
	return int16(math.Round(c * 256))
}

// Voltage encodes volts as 100 uV units.
func Voltage(v float64) uint16 {
	return uint16(math.Round(v / 0.0001))
}

// Bias encodes milliamps as 2 uA units.
func Bias(ma float64) uint16 {
	return uint16(math.Round(ma / 0.002))
}

// Power encodes milliwatts as 0.1 uW units.
func Power(mw float64) uint16 {
	return uint16(math.Round(mw / 0.0001))
}

// WriteFile stores data as name under dir and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func putASCII(b []byte, off, n int, s string) {
	for i := 0; i < n; i++ {
		if i < len(s) {
			b[off+i] = s[i]
		} else {
			b[off+i] = ' '
		}
	}
}

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v >> 8)
	b[off+1] = byte(v)
}
