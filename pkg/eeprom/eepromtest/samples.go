package eepromtest

import "github.com/sonic-net/sonic-pmd/pkg/eeprom"

// Sample modules, named after the dumps they reproduce.
const (
	SFPDACMolex         = "SFP_DAC_MOLEX.bin"
	SFPSRAvago          = "SFP_SR_AVAGO.bin"
	SFPSRAvagoCorrupted = "SFP_SR_AVAGO_CORRUPTED.bin"
	QSFPCR4Mellanox     = "QSFP_CR4_MELLANOX.bin"
	QSFPCR4Molex        = "QSFP_CR4_MOLEX.bin"
	QSFPSR4Avago        = "QSFP_SR4_AVAGO.bin"
)

var (
	ouiMolex    = [3]byte{0x00, 0x09, 0x3a}
	ouiAvago    = [3]byte{0x00, 0x17, 0x6a}
	ouiMellanox = [3]byte{0x00, 0x02, 0xc9}
)

// MolexDAC is a 1m passive 10G SFP+ direct attach cable.
func MolexDAC() SFP {
	return SFP{
		Vendor: Vendor{
			Name:         "Molex Inc.",
			OUI:          ouiMolex,
			PartNumber:   "747649124",
			Revision:     "A1",
			SerialNumber: "302330039",
		},
		Connector:    eeprom.ConnectorCopperPigtail,
		CableTech:    eeprom.SFPCablePassive,
		BitRate:      0x67,
		LengthCopper: 1,
	}
}

// AvagoSR is a 10GBASE-SR optic with an internally calibrated A2 page.
func AvagoSR() SFP {
	return SFP{
		Vendor: Vendor{
			Name:         "AVAGO",
			OUI:          ouiAvago,
			PartNumber:   "AFBR-703SDZ-HP1",
			Revision:     "G2.3",
			SerialNumber: "AA0938A0DZ2",
		},
		Connector: 0x07,
		TenGig:    eeprom.SFP10GBaseSR,
		BitRate:   0x67,
		DiagType:  eeprom.SFPDiagImplemented | eeprom.SFPDiagInternalCal | eeprom.SFPDiagAvgPower,
		Diag: &SFPDiag{
			Temperature:       35.5,
			Vcc:               3.3,
			TxBias:            6.5,
			TxPower:           0.55,
			RxPower:           0.48,
			TempThresholds:    [4]float64{75, -5, 70, 0},
			VccThresholds:     [4]float64{3.63, 2.97, 3.465, 3.135},
			BiasThresholds:    [4]float64{10.5, 2.5, 10, 3},
			TxPowerThresholds: [4]float64{1.2589, 0.1862, 1, 0.2512},
			RxPowerThresholds: [4]float64{1.2589, 0.0123, 1, 0.0245},
		},
	}
}

// AvagoSRCorrupted returns the AvagoSR dump with a damaged vendor name.
func AvagoSRCorrupted() []byte {
	b := AvagoSR().Bytes()
	b[20] ^= 0x5a
	b[41] = 0xff
	return b
}

// MellanoxCR4 is a 40G QSFP+ copper cable.
func MellanoxCR4() QSFP {
	return QSFP{
		Vendor: Vendor{
			Name:         "Mellanox",
			OUI:          ouiMellanox,
			PartNumber:   "670759-B22",
			Revision:     "A1",
			SerialNumber: "6C222903CM",
		},
		Connector:    0x23,
		Eth:          eeprom.QSFP40GBaseCR4,
		BitRate:      0x67,
		LengthCopper: 3,
	}
}

// MolexCR4 is a 40G QSFP+ copper cable.
func MolexCR4() QSFP {
	return QSFP{
		Vendor: Vendor{
			Name:         "Molex Inc.",
			OUI:          ouiMolex,
			PartNumber:   "1110409083",
			Revision:     "A0",
			SerialNumber: "211730113",
		},
		Connector:    0x23,
		Eth:          eeprom.QSFP40GBaseCR4,
		BitRate:      0x67,
		LengthCopper: 3,
	}
}

// AvagoSR4 is a 40GBASE-SR4 optic with lower page monitors.
func AvagoSR4() QSFP {
	return QSFP{
		Vendor: Vendor{
			Name:         "AVAGO",
			OUI:          ouiAvago,
			PartNumber:   "AFBR-79EEPZ-HP1",
			Revision:     "01",
			SerialNumber: "ATA114110000012",
		},
		Connector: 0x0C,
		Eth:       eeprom.QSFP40GBaseSR4,
		BitRate:   0x67,
		DiagType:  eeprom.QSFPDiagAvgPower,
		Monitors: &QSFPMonitors{
			Temperature: 31.25,
			Vcc:         3.29,
			RxPower:     [4]float64{0.61, 0.59, 0.63, 0.6},
			TxBias:      [4]float64{6.8, 6.7, 6.9, 6.6},
		},
	}
}

// Samples returns every named sample dump.
func Samples() map[string][]byte {
	return map[string][]byte{
		SFPDACMolex:         MolexDAC().Bytes(),
		SFPSRAvago:          AvagoSR().Bytes(),
		SFPSRAvagoCorrupted: AvagoSRCorrupted(),
		QSFPCR4Mellanox:     MellanoxCR4().Bytes(),
		QSFPCR4Molex:        MolexCR4().Bytes(),
		QSFPSR4Avago:        AvagoSR4().Bytes(),
	}
}

// Expected holds the pm_info maps the samples classify to.
var Expected = map[string]map[string]string{
	SFPDACMolex: {
		"connector":            "SFP_DAC",
		"connector_status":     "supported",
		"cable_length":         "1",
		"cable_technology":     "passive",
		"max_speed":            "10000",
		"supported_speeds":     "10000",
		"vendor_name":          "Molex Inc.",
		"vendor_oui":           "00-09-3a",
		"vendor_part_number":   "747649124",
		"vendor_revision":      "A1",
		"vendor_serial_number": "302330039",
	},
	SFPSRAvago: {
		"connector":            "SFP_SR",
		"connector_status":     "supported",
		"max_speed":            "10000",
		"supported_speeds":     "10000",
		"vendor_name":          "AVAGO",
		"vendor_oui":           "00-17-6a",
		"vendor_part_number":   "AFBR-703SDZ-HP1",
		"vendor_revision":      "G2.3",
		"vendor_serial_number": "AA0938A0DZ2",
	},
	SFPSRAvagoCorrupted: {
		"connector":        "unknown",
		"connector_status": "unrecognized",
	},
	QSFPCR4Mellanox: {
		"connector":            "QSFP_CR4",
		"connector_status":     "supported",
		"max_speed":            "40000",
		"supported_speeds":     "40000",
		"vendor_name":          "Mellanox",
		"vendor_oui":           "00-02-c9",
		"vendor_part_number":   "670759-B22",
		"vendor_revision":      "A1",
		"vendor_serial_number": "6C222903CM",
	},
	QSFPCR4Molex: {
		"connector":            "QSFP_CR4",
		"connector_status":     "supported",
		"max_speed":            "40000",
		"supported_speeds":     "40000",
		"vendor_name":          "Molex Inc.",
		"vendor_oui":           "00-09-3a",
		"vendor_part_number":   "1110409083",
		"vendor_revision":      "A0",
		"vendor_serial_number": "211730113",
	},
	QSFPSR4Avago: {
		"connector":            "QSFP_SR4",
		"connector_status":     "supported",
		"max_speed":            "40000",
		"supported_speeds":     "40000",
		"vendor_name":          "AVAGO",
		"vendor_oui":           "00-17-6a",
		"vendor_part_number":   "AFBR-79EEPZ-HP1",
		"vendor_revision":      "01",
		"vendor_serial_number": "ATA114110000012",
	},
}

// Absent is the pm_info of an empty port.
var Absent = map[string]string{
	"connector":        "absent",
	"connector_status": "unrecognized",
}
