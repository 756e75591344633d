// Package transceiver classifies decoded EEPROM fields into published module records.
package transceiver

import (
	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
)

// Record is the classified view of one module.
//
// An unrecognized record carries only Connector and Status; every other field is
// left at its zero value and omitted when published.
type Record struct {
	Family          eeprom.Family
	Connector       Connector
	Status          Status
	MaxSpeed        int
	SupportedSpeeds []int
	Vendor          eeprom.Vendor
	CableLength     *int
	CableTechnology CableTechnology
}

// Supported reports whether the record passed classification.
func (r *Record) Supported() bool {
	return r != nil && r.Status == StatusSupported
}

// Unrecognized is the record of a module that failed to decode or classify.
func Unrecognized() *Record {
	return &Record{Connector: ConnectorUnknown, Status: StatusUnrecognized}
}

// Absent is the record published for an empty port.
func Absent() *Record {
	return &Record{Connector: ConnectorAbsent, Status: StatusUnrecognized}
}

// Decode runs the EEPROM decoder and the classifier on img. The returned record is
// never nil; err carries the DecodeKind when the module degraded to unrecognized.
func Decode(img eeprom.Image, hint eeprom.Family) (*Record, error) {
	fields, err := eeprom.Decode(img, hint)
	if err != nil {
		return Unrecognized(), err
	}
	return Classify(fields)
}

// Classify maps decoded fields to a record through the connector table.
func Classify(fields eeprom.Fields) (*Record, error) {
	var connector Connector
	switch f := fields.(type) {
	case *eeprom.SFPFields:
		if isSFPDAC(f) {
			return classifySFPDAC(f), nil
		}
		connector = sfpConnector(f)
	case *eeprom.QSFPFields:
		connector = qsfpConnector(f)
	default:
		return Unrecognized(), eeprom.NewMalformed("unsupported layout", nil)
	}

	entry, ok := connectorTable[connector]
	if !ok {
		glog.V(2).Infof("No connector match for %s module %q %q",
			fields.Family(), fields.VendorInfo().Name, fields.VendorInfo().PartNumber)
		return Unrecognized(), eeprom.NewUnknownConnector("%s compliance codes not in connector table", fields.Family())
	}

	return &Record{
		Family:          fields.Family(),
		Connector:       connector,
		Status:          StatusSupported,
		MaxSpeed:        entry.maxSpeed,
		SupportedSpeeds: append([]int(nil), entry.supportedSpeeds...),
		Vendor:          fields.VendorInfo(),
	}, nil
}

func isSFPDAC(f *eeprom.SFPFields) bool {
	return f.Connector == eeprom.ConnectorCopperPigtail
}

func classifySFPDAC(f *eeprom.SFPFields) *Record {
	speed := Speed1G
	if f.BitRateNominal >= sfpBitRate10G {
		speed = Speed10G
	}
	tech := CablePassive
	if f.CableTech()&eeprom.SFPCableActive != 0 {
		tech = CableActive
	}
	length := int(f.LengthCopper)
	return &Record{
		Family:          eeprom.FamilySFP,
		Connector:       SFPDAC,
		Status:          StatusSupported,
		MaxSpeed:        speed,
		SupportedSpeeds: []int{speed},
		Vendor:          f.Vendor,
		CableLength:     &length,
		CableTechnology: tech,
	}
}

// sfpBitRate10G is the nominal bit rate (units of 100 MBd) from which a DAC runs at 10G.
const sfpBitRate10G = 0x64

func sfpConnector(f *eeprom.SFPFields) Connector {
	tenGig, gigE := f.TenGig(), f.GigE()
	// 1G codes are checked before 10G ones: a dual-rate optic reports its 1G type.
	switch {
	case gigE&eeprom.SFP1000BaseSX != 0:
		return SFPSX
	case gigE&eeprom.SFP1000BaseLX != 0:
		return SFPLX
	case gigE&eeprom.SFP1000BaseCX != 0:
		return SFPCX
	case gigE&eeprom.SFP1000BaseT != 0:
		return SFPRJ45
	case tenGig&eeprom.SFP10GBaseSR != 0:
		return SFPSR
	case tenGig&eeprom.SFP10GBaseLR != 0:
		return SFPLR
	case tenGig&eeprom.SFP10GBaseLRM != 0:
		return SFPLRM
	}
	return ConnectorUnknown
}

func qsfpConnector(f *eeprom.QSFPFields) Connector {
	eth := f.EthCompliance()
	if f.Is28() && eth&eeprom.QSFPExtended != 0 {
		switch f.ExtCompliance {
		case eeprom.QSFPExt100GSR4:
			return QSFP28SR4
		case eeprom.QSFPExt100GLR4:
			return QSFP28LR4
		case eeprom.QSFPExt100GCWDM4:
			return QSFP28CWDM4
		case eeprom.QSFPExt100GPSM4:
			return QSFP28PSM4
		case eeprom.QSFPExt100GCR4:
			return QSFP28CR4
		case eeprom.QSFPExt100GCLR4:
			return QSFP28CLR4
		}
		return ConnectorUnknown
	}

	switch {
	case eth&eeprom.QSFP40GBaseLR4 != 0:
		return QSFPLR4
	case eth&eeprom.QSFP40GBaseSR4 != 0:
		return QSFPSR4
	case eth&eeprom.QSFP40GBaseCR4 != 0:
		return QSFPCR4
	}
	return ConnectorUnknown
}
