// Package eeprom decodes the serial ID area of pluggable transceiver EEPROMs.
//
// Two layouts are understood: SFP/SFP+ (SFF-8472, A0 page) and QSFP+/QSFP28
// (SFF-8436/SFF-8636, upper page 00). Decoding is a pure transform from an Image to
// one of the family-specific Fields variants; classification into connector types
// lives in the transceiver package.
package eeprom

import "fmt"

// Family identifies the serial ID layout of a port or a module.
type Family int

const (
	// FamilyAuto selects the layout from the identifier byte.
	FamilyAuto Family = iota
	FamilySFP
	FamilyQSFP
)

func (f Family) String() string {
	switch f {
	case FamilyAuto:
		return "auto"
	case FamilySFP:
		return "SFP"
	case FamilyQSFP:
		return "QSFP"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// ParseFamily maps a platform connector name to a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "", "auto":
		return FamilyAuto, nil
	case "SFP", "SFP_PLUS", "SFP+", "SFP28":
		return FamilySFP, nil
	case "QSFP", "QSFP_PLUS", "QSFP+", "QSFP28":
		return FamilyQSFP, nil
	default:
		return FamilyAuto, fmt.Errorf("unknown connector family %q", s)
	}
}

// Image is the raw content read from a module at insertion time.
//
// Serial holds the serial ID address space: the SFP A0 page, or the QSFP lower page
// followed by upper page 00. Diag holds the SFP A2 diagnostics page and is empty for
// QSFP modules, whose monitors live in the lower page.
type Image struct {
	Serial []byte
	Diag   []byte
}

// SplitImage splits a flat dump into pages. A dump longer than one page carries the
// SFP A2 page after the A0 page.
func SplitImage(data []byte) Image {
	if len(data) <= PageSize {
		return Image{Serial: data}
	}
	diag := data[PageSize:]
	if len(diag) > PageSize {
		diag = diag[:PageSize]
	}
	return Image{Serial: data[:PageSize], Diag: diag}
}

// Vendor holds the vendor identification fields shared by every layout.
type Vendor struct {
	Name         string
	OUI          string
	PartNumber   string
	Revision     string
	SerialNumber string
}

// Fields is the result of a successful decode: either *SFPFields or *QSFPFields.
type Fields interface {
	Family() Family
	VendorInfo() Vendor
	sealed()
}

// SFPFields are the SFF-8472 serial ID fields used for classification.
type SFPFields struct {
	Vendor
	Identifier     byte
	Connector      byte
	Compliance     [sfpComplianceLen]byte
	BitRateNominal byte
	LengthCopper   byte
	DiagType       byte
}

func (*SFPFields) Family() Family       { return FamilySFP }
func (f *SFPFields) VendorInfo() Vendor { return f.Vendor }
func (*SFPFields) sealed()              {}

// TenGig returns the 10G Ethernet compliance byte (byte 3).
func (f *SFPFields) TenGig() byte { return f.Compliance[0] }

// GigE returns the Ethernet compliance byte (byte 6).
func (f *SFPFields) GigE() byte { return f.Compliance[3] }

// CableTech returns the SFP+ cable technology byte (byte 8).
func (f *SFPFields) CableTech() byte { return f.Compliance[5] }

// QSFPFields are the SFF-8636 upper page 00 fields used for classification.
type QSFPFields struct {
	Vendor
	Identifier     byte
	Connector      byte
	Compliance     [qsfpComplianceLen]byte
	BitRateNominal byte
	LengthCopper   byte
	DeviceTech     byte
	ExtCompliance  byte
	DiagType       byte
}

func (*QSFPFields) Family() Family       { return FamilyQSFP }
func (f *QSFPFields) VendorInfo() Vendor { return f.Vendor }
func (*QSFPFields) sealed()              {}

// EthCompliance returns the 10/40G Ethernet compliance byte (byte 131).
func (f *QSFPFields) EthCompliance() byte { return f.Compliance[0] }

// Is28 reports whether the identifier announces a QSFP28 module.
func (f *QSFPFields) Is28() bool { return f.Identifier == IDQSFP28 }
