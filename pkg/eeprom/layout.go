package eeprom

// PageSize is the size of one EEPROM address space (A0, A2, or QSFP lower+upper page).
const PageSize = 256

// Identifier values (SFF-8024 table 4-1).
const (
	IDSFP      byte = 0x03
	IDQSFP     byte = 0x0C
	IDQSFPPlus byte = 0x0D
	IDQSFP28   byte = 0x11
)

// ConnectorCopperPigtail marks a direct attach copper cable (SFF-8024 table 4-3).
const ConnectorCopperPigtail byte = 0x21

// SFP serial ID fields, A0 page (SFF-8472 table 4-1).
const (
	sfpIdentifier     = 0
	sfpConnector      = 2
	sfpCompliance     = 3 // 8 bytes, 3..10
	sfpComplianceLen  = 8
	sfpBitRateNominal = 12
	sfpLengthCopper   = 18
	sfpVendorName     = 20
	sfpVendorOUI      = 37
	sfpVendorPN       = 40
	sfpVendorRev      = 56
	sfpCCBase         = 63
	sfpVendorSN       = 68
	sfpDiagType       = 92
	sfpCCExt          = 95

	sfpVendorRevLen = 4
)

// QSFP serial ID fields, upper page 00 (SFF-8636 table 6-15).
const (
	qsfpIdentifier     = 128
	qsfpConnector      = 130
	qsfpCompliance     = 131 // 8 bytes, 131..138
	qsfpComplianceLen  = 8
	qsfpBitRateNominal = 140
	qsfpLengthCopper   = 146
	qsfpDeviceTech     = 147
	qsfpVendorName     = 148
	qsfpVendorOUI      = 165
	qsfpVendorPN       = 168
	qsfpVendorRev      = 184
	qsfpCCBase         = 191
	qsfpExtCompliance  = 192
	qsfpVendorSN       = 196
	qsfpDiagType       = 220
	qsfpCCExt          = 223
	qsfpCCBaseStart    = 128
	qsfpCCExtStart     = 192
	qsfpVendorRevLen   = 2
)

const (
	vendorNameLen = 16
	vendorOUILen  = 3
	vendorPNLen   = 16
	vendorSNLen   = 16
)

// SFP compliance code bits, relative to byte 3.
const (
	SFP10GBaseSR  = 1 << 4 // byte 3
	SFP10GBaseLR  = 1 << 5 // byte 3
	SFP10GBaseLRM = 1 << 6 // byte 3

	SFP1000BaseSX = 1 << 0 // byte 6
	SFP1000BaseLX = 1 << 1 // byte 6
	SFP1000BaseCX = 1 << 2 // byte 6
	SFP1000BaseT  = 1 << 3 // byte 6

	SFPCablePassive = 1 << 2 // byte 8
	SFPCableActive  = 1 << 3 // byte 8
)

// SFP diagnostic monitoring type bits (byte 92).
const (
	SFPDiagAddrChange  = 1 << 2
	SFPDiagAvgPower    = 1 << 3
	SFPDiagInternalCal = 1 << 5
	SFPDiagImplemented = 1 << 6
)

// QSFP 10/40G compliance bits (byte 131).
const (
	QSFP40GActive  = 1 << 0
	QSFP40GBaseLR4 = 1 << 1
	QSFP40GBaseSR4 = 1 << 2
	QSFP40GBaseCR4 = 1 << 3
	QSFP10GBaseSR  = 1 << 4
	QSFP10GBaseLR  = 1 << 5
	QSFP10GBaseLRM = 1 << 6
	QSFPExtended   = 1 << 7
)

// QSFP extended specification compliance codes (SFF-8024 table 4-4).
const (
	QSFPExt100GAOC   byte = 0x01
	QSFPExt100GSR4   byte = 0x02
	QSFPExt100GLR4   byte = 0x03
	QSFPExt100GER4   byte = 0x04
	QSFPExt100GSR10  byte = 0x05
	QSFPExt100GCWDM4 byte = 0x06
	QSFPExt100GPSM4  byte = 0x07
	QSFPExt100GACC   byte = 0x08
	QSFPExt100GCR4   byte = 0x0B
	QSFPExt100GCLR4  byte = 0x17
)

// QSFPDiagAvgPower is set in byte 220 when received power is measured as average power.
const QSFPDiagAvgPower = 1 << 3
