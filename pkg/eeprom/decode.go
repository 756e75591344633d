package eeprom

import (
	"fmt"
	"strings"
)

// Decode validates img and extracts the serial ID fields of its family.
//
// hint is the family the port accepts; FamilyAuto picks the layout from the
// identifier byte. Every failure is a *DecodeError of kind Malformed.
func Decode(img Image, hint Family) (Fields, error) {
	data := img.Serial
	if len(data) < PageSize {
		return nil, malformed("short image: %d bytes, need %d", len(data), PageSize)
	}

	family, err := detectFamily(data)
	if err != nil {
		return nil, err
	}
	if hint != FamilyAuto && hint != family {
		return nil, malformed("%s module in %s port", family, hint)
	}

	switch family {
	case FamilySFP:
		return decodeSFP(data)
	case FamilyQSFP:
		return decodeQSFP(data)
	default:
		return nil, malformed("unsupported family %s", family)
	}
}

func detectFamily(data []byte) (Family, error) {
	switch data[sfpIdentifier] {
	case IDSFP:
		return FamilySFP, nil
	case IDQSFP, IDQSFPPlus, IDQSFP28:
		if data[qsfpIdentifier] != data[sfpIdentifier] {
			return FamilyAuto, malformed("QSFP identifier mismatch: lower 0x%02x, page 00 0x%02x",
				data[sfpIdentifier], data[qsfpIdentifier])
		}
		return FamilyQSFP, nil
	default:
		return FamilyAuto, malformed("unknown identifier 0x%02x", data[sfpIdentifier])
	}
}

func decodeSFP(data []byte) (*SFPFields, error) {
	if sum := Checksum(data[:sfpCCBase]); sum != data[sfpCCBase] {
		return nil, malformed("CC_BASE mismatch: computed 0x%02x, stored 0x%02x", sum, data[sfpCCBase])
	}
	if sum := Checksum(data[sfpCCBase+1 : sfpCCExt]); sum != data[sfpCCExt] {
		return nil, malformed("CC_EXT mismatch: computed 0x%02x, stored 0x%02x", sum, data[sfpCCExt])
	}

	f := &SFPFields{
		Vendor: Vendor{
			Name:         ascii(data, sfpVendorName, vendorNameLen),
			OUI:          oui(data, sfpVendorOUI),
			PartNumber:   ascii(data, sfpVendorPN, vendorPNLen),
			Revision:     ascii(data, sfpVendorRev, sfpVendorRevLen),
			SerialNumber: ascii(data, sfpVendorSN, vendorSNLen),
		},
		Identifier:     data[sfpIdentifier],
		Connector:      data[sfpConnector],
		BitRateNominal: data[sfpBitRateNominal],
		LengthCopper:   data[sfpLengthCopper],
		DiagType:       data[sfpDiagType],
	}
	copy(f.Compliance[:], data[sfpCompliance:sfpCompliance+sfpComplianceLen])
	return f, nil
}

func decodeQSFP(data []byte) (*QSFPFields, error) {
	if sum := Checksum(data[qsfpCCBaseStart:qsfpCCBase]); sum != data[qsfpCCBase] {
		return nil, malformed("CC_BASE mismatch: computed 0x%02x, stored 0x%02x", sum, data[qsfpCCBase])
	}
	if sum := Checksum(data[qsfpCCExtStart:qsfpCCExt]); sum != data[qsfpCCExt] {
		return nil, malformed("CC_EXT mismatch: computed 0x%02x, stored 0x%02x", sum, data[qsfpCCExt])
	}

	f := &QSFPFields{
		Vendor: Vendor{
			Name:         ascii(data, qsfpVendorName, vendorNameLen),
			OUI:          oui(data, qsfpVendorOUI),
			PartNumber:   ascii(data, qsfpVendorPN, vendorPNLen),
			Revision:     ascii(data, qsfpVendorRev, qsfpVendorRevLen),
			SerialNumber: ascii(data, qsfpVendorSN, vendorSNLen),
		},
		Identifier:     data[qsfpIdentifier],
		Connector:      data[qsfpConnector],
		BitRateNominal: data[qsfpBitRateNominal],
		LengthCopper:   data[qsfpLengthCopper],
		DeviceTech:     data[qsfpDeviceTech],
		ExtCompliance:  data[qsfpExtCompliance],
		DiagType:       data[qsfpDiagType],
	}
	copy(f.Compliance[:], data[qsfpCompliance:qsfpCompliance+qsfpComplianceLen])
	return f, nil
}

// ascii returns a fixed-width ASCII field with trailing spaces and NULs removed.
func ascii(data []byte, off, n int) string {
	return strings.TrimRight(string(data[off:off+n]), " \x00")
}

func oui(data []byte, off int) string {
	return fmt.Sprintf("%02x-%02x-%02x", data[off], data[off+1], data[off+2])
}
