package eeprom

// Checksum is the SFF check code: the low 8 bits of the sum of every byte in b.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}

// Seal recomputes the CC_BASE and CC_EXT check codes of a serial ID page in place.
// It is used when building images for simulation.
func Seal(data []byte, family Family) {
	switch family {
	case FamilySFP:
		data[sfpCCBase] = Checksum(data[:sfpCCBase])
		data[sfpCCExt] = Checksum(data[sfpCCBase+1 : sfpCCExt])
	case FamilyQSFP:
		data[qsfpCCBase] = Checksum(data[qsfpCCBaseStart:qsfpCCBase])
		data[qsfpCCExt] = Checksum(data[qsfpCCExtStart:qsfpCCExt])
	}
}
