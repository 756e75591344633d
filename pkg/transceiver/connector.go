package transceiver

// Connector is the published connector type of a port.
type Connector string

const (
	ConnectorAbsent  Connector = "absent"
	ConnectorUnknown Connector = "unknown"

	SFPDAC  Connector = "SFP_DAC"
	SFPSX   Connector = "SFP_SX"
	SFPLX   Connector = "SFP_LX"
	SFPCX   Connector = "SFP_CX"
	SFPRJ45 Connector = "SFP_RJ45"
	SFPSR   Connector = "SFP_SR"
	SFPLR   Connector = "SFP_LR"
	SFPLRM  Connector = "SFP_LRM"

	QSFPCR4 Connector = "QSFP_CR4"
	QSFPSR4 Connector = "QSFP_SR4"
	QSFPLR4 Connector = "QSFP_LR4"

	QSFP28SR4   Connector = "QSFP28_SR4"
	QSFP28LR4   Connector = "QSFP28_LR4"
	QSFP28CWDM4 Connector = "QSFP28_CWDM4"
	QSFP28PSM4  Connector = "QSFP28_PSM4"
	QSFP28CR4   Connector = "QSFP28_CR4"
	QSFP28CLR4  Connector = "QSFP28_CLR4"
)

// Status is the published connector_status of a port.
type Status string

const (
	StatusSupported    Status = "supported"
	StatusUnrecognized Status = "unrecognized"
)

// CableTechnology of a direct attach cable.
type CableTechnology string

const (
	CablePassive CableTechnology = "passive"
	CableActive  CableTechnology = "active"
)

// Speeds are in Mb/s.
const (
	Speed1G   = 1000
	Speed10G  = 10000
	Speed40G  = 40000
	Speed100G = 100000
)

type tableEntry struct {
	maxSpeed        int
	supportedSpeeds []int
}

// connectorTable holds the speeds of every supported connector. SFP_DAC is absent
// because its speed follows the nominal bit rate.
var connectorTable = map[Connector]tableEntry{
	SFPSX:   {Speed1G, []int{Speed1G}},
	SFPLX:   {Speed1G, []int{Speed1G}},
	SFPCX:   {Speed1G, []int{Speed1G}},
	SFPRJ45: {Speed1G, []int{Speed1G}},
	SFPSR:   {Speed10G, []int{Speed10G}},
	SFPLR:   {Speed10G, []int{Speed10G}},
	SFPLRM:  {Speed10G, []int{Speed10G}},

	QSFPCR4: {Speed40G, []int{Speed40G}},
	QSFPSR4: {Speed40G, []int{Speed40G}},
	QSFPLR4: {Speed40G, []int{Speed40G}},

	QSFP28SR4:   {Speed100G, []int{Speed100G}},
	QSFP28LR4:   {Speed100G, []int{Speed100G}},
	QSFP28CWDM4: {Speed100G, []int{Speed100G}},
	QSFP28PSM4:  {Speed100G, []int{Speed100G}},
	QSFP28CR4:   {Speed100G, []int{Speed100G}},
	QSFP28CLR4:  {Speed100G, []int{Speed100G}},
}

// DOMCapable lists the connectors whose modules carry digital optical monitoring.
var DOMCapable = map[Connector]bool{
	SFPSX:       true,
	SFPLX:       true,
	SFPSR:       true,
	SFPLR:       true,
	QSFPLR4:     true,
	QSFPSR4:     true,
	QSFP28SR4:   true,
	QSFP28LR4:   true,
	QSFP28CWDM4: true,
	QSFP28PSM4:  true,
	QSFP28CLR4:  true,
}

// IsDOMCapable reports whether DOM is decoded for c.
func IsDOMCapable(c Connector) bool {
	return DOMCapable[c]
}
