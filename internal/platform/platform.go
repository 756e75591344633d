// Package platform loads the description of the switch's pluggable ports.
package platform

import (
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

// DefaultPath is where the daemon looks for the port description.
const DefaultPath = "/etc/sonic/pmd/ports.yaml"

// Port is one front panel port.
type Port struct {
	Name      string `yaml:"name"`
	Connector string `yaml:"connector"`
	// Pluggable defaults to true; fixed ports are skipped.
	Pluggable *bool `yaml:"pluggable,omitempty"`
	// EEPROM is the file exposing the serial ID page, DOMEEPROM the SFP A2 page.
	EEPROM    string `yaml:"eeprom,omitempty"`
	DOMEEPROM string `yaml:"dom_eeprom,omitempty"`
	// Presence is a file reading non-zero while a module is seated.
	Presence string `yaml:"presence,omitempty"`

	family eeprom.Family
}

// Description is the content of ports.yaml.
type Description struct {
	Ports []Port `yaml:"ports"`
}

// Family returns the module family the cage accepts.
func (p *Port) Family() eeprom.Family {
	return p.family
}

// IsPluggable reports whether the port takes a pluggable module.
func (p *Port) IsPluggable() bool {
	return p.Pluggable == nil || *p.Pluggable
}

// Source returns the device files of the port as an image source, or nil when the
// port has none.
func (p *Port) Source() monitor.ImageSource {
	if p.EEPROM == "" {
		return nil
	}
	return monitor.DeviceSource{Serial: p.EEPROM, Diag: p.DOMEEPROM}
}

// Load reads and validates the description at path.
func Load(path string) (*Description, error) {
	if err := validateFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	glog.V(1).Infof("Loaded %d ports from %s", len(d.Ports), path)
	return d, nil
}

// Parse decodes and validates a description.
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("invalid platform description: %w", err)
	}
	return &d, nil
}

func (d *Description) validate() error {
	if len(d.Ports) == 0 {
		return fmt.Errorf("at least one port is required")
	}
	seen := make(map[string]bool, len(d.Ports))
	for i := range d.Ports {
		p := &d.Ports[i]
		if p.Name == "" {
			return fmt.Errorf("port[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("port[%d]: duplicate name '%s'", i, p.Name)
		}
		seen[p.Name] = true

		family, err := eeprom.ParseFamily(p.Connector)
		if err != nil {
			return fmt.Errorf("port %s: %w", p.Name, err)
		}
		p.family = family
		if p.Presence != "" && p.EEPROM == "" {
			return fmt.Errorf("port %s: presence requires an eeprom file", p.Name)
		}
		if p.DOMEEPROM != "" && p.EEPROM == "" {
			return fmt.Errorf("port %s: dom_eeprom requires an eeprom file", p.Name)
		}
	}
	return nil
}

// Default describes a simulated 48 x SFP+ and 6 x QSFP+ switch with ports named
// "1" to "54".
func Default() *Description {
	d := &Description{}
	for i := 1; i <= 54; i++ {
		p := Port{Name: strconv.Itoa(i), Connector: "SFP_PLUS", family: eeprom.FamilySFP}
		if i > 48 {
			p.Connector, p.family = "QSFP_PLUS", eeprom.FamilyQSFP
		}
		d.Ports = append(d.Ports, p)
	}
	return d
}

// Specs returns the pluggable ports in monitor form.
func (d *Description) Specs() []monitor.PortSpec {
	specs := make([]monitor.PortSpec, 0, len(d.Ports))
	for i := range d.Ports {
		p := &d.Ports[i]
		if !p.IsPluggable() {
			glog.V(2).Infof("Port %s is not pluggable, skipping", p.Name)
			continue
		}
		specs = append(specs, monitor.PortSpec{Name: p.Name, Family: p.family})
	}
	return specs
}

// Watched returns the pluggable ports that declare a presence file.
func (d *Description) Watched() []Port {
	var ports []Port
	for _, p := range d.Ports {
		if p.IsPluggable() && p.Presence != "" {
			ports = append(ports, p)
		}
	}
	return ports
}

// validateFile checks that path names a readable regular file.
func validateFile(path string) error {
	if path == "" {
		return fmt.Errorf("platform file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("platform file '%s' does not exist", path)
		}
		return fmt.Errorf("cannot access platform file '%s': %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("platform file '%s' is not a regular file", path)
	}
	return nil
}
