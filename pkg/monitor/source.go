package monitor

import (
	"context"
	"fmt"
	"os"

	"github.com/sonic-net/sonic-pmd/pkg/eeprom"
)

// FileSource reads a flat EEPROM dump: the serial ID page, followed on SFP modules by
// the A2 page.
type FileSource string

func (f FileSource) ReadImage(ctx context.Context) (eeprom.Image, error) {
	if err := ctx.Err(); err != nil {
		return eeprom.Image{}, err
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return eeprom.Image{}, err
	}
	return eeprom.SplitImage(data), nil
}

func (f FileSource) String() string { return string(f) }

// DeviceSource reads the pages of a module from the files a platform driver exposes,
// e.g. the sysfs eeprom attributes of an optoe device. Diag is optional.
type DeviceSource struct {
	Serial string
	Diag   string
}

func (d DeviceSource) ReadImage(ctx context.Context) (eeprom.Image, error) {
	serial, err := os.ReadFile(d.Serial)
	if err != nil {
		return eeprom.Image{}, err
	}
	if err := ctx.Err(); err != nil {
		return eeprom.Image{}, err
	}

	// Without a separate A2 file the driver exposes both pages back to back.
	if d.Diag == "" {
		return eeprom.SplitImage(serial), nil
	}
	diag, err := os.ReadFile(d.Diag)
	if err != nil {
		return eeprom.Image{}, fmt.Errorf("diagnostics page: %w", err)
	}
	if len(serial) > eeprom.PageSize {
		serial = serial[:eeprom.PageSize]
	}
	if len(diag) > eeprom.PageSize {
		diag = diag[:eeprom.PageSize]
	}
	return eeprom.Image{Serial: serial, Diag: diag}, nil
}

func (d DeviceSource) String() string { return d.Serial }
