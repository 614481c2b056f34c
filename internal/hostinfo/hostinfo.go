// Package hostinfo probes the host the provisioner is running on: board
// class, privilege context, and whether the one-time camera/GPIO interface
// enablement has been written to the firmware config.
package hostinfo

import (
	"os"
	"strings"

	"github.com/fieldbox/provisiond/internal/lineset"
)

// InterfaceLines are the firmware config lines that enable the camera and
// keep GPIO available. They take effect only after a reboot.
var InterfaceLines = []string{
	"camera_auto_detect=1",
	"dtparam=spi=off",
}

// Probe reads host facts. Paths are fields so tests can point it at fixture
// files.
type Probe struct {
	// ModelPath is the device-tree model file identifying the board.
	ModelPath string
	// FirmwareConfigPaths are candidate firmware config locations, newest
	// layout first.
	FirmwareConfigPaths []string
	// Geteuid reports the effective UID; defaults to os.Geteuid.
	Geteuid func() int
}

// DefaultProbe returns a Probe wired to the real host.
func DefaultProbe() Probe {
	return Probe{
		ModelPath: "/proc/device-tree/model",
		FirmwareConfigPaths: []string{
			"/boot/firmware/config.txt",
			"/boot/config.txt",
		},
		Geteuid: os.Geteuid,
	}
}

// IsRaspberryPi reports whether the device-tree model identifies a
// Raspberry Pi board.
func (p Probe) IsRaspberryPi() bool {
	data, err := os.ReadFile(p.ModelPath)
	if err != nil {
		return false
	}
	// The model file is NUL-terminated.
	model := strings.TrimRight(string(data), "\x00")
	return strings.Contains(model, "Raspberry Pi")
}

// IsElevated reports whether the process runs with effective UID 0.
func (p Probe) IsElevated() bool {
	euid := os.Geteuid
	if p.Geteuid != nil {
		euid = p.Geteuid
	}
	return euid() == 0
}

// FirmwareConfigPath returns the first existing firmware config candidate,
// or empty when none exists (non-Pi host or unmounted boot partition).
func (p Probe) FirmwareConfigPath() string {
	for _, path := range p.FirmwareConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// InterfacesEnabled reports whether every interface-enablement line is
// present in the firmware config. Presence of the lines is the marker; the
// interfaces themselves only activate after a reboot.
func (p Probe) InterfacesEnabled() bool {
	path := p.FirmwareConfigPath()
	if path == "" {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return len(lineset.Missing(string(data), InterfaceLines)) == 0
}
