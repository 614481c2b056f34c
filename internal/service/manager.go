// Package service declares, enables, and smoke-tests the persistent
// background unit for the appliance recorder.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldbox/provisiond/internal/execx"
	"github.com/fieldbox/provisiond/internal/fsutil"
	"github.com/fieldbox/provisiond/internal/messages"
)

// Status is the coarse unit state the provisioner cares about.
type Status int

const (
	// StatusStopped means the unit is declared but not running.
	StatusStopped Status = iota
	// StatusRunning means the unit is active.
	StatusRunning
	// StatusFailed means the unit entered the failed state.
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusFailed:
		return "failed"
	default:
		return "stopped"
	}
}

// System abstracts filesystem operations for the unit file.
type System interface {
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFileAtomic writes data atomically via a temp file and rename.
func (RealSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// SmokeTestError reports a failed smoke test along with recent unit
// diagnostics. It is warning-class: provisioning continues.
type SmokeTestError struct {
	Unit        string
	Diagnostics string
	Err         error
}

// Error implements error.
func (e *SmokeTestError) Error() string {
	return fmt.Sprintf(messages.ServiceSmokeTestFailedFmt, e.Unit, e.Err)
}

// Unwrap returns the underlying failure.
func (e *SmokeTestError) Unwrap() error { return e.Err }

// Manager owns the unit lifecycle via systemctl.
type Manager struct {
	sys    System
	runner execx.Runner
	log    zerolog.Logger

	// UnitDir is where unit files are declared.
	UnitDir string
	// Grace is the wait between starting the unit and probing its status.
	Grace time.Duration
	// Sleep is a seam for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewManager returns a Manager with production defaults.
func NewManager(sys System, runner execx.Runner, log zerolog.Logger) *Manager {
	return &Manager{
		sys:     sys,
		runner:  runner,
		log:     log,
		UnitDir: "/etc/systemd/system",
		Grace:   3 * time.Second,
		Sleep:   time.Sleep,
	}
}

// UnitPath returns the path the unit for name is declared at. Its presence
// is also the elevated-phase marker the unprivileged phase checks for.
func (m *Manager) UnitPath(name string) string {
	return filepath.Join(m.UnitDir, name+".service")
}

// Declared reports whether the unit file exists with exactly the rendered
// content of spec. Used as a precondition check; performs no mutation.
func (m *Manager) Declared(spec UnitSpec) bool {
	existing, err := m.sys.ReadFile(m.UnitPath(spec.Name))
	if err != nil {
		return false
	}
	return string(existing) == spec.Render()
}

// Declare writes the unit file for spec and reloads the daemon. Declaring
// identical content is a no-op. Returns whether the file changed.
func (m *Manager) Declare(ctx context.Context, spec UnitSpec) (bool, error) {
	path := m.UnitPath(spec.Name)
	rendered := spec.Render()
	if existing, err := m.sys.ReadFile(path); err == nil && string(existing) == rendered {
		return false, nil
	}
	if err := m.sys.WriteFileAtomic(path, []byte(rendered), 0o644); err != nil {
		return false, fmt.Errorf(messages.ServiceDeclareFailedFmt, path, err)
	}
	if err := m.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return true, fmt.Errorf(messages.ServiceReloadFailedFmt, err)
	}
	return true, nil
}

// EnableOnBoot marks the unit for start at boot.
func (m *Manager) EnableOnBoot(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "systemctl", "enable", name); err != nil {
		return fmt.Errorf(messages.ServiceEnableFailedFmt, name, err)
	}
	return nil
}

// Enabled reports whether the unit is marked for start at boot.
func (m *Manager) Enabled(ctx context.Context, name string) bool {
	return m.runner.Run(ctx, "systemctl", "is-enabled", "--quiet", name) == nil
}

// Start starts the unit.
func (m *Manager) Start(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "systemctl", "start", name); err != nil {
		return fmt.Errorf(messages.ServiceStartFailedFmt, name, err)
	}
	return nil
}

// Stop stops the unit.
func (m *Manager) Stop(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "systemctl", "stop", name); err != nil {
		return fmt.Errorf(messages.ServiceStopFailedFmt, name, err)
	}
	return nil
}

// Status probes the unit state. systemctl is-active exits non-zero for
// anything but active, so the textual output decides the state.
func (m *Manager) Status(ctx context.Context, name string) Status {
	out, err := m.runner.Output(ctx, "systemctl", "is-active", name)
	state := strings.TrimSpace(string(out))
	if err == nil && state == "active" {
		return StatusRunning
	}
	if state == "failed" {
		return StatusFailed
	}
	return StatusStopped
}

// SmokeTest starts the unit, waits the grace period, confirms it is running,
// then stops it and confirms clean shutdown. The unit is not left running:
// its production run is a later, separate operator action. On failure the
// recent journal is captured, the failed latch is cleared, and a
// *SmokeTestError is returned.
func (m *Manager) SmokeTest(ctx context.Context, name string) error {
	m.log.Debug().Str("unit", name).Msg("smoke test: starting unit")
	if err := m.Start(ctx, name); err != nil {
		return m.smokeFailure(ctx, name, err)
	}

	m.Sleep(m.Grace)
	if st := m.Status(ctx, name); st != StatusRunning {
		err := fmt.Errorf(messages.ServiceNotRunningAfterStartFmt, name, st)
		return m.smokeFailure(ctx, name, err)
	}

	if err := m.Stop(ctx, name); err != nil {
		return m.smokeFailure(ctx, name, err)
	}
	if st := m.Status(ctx, name); st == StatusRunning {
		return m.smokeFailure(ctx, name, fmt.Errorf(messages.ServiceDidNotStopFmt, name))
	}
	m.log.Debug().Str("unit", name).Msg("smoke test: clean start and stop")
	return nil
}

// smokeFailure captures diagnostics, clears the failed latch, and wraps err.
func (m *Manager) smokeFailure(ctx context.Context, name string, err error) error {
	diag := m.diagnostics(ctx, name)
	// Clear the failed latch so a later operator start is not refused.
	_ = m.runner.Run(ctx, "systemctl", "reset-failed", name)
	return &SmokeTestError{Unit: name, Diagnostics: diag, Err: err}
}

// diagnostics returns the recent journal tail for the unit, best effort.
func (m *Manager) diagnostics(ctx context.Context, name string) string {
	out, err := m.runner.Output(ctx, "journalctl", "-u", name, "-n", "20", "--no-pager")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
