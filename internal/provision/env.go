package provision

import (
	"io"
	"os"
	"os/user"

	"github.com/rs/zerolog"

	"github.com/fieldbox/provisiond/internal/config"
	"github.com/fieldbox/provisiond/internal/execx"
	"github.com/fieldbox/provisiond/internal/fsutil"
	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/hostinfo"
	"github.com/fieldbox/provisiond/internal/service"
	"github.com/fieldbox/provisiond/internal/sudoers"
)

// System abstracts the filesystem operations steps perform directly
// (firmware config edit, key registration, workspace creation). Defined
// package-locally, like the other System interfaces in this codebase, so
// plan tests can run against fakes.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFileAtomic writes data atomically via a temp file and rename.
func (RealSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Env is the explicit execution context handed to every step. Nothing is
// inferred from ambient process state inside a step; what a step needs, Env
// carries.
type Env struct {
	Config   *config.Config
	Runner   execx.Runner
	Sys      System
	Sudoers  *sudoers.Writer
	Service  *service.Manager
	Hardware *gpio.Harness
	Probe    hostinfo.Probe

	// HomeDir is the invoking user's home; unprivileged-phase paths
	// (authorized_keys, gnupg) resolve against it.
	HomeDir string
	// Lookup resolves local accounts; the CLI wires user.Lookup.
	Lookup func(name string) (*user.User, error)

	Out io.Writer
	Log zerolog.Logger

	// Report is set by the orchestrator for the duration of a run.
	Report *Report
}
