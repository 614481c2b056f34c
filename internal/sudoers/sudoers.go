// Package sudoers maintains the privilege-grant resource: the sudoers
// drop-in that confers passwordless elevated access to the specific commands
// the appliance service needs.
//
// All mutation is transactional in the sense the appliance cares about: the
// pristine pre-automation content is backed up exactly once, before the
// first ever change, and Restore rewinds to it byte-for-byte. No other
// package touches the resource directly.
package sudoers

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/aymanbagabas/go-udiff"

	"github.com/fieldbox/provisiond/internal/fsutil"
	"github.com/fieldbox/provisiond/internal/lineset"
	"github.com/fieldbox/provisiond/internal/messages"
)

// ErrNoBackup is returned by Restore when no backup has ever been created.
var ErrNoBackup = errors.New(messages.SudoersNoBackup)

// ErrTransaction wraps read/write failures of the grant resource. Downstream
// provisioning steps assume the grants exist, so these are fatal.
var ErrTransaction = errors.New(messages.SudoersTransactionFailed)

// Outcome reports what a Grant call did.
type Outcome int

const (
	// OutcomeAlreadyApplied means every requested entry was already present.
	OutcomeAlreadyApplied Outcome = iota
	// OutcomeApplied means at least one entry was appended.
	OutcomeApplied
)

// System abstracts the filesystem operations the writer needs. Defined
// package-locally so tests can run against fakes without shared state.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
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

// Writer mutates a single grant resource with backup-once semantics.
type Writer struct {
	sys    System
	path   string
	backup string
}

const (
	// grantPerm matches sudoers drop-in conventions.
	grantPerm os.FileMode = 0o440
	backupSuffix           = ".provisiond.bak"
)

// NewWriter returns a Writer for the grant resource at path.
func NewWriter(sys System, path string) *Writer {
	return &Writer{sys: sys, path: path, backup: path + backupSuffix}
}

// Path returns the grant resource path.
func (w *Writer) Path() string { return w.path }

// BackupPath returns the backup location, whether or not it exists yet.
func (w *Writer) BackupPath() string { return w.backup }

// HasBackup reports whether the one-time backup exists.
func (w *Writer) HasBackup() bool {
	_, err := w.sys.Stat(w.backup)
	return err == nil
}

// Grant ensures every entry is present in the resource as a literal line.
// Entries are appended in sorted order, prefixed by the managed-section
// comment the first time any entry is added. The pristine content is backed
// up before the first ever mutation and never overwritten afterwards.
func (w *Writer) Grant(entries []string) (Outcome, error) {
	content, err := w.read()
	if err != nil {
		return OutcomeAlreadyApplied, err
	}

	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)

	if len(lineset.Missing(content, sorted)) == 0 {
		return OutcomeAlreadyApplied, nil
	}

	if err := w.ensureBackup(content); err != nil {
		return OutcomeAlreadyApplied, err
	}

	merged, _ := lineset.Merge(content, messages.SudoersSectionComment, sorted)
	if err := w.sys.WriteFileAtomic(w.path, []byte(merged), grantPerm); err != nil {
		return OutcomeAlreadyApplied, fmt.Errorf(messages.SudoersWriteFailedFmt, w.path, ErrTransaction, err)
	}
	return OutcomeApplied, nil
}

// Missing returns the entries not yet present in the resource.
func (w *Writer) Missing(entries []string) ([]string, error) {
	content, err := w.read()
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)
	return lineset.Missing(content, sorted), nil
}

// Diff renders a unified diff between the current resource content and the
// content Grant would produce. Used by verify mode; performs no mutation.
func (w *Writer) Diff(entries []string) (string, error) {
	content, err := w.read()
	if err != nil {
		return "", err
	}
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)
	merged, changed := lineset.Merge(content, messages.SudoersSectionComment, sorted)
	if !changed {
		return "", nil
	}
	return udiff.Unified(w.path, w.path+" (expected)", content, merged), nil
}

// Restore overwrites the resource with the backup, byte-for-byte. Fails with
// ErrNoBackup when no mutation has ever been made.
func (w *Writer) Restore() error {
	data, err := w.sys.ReadFile(w.backup)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoBackup
		}
		return fmt.Errorf(messages.SudoersReadFailedFmt, w.backup, ErrTransaction, err)
	}
	if err := w.sys.WriteFileAtomic(w.path, data, grantPerm); err != nil {
		return fmt.Errorf(messages.SudoersWriteFailedFmt, w.path, ErrTransaction, err)
	}
	return nil
}

// read returns the current resource content. A resource that does not exist
// yet reads as empty; any other failure is a transaction error.
func (w *Writer) read() (string, error) {
	data, err := w.sys.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf(messages.SudoersReadFailedFmt, w.path, ErrTransaction, err)
	}
	return string(data), nil
}

// ensureBackup writes the backup only when absent, preserving the pristine
// pre-automation state across repeated runs.
func (w *Writer) ensureBackup(content string) error {
	if w.HasBackup() {
		return nil
	}
	if err := w.sys.WriteFileAtomic(w.backup, []byte(content), grantPerm); err != nil {
		return fmt.Errorf(messages.SudoersBackupFailedFmt, w.backup, ErrTransaction, err)
	}
	return nil
}
