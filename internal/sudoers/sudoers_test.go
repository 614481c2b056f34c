package sudoers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "appliance")
	return NewWriter(RealSystem{}, path), path
}

func TestGrantCreatesResourceAndBackup(t *testing.T) {
	w, path := newTestWriter(t)

	outcome, err := w.Grant([]string{"line-b", "line-a"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "line-a\n")
	assert.Contains(t, content, "line-b\n")
	// sorted order
	assert.Less(t, strings.Index(content, "line-a"), strings.Index(content, "line-b"))

	backup, err := os.ReadFile(w.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "", string(backup), "backup records the pristine (empty) state")
}

func TestGrantAlreadyApplied(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := w.Grant([]string{"entry"})
	require.NoError(t, err)

	outcome, err := w.Grant([]string{"entry"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyApplied, outcome)
}

func TestBackupCreatedExactlyOnce(t *testing.T) {
	w, path := newTestWriter(t)
	require.NoError(t, os.WriteFile(path, []byte("pristine\n"), 0o440))

	for _, entry := range []string{"one", "two", "three"} {
		_, err := w.Grant([]string{entry})
		require.NoError(t, err)
	}

	backup, err := os.ReadFile(w.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "pristine\n", string(backup))
}

func TestRestoreReproducesPristineContent(t *testing.T) {
	w, path := newTestWriter(t)
	pristine := "original line\n# a comment\n"
	require.NoError(t, os.WriteFile(path, []byte(pristine), 0o440))

	_, err := w.Grant([]string{"granted-x"})
	require.NoError(t, err)
	_, err = w.Grant([]string{"granted-y"})
	require.NoError(t, err)

	require.NoError(t, w.Restore())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pristine, string(data))
}

func TestRestoreWithoutBackup(t *testing.T) {
	w, _ := newTestWriter(t)
	err := w.Restore()
	assert.True(t, errors.Is(err, ErrNoBackup))
}

func TestGrantMergeScenario(t *testing.T) {
	w, path := newTestWriter(t)

	_, err := w.Grant([]string{"toolA", "toolB"})
	require.NoError(t, err)
	backupBefore, err := os.ReadFile(w.BackupPath())
	require.NoError(t, err)

	_, err = w.Grant([]string{"toolA", "toolC"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, entry := range []string{"toolA", "toolB", "toolC"} {
		assert.Equal(t, 1, strings.Count(string(data), entry), entry)
	}

	backupAfter, err := os.ReadFile(w.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, backupBefore, backupAfter, "backup unchanged after first call")
}

func TestMissingSorted(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := w.Grant([]string{"b"})
	require.NoError(t, err)

	missing, err := w.Missing([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, missing)
}

func TestDiffEmptyWhenSatisfied(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := w.Grant([]string{"entry"})
	require.NoError(t, err)

	diff, err := w.Diff([]string{"entry"})
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffShowsPendingEntries(t *testing.T) {
	w, _ := newTestWriter(t)
	diff, err := w.Diff([]string{"pending-entry"})
	require.NoError(t, err)
	assert.Contains(t, diff, "+pending-entry")
}

type failingSystem struct {
	RealSystem
	failWrite bool
	failRead  bool
}

func (s failingSystem) ReadFile(name string) ([]byte, error) {
	if s.failRead {
		return nil, errors.New("io error")
	}
	return s.RealSystem.ReadFile(name)
}

func (s failingSystem) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	if s.failWrite {
		return errors.New("disk full")
	}
	return s.RealSystem.WriteFileAtomic(name, data, perm)
}

func TestGrantWriteFailureIsTransactionError(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(failingSystem{failWrite: true}, filepath.Join(dir, "appliance"))
	_, err := w.Grant([]string{"entry"})
	assert.True(t, errors.Is(err, ErrTransaction))
}

func TestGrantReadFailureIsTransactionError(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(failingSystem{failRead: true}, filepath.Join(dir, "appliance"))
	_, err := w.Grant([]string{"entry"})
	assert.True(t, errors.Is(err, ErrTransaction))
}
