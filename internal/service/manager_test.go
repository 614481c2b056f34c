package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner scripts command results by joined command line.
type fakeRunner struct {
	calls   []string
	fail    map[string]error
	outputs map[string]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]error{}, outputs: map[string]string{}}
}

func (f *fakeRunner) key(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	k := f.key(name, args...)
	f.calls = append(f.calls, k)
	return f.fail[k]
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	k := f.key(name, args...)
	f.calls = append(f.calls, k)
	return []byte(f.outputs[k]), f.fail[k]
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return filepath.Join("/usr/bin", name), nil
}

func newTestManager(t *testing.T, runner *fakeRunner) *Manager {
	t.Helper()
	m := NewManager(RealSystem{}, runner, zerolog.Nop())
	m.UnitDir = t.TempDir()
	m.Grace = 0
	m.Sleep = func(time.Duration) {}
	return m
}

func testSpec() UnitSpec {
	return UnitSpec{
		Name:        "fieldrecorder",
		Description: "Button-operated field recorder",
		Command:     "/usr/local/bin/fieldrecorder",
		WorkingDir:  "/home/appliance/assets",
		User:        "appliance",
		Env:         map[string]string{"TZ": "UTC", "ASSETS_DIR": "/home/appliance/assets"},
	}
}

func TestDeclareIdempotent(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	spec := testSpec()

	changed, err := m.Declare(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, runner.calls, "systemctl daemon-reload")

	runner.calls = nil
	changed, err = m.Declare(context.Background(), spec)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, runner.calls, "identical content must not reload the daemon")
	assert.True(t, m.Declared(spec))
}

func TestStatusParsing(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	ctx := context.Background()

	runner.outputs["systemctl is-active u"] = "active\n"
	assert.Equal(t, StatusRunning, m.Status(ctx, "u"))

	runner.outputs["systemctl is-active u"] = "failed\n"
	runner.fail["systemctl is-active u"] = errors.New("exit 3")
	assert.Equal(t, StatusFailed, m.Status(ctx, "u"))

	runner.outputs["systemctl is-active u"] = "inactive\n"
	assert.Equal(t, StatusStopped, m.Status(ctx, "u"))
}

func TestSmokeTestSuccessLeavesUnitStopped(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	idx := 0
	m.runner = &sequencedRunner{
		inner:    runner,
		statuses: []string{"active\n", "inactive\n"},
		idx:      &idx,
	}

	require.NoError(t, m.SmokeTest(context.Background(), "u"))
	assert.Contains(t, runner.calls, "systemctl start u")
	assert.Contains(t, runner.calls, "systemctl stop u")
}

// sequencedRunner returns successive is-active statuses, delegating
// everything else to the wrapped fake.
type sequencedRunner struct {
	inner    *fakeRunner
	statuses []string
	idx      *int
}

func (s *sequencedRunner) Run(ctx context.Context, name string, args ...string) error {
	return s.inner.Run(ctx, name, args...)
}

func (s *sequencedRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "systemctl" && len(args) > 0 && args[0] == "is-active" {
		s.inner.calls = append(s.inner.calls, s.inner.key(name, args...))
		if *s.idx < len(s.statuses) {
			out := s.statuses[*s.idx]
			*s.idx++
			return []byte(out), nil
		}
		return []byte("inactive\n"), nil
	}
	return s.inner.Output(ctx, name, args...)
}

func (s *sequencedRunner) LookPath(name string) (string, error) {
	return s.inner.LookPath(name)
}

func TestSmokeTestFailureCapturesDiagnosticsAndResetsLatch(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	runner.fail["systemctl start u"] = errors.New("exit 1")
	runner.outputs["journalctl -u u -n 20 --no-pager"] = "unit log tail"

	err := m.SmokeTest(context.Background(), "u")
	require.Error(t, err)

	var smokeErr *SmokeTestError
	require.True(t, errors.As(err, &smokeErr))
	assert.Equal(t, "unit log tail", smokeErr.Diagnostics)
	assert.Contains(t, runner.calls, "systemctl reset-failed u")
}

func TestSmokeTestNotRunningAfterGrace(t *testing.T) {
	runner := newFakeRunner()
	m := newTestManager(t, runner)
	runner.outputs["systemctl is-active u"] = "inactive\n"

	err := m.SmokeTest(context.Background(), "u")
	var smokeErr *SmokeTestError
	require.True(t, errors.As(err, &smokeErr))
	assert.Contains(t, smokeErr.Error(), "u")
}

func TestUnitPath(t *testing.T) {
	m := NewManager(RealSystem{}, newFakeRunner(), zerolog.Nop())
	assert.Equal(t, "/etc/systemd/system/fieldrecorder.service", m.UnitPath("fieldrecorder"))
}

func TestSmokeTestErrorMessage(t *testing.T) {
	err := &SmokeTestError{Unit: "u", Err: fmt.Errorf("boom")}
	assert.Contains(t, err.Error(), "boom")
}
