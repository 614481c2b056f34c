package execx

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnixShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix shell")
	}
}

func TestRealRunSuccess(t *testing.T) {
	requireUnixShell(t)
	r := Real{Log: zerolog.Nop()}
	assert.NoError(t, r.Run(context.Background(), "sh", "-c", "exit 0"))
}

func TestRealRunIncludesStderr(t *testing.T) {
	requireUnixShell(t)
	r := Real{Log: zerolog.Nop()}
	err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 3, ExitCode(err))
}

func TestRealOutput(t *testing.T) {
	requireUnixShell(t)
	r := Real{Log: zerolog.Nop()}
	out, err := r.Output(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestExitCodeNonExec(t *testing.T) {
	assert.Equal(t, -1, ExitCode(errors.New("plain")))
}

func TestLookPathMissing(t *testing.T) {
	r := Real{Log: zerolog.Nop()}
	_, err := r.LookPath("definitely-not-a-real-binary-name")
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}
