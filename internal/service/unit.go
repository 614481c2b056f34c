package service

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// UnitSpec declares the persistent background unit that launches the
// recorder. The rendered unit always restarts on exit with a fixed short
// backoff and an explicitly unlimited restart burst: a field-deployed,
// button-operated appliance must keep attempting to serve with no operator
// present.
type UnitSpec struct {
	Name        string
	Description string
	Command     string
	WorkingDir  string
	User        string
	Env         map[string]string
	RestartSec  time.Duration
}

// DefaultRestartSec is the fixed backoff between restart attempts.
const DefaultRestartSec = 2 * time.Second

// Render produces the systemd unit file content for the spec. Environment
// variables are emitted in sorted order so re-rendering is deterministic and
// Declare can compare content for the idempotent no-op path.
func (s UnitSpec) Render() string {
	restart := s.RestartSec
	if restart <= 0 {
		restart = DefaultRestartSec
	}

	var b strings.Builder
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=%s\n", s.Description)
	b.WriteString("After=network.target\n")
	// StartLimitIntervalSec=0 disables the restart burst limit entirely.
	b.WriteString("StartLimitIntervalSec=0\n")
	b.WriteString("\n[Service]\n")
	fmt.Fprintf(&b, "ExecStart=%s\n", s.Command)
	if s.WorkingDir != "" {
		fmt.Fprintf(&b, "WorkingDirectory=%s\n", s.WorkingDir)
	}
	if s.User != "" {
		fmt.Fprintf(&b, "User=%s\n", s.User)
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "Environment=%s=%s\n", k, s.Env[k])
	}
	b.WriteString("Restart=always\n")
	fmt.Fprintf(&b, "RestartSec=%d\n", int(restart.Seconds()))
	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}
