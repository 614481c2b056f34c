// Package provision composes the provisioning plan: ordered, idempotent
// steps split into an elevated phase and an unprivileged phase, each with
// separable precondition, apply, and verify logic.
package provision

import (
	"context"
	"errors"

	"github.com/fieldbox/provisiond/internal/messages"
)

// ErrPrecondition marks failures that abort before any mutation: wrong host
// class, wrong privilege context, or a missing phase-ordering artifact.
var ErrPrecondition = errors.New(messages.ProvisionPreconditionFailed)

// Phase orders the two provisioning stages; every elevated step strictly
// precedes every unprivileged step.
type Phase int

const (
	// PhaseElevated steps must run with effective UID 0.
	PhaseElevated Phase = iota
	// PhaseUnprivileged steps run as the operator or service account.
	PhaseUnprivileged
)

// String returns the phase name.
func (p Phase) String() string {
	if p == PhaseElevated {
		return "elevated"
	}
	return "unprivileged"
}

// Severity decides what a step failure does to the rest of the plan.
type Severity int

const (
	// SeveritySoft failures are logged as warnings; the plan continues.
	SeveritySoft Severity = iota
	// SeverityFatal failures abort the remaining plan immediately, without
	// compensating rollback.
	SeverityFatal
)

// Mode selects what Run does with each step.
type Mode int

const (
	// ModeApply executes the full plan, skipping already-satisfied steps.
	ModeApply Mode = iota
	// ModeVerify runs only precondition and verify checks; no mutation.
	ModeVerify
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeVerify {
		return "verify"
	}
	return "apply"
}

// CheckFunc reports whether a step is already satisfied. Gate steps return
// an error (wrapping ErrPrecondition) instead of false when the condition
// cannot be met by applying anything.
type CheckFunc func(ctx context.Context, env *Env) (bool, error)

// StepFunc applies or verifies a step.
type StepFunc func(ctx context.Context, env *Env) error

// Step is one entry in the fixed linear plan. Steps are created at
// plan-build time and never mutated afterwards; each assumes the side
// effects of its predecessors.
type Step struct {
	ID       string
	Phase    Phase
	Severity Severity
	// Check short-circuits Apply when the step is already satisfied, so a
	// second full run performs zero additional mutations.
	Check CheckFunc
	// Apply performs the step's idempotent mutation. Nil for pure gates.
	Apply StepFunc
	// Verify confirms the postcondition; also used by verify mode.
	Verify StepFunc
}
