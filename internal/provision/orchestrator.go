package provision

import (
	"context"
	"fmt"

	"github.com/fieldbox/provisiond/internal/messages"
)

// Orchestrator walks a fixed linear plan strictly sequentially. Later steps
// assume the fully settled state of earlier ones; nothing runs concurrently.
type Orchestrator struct {
	Plan []Step
	Env  *Env

	// Notify receives each step outcome as it happens; the CLI uses it to
	// print the per-step status line. Optional.
	Notify func(StepResult)
}

// New returns an orchestrator for plan over env.
func New(plan []Step, env *Env) *Orchestrator {
	return &Orchestrator{Plan: plan, Env: env}
}

// Run executes the steps of phase in declaration order under mode and
// returns the report. A fatal step failure aborts the remaining plan
// immediately — already-applied steps are never rolled back automatically —
// and is also returned as the error. Soft failures are recorded as warnings
// and the plan continues.
func (o *Orchestrator) Run(ctx context.Context, phase Phase, mode Mode) (*Report, error) {
	report := &Report{Phase: phase, Mode: mode}
	o.Env.Report = report

	for _, step := range o.Plan {
		if step.Phase != phase {
			continue
		}
		var res StepResult
		switch mode {
		case ModeVerify:
			res = o.verifyStep(ctx, step)
		default:
			res = o.applyStep(ctx, step)
		}
		report.record(res.ID, res.Status, res.Err)
		if o.Notify != nil {
			o.Notify(res)
		}
		if res.Status == StatusFailed {
			report.Aborted = true
			return report, fmt.Errorf(messages.ProvisionStepFailedFmt, step.ID, res.Err)
		}
	}
	return report, nil
}

// applyStep runs one step in apply mode: precondition check, idempotent
// apply, postcondition verify.
func (o *Orchestrator) applyStep(ctx context.Context, step Step) StepResult {
	if step.Check != nil {
		satisfied, err := step.Check(ctx, o.Env)
		if err != nil {
			return o.failure(step, err)
		}
		if satisfied {
			return StepResult{ID: step.ID, Status: StatusSatisfied}
		}
	}
	if step.Apply == nil {
		return StepResult{ID: step.ID, Status: StatusSkipped}
	}
	if err := step.Apply(ctx, o.Env); err != nil {
		return o.failure(step, err)
	}
	if step.Verify != nil {
		if err := step.Verify(ctx, o.Env); err != nil {
			return o.failure(step, err)
		}
	}
	return StepResult{ID: step.ID, Status: StatusApplied}
}

// verifyStep runs one step in verify mode: checks only, no mutation, and no
// abort — the point of verify is a complete report.
func (o *Orchestrator) verifyStep(ctx context.Context, step Step) StepResult {
	if step.Check == nil && step.Verify == nil {
		return StepResult{ID: step.ID, Status: StatusSkipped}
	}
	if step.Check != nil {
		satisfied, err := step.Check(ctx, o.Env)
		if err != nil {
			return StepResult{ID: step.ID, Status: StatusWarned, Err: err}
		}
		if !satisfied {
			res := StepResult{ID: step.ID, Status: StatusWarned, Err: fmt.Errorf(messages.ProvisionNotAppliedFmt, step.ID)}
			// Verify still runs so pending detail, like the grant diff,
			// reaches the operator.
			if step.Verify != nil {
				if err := step.Verify(ctx, o.Env); err != nil {
					res.Err = err
				}
			}
			return res
		}
	}
	if step.Verify != nil {
		if err := step.Verify(ctx, o.Env); err != nil {
			return StepResult{ID: step.ID, Status: StatusWarned, Err: err}
		}
	}
	return StepResult{ID: step.ID, Status: StatusSatisfied}
}

// failure classifies a step error by the step's declared severity.
func (o *Orchestrator) failure(step Step, err error) StepResult {
	if step.Severity == SeverityFatal {
		return StepResult{ID: step.ID, Status: StatusFailed, Err: err}
	}
	o.Env.Log.Warn().Str("step", step.ID).Err(err).Msg("soft step failure; continuing")
	return StepResult{ID: step.ID, Status: StatusWarned, Err: err}
}
