package provision

import "github.com/fieldbox/provisiond/internal/gpio"

// StepStatus is the outcome of one step in one run.
type StepStatus int

const (
	// StatusSatisfied means the precondition check short-circuited: the
	// step was already applied by an earlier run.
	StatusSatisfied StepStatus = iota
	// StatusApplied means the step mutated state this run.
	StatusApplied
	// StatusWarned means a soft-severity step failed; the plan continued.
	StatusWarned
	// StatusFailed means a fatal-severity step failed and aborted the plan.
	StatusFailed
	// StatusSkipped means the step had nothing to do in this mode.
	StatusSkipped
)

// String returns the lower-case status name.
func (s StepStatus) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusWarned:
		return "warned"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "satisfied"
	}
}

// StepResult records one step outcome for the report.
type StepResult struct {
	ID     string
	Status StepStatus
	Err    error
}

// GroupGrant records a group membership that must exist for the service
// account. Grants are ensured idempotently and never revoked automatically.
type GroupGrant struct {
	Account string
	Group   string
}

// Report is the verification report a run produces: every step outcome plus
// everything the summary enumerates — capabilities granted, group
// memberships ensured, and the backup location.
type Report struct {
	Phase Phase
	Mode  Mode

	Steps []StepResult

	// Granted is the full capability set the plan ensures.
	Granted []string
	// Groups are the ensured (account, group) pairs.
	Groups []GroupGrant
	// BackupPath is the pristine-content backup location.
	BackupPath string
	// Hardware collects self-test results from this run.
	Hardware []gpio.Result
	// RebootRequired is set when the interface enablement was freshly
	// written and has not taken effect yet.
	RebootRequired bool
	// Aborted is set when a fatal step failure cancelled the remainder.
	Aborted bool
}

// record appends a step outcome.
func (r *Report) record(id string, status StepStatus, err error) {
	r.Steps = append(r.Steps, StepResult{ID: id, Status: status, Err: err})
}

// Failed reports whether any step failed or warned.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed || s.Status == StatusWarned {
			return true
		}
	}
	return false
}

// Mutated reports whether any step applied a mutation this run.
func (r *Report) Mutated() bool {
	for _, s := range r.Steps {
		if s.Status == StatusApplied {
			return true
		}
	}
	return false
}
