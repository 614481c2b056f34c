package gpio

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldbox/provisiond/internal/messages"
)

// Status is the terminal state of a hardware test.
type Status string

const (
	// StatusPass means the test completed; for the sensor this includes a
	// clean timeout, which is a valid observation, not a fault.
	StatusPass Status = "pass"
	// StatusFail means every privilege context raised a fault.
	StatusFail Status = "fail"
	// StatusDeferred means the interface-enablement marker is absent and
	// the test was skipped; a reboot has not yet activated the interfaces.
	StatusDeferred Status = "deferred"
)

// Result describes one hardware test invocation. Created fresh per test,
// never persisted.
type Result struct {
	Kind     string
	Pin      int
	Expected string
	Observed string
	Status   Status
	Attempts int
}

// Defaults for the actuator and sensor protocols.
const (
	DefaultCycles       = 5
	DefaultOnDuration   = 500 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
)

// Harness drives the actuator and sensor tests with dual-context retry.
type Harness struct {
	// Contexts are the privilege contexts to attempt, in order. On a raised
	// fault (never on a clean timeout) the next context is tried, at most
	// once; the first success short-circuits.
	Contexts []Opener
	// Out receives operator-facing narration.
	Out io.Writer
	Log zerolog.Logger

	// InterfacesEnabled gates the harness on the one-time enablement marker.
	// When it reports false the tests defer instead of failing.
	InterfacesEnabled func() bool

	PollInterval time.Duration
	Sleep        func(time.Duration)
	Now          func() time.Time
}

// NewHarness returns a Harness with production defaults.
func NewHarness(contexts []Opener, out io.Writer, log zerolog.Logger) *Harness {
	return &Harness{
		Contexts:     contexts,
		Out:          out,
		Log:          log,
		PollInterval: DefaultPollInterval,
		Sleep:        time.Sleep,
		Now:          time.Now,
	}
}

// TestActuator drives pin through cycles on/off half-cycles of onDuration
// each. Success is the sequence completing without a fault from the I/O
// layer; the line claim is released on every exit path.
func (h *Harness) TestActuator(pin int, cycles int, onDuration time.Duration) Result {
	if cycles <= 0 {
		cycles = DefaultCycles
	}
	if onDuration <= 0 {
		onDuration = DefaultOnDuration
	}
	res := Result{
		Kind:     "actuator",
		Pin:      pin,
		Expected: fmt.Sprintf(messages.GPIOActuatorExpectedFmt, cycles, onDuration),
	}
	if h.deferred(&res) {
		return res
	}

	fmt.Fprintf(h.Out, messages.GPIOActuatorStartFmt, pin, cycles)
	h.withRetry(&res, func(op Opener) error {
		return h.blink(op, pin, cycles, onDuration)
	}, messages.GPIOActuatorObserved)
	return res
}

// blink runs the full on/off sequence under one privilege context.
func (h *Harness) blink(op Opener, pin int, cycles int, onDuration time.Duration) error {
	line, err := op.OpenOutput(pin, 0)
	if err != nil {
		return err
	}
	defer func() {
		_ = line.SetValue(0)
		_ = line.Close()
	}()

	for cycle := 1; cycle <= cycles; cycle++ {
		if err := line.SetValue(1); err != nil {
			return fmt.Errorf(messages.GPIODriveFailedFmt, pin, err)
		}
		h.transition(pin, cycle, cycles, "on")
		h.Sleep(onDuration)
		if err := line.SetValue(0); err != nil {
			return fmt.Errorf(messages.GPIODriveFailedFmt, pin, err)
		}
		h.transition(pin, cycle, cycles, "off")
		h.Sleep(onDuration)
	}
	return nil
}

// transition narrates and traces a single actuator transition.
func (h *Harness) transition(pin int, cycle int, cycles int, state string) {
	fmt.Fprintf(h.Out, messages.GPIOTransitionFmt, state, cycle, cycles)
	h.Log.Debug().Int("pin", pin).Str("state", state).Int("cycle", cycle).Msg("actuator transition")
}

// TestSensor samples a baseline level on pin, then polls until the level
// differs from the baseline or timeout elapses. A timeout reports
// "not-detected" and is a valid terminal observation, never a fault.
//
// Detection fires on the first observed change with no debounce filtering;
// electrical noise can register as a press. The production recorder owns
// debouncing — this harness only proves the line is readable and live.
func (h *Harness) TestSensor(pin int, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	res := Result{
		Kind:     "sensor",
		Pin:      pin,
		Expected: fmt.Sprintf(messages.GPIOSensorExpectedFmt, timeout),
	}
	if h.deferred(&res) {
		return res
	}

	fmt.Fprintf(h.Out, messages.GPIOSensorStartFmt, pin, timeout)
	h.withRetry(&res, func(op Opener) error {
		observed, err := h.sense(op, pin, timeout)
		if err != nil {
			return err
		}
		res.Observed = observed
		return nil
	}, "")
	return res
}

// sense performs the baseline-and-poll protocol under one privilege context.
func (h *Harness) sense(op Opener, pin int, timeout time.Duration) (string, error) {
	line, err := op.OpenInput(pin)
	if err != nil {
		return "", err
	}
	defer func() { _ = line.Close() }()

	baseline, err := line.Value()
	if err != nil {
		return "", fmt.Errorf(messages.GPIOSampleFailedFmt, pin, err)
	}
	h.Log.Debug().Int("pin", pin).Int("baseline", baseline).Msg("sensor baseline")

	deadline := h.Now().Add(timeout)
	for {
		if !h.Now().Before(deadline) {
			fmt.Fprintln(h.Out, messages.GPIOSensorTimeout)
			return messages.GPIOObservedNotDetected, nil
		}
		h.Sleep(h.PollInterval)
		level, err := line.Value()
		if err != nil {
			return "", fmt.Errorf(messages.GPIOSampleFailedFmt, pin, err)
		}
		if level != baseline {
			fmt.Fprintln(h.Out, messages.GPIOSensorDetected)
			return messages.GPIOObservedPressed, nil
		}
	}
}

// deferred marks res deferred when the interface-enablement marker is
// absent. Interfaces only activate after the post-enablement reboot.
func (h *Harness) deferred(res *Result) bool {
	if h.InterfacesEnabled != nil && !h.InterfacesEnabled() {
		res.Status = StatusDeferred
		res.Observed = messages.GPIOObservedDeferred
		fmt.Fprintln(h.Out, messages.GPIODeferredNotice)
		return true
	}
	return false
}

// withRetry runs fn under the first privilege context and, on a raised
// fault, retries exactly once under the second. Both failing is reported as
// a hardware/permission error with remediation guidance.
func (h *Harness) withRetry(res *Result, fn func(Opener) error, observedOnPass string) {
	contexts := h.Contexts
	if len(contexts) > 2 {
		contexts = contexts[:2]
	}
	var errs []error
	for i, op := range contexts {
		res.Attempts++
		err := fn(op)
		if err == nil {
			res.Status = StatusPass
			if observedOnPass != "" {
				res.Observed = observedOnPass
			}
			return
		}
		errs = append(errs, err)
		h.Log.Debug().Str("context", op.Label()).Err(err).Msg("hardware test attempt failed")
		if i == 0 && len(contexts) > 1 {
			fmt.Fprintf(h.Out, messages.GPIORetryFmt, contexts[1].Label())
		}
	}
	res.Status = StatusFail
	res.Observed = fmt.Sprintf(messages.GPIOFaultObservedFmt, joinErrors(errs))
	fmt.Fprintln(h.Out, messages.GPIOFaultRemediation)
}

// joinErrors renders attempt errors in order for the failure report.
func joinErrors(errs []error) string {
	out := ""
	for i, err := range errs {
		if i > 0 {
			out += "; "
		}
		out += err.Error()
	}
	return out
}
