package messages

// GPIO messages for the hardware self-test harness.
const (
	// GPIOContextCurrent labels the invoking privilege context.
	GPIOContextCurrent    = "current user"
	GPIOContextAccountFmt = "account %s"

	GPIOClaimOutputFailedFmt   = "claim GPIO %d on %s as output: %w"
	GPIOClaimInputFailedFmt    = "claim GPIO %d on %s as input: %w"
	GPIOAccountLookupFailedFmt = "look up account %s: %w"
	GPIODropPrivFailedFmt      = "drop privileges to %s: %w"
	GPIODriveFailedFmt         = "drive GPIO %d: %w"
	GPIOSampleFailedFmt        = "sample GPIO %d: %w"

	GPIOActuatorExpectedFmt = "%d on/off cycles of %s each"
	GPIOActuatorStartFmt    = "Blinking LED on GPIO %d, watch for %d flashes...\n"
	GPIOTransitionFmt       = "  LED %s (cycle %d of %d)\n"
	GPIOActuatorObserved    = "blink sequence completed"

	GPIOSensorExpectedFmt = "level change within %s"
	GPIOSensorStartFmt    = "Watching button on GPIO %d, press it within %s...\n"
	GPIOSensorTimeout     = "No press observed before the timeout."
	GPIOSensorDetected    = "Button press detected."

	// GPIOObservedNotDetected is the terminal observation for a clean
	// sensor timeout; it is a valid result, not a fault.
	GPIOObservedNotDetected = "not-detected"
	GPIOObservedPressed     = "pressed"
	GPIOObservedDeferred    = "deferred until reboot"

	GPIODeferredNotice = "Interfaces are not enabled yet; hardware test deferred until after a reboot."
	GPIORetryFmt       = "Retrying as %s...\n"

	GPIOFaultObservedFmt = "fault: %s"
	GPIOFaultRemediation = "Check the wiring and confirm the account is in the gpio group, then re-run the test."
)
