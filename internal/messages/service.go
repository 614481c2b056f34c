package messages

// Service messages for unit declaration and the smoke test.
const (
	ServiceDeclareFailedFmt = "declare unit %s: %w"
	ServiceReloadFailedFmt  = "reload systemd daemon: %w"
	ServiceEnableFailedFmt  = "enable unit %s: %w"
	ServiceStartFailedFmt   = "start unit %s: %w"
	ServiceStopFailedFmt    = "stop unit %s: %w"

	ServiceNotRunningAfterStartFmt = "unit %s is %s after start, expected running"
	ServiceDidNotStopFmt           = "unit %s still running after stop"
	ServiceSmokeTestFailedFmt      = "smoke test for unit %s failed: %v"
)
