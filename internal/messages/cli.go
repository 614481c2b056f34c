package messages

// CLI messages for user-facing commands, flags, and summaries.
const (
	// RootUse is the CLI command name.
	RootUse = "provisiond"
	// RootShort is the short description for the root command.
	RootShort       = "Provisioning and self-test for the field recorder appliance"
	RootFlagConfig  = "Path to the provisioning config file"
	RootFlagVerbose = "Enable debug logging"

	// VersionFullFmt formats version plus commit for display.
	VersionFullFmt  = "%s (%s)"
	VersionTemplate = "{{.Version}}\n"

	SystemUse          = "system"
	SystemShort        = "Run the elevated provisioning phase (requires root)"
	SystemFlagVerify   = "Report provisioning state without changing anything"
	SystemFlagTestGPIO = "Run only the hardware self-test"
	SystemFlagRestore  = "Rewind the sudoers grants to the pre-automation backup"

	UserUse   = "user"
	UserShort = "Run the unprivileged provisioning phase (run as the operator)"

	GPIOTestUse   = "gpio-test"
	GPIOTestShort = "Exercise the LED and button wiring"

	// Status labels for per-step output.
	StatusOKLabel   = "[ OK ]"
	StatusWarnLabel = "[WARN]"
	StatusFailLabel = "[FAIL]"
	StatusSkipLabel = "[SKIP]"

	StepLineFmt    = "%s %s\n"
	StepErrLineFmt = "%s %s: %v\n"

	SummaryHeader           = "\nProvisioning summary:"
	SummaryGrantedHeader    = "Privileged commands granted:"
	SummaryEntryFmt         = "  %s\n"
	SummaryGroupFmt         = "  %s added to group %s\n"
	SummaryBackupFmt        = "Pristine sudoers backup: %s\n"
	SummaryHardwareHeader   = "Hardware self-test:"
	SummaryHardwareLineFmt  = "  %s on GPIO %d: %s (expected %s, observed %s)\n"
	SummaryRebootNotice     = "A reboot is required before the camera and GPIO interfaces become usable."
	SummaryDiagnosticsFmt   = "Recent log output from unit %s:\n%s\n"
	SummaryVerifyIncomplete = "verification found steps that are not applied; see the report above"

	RestoreConfirmTitle     = "Rewind the sudoers grants to the pre-automation backup?"
	RestoreRequiresTerminal = "restore needs confirmation and requires an interactive terminal"
	RestoreAborted          = "Restore aborted; nothing changed."
	RestoreNoBackup         = "no backup exists yet; the grants file has never been modified"
	RestoreDoneFmt          = "Restored %s from %s\n"

	UserGuidanceFmt = "Provisioning complete. Start the recorder with: sudo systemctl start %s\n"

	HardwareTestFailed = "hardware self-test reported a fault"
)
