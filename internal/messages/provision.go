package messages

// Provision messages for plan steps and the orchestrator.
const (
	ProvisionPreconditionFailed = "precondition failed"

	// ProvisionStepFailedFmt wraps a fatal step failure; the step error
	// stays unwrappable for errors.Is checks.
	ProvisionStepFailedFmt = "step %s failed: %w"
	ProvisionNotAppliedFmt = "step %s has not been applied"

	ProvisionWrongHostFmt     = "%w: this host is not a Raspberry Pi"
	ProvisionNotElevatedFmt   = "%w: the elevated phase must run as root"
	ProvisionStillElevatedFmt = "%w: the unprivileged phase must not run as root"
	ProvisionMarkerMissingFmt = "%w: the elevated phase has not been run on this host"

	ProvisionPackagesFailedFmt  = "install packages: %s"
	ProvisionPackagesMissingFmt = "packages still missing after install: %s"

	ProvisionAccountFailedFmt     = "create account %s: %w"
	ProvisionGroupLookupFailedFmt = "list groups for %s: %w"
	ProvisionGroupGrantFailedFmt  = "add group %s to %s: %w"

	ProvisionSudoersIncomplete = "sudoers grants incomplete; see diff above"

	// ProvisionFirmwareSection marks the managed lines in the firmware
	// config.
	ProvisionFirmwareSection        = "# added by provisiond"
	ProvisionNoFirmwareConfig       = "no firmware config found; is the boot partition mounted?"
	ProvisionFirmwareReadFailedFmt  = "read firmware config %s: %w"
	ProvisionFirmwareWriteFailedFmt = "write firmware config %s: %w"

	ProvisionServiceFailedStateFmt = "unit %s is in the failed state"
	ProvisionHardwareFailedFmt     = "hardware self-test failed: %s"

	ProvisionLingerFailedFmt = "enable linger for %s: %w"

	ProvisionKeyReadFailedFmt     = "inspect public key %s: %w"
	ProvisionKeyNoFingerprintFmt  = "no fingerprint found in public key %s"
	ProvisionKeyImportFailedFmt   = "import public key %s: %w"
	ProvisionKeyTrustFailedFmt    = "mark imported key trusted: %w"
	ProvisionKeyRegisterFailedFmt = "register access key in %s: %w"

	ProvisionWorkspaceFailedFmt = "create workspace %s: %w"
)
