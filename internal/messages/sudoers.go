package messages

// Sudoers messages for the privilege-grant writer.
const (
	SudoersNoBackup          = "no backup exists; nothing to restore"
	SudoersTransactionFailed = "sudoers transaction failed"

	// SudoersSectionComment marks the managed block inside the drop-in.
	SudoersSectionComment = "# managed by provisiond; do not edit below this line"

	SudoersReadFailedFmt   = "read %s: %w: %v"
	SudoersWriteFailedFmt  = "write %s: %w: %v"
	SudoersBackupFailedFmt = "back up to %s: %w: %v"
)
