package messages

// Config messages for configuration loading and validation.
const (
	ConfigValidationFailed = "invalid configuration"

	// ConfigReadFailedFmt formats config file read errors.
	ConfigReadFailedFmt  = "read config %s: %w"
	ConfigParseFailedFmt = "parse config %s: %w"

	ConfigFieldRequiredFmt         = "%s is required: %w"
	ConfigPinNegative              = "gpio pins must be non-negative: %w"
	ConfigPinsCollide              = "gpio button and led pins must differ: %w"
	ConfigWorkspaceExpandFailedFmt = "expand workspace dir %s: %w"
)
