// Package config loads the appliance provisioning configuration.
//
// The stock appliance works without any config file: Default covers the
// standard wiring (button on GPIO 15, LED on GPIO 17) and the standard
// service account. A TOML file overrides the defaults for non-standard
// builds.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/fieldbox/provisiond/internal/messages"
)

// ErrValidation wraps config validation failures, as opposed to TOML syntax
// or filesystem errors. Callers use errors.Is to distinguish them.
var ErrValidation = errors.New(messages.ConfigValidationFailed)

// DefaultPath is where the provisioner looks for its config unless
// overridden with --config.
const DefaultPath = "/etc/provisiond/config.toml"

// Config is the full appliance provisioning configuration.
type Config struct {
	Appliance Appliance `toml:"appliance"`
	GPIO      GPIO      `toml:"gpio"`
	Service   Service   `toml:"service"`
	Security  Security  `toml:"security"`
}

// Appliance describes the service account and its workspace.
type Appliance struct {
	// Account is the low-privilege account the recorder runs as.
	Account string `toml:"account"`
	// WorkspaceDir receives recordings; ~ expands to the account home.
	WorkspaceDir string `toml:"workspace_dir"`
	Timezone     string `toml:"timezone"`
	// Groups the account must belong to for camera and GPIO access.
	Groups []string `toml:"groups"`
	// Packages the recorder depends on.
	Packages []string `toml:"packages"`
}

// GPIO describes the physical wiring.
type GPIO struct {
	Chip      string `toml:"chip"`
	ButtonPin int    `toml:"button_pin"`
	LEDPin    int    `toml:"led_pin"`
}

// Service describes the persistent recorder unit.
type Service struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Command     string `toml:"command"`
	// RestartSecs is the fixed backoff between restarts, in seconds.
	RestartSecs int `toml:"restart_secs"`
}

// Security describes the privilege grants and key material.
type Security struct {
	// GrantsFile is the sudoers drop-in the provisioner owns.
	GrantsFile string `toml:"grants_file"`
	// SudoCommands are the commands the account may run passwordless.
	SudoCommands []string `toml:"sudo_commands"`
	// PublicKeyPath is the collaborator public key to import and trust;
	// empty skips the import.
	PublicKeyPath string `toml:"public_key_path"`
	// AuthorizedKey is an access key appended once to the account's
	// authorized_keys; empty skips registration.
	AuthorizedKey string `toml:"authorized_key"`
}

// Default returns the stock appliance configuration.
func Default() *Config {
	return &Config{
		Appliance: Appliance{
			Account:      "appliance",
			WorkspaceDir: "~/assets",
			Timezone:     "UTC",
			Groups:       []string{"video", "gpio"},
			Packages:     []string{"rpicam-apps", "ffmpeg", "gnupg"},
		},
		GPIO: GPIO{
			Chip:      "gpiochip0",
			ButtonPin: 15,
			LEDPin:    17,
		},
		Service: Service{
			Name:        "fieldrecorder",
			Description: "Button-operated field recorder",
			Command:     "/usr/local/bin/fieldrecorder",
			RestartSecs: 2,
		},
		Security: Security{
			GrantsFile:   "/etc/sudoers.d/appliance",
			SudoCommands: []string{"/usr/sbin/reboot", "/usr/sbin/shutdown"},
		},
	}
}

// Load reads the config at path, or returns Default when path is the
// default location and no file exists there. An explicitly named file must
// exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return Default(), nil
		}
		return nil, fmt.Errorf(messages.ConfigReadFailedFmt, path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates TOML config content. Unset fields fall back
// to the stock defaults.
func Parse(data []byte, source string) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigParseFailedFmt, source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Failures wrap ErrValidation.
func (c *Config) Validate() error {
	if c.Appliance.Account == "" {
		return fmt.Errorf(messages.ConfigFieldRequiredFmt, "appliance.account", ErrValidation)
	}
	if c.Service.Name == "" {
		return fmt.Errorf(messages.ConfigFieldRequiredFmt, "service.name", ErrValidation)
	}
	if c.Service.Command == "" {
		return fmt.Errorf(messages.ConfigFieldRequiredFmt, "service.command", ErrValidation)
	}
	if c.Security.GrantsFile == "" {
		return fmt.Errorf(messages.ConfigFieldRequiredFmt, "security.grants_file", ErrValidation)
	}
	if c.GPIO.ButtonPin < 0 || c.GPIO.LEDPin < 0 {
		return fmt.Errorf(messages.ConfigPinNegative, ErrValidation)
	}
	if c.GPIO.ButtonPin == c.GPIO.LEDPin {
		return fmt.Errorf(messages.ConfigPinsCollide, ErrValidation)
	}
	return nil
}

// WorkspacePath expands the workspace dir against the current user's home.
func (c *Config) WorkspacePath() (string, error) {
	path, err := homedir.Expand(c.Appliance.WorkspaceDir)
	if err != nil {
		return "", fmt.Errorf(messages.ConfigWorkspaceExpandFailedFmt, c.Appliance.WorkspaceDir, err)
	}
	return path, nil
}

// RestartSec returns the service restart backoff as a duration.
func (c *Config) RestartSec() time.Duration {
	return time.Duration(c.Service.RestartSecs) * time.Second
}

// GrantEntries renders the sudoers lines the appliance account needs.
func (c *Config) GrantEntries() []string {
	entries := make([]string, 0, len(c.Security.SudoCommands))
	for _, cmd := range c.Security.SudoCommands {
		entries = append(entries, fmt.Sprintf("%s ALL=(ALL) NOPASSWD: %s", c.Appliance.Account, cmd))
	}
	return entries
}
