package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fieldbox/provisiond/internal/lineset"
	"github.com/fieldbox/provisiond/internal/messages"
)

// UnprivilegedPlan builds the unprivileged-phase step list. The phase-marker
// gate comes first: nothing here runs until the elevated phase has declared
// the service unit.
func UnprivilegedPlan() []Step {
	return []Step{
		{
			ID:       "phase.marker",
			Phase:    PhaseUnprivileged,
			Severity: SeverityFatal,
			Check:    checkPhaseMarker,
		},
		{
			ID:       "privilege.unprivileged",
			Phase:    PhaseUnprivileged,
			Severity: SeverityFatal,
			Check:    checkUnprivileged,
		},
		{
			ID:       "user.linger",
			Phase:    PhaseUnprivileged,
			Severity: SeveritySoft,
			Check:    checkLinger,
			Apply:    applyLinger,
		},
		{
			ID:       "keys.import",
			Phase:    PhaseUnprivileged,
			Severity: SeveritySoft,
			Check:    checkKeyImported,
			Apply:    applyKeyImport,
		},
		{
			ID:       "keys.authorized",
			Phase:    PhaseUnprivileged,
			Severity: SeveritySoft,
			Check:    checkAuthorizedKey,
			Apply:    applyAuthorizedKey,
		},
		{
			ID:       "workspace.create",
			Phase:    PhaseUnprivileged,
			Severity: SeveritySoft,
			Check:    checkWorkspace,
			Apply:    applyWorkspace,
		},
		{
			ID:       "hardware.sweep",
			Phase:    PhaseUnprivileged,
			Severity: SeveritySoft,
			Apply:    applyHardwareSweep,
		},
	}
}

// checkPhaseMarker gates the unprivileged phase on the elevated phase having
// run: the declared unit file is the ordering artifact.
func checkPhaseMarker(_ context.Context, env *Env) (bool, error) {
	path := env.Service.UnitPath(env.Config.Service.Name)
	if _, err := env.Sys.Stat(path); err != nil {
		return false, fmt.Errorf(messages.ProvisionMarkerMissingFmt, ErrPrecondition)
	}
	return true, nil
}

func checkUnprivileged(_ context.Context, env *Env) (bool, error) {
	if env.Probe.IsElevated() {
		return false, fmt.Errorf(messages.ProvisionStillElevatedFmt, ErrPrecondition)
	}
	return true, nil
}

func checkLinger(ctx context.Context, env *Env) (bool, error) {
	account := env.Config.Appliance.Account
	out, err := env.Runner.Output(ctx, "loginctl", "show-user", account, "--property=Linger", "--value")
	if err != nil {
		// No session record yet; linger has certainly not been enabled.
		return false, nil
	}
	return strings.TrimSpace(string(out)) == "yes", nil
}

func applyLinger(ctx context.Context, env *Env) error {
	account := env.Config.Appliance.Account
	if err := env.Runner.Run(ctx, "loginctl", "enable-linger", account); err != nil {
		return fmt.Errorf(messages.ProvisionLingerFailedFmt, account, err)
	}
	return nil
}

// keyFingerprints extracts the fpr records from gpg --with-colons output.
func keyFingerprints(out []byte) []string {
	var fprs []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) > 9 && fields[0] == "fpr" {
			fprs = append(fprs, fields[9])
		}
	}
	return fprs
}

func checkKeyImported(ctx context.Context, env *Env) (bool, error) {
	path := env.Config.Security.PublicKeyPath
	if path == "" {
		return true, nil
	}
	want, err := env.Runner.Output(ctx, "gpg", "--show-keys", "--with-colons", path)
	if err != nil {
		return false, fmt.Errorf(messages.ProvisionKeyReadFailedFmt, path, err)
	}
	wanted := keyFingerprints(want)
	if len(wanted) == 0 {
		return false, fmt.Errorf(messages.ProvisionKeyNoFingerprintFmt, path)
	}
	have, err := env.Runner.Output(ctx, "gpg", "--list-keys", "--with-colons")
	if err != nil {
		// An empty or uninitialized keyring exits non-zero.
		return false, nil
	}
	present := make(map[string]struct{})
	for _, fpr := range keyFingerprints(have) {
		present[fpr] = struct{}{}
	}
	if _, ok := present[wanted[0]]; !ok {
		return false, nil
	}
	return true, nil
}

// applyKeyImport imports the collaborator public key and marks it ultimately
// trusted, so the recorder can encrypt to it non-interactively. The
// ownertrust lines go through a file because gpg reads them from a path, not
// arguments.
func applyKeyImport(ctx context.Context, env *Env) error {
	path := env.Config.Security.PublicKeyPath
	if err := env.Runner.Run(ctx, "gpg", "--import", path); err != nil {
		return fmt.Errorf(messages.ProvisionKeyImportFailedFmt, path, err)
	}
	out, err := env.Runner.Output(ctx, "gpg", "--show-keys", "--with-colons", path)
	if err != nil {
		return fmt.Errorf(messages.ProvisionKeyReadFailedFmt, path, err)
	}
	fprs := keyFingerprints(out)
	if len(fprs) == 0 {
		return fmt.Errorf(messages.ProvisionKeyNoFingerprintFmt, path)
	}
	var trust strings.Builder
	for _, fpr := range fprs {
		fmt.Fprintf(&trust, "%s:6:\n", fpr)
	}
	trustPath := filepath.Join(env.HomeDir, ".gnupg", "ownertrust.provisiond")
	if err := env.Sys.MkdirAll(filepath.Dir(trustPath), 0o700); err != nil {
		return fmt.Errorf(messages.ProvisionKeyTrustFailedFmt, err)
	}
	if err := env.Sys.WriteFileAtomic(trustPath, []byte(trust.String()), 0o600); err != nil {
		return fmt.Errorf(messages.ProvisionKeyTrustFailedFmt, err)
	}
	if err := env.Runner.Run(ctx, "gpg", "--import-ownertrust", trustPath); err != nil {
		return fmt.Errorf(messages.ProvisionKeyTrustFailedFmt, err)
	}
	return nil
}

func authorizedKeysPath(env *Env) string {
	return filepath.Join(env.HomeDir, ".ssh", "authorized_keys")
}

func checkAuthorizedKey(_ context.Context, env *Env) (bool, error) {
	key := strings.TrimSpace(env.Config.Security.AuthorizedKey)
	if key == "" {
		return true, nil
	}
	data, err := env.Sys.ReadFile(authorizedKeysPath(env))
	if err != nil {
		// A missing file simply means the key is not registered yet.
		return false, nil
	}
	return lineset.Contains(string(data), key), nil
}

// applyAuthorizedKey appends the access key exactly once, creating the .ssh
// directory with the permissions sshd insists on.
func applyAuthorizedKey(_ context.Context, env *Env) error {
	key := strings.TrimSpace(env.Config.Security.AuthorizedKey)
	path := authorizedKeysPath(env)
	if err := env.Sys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf(messages.ProvisionKeyRegisterFailedFmt, path, err)
	}
	content := ""
	if data, err := env.Sys.ReadFile(path); err == nil {
		content = string(data)
	}
	merged, changed := lineset.Merge(content, "", []string{key})
	if !changed {
		return nil
	}
	if err := env.Sys.WriteFileAtomic(path, []byte(merged), 0o600); err != nil {
		return fmt.Errorf(messages.ProvisionKeyRegisterFailedFmt, path, err)
	}
	return nil
}

func checkWorkspace(_ context.Context, env *Env) (bool, error) {
	path, err := env.Config.WorkspacePath()
	if err != nil {
		return false, err
	}
	_, statErr := env.Sys.Stat(path)
	return statErr == nil, nil
}

func applyWorkspace(_ context.Context, env *Env) error {
	path, err := env.Config.WorkspacePath()
	if err != nil {
		return err
	}
	if err := env.Sys.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf(messages.ProvisionWorkspaceFailedFmt, path, err)
	}
	return nil
}
