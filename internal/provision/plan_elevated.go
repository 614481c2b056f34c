package provision

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/hostinfo"
	"github.com/fieldbox/provisiond/internal/lineset"
	"github.com/fieldbox/provisiond/internal/messages"
	"github.com/fieldbox/provisiond/internal/service"
)

// ElevatedPlan builds the elevated-phase step list. The order is load
// bearing: the account must exist before group grants, packages before the
// service declaration, the sudoers grants before anything that assumes the
// account can act on the host.
func ElevatedPlan() []Step {
	return []Step{
		{
			ID:       "host.class",
			Phase:    PhaseElevated,
			Severity: SeverityFatal,
			Check:    checkHostClass,
		},
		{
			ID:       "privilege.elevated",
			Phase:    PhaseElevated,
			Severity: SeverityFatal,
			Check:    checkElevated,
		},
		{
			ID:       "packages.install",
			Phase:    PhaseElevated,
			Severity: SeveritySoft,
			Check:    checkPackages,
			Apply:    applyPackages,
			Verify:   verifyPackages,
		},
		{
			ID:       "account.ensure",
			Phase:    PhaseElevated,
			Severity: SeverityFatal,
			Check:    checkAccount,
			Apply:    applyAccount,
		},
		{
			ID:       "groups.grant",
			Phase:    PhaseElevated,
			Severity: SeveritySoft,
			Check:    checkGroups,
			Apply:    applyGroups,
		},
		{
			ID:       "sudoers.grant",
			Phase:    PhaseElevated,
			Severity: SeverityFatal,
			Check:    checkSudoers,
			Apply:    applySudoers,
			Verify:   verifySudoers,
		},
		{
			ID:       "interfaces.enable",
			Phase:    PhaseElevated,
			Severity: SeveritySoft,
			Check:    checkInterfaces,
			Apply:    applyInterfaces,
		},
		{
			ID:       "service.declare",
			Phase:    PhaseElevated,
			Severity: SeverityFatal,
			Check:    checkServiceDeclared,
			Apply:    applyServiceDeclare,
		},
		{
			ID:       "service.smoke",
			Phase:    PhaseElevated,
			Severity: SeveritySoft,
			Apply:    applyServiceSmoke,
			Verify:   verifyServiceHealthy,
		},
		{
			ID:       "hardware.selftest",
			Phase:    PhaseElevated,
			Severity: SeveritySoft,
			Apply:    applyHardwareSweep,
		},
	}
}

func checkHostClass(_ context.Context, env *Env) (bool, error) {
	if !env.Probe.IsRaspberryPi() {
		return false, fmt.Errorf(messages.ProvisionWrongHostFmt, ErrPrecondition)
	}
	return true, nil
}

func checkElevated(_ context.Context, env *Env) (bool, error) {
	if !env.Probe.IsElevated() {
		return false, fmt.Errorf(messages.ProvisionNotElevatedFmt, ErrPrecondition)
	}
	return true, nil
}

// missingPackages returns configured packages dpkg does not know as
// installed.
func missingPackages(ctx context.Context, env *Env) []string {
	var missing []string
	for _, pkg := range env.Config.Appliance.Packages {
		if err := env.Runner.Run(ctx, "dpkg", "-s", pkg); err != nil {
			missing = append(missing, pkg)
		}
	}
	return missing
}

func checkPackages(ctx context.Context, env *Env) (bool, error) {
	return len(missingPackages(ctx, env)) == 0, nil
}

func applyPackages(ctx context.Context, env *Env) error {
	var failed []string
	for _, pkg := range missingPackages(ctx, env) {
		env.Log.Info().Str("package", pkg).Msg("installing package")
		if err := env.Runner.Run(ctx, "apt-get", "install", "-y", pkg); err != nil {
			env.Log.Warn().Str("package", pkg).Err(err).Msg("package install failed")
			failed = append(failed, pkg)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf(messages.ProvisionPackagesFailedFmt, strings.Join(failed, ", "))
	}
	return nil
}

func verifyPackages(ctx context.Context, env *Env) error {
	if missing := missingPackages(ctx, env); len(missing) > 0 {
		return fmt.Errorf(messages.ProvisionPackagesMissingFmt, strings.Join(missing, ", "))
	}
	return nil
}

func checkAccount(ctx context.Context, env *Env) (bool, error) {
	return env.Runner.Run(ctx, "id", "-u", env.Config.Appliance.Account) == nil, nil
}

func applyAccount(ctx context.Context, env *Env) error {
	account := env.Config.Appliance.Account
	if err := env.Runner.Run(ctx, "useradd", "--create-home", "--shell", "/bin/bash", account); err != nil {
		return fmt.Errorf(messages.ProvisionAccountFailedFmt, account, err)
	}
	return nil
}

// missingGroups returns configured groups the account is not yet in.
func missingGroups(ctx context.Context, env *Env) ([]string, error) {
	account := env.Config.Appliance.Account
	out, err := env.Runner.Output(ctx, "id", "-nG", account)
	if err != nil {
		return nil, fmt.Errorf(messages.ProvisionGroupLookupFailedFmt, account, err)
	}
	current := make(map[string]struct{})
	for _, g := range strings.Fields(string(out)) {
		current[g] = struct{}{}
	}
	var missing []string
	for _, g := range env.Config.Appliance.Groups {
		if _, ok := current[g]; !ok {
			missing = append(missing, g)
		}
	}
	return missing, nil
}

func checkGroups(ctx context.Context, env *Env) (bool, error) {
	// The summary enumerates every ensured membership, satisfied or not.
	for _, g := range env.Config.Appliance.Groups {
		env.Report.Groups = append(env.Report.Groups, GroupGrant{
			Account: env.Config.Appliance.Account,
			Group:   g,
		})
	}
	missing, err := missingGroups(ctx, env)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

func applyGroups(ctx context.Context, env *Env) error {
	account := env.Config.Appliance.Account
	missing, err := missingGroups(ctx, env)
	if err != nil {
		return err
	}
	for _, g := range missing {
		if err := env.Runner.Run(ctx, "usermod", "-aG", g, account); err != nil {
			return fmt.Errorf(messages.ProvisionGroupGrantFailedFmt, g, account, err)
		}
	}
	return nil
}

func checkSudoers(_ context.Context, env *Env) (bool, error) {
	entries := env.Config.GrantEntries()
	env.Report.Granted = entries
	env.Report.BackupPath = env.Sudoers.BackupPath()
	missing, err := env.Sudoers.Missing(entries)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

func applySudoers(_ context.Context, env *Env) error {
	_, err := env.Sudoers.Grant(env.Config.GrantEntries())
	return err
}

func verifySudoers(_ context.Context, env *Env) error {
	entries := env.Config.GrantEntries()
	diff, err := env.Sudoers.Diff(entries)
	if err != nil {
		return err
	}
	if diff != "" {
		fmt.Fprintln(env.Out, diff)
		return fmt.Errorf(messages.ProvisionSudoersIncomplete)
	}
	return nil
}

func checkInterfaces(_ context.Context, env *Env) (bool, error) {
	return env.Probe.InterfacesEnabled(), nil
}

// applyInterfaces writes the camera/GPIO enablement lines to the firmware
// config. The edit only takes effect after a reboot, so the report flags
// RebootRequired and the hardware self-test later defers itself.
func applyInterfaces(_ context.Context, env *Env) error {
	path := env.Probe.FirmwareConfigPath()
	if path == "" {
		return fmt.Errorf(messages.ProvisionNoFirmwareConfig)
	}
	data, err := env.Sys.ReadFile(path)
	if err != nil {
		return fmt.Errorf(messages.ProvisionFirmwareReadFailedFmt, path, err)
	}
	merged, changed := lineset.Merge(string(data), messages.ProvisionFirmwareSection, hostinfo.InterfaceLines)
	if !changed {
		return nil
	}
	if err := env.Sys.WriteFileAtomic(path, []byte(merged), 0o644); err != nil {
		return fmt.Errorf(messages.ProvisionFirmwareWriteFailedFmt, path, err)
	}
	env.Report.RebootRequired = true
	return nil
}

// unitSpec builds the recorder's unit spec from config. The workspace dir
// resolves against the service account's home, not the invoking root user's.
func unitSpec(env *Env) service.UnitSpec {
	cfg := env.Config
	workspace := accountWorkspace(env, cfg.Appliance.WorkspaceDir, cfg.Appliance.Account)
	return service.UnitSpec{
		Name:        cfg.Service.Name,
		Description: cfg.Service.Description,
		Command:     cfg.Service.Command,
		WorkingDir:  workspace,
		User:        cfg.Appliance.Account,
		Env: map[string]string{
			"ASSETS_DIR": workspace,
			"TZ":         cfg.Appliance.Timezone,
		},
		RestartSec: cfg.RestartSec(),
	}
}

// accountWorkspace expands a ~-relative workspace dir against the service
// account's home directory, falling back to the conventional location when
// the account cannot be resolved.
func accountWorkspace(env *Env, dir string, account string) string {
	if !strings.HasPrefix(dir, "~") {
		return dir
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(dir, "~"), "/")
	if env.Lookup != nil {
		if u, err := env.Lookup(account); err == nil && u.HomeDir != "" {
			return filepath.Join(u.HomeDir, rest)
		}
	}
	return filepath.Join("/home", account, rest)
}

func checkServiceDeclared(ctx context.Context, env *Env) (bool, error) {
	spec := unitSpec(env)
	return env.Service.Declared(spec) && env.Service.Enabled(ctx, spec.Name), nil
}

func applyServiceDeclare(ctx context.Context, env *Env) error {
	spec := unitSpec(env)
	if _, err := env.Service.Declare(ctx, spec); err != nil {
		return err
	}
	return env.Service.EnableOnBoot(ctx, spec.Name)
}

func applyServiceSmoke(ctx context.Context, env *Env) error {
	return env.Service.SmokeTest(ctx, env.Config.Service.Name)
}

func verifyServiceHealthy(ctx context.Context, env *Env) error {
	if st := env.Service.Status(ctx, env.Config.Service.Name); st == service.StatusFailed {
		return fmt.Errorf(messages.ProvisionServiceFailedStateFmt, env.Config.Service.Name)
	}
	return nil
}

// applyHardwareSweep exercises the actuator then the sensor, strictly in
// sequence to avoid contention on the I/O subsystem. Deferred results are
// informational; only raised faults make the step warn.
func applyHardwareSweep(_ context.Context, env *Env) error {
	act := env.Hardware.TestActuator(env.Config.GPIO.LEDPin, 0, 0)
	env.Report.Hardware = append(env.Report.Hardware, act)
	sens := env.Hardware.TestSensor(env.Config.GPIO.ButtonPin, 0)
	env.Report.Hardware = append(env.Report.Hardware, sens)

	var failed []string
	for _, res := range []gpio.Result{act, sens} {
		if res.Status == gpio.StatusFail {
			failed = append(failed, res.Kind)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf(messages.ProvisionHardwareFailedFmt, strings.Join(failed, ", "))
	}
	return nil
}
