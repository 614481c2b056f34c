package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/messages"
	"github.com/fieldbox/provisiond/internal/provision"
	"github.com/fieldbox/provisiond/internal/sudoers"
	"github.com/fieldbox/provisiond/internal/terminal"
)

func newSystemCmd(opts *rootOptions) *cobra.Command {
	var (
		verify   bool
		testGPIO bool
		restore  bool
	)
	cmd := &cobra.Command{
		Use:   messages.SystemUse,
		Short: messages.SystemShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(cmd, opts)
			if err != nil {
				return err
			}
			switch {
			case restore:
				return runRestore(cmd, env)
			case testGPIO:
				return runHardwareTest(cmd, env)
			case verify:
				return runPlan(cmd, env, provision.ElevatedPlan(), provision.PhaseElevated, provision.ModeVerify)
			default:
				return runPlan(cmd, env, provision.ElevatedPlan(), provision.PhaseElevated, provision.ModeApply)
			}
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, messages.SystemFlagVerify)
	cmd.Flags().BoolVar(&testGPIO, "test-gpio", false, messages.SystemFlagTestGPIO)
	cmd.Flags().BoolVar(&restore, "restore", false, messages.SystemFlagRestore)
	cmd.MarkFlagsMutuallyExclusive("verify", "test-gpio", "restore")
	return cmd
}

// runPlan executes a phase and prints the per-step report and summary.
// Verify mode returns an error when any step is unapplied so scripted checks
// can gate on the exit code.
func runPlan(cmd *cobra.Command, env *provision.Env, plan []provision.Step, phase provision.Phase, mode provision.Mode) error {
	out := cmd.OutOrStdout()
	orch := provision.New(plan, env)
	orch.Notify = stepNotifier(out)

	report, err := orch.Run(cmd.Context(), phase, mode)
	printSummary(out, report)
	if err != nil {
		return err
	}
	if mode == provision.ModeVerify && report.Failed() {
		return errors.New(messages.SummaryVerifyIncomplete)
	}
	return nil
}

// runRestore rewinds the sudoers grants to the pre-automation backup. The
// operator must confirm interactively; restore never runs unattended.
func runRestore(cmd *cobra.Command, env *provision.Env) error {
	out := cmd.OutOrStdout()
	if !terminal.IsInteractive() {
		return errors.New(messages.RestoreRequiresTerminal)
	}
	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(messages.RestoreConfirmTitle).Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, messages.RestoreAborted)
		return nil
	}
	if err := env.Sudoers.Restore(); err != nil {
		if errors.Is(err, sudoers.ErrNoBackup) {
			return errors.New(messages.RestoreNoBackup)
		}
		return err
	}
	fmt.Fprintf(out, messages.RestoreDoneFmt, env.Sudoers.Path(), env.Sudoers.BackupPath())
	return nil
}

// runHardwareTest exercises the LED and button without touching the rest of
// the plan. A raised fault fails the command; a clean sensor timeout or a
// deferred test does not.
func runHardwareTest(cmd *cobra.Command, env *provision.Env) error {
	out := cmd.OutOrStdout()
	act := env.Hardware.TestActuator(env.Config.GPIO.LEDPin, 0, 0)
	sens := env.Hardware.TestSensor(env.Config.GPIO.ButtonPin, 0)
	printHardwareResults(out, act, sens)
	if act.Status == gpio.StatusFail || sens.Status == gpio.StatusFail {
		return errors.New(messages.HardwareTestFailed)
	}
	return nil
}
