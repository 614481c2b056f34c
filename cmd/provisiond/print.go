package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/messages"
	"github.com/fieldbox/provisiond/internal/provision"
	"github.com/fieldbox/provisiond/internal/service"
)

// stepNotifier prints one colored status line per step as it completes.
func stepNotifier(out io.Writer) func(provision.StepResult) {
	return func(res provision.StepResult) {
		label := statusLabel(res.Status)
		if res.Err != nil {
			fmt.Fprintf(out, messages.StepErrLineFmt, label, res.ID, res.Err)
			return
		}
		fmt.Fprintf(out, messages.StepLineFmt, label, res.ID)
	}
}

func statusLabel(status provision.StepStatus) string {
	switch status {
	case provision.StatusWarned:
		return color.YellowString(messages.StatusWarnLabel)
	case provision.StatusFailed:
		return color.RedString(messages.StatusFailLabel)
	case provision.StatusSkipped:
		return color.CyanString(messages.StatusSkipLabel)
	default:
		return color.GreenString(messages.StatusOKLabel)
	}
}

// printSummary enumerates what the run ensured: privileged commands, group
// memberships, the backup location, hardware results, and any captured unit
// diagnostics.
func printSummary(out io.Writer, report *provision.Report) {
	fmt.Fprintln(out, messages.SummaryHeader)
	if len(report.Granted) > 0 {
		fmt.Fprintln(out, messages.SummaryGrantedHeader)
		for _, entry := range report.Granted {
			fmt.Fprintf(out, messages.SummaryEntryFmt, entry)
		}
	}
	for _, g := range report.Groups {
		fmt.Fprintf(out, messages.SummaryGroupFmt, g.Account, g.Group)
	}
	if report.BackupPath != "" {
		fmt.Fprintf(out, messages.SummaryBackupFmt, report.BackupPath)
	}
	if len(report.Hardware) > 0 {
		fmt.Fprintln(out, messages.SummaryHardwareHeader)
		printHardwareResults(out, report.Hardware...)
	}
	for _, step := range report.Steps {
		printSmokeDiagnostics(out, step.Err)
	}
	if report.RebootRequired {
		fmt.Fprintln(out, color.YellowString(messages.SummaryRebootNotice))
	}
}

func printHardwareResults(out io.Writer, results ...gpio.Result) {
	for _, res := range results {
		fmt.Fprintf(out, messages.SummaryHardwareLineFmt,
			res.Kind, res.Pin, hardwareStatusLabel(res.Status), res.Expected, res.Observed)
	}
}

func hardwareStatusLabel(status gpio.Status) string {
	switch status {
	case gpio.StatusFail:
		return color.RedString(string(status))
	case gpio.StatusDeferred:
		return color.YellowString(string(status))
	default:
		return color.GreenString(string(status))
	}
}

// printSmokeDiagnostics surfaces the captured journal tail when a smoke test
// failed, so the operator sees why the unit would not run.
func printSmokeDiagnostics(out io.Writer, err error) {
	var smoke *service.SmokeTestError
	if errors.As(err, &smoke) && smoke.Diagnostics != "" {
		fmt.Fprintf(out, messages.SummaryDiagnosticsFmt, smoke.Unit, smoke.Diagnostics)
	}
}
