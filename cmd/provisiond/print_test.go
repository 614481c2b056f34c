package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/provision"
	"github.com/fieldbox/provisiond/internal/service"
)

func TestPrintSummaryEnumeratesGrantsAndGroups(t *testing.T) {
	var out bytes.Buffer
	report := &provision.Report{
		Granted:    []string{"appliance ALL=(ALL) NOPASSWD: /usr/sbin/reboot"},
		Groups:     []provision.GroupGrant{{Account: "appliance", Group: "gpio"}},
		BackupPath: "/etc/sudoers.d/appliance.provisiond.bak",
	}

	printSummary(&out, report)

	got := out.String()
	for _, want := range []string{
		"appliance ALL=(ALL) NOPASSWD: /usr/sbin/reboot",
		"gpio",
		"/etc/sudoers.d/appliance.provisiond.bak",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q, got:\n%s", want, got)
		}
	}
}

func TestPrintSummaryIncludesRebootNotice(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &provision.Report{RebootRequired: true})
	if !strings.Contains(out.String(), "reboot") {
		t.Fatalf("expected reboot notice, got:\n%s", out.String())
	}
}

func TestPrintSummarySurfacesSmokeDiagnostics(t *testing.T) {
	var out bytes.Buffer
	report := &provision.Report{
		Steps: []provision.StepResult{{
			ID:     "service.smoke",
			Status: provision.StatusWarned,
			Err: &service.SmokeTestError{
				Unit:        "fieldrecorder",
				Diagnostics: "exec format error",
				Err:         errors.New("unit failed after start"),
			},
		}},
	}

	printSummary(&out, report)

	if !strings.Contains(out.String(), "exec format error") {
		t.Fatalf("expected captured diagnostics, got:\n%s", out.String())
	}
}

func TestPrintHardwareResults(t *testing.T) {
	var out bytes.Buffer
	printHardwareResults(&out, gpio.Result{
		Kind:     "sensor",
		Pin:      15,
		Expected: "level change within 10s",
		Observed: "pressed",
		Status:   gpio.StatusPass,
	})
	got := out.String()
	if !strings.Contains(got, "sensor") || !strings.Contains(got, "pressed") {
		t.Fatalf("unexpected hardware line: %q", got)
	}
}
