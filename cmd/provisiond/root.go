package main

import (
	"os"
	"os/user"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fieldbox/provisiond/internal/config"
	"github.com/fieldbox/provisiond/internal/execx"
	"github.com/fieldbox/provisiond/internal/gpio"
	"github.com/fieldbox/provisiond/internal/hostinfo"
	"github.com/fieldbox/provisiond/internal/logging"
	"github.com/fieldbox/provisiond/internal/messages"
	"github.com/fieldbox/provisiond/internal/provision"
	"github.com/fieldbox/provisiond/internal/service"
	"github.com/fieldbox/provisiond/internal/sudoers"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, messages.RootFlagConfig)
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, messages.RootFlagVerbose)

	cmd.AddCommand(newSystemCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newGPIOTestCmd(opts))
	return cmd
}

// buildEnv wires the full execution context for a plan run: config,
// command runner, filesystem, grant writer, unit manager, hardware harness,
// and host probe.
func buildEnv(cmd *cobra.Command, opts *rootOptions) (*provision.Env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	log := logging.New(cmd.ErrOrStderr(), opts.verbose)
	runner := execx.Real{Log: log}
	probe := hostinfo.DefaultProbe()

	harness := gpio.NewHarness(hardwareContexts(cfg, log), out, log)
	harness.InterfacesEnabled = probe.InterfacesEnabled

	home, err := homedir.Dir()
	if err != nil {
		home = ""
	}

	return &provision.Env{
		Config:   cfg,
		Runner:   runner,
		Sys:      provision.RealSystem{},
		Sudoers:  sudoers.NewWriter(sudoers.RealSystem{}, cfg.Security.GrantsFile),
		Service:  service.NewManager(service.RealSystem{}, runner, log),
		Hardware: harness,
		Probe:    probe,
		HomeDir:  home,
		Lookup:   user.Lookup,
		Out:      out,
		Log:      log,
	}, nil
}

// hardwareContexts builds the privilege contexts for the hardware harness.
// When running as root the service-account context is added as the retry
// context, proving the recorder itself will be able to claim the lines.
func hardwareContexts(cfg *config.Config, log zerolog.Logger) []gpio.Opener {
	chip := gpio.Chip{Name: cfg.GPIO.Chip}
	contexts := []gpio.Opener{chip}
	if os.Geteuid() == 0 {
		drop, err := gpio.NewDropPriv(chip, cfg.Appliance.Account)
		if err != nil {
			log.Debug().Err(err).Msg("service account context unavailable")
			return contexts
		}
		contexts = append(contexts, drop)
	}
	return contexts
}
