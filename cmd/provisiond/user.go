package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldbox/provisiond/internal/messages"
	"github.com/fieldbox/provisiond/internal/provision"
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   messages.UserUse,
		Short: messages.UserShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(cmd, opts)
			if err != nil {
				return err
			}
			mode := provision.ModeApply
			if verify {
				mode = provision.ModeVerify
			}
			if err := runPlan(cmd, env, provision.UnprivilegedPlan(), provision.PhaseUnprivileged, mode); err != nil {
				return err
			}
			if mode == provision.ModeApply {
				fmt.Fprintf(cmd.OutOrStdout(), messages.UserGuidanceFmt, env.Config.Service.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, messages.SystemFlagVerify)
	return cmd
}
