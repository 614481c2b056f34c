package main

import (
	"github.com/spf13/cobra"

	"github.com/fieldbox/provisiond/internal/messages"
)

func newGPIOTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   messages.GPIOTestUse,
		Short: messages.GPIOTestShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := buildEnv(cmd, opts)
			if err != nil {
				return err
			}
			return runHardwareTest(cmd, env)
		},
	}
}
