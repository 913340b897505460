// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generates completion scripts for various shells",
	Long:  "The completion sub-command generates completion scripts for various shells",
}

var completionShells = []struct {
	name    string
	example string
	gen     func(cmd *cobra.Command) error
}{
	{
		name: "bash",
		example: `To load completion run

. <(license-issuer completion bash)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
command -v license-issuer >/dev/null && . <(license-issuer completion bash)`,
		gen: func(cmd *cobra.Command) error {
			return rootCmd.GenBashCompletionV2(cmd.OutOrStdout(), true)
		},
	},
	{
		name: "zsh",
		example: `To load completion run

. <(license-issuer completion zsh) && compdef _license-issuer license-issuer`,
		gen: func(cmd *cobra.Command) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	},
	{
		name: "fish",
		example: `To configure your fish shell to load completions for each session write this script to your completions dir:

license-issuer completion fish > ~/.config/fish/completions/license-issuer.fish`,
		gen: func(cmd *cobra.Command) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	},
	{
		name: "powershell",
		example: `To load completion run

. <(license-issuer completion powershell)`,
		gen: func(cmd *cobra.Command) error {
			return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		},
	},
}

func init() {
	for _, shell := range completionShells {
		completionCmd.AddCommand(&cobra.Command{
			Use:     shell.name,
			Short:   fmt.Sprintf("Generates %s completion scripts", shell.name),
			Example: shell.example,
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return shell.gen(cmd)
			},
		})
	}
	rootCmd.AddCommand(completionCmd)
}

// registerCompletion completes a flag with a fixed set of values.
// It must be called after the flag is defined.
func registerCompletion(cmd *cobra.Command, flag string, values func() []string) {
	err := cmd.RegisterFlagCompletionFunc(flag,
		func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var comps []string
			for _, v := range values() {
				if strings.HasPrefix(v, toComplete) {
					comps = append(comps, v)
				}
			}
			return comps, cobra.ShellCompDirectiveNoFileComp
		})
	if err != nil {
		panic(err)
	}
}

func tierNames() []string {
	names := make([]string, 0, len(lkm.Tiers()))
	for _, t := range lkm.Tiers() {
		names = append(names, string(t))
	}
	return names
}
