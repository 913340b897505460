// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE:  versionCmdRun,
}

type versionFlags struct {
	format bool
}

var versionArgs versionFlags

func init() {
	versionCmd.Flags().BoolVar(&versionArgs.format, "format", false,
		"If true, also prints the license key format details.")
	rootCmd.AddCommand(versionCmd)
}

func versionCmdRun(cmd *cobra.Command, args []string) error {
	_, err := fmt.Fprintln(rootCmd.OutOrStdout(), "version:", VERSION)
	if err != nil {
		return fmt.Errorf("failed to print version: %w", err)
	}

	if !versionArgs.format {
		return nil
	}

	_, err = fmt.Fprintln(rootCmd.OutOrStdout(), "envelope:", lkm.EnvelopeHeader)
	if err != nil {
		return fmt.Errorf("failed to print format: %w", err)
	}
	_, err = fmt.Fprintln(rootCmd.OutOrStdout(), "signature:", "RSA PKCS#1 v1.5", lkm.SignatureHash.String())
	if err != nil {
		return fmt.Errorf("failed to print format: %w", err)
	}

	return nil
}
