// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	VERSION = "0.0.0-dev.0"
)

var rootCmd = &cobra.Command{
	Use:               "license-issuer",
	Version:           VERSION,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	Short:             "Issue and verify signed UniDoc license keys",
	Long: `The license-issuer command line tool issues UniDoc license keys.

A license key is a set of entitlement claims encoded as canonical JSON,
signed with an RSA private key (PKCS#1 v1.5, SHA-512) and wrapped in a
text envelope delimited by the UNIDOC LICENSE KEY markers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(rootArgs.verbose, rootArgs.logEncoding, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

type rootFlags struct {
	timeout     time.Duration
	verbose     bool
	logEncoding string
}

func newRootFlags() rootFlags {
	return rootFlags{
		timeout:     time.Minute,
		logEncoding: "console",
	}
}

var rootArgs = newRootFlags()

func init() {
	rootCmd.PersistentFlags().DurationVar(&rootArgs.timeout, "timeout", rootArgs.timeout,
		"The length of time to wait before giving up on fetching remote keys and licenses.")
	rootCmd.PersistentFlags().BoolVar(&rootArgs.verbose, "verbose", false,
		"Print debug logs to stderr.")
	rootCmd.PersistentFlags().StringVar(&rootArgs.logEncoding, "log-encoding", rootArgs.logEncoding,
		fmt.Sprintf("Log encoding format when --verbose is set. Can be %v.", logEncodings))
	registerCompletion(rootCmd, "log-encoding", func() []string { return logEncodings })
	rootCmd.SetOut(os.Stdout)
}

func main() {
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("✗ %v\n", err)
		os.Exit(1)
	}
}
