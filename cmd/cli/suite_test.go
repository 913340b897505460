// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bytes"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

// executeCommand executes a CLI command with the given args and returns the output and error.
// This helper function can be reused across all CLI command tests.
func executeCommand(args []string) (string, error) {
	defer resetCmdArgs()

	// Capture output
	buf := new(bytes.Buffer)

	// Set up the command
	cmd := rootCmd
	cmd.SetArgs(args)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	// Execute command
	err := cmd.Execute()

	return buf.String(), err
}

// resetCmdArgs resets all command-specific flags to their default values.
// This should be called between tests to ensure clean state.
func resetCmdArgs() {
	rootArgs = newRootFlags()
	logger = logr.Discard()

	signArgs = newSignFlags()
	verifyArgs = verifyFlags{}
	inspectArgs = inspectFlags{output: "table"}
	diffArgs = diffFlags{output: "json-patch-yaml"}
	versionArgs = versionFlags{}

	// The changed state outlives the execution and is read by the sign command.
	resetChanged(rootCmd)
}

func resetChanged(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetChanged(sub)
	}
}

// testPrivateKey loads the private key matching testdata/acme.key.
func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	g := NewWithT(t)
	key, err := lkm.PrivateKeyFromFile(filepath.Join("testdata", "private.pem"))
	g.Expect(err).ToNot(HaveOccurred())
	return key
}

// writeLicense signs the claims with the test key and writes the license key to dir.
func writeLicense(t *testing.T, dir, name string, claims *lkm.LicenseClaims) string {
	g := NewWithT(t)
	data, err := lkm.SignLicense(claims, testPrivateKey(t))
	g.Expect(err).ToNot(HaveOccurred())
	licensePath := filepath.Join(dir, name)
	g.Expect(os.WriteFile(licensePath, data, 0644)).To(Succeed())
	return licensePath
}

// acmeClaims returns the claims of testdata/acme.key.
func acmeClaims(t *testing.T) *lkm.LicenseClaims {
	g := NewWithT(t)
	data, err := os.ReadFile(filepath.Join("testdata", "acme.key"))
	g.Expect(err).ToNot(HaveOccurred())
	claims, _, err := lkm.Inspect(data)
	g.Expect(err).ToNot(HaveOccurred())
	return claims
}
