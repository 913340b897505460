// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

func TestInspectCmd(t *testing.T) {
	acmeLicense := filepath.Join("testdata", "acme.key")

	t.Run("prints a table", func(t *testing.T) {
		g := NewWithT(t)

		data, err := os.ReadFile(acmeLicense)
		g.Expect(err).ToNot(HaveOccurred())
		_, payload, err := lkm.Inspect(data)
		g.Expect(err).ToNot(HaveOccurred())

		output, err := executeCommand([]string{"inspect", acmeLicense})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(output).To(ContainSubstring("1234567890ABCDEF"))
		g.Expect(output).To(ContainSubstring("CUST1234567890"))
		g.Expect(output).To(ContainSubstring("2025-01-01T00:00:00Z"))
		g.Expect(output).To(ContainSubstring("never"))
		g.Expect(output).To(ContainSubstring("unipdf,unioffice,unihtml"))
		g.Expect(output).To(ContainSubstring("sha512:" + hex.EncodeToString(lkm.Digest(payload))))
		g.Expect(output).To(ContainSubstring("the signature has not been verified"))
	})

	t.Run("prints JSON", func(t *testing.T) {
		g := NewWithT(t)

		output, err := executeCommand([]string{"inspect", acmeLicense, "--output", "json"})
		g.Expect(err).ToNot(HaveOccurred())

		var claims lkm.LicenseClaims
		g.Expect(json.Unmarshal([]byte(output), &claims)).To(Succeed())
		g.Expect(claims).To(Equal(*acmeClaims(t)))
	})

	t.Run("prints YAML", func(t *testing.T) {
		g := NewWithT(t)

		output, err := executeCommand([]string{"inspect", acmeLicense, "-o", "yaml"})
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(output).To(ContainSubstring("customer_name: Acme"))

		var claims lkm.LicenseClaims
		g.Expect(yaml.Unmarshal([]byte(output), &claims)).To(Succeed())
		g.Expect(claims).To(Equal(*acmeClaims(t)))
	})

	t.Run("rejects unsupported output", func(t *testing.T) {
		g := NewWithT(t)

		_, err := executeCommand([]string{"inspect", acmeLicense, "-o", "xml"})
		g.Expect(err).To(HaveOccurred())
		g.Expect(err.Error()).To(ContainSubstring(`unsupported output format "xml"`))
	})

	t.Run("rejects a malformed license key", func(t *testing.T) {
		g := NewWithT(t)

		malformed := filepath.Join(t.TempDir(), "malformed.key")
		g.Expect(os.WriteFile(malformed, []byte("not a license"), 0644)).To(Succeed())

		_, err := executeCommand([]string{"inspect", malformed})
		g.Expect(err).To(HaveOccurred())
		g.Expect(err.Error()).To(ContainSubstring("invalid license key"))
	})
}
