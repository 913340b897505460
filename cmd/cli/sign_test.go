// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	. "github.com/onsi/gomega"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

func TestSignCmd(t *testing.T) {
	privateKeyFile := filepath.Join("testdata", "private.pem")

	tests := []struct {
		name         string
		setupFunc    func(tempDir string) ([]string, error)
		expectError  bool
		errorMessage string
		expectOutput []string
		verify       func(g *WithT, claims *lkm.LicenseClaims)
	}{
		{
			name: "issues a license with defaults",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile}, nil
			},
			expectOutput: []string{"license key written to:", "issued to TestCustomer", "expires: never"},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.LicenseID).To(MatchRegexp(`^[0-9A-F]{16}$`))
				g.Expect(claims.CustomerName).To(Equal(lkm.DefaultCustomerName))
				g.Expect(claims.CustomerID).To(Equal(lkm.CustomerIDFromName(lkm.DefaultCustomerName)))
				g.Expect(claims.Tier).To(Equal(lkm.TierBusiness))
				g.Expect(claims.Features()).To(Equal(lkm.Features()))
				g.Expect(claims.NeverExpires()).To(BeTrue())
				g.Expect(claims.Trial).To(BeFalse())
				g.Expect(claims.CreatedBy).To(Equal(lkm.DefaultCreatedBy))
			},
		},
		{
			name: "issues a trial license for specific products",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--customer", "Acme Corp",
					"--tier", "individual", "--features", "UniPDF,uni office", "--duration", "30", "--trial"}, nil
			},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.CustomerName).To(Equal("Acme Corp"))
				g.Expect(claims.Tier).To(Equal(lkm.TierIndividual))
				g.Expect(claims.Features()).To(Equal([]string{lkm.FeatureUniPDF, lkm.FeatureUniOffice}))
				g.Expect(claims.ExpiresAt).To(Equal(claims.CreatedAt + 30*86400))
				g.Expect(claims.Trial).To(BeTrue())
			},
		},
		{
			name: "uses issuer allocated IDs and provenance",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "-c", "Acme",
					"--license-id", "1234567890ABCDEF", "--customer-id", "CUST1234567890",
					"--created-by", "billing", "--creator-name", "Jane Doe", "--creator-email", "jane@example.com"}, nil
			},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.LicenseID).To(Equal("1234567890ABCDEF"))
				g.Expect(claims.CustomerID).To(Equal("CUST1234567890"))
				g.Expect(claims.CreatedBy).To(Equal("billing"))
				g.Expect(claims.CreatorName).To(Equal("Jane Doe"))
				g.Expect(claims.CreatorEmail).To(Equal("jane@example.com"))
			},
		},
		{
			name: "grants no products with empty features",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--features", ""}, nil
			},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.Features()).To(BeEmpty())
			},
		},
		{
			name: "warns on negative duration",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--duration", "-1"}, nil
			},
			expectOutput: []string{"warning: negative duration"},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.ExpiresAt).To(BeNumerically("<", claims.CreatedAt))
			},
		},
		{
			name: "prints the license key",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--print"}, nil
			},
			expectOutput: []string{lkm.EnvelopeHeader, lkm.EnvelopeFooter},
		},
		{
			name: "logs the claims digest in verbose mode",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--verbose"}, nil
			},
			expectOutput: []string{"license claims signed", "sha512:", "canonical claims"},
		},
		{
			name: "reads the key from a JWKS",
			setupFunc: func(tempDir string) ([]string, error) {
				key, err := lkm.PrivateKeyFromFile(privateKeyFile)
				if err != nil {
					return nil, err
				}
				keySet := lkm.RSAKeySet{
					Issuer: "test-issuer",
					Keys: []jose.JSONWebKey{
						{Key: key, KeyID: "test-key-id", Algorithm: lkm.KeySetAlgorithm, Use: "sig"},
					},
				}
				data, err := json.Marshal(keySet)
				if err != nil {
					return nil, err
				}
				keySetFile := filepath.Join(tempDir, "private.jwks")
				if err := os.WriteFile(keySetFile, data, 0600); err != nil {
					return nil, err
				}
				return []string{"--key", keySetFile, "--customer", "Acme"}, nil
			},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.CustomerName).To(Equal("Acme"))
			},
		},
		{
			name: "merges the claims file with flags",
			setupFunc: func(tempDir string) ([]string, error) {
				claimsFile := filepath.Join(tempDir, "issuer.yaml")
				err := os.WriteFile(claimsFile, []byte(`customer: Globex
tier: community
duration: 10
features:
  - unihtml
createdBy: billing
creatorEmail: billing@example.com
`), 0644)
				if err != nil {
					return nil, err
				}
				return []string{"--key", privateKeyFile, "--claims-file", claimsFile, "--tier", "individual"}, nil
			},
			verify: func(g *WithT, claims *lkm.LicenseClaims) {
				g.Expect(claims.CustomerName).To(Equal("Globex"))
				g.Expect(claims.Tier).To(Equal(lkm.TierIndividual))
				g.Expect(claims.ExpiresAt).To(Equal(claims.CreatedAt + 10*86400))
				g.Expect(claims.Features()).To(Equal([]string{lkm.FeatureUniHTML}))
				g.Expect(claims.CreatedBy).To(Equal("billing"))
				g.Expect(claims.CreatorName).To(Equal(lkm.DefaultCreatorName))
				g.Expect(claims.CreatorEmail).To(Equal("billing@example.com"))
			},
		},
		{
			name: "invalid claims file",
			setupFunc: func(tempDir string) ([]string, error) {
				claimsFile := filepath.Join(tempDir, "issuer.yaml")
				if err := os.WriteFile(claimsFile, []byte("customers: Globex\n"), 0644); err != nil {
					return nil, err
				}
				return []string{"--key", privateKeyFile, "--claims-file", claimsFile}, nil
			},
			expectError:  true,
			errorMessage: "failed to parse claims file",
		},
		{
			name: "unsupported tier",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--tier", "enterprise"}, nil
			},
			expectError:  true,
			errorMessage: `unsupported tier "enterprise"`,
		},
		{
			name: "unknown feature",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", privateKeyFile, "--features", "unipdf,unidoc"}, nil
			},
			expectError:  true,
			errorMessage: `unknown feature "unidoc"`,
		},
		{
			name: "missing key",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{}, nil
			},
			expectError:  true,
			errorMessage: "key must be specified with --key flag or LICENSE_ISSUER_PRIVATE_KEY environment variable",
		},
		{
			name: "invalid key file",
			setupFunc: func(tempDir string) ([]string, error) {
				invalidKeyFile := filepath.Join(tempDir, "invalid.pem")
				if err := os.WriteFile(invalidKeyFile, []byte("invalid key"), 0644); err != nil {
					return nil, err
				}
				return []string{"--key", invalidKeyFile}, nil
			},
			expectError:  true,
			errorMessage: "invalid key",
		},
		{
			name: "public key instead of private key",
			setupFunc: func(tempDir string) ([]string, error) {
				return []string{"--key", filepath.Join("testdata", "public.pem")}, nil
			},
			expectError:  true,
			errorMessage: `unsupported PEM block type "PUBLIC KEY"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			tempDir := t.TempDir()
			t.Setenv(privateKeyEnvVar, "")

			// Setup the test scenario
			args, err := tt.setupFunc(tempDir)
			g.Expect(err).ToNot(HaveOccurred())
			outputFile := filepath.Join(tempDir, "license.key")
			args = append([]string{"sign", "--output", outputFile}, args...)

			// Execute command
			output, err := executeCommand(args)

			if tt.expectError {
				g.Expect(err).To(HaveOccurred())
				g.Expect(err.Error()).To(ContainSubstring(tt.errorMessage))
				g.Expect(outputFile).ToNot(BeAnExistingFile())
				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(output).To(ContainSubstring("license key written to: " + outputFile))
			for _, expected := range tt.expectOutput {
				g.Expect(output).To(ContainSubstring(expected))
			}

			// Verify the license key with the public key
			licenseData, err := os.ReadFile(outputFile)
			g.Expect(err).ToNot(HaveOccurred())
			publicKey, err := lkm.PublicKeyFromFile(filepath.Join("testdata", "public.pem"))
			g.Expect(err).ToNot(HaveOccurred())
			claims, err := lkm.Verify(licenseData, publicKey)
			g.Expect(err).ToNot(HaveOccurred())

			if tt.verify != nil {
				tt.verify(g, claims)
			}
		})
	}
}

func TestSignCmd_KeyFromEnv(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()

	keyData, err := os.ReadFile(filepath.Join("testdata", "private.pem"))
	g.Expect(err).ToNot(HaveOccurred())
	t.Setenv(privateKeyEnvVar, string(keyData))

	outputFile := filepath.Join(tempDir, "acme.key")
	output, err := executeCommand([]string{"sign", "-c", "Acme", "-o", outputFile})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(output).To(ContainSubstring("issued to Acme"))
	g.Expect(outputFile).To(BeAnExistingFile())
}

func TestSignCmd_EmptyFeaturesAfterPreviousRun(t *testing.T) {
	g := NewWithT(t)
	tempDir := t.TempDir()
	t.Setenv(privateKeyEnvVar, "")
	privateKeyFile := filepath.Join("testdata", "private.pem")
	publicKey, err := lkm.PublicKeyFromFile(filepath.Join("testdata", "public.pem"))
	g.Expect(err).ToNot(HaveOccurred())

	runs := []struct {
		features string
		expected []string
	}{
		{features: "unipdf,unihtml", expected: []string{lkm.FeatureUniPDF, lkm.FeatureUniHTML}},
		{features: "", expected: []string{}},
		{features: "unioffice", expected: []string{lkm.FeatureUniOffice}},
	}

	for i, run := range runs {
		outputFile := filepath.Join(tempDir, fmt.Sprintf("license-%d.key", i))
		_, err := executeCommand([]string{"sign", "--key", privateKeyFile,
			"--features", run.features, "-o", outputFile})
		g.Expect(err).ToNot(HaveOccurred())

		licenseData, err := os.ReadFile(outputFile)
		g.Expect(err).ToNot(HaveOccurred())
		claims, err := lkm.Verify(licenseData, publicKey)
		g.Expect(err).ToNot(HaveOccurred())
		g.Expect(claims.Features()).To(ConsistOf(run.expected), "features %q", run.features)
	}

	// Without the flag every product is granted again.
	outputFile := filepath.Join(tempDir, "license-all.key")
	_, err = executeCommand([]string{"sign", "--key", privateKeyFile, "-o", outputFile})
	g.Expect(err).ToNot(HaveOccurred())
	licenseData, err := os.ReadFile(outputFile)
	g.Expect(err).ToNot(HaveOccurred())
	claims, err := lkm.Verify(licenseData, publicKey)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(claims.Features()).To(Equal(lkm.Features()))
}

func TestRootCmd_DefaultTimeout(t *testing.T) {
	g := NewWithT(t)

	resetCmdArgs()
	g.Expect(rootArgs.timeout).To(Equal(time.Minute))
	g.Expect(rootCmd.PersistentFlags().Lookup("timeout").DefValue).To(Equal(time.Minute.String()))
}

func TestNormalizeFeatures(t *testing.T) {
	g := NewWithT(t)

	features, err := normalizeFeatures([]string{"UniPDF", " uni-office ", "Uni HTML", ""})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(features).To(Equal([]string{lkm.FeatureUniPDF, lkm.FeatureUniOffice, lkm.FeatureUniHTML}))

	_, err = normalizeFeatures([]string{"unioffice", "docx"})
	g.Expect(err).To(MatchError(ContainSubstring(`unknown feature "docx"`)))
}
