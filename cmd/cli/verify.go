// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [LICENSE_FILE]",
	Short: "Verify a signed license key",
	Example: `  # Verify a license key with a public key from file
  license-issuer verify license.key --key=/path/to/public.pem

  # Verify that the license key was issued to a customer
  cat /path/to/public.pem | license-issuer verify ./license.key \
  --key=/dev/stdin \
  --customer="Company Name LLC"

  # Verify by reading the public key from env
  export LICENSE_ISSUER_PUBLIC_KEY="$(cat /path/to/public.hex)"
  license-issuer verify https://licenses.example.com/acme.key
`,
	Args: cobra.MaximumNArgs(1),
	RunE: verifyCmdRun,
}

type verifyFlags struct {
	keyPath  string
	keyID    string
	customer string
}

var verifyArgs verifyFlags

func init() {
	verifyCmd.Flags().StringVarP(&verifyArgs.keyPath, "key", "k", "",
		fmt.Sprintf("path or URL to the RSA public key in PEM, hex or JWKS format, or set %s", publicKeyEnvVar))
	verifyCmd.Flags().StringVar(&verifyArgs.keyID, "key-id", "",
		"ID of the key to use from a JWKS")
	verifyCmd.Flags().StringVarP(&verifyArgs.customer, "customer", "c", "",
		"fail if the license key is not issued to this customer")
	rootCmd.AddCommand(verifyCmd)
}

func verifyCmdRun(cmd *cobra.Command, args []string) error {
	licensePath := defaultLicensePath
	if len(args) > 0 {
		licensePath = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	licenseData, err := loadLicense(ctx, licensePath)
	if err != nil {
		return err
	}

	publicKey, err := loadPublicKey(ctx, verifyArgs.keyPath, verifyArgs.keyID)
	if err != nil {
		return err
	}

	opts := []lkm.VerifyOption{lkm.VerifyOpt.WithExpiryCheck(time.Now())}
	if verifyArgs.customer != "" {
		opts = append(opts, lkm.VerifyOpt.WithCustomerName(verifyArgs.customer))
	}

	claims, err := lkm.Verify(licenseData, publicKey, opts...)
	switch {
	case errors.Is(err, lkm.ErrLicenseExpired):
		rootCmd.Println(fmt.Sprintf("✔ license key is issued to %s (%s)", claims.CustomerName, claims.CustomerID))
		return err
	case lkm.IsKind(err, lkm.KindEnvelope):
		return fmt.Errorf("license key is malformed: %w", err)
	case lkm.IsKind(err, lkm.KindSignature):
		return fmt.Errorf("license key signature verification failed: %w", err)
	case err != nil:
		return err
	}
	logger.Info("license key verified", "licenseID", claims.LicenseID, "tier", claims.Tier)

	rootCmd.Println(fmt.Sprintf("✔ license key is issued to %s (%s)", claims.CustomerName, claims.CustomerID))
	if claims.NeverExpires() {
		rootCmd.Println("✔ license key never expires")
	} else {
		rootCmd.Println(fmt.Sprintf("✔ license key is valid until %s", claims.GetExpiry()))
	}
	if claims.Trial {
		rootCmd.Println("✔ license key is a trial")
	}

	return nil
}
