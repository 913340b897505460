// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Issue a signed license key",
	Example: `  # Issue a license key that never expires
  license-issuer sign \
  --key=/path/to/private.pem \
  --customer="Company Name LLC" \
  --output=license.key

  # Issue a one year license key for specific products
  export LICENSE_ISSUER_PRIVATE_KEY="$(cat /path/to/private.pem)"
  license-issuer sign \
  --customer="Company Name INC" \
  --tier=individual \
  --features=unipdf,unioffice \
  --duration=365

  # Issue a trial license key with issuer defaults from a file
  license-issuer sign \
  --key=/path/to/private.jwks \
  --claims-file=issuer.yaml \
  --customer="Company Name GmbH" \
  --trial \
  --duration=30
`,
	Args: cobra.NoArgs,
	RunE: signCmdRun,
}

type signFlags struct {
	customer     string
	customerID   string
	licenseID    string
	tier         string
	duration     int
	features     []string
	trial        bool
	createdBy    string
	creatorName  string
	creatorEmail string
	claimsFile   string
	keyPath      string
	outputPath   string
	print        bool
}

var signArgs = newSignFlags()

func newSignFlags() signFlags {
	return signFlags{
		customer:   lkm.DefaultCustomerName,
		tier:       string(lkm.TierBusiness),
		outputPath: defaultLicensePath,
	}
}

func init() {
	signCmd.Flags().StringVarP(&signArgs.customer, "customer", "c", signArgs.customer,
		"customer name for the license")
	signCmd.Flags().StringVar(&signArgs.customerID, "customer-id", "",
		"customer ID, derived from the customer name if not specified")
	signCmd.Flags().StringVar(&signArgs.licenseID, "license-id", "",
		"license ID, generated if not specified")
	signCmd.Flags().StringVar(&signArgs.tier, "tier", signArgs.tier,
		fmt.Sprintf("license tier, one of %s", strings.Join(tierNames(), ", ")))
	signCmd.Flags().IntVarP(&signArgs.duration, "duration", "d", 0,
		"license duration in days, zero means the license never expires")
	signCmd.Flags().StringSliceVar(&signArgs.features, "features", nil,
		fmt.Sprintf("licensed products, defaults to all of %s", strings.Join(lkm.Features(), ",")))
	signCmd.Flags().BoolVar(&signArgs.trial, "trial", false,
		"mark the license as a trial")
	signCmd.Flags().StringVar(&signArgs.createdBy, "created-by", "",
		fmt.Sprintf("issuing system identifier (default %q)", lkm.DefaultCreatedBy))
	signCmd.Flags().StringVar(&signArgs.creatorName, "creator-name", "",
		fmt.Sprintf("issuer name (default %q)", lkm.DefaultCreatorName))
	signCmd.Flags().StringVar(&signArgs.creatorEmail, "creator-email", "",
		fmt.Sprintf("issuer contact address (default %q)", lkm.DefaultCreatorEmail))
	signCmd.Flags().StringVar(&signArgs.claimsFile, "claims-file", "",
		"path to a YAML or JSON file with claim defaults, flags take precedence")
	signCmd.Flags().StringVarP(&signArgs.keyPath, "key", "k", "",
		fmt.Sprintf("path or URL to the RSA private key in PEM or JWKS format, or set %s", privateKeyEnvVar))
	signCmd.Flags().StringVarP(&signArgs.outputPath, "output", "o", signArgs.outputPath,
		"path to the output file for the license key")
	signCmd.Flags().BoolVar(&signArgs.print, "print", false,
		"print the license key to stdout")
	registerCompletion(signCmd, "tier", tierNames)
	registerCompletion(signCmd, "features", lkm.Features)
	rootCmd.AddCommand(signCmd)
}

// claimsFile holds claim defaults loaded with --claims-file.
type claimsFile struct {
	Customer     string   `json:"customer,omitempty"`
	CustomerID   string   `json:"customerID,omitempty"`
	Tier         string   `json:"tier,omitempty"`
	Duration     int      `json:"duration,omitempty"`
	Features     []string `json:"features,omitempty"`
	Trial        bool     `json:"trial,omitempty"`
	CreatedBy    string   `json:"createdBy,omitempty"`
	CreatorName  string   `json:"creatorName,omitempty"`
	CreatorEmail string   `json:"creatorEmail,omitempty"`
}

func signCmdRun(cmd *cobra.Command, args []string) error {
	input, err := resolveSignFlags(cmd)
	if err != nil {
		return err
	}

	if !lkm.Tier(input.tier).IsValid() {
		return fmt.Errorf("unsupported tier %q, supported tiers: %s", input.tier, strings.Join(tierNames(), ", "))
	}
	if input.outputPath == "" && !input.print {
		return fmt.Errorf("--output flag is required")
	}
	if input.duration < 0 {
		rootCmd.Println("✗ warning: negative duration will result in an expired license key")
	}

	opts := []lkm.ClaimsOption{
		lkm.ClaimsOpt.WithLicenseID(input.licenseID),
		lkm.ClaimsOpt.WithCustomerID(input.customerID),
		lkm.ClaimsOpt.WithTier(lkm.Tier(input.tier)),
		lkm.ClaimsOpt.WithExpiry(time.Duration(input.duration) * 24 * time.Hour),
		lkm.ClaimsOpt.WithTrial(input.trial),
		lkm.ClaimsOpt.WithCreator(input.createdBy, input.creatorName, input.creatorEmail),
	}
	// An empty --features value is explicit and grants no products.
	if cmd.Flags().Changed("features") || input.features != nil {
		features, err := normalizeFeatures(input.features)
		if err != nil {
			return err
		}
		opts = append(opts, lkm.ClaimsOpt.WithFeatures(features...))
	}

	// Read the private key from file, URL or environment variable
	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()
	privateKey, err := loadPrivateKey(ctx, input.keyPath)
	if err != nil {
		return err
	}

	// Generate the license claims
	claims, err := lkm.NewLicenseClaims(input.customer, opts...)
	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}

	// Sign the canonical claims
	artifact, err := lkm.Sign(claims, privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign license key: %w", err)
	}
	logger.Info("license claims signed",
		"licenseID", claims.LicenseID,
		"digest", digest.SHA512.FromBytes(artifact.Claims()).String(),
		"signatureSize", len(artifact.Signature()))
	logger.V(1).Info("canonical claims", "json", string(artifact.Claims()))

	// Verify the license key with the public half before handing it out
	if _, err := lkm.Verify(artifact.Envelope(), &privateKey.PublicKey); err != nil {
		return fmt.Errorf("failed to verify the issued license key: %w", err)
	}

	if input.print {
		rootCmd.Print(artifact.String())
	}

	if input.outputPath != "" {
		err = os.WriteFile(input.outputPath, artifact.Envelope(), 0644)
		if err != nil {
			return fmt.Errorf("failed to write license key to file: %w", err)
		}
		rootCmd.Println(fmt.Sprintf("✔ license key written to: %s", input.outputPath))
	}
	rootCmd.Println(fmt.Sprintf("✔ license %s issued to %s (%s) expires: %s",
		claims.LicenseID, claims.CustomerName, claims.CustomerID, claims.GetExpiry()))

	return nil
}

// resolveSignFlags merges the claims file into the flags that were not set explicitly.
func resolveSignFlags(cmd *cobra.Command) (signFlags, error) {
	input := signArgs
	if input.claimsFile == "" {
		return input, nil
	}

	data, err := os.ReadFile(input.claimsFile)
	if err != nil {
		return input, fmt.Errorf("failed to read claims file: %w", err)
	}
	var file claimsFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return input, fmt.Errorf("failed to parse claims file %s: %w", input.claimsFile, err)
	}
	logger.Info("loaded claims file", "path", input.claimsFile)

	flags := cmd.Flags()
	setString := func(name string, target *string, value string) {
		if !flags.Changed(name) && value != "" {
			*target = value
		}
	}
	setString("customer", &input.customer, file.Customer)
	setString("customer-id", &input.customerID, file.CustomerID)
	setString("tier", &input.tier, file.Tier)
	setString("created-by", &input.createdBy, file.CreatedBy)
	setString("creator-name", &input.creatorName, file.CreatorName)
	setString("creator-email", &input.creatorEmail, file.CreatorEmail)
	if !flags.Changed("duration") && file.Duration != 0 {
		input.duration = file.Duration
	}
	if !flags.Changed("features") && file.Features != nil {
		input.features = file.Features
	}
	if !flags.Changed("trial") && file.Trial {
		input.trial = true
	}

	return input, nil
}

// normalizeFeatures maps product names such as "UniPDF" or "uni-pdf"
// to the feature names of the claims.
func normalizeFeatures(names []string) ([]string, error) {
	features := make([]string, 0, len(names))
	for _, name := range names {
		feature := strings.ReplaceAll(slug.Make(name), "-", "")
		if feature == "" {
			continue
		}
		if !slices.Contains(lkm.Features(), feature) {
			return nil, fmt.Errorf("unknown feature %q, supported features: %s",
				name, strings.Join(lkm.Features(), ", "))
		}
		features = append(features, feature)
	}
	return features, nil
}
