// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [LICENSE_FILE]",
	Short: "Print the claims of a license key without verifying the signature",
	Example: `  # Print the license key claims as a table
  license-issuer inspect license.key

  # Print the license key claims as YAML
  license-issuer inspect license.key --output=yaml
`,
	Args: cobra.MaximumNArgs(1),
	RunE: inspectCmdRun,
}

type inspectFlags struct {
	output string
}

var inspectArgs = inspectFlags{output: "table"}

func init() {
	inspectCmd.Flags().StringVarP(&inspectArgs.output, "output", "o", inspectArgs.output,
		"Output format. Supported formats: table, json, yaml.")
	registerCompletion(inspectCmd, "output", func() []string { return []string{"table", "json", "yaml"} })
	rootCmd.AddCommand(inspectCmd)
}

func inspectCmdRun(cmd *cobra.Command, args []string) error {
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

	claims, payload, err := lkm.Inspect(licenseData)
	if err != nil {
		return err
	}

	switch inspectArgs.output {
	case "json":
		data, err := json.MarshalIndent(claims, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling claims: %w", err)
		}
		rootCmd.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(claims)
		if err != nil {
			return fmt.Errorf("marshalling claims: %w", err)
		}
		rootCmd.Print(string(data))
	case "table":
		printTable(rootCmd.OutOrStdout(), []string{"claim", "value"}, claimsRows(claims, payload))
		rootCmd.Println("✗ warning: the signature has not been verified, use the verify command")
	default:
		return fmt.Errorf("unsupported output format %q, supported formats: table, json, yaml", inspectArgs.output)
	}

	return nil
}

// claimsRows returns the table rows of the claims in canonical order.
func claimsRows(claims *lkm.LicenseClaims, payload []byte) [][]string {
	features := strings.Join(claims.Features(), ",")
	if features == "" {
		features = "-"
	}
	return [][]string{
		{"license_id", claims.LicenseID},
		{"customer_id", claims.CustomerID},
		{"customer_name", claims.CustomerName},
		{"tier", string(claims.Tier)},
		{"created_at", claims.GetCreatedAt()},
		{"expires_at", claims.GetExpiry()},
		{"created_by", claims.CreatedBy},
		{"creator_name", claims.CreatorName},
		{"creator_email", claims.CreatorEmail},
		{"features", features},
		{"trial", strconv.FormatBool(claims.Trial)},
		{"digest", digest.SHA512.FromBytes(payload).String()},
	}
}
