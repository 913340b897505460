// Copyright 2026 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"
	"sigs.k8s.io/yaml"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

var diffCmd = &cobra.Command{
	Use:   "diff <source> <target>",
	Short: "Diff the claims of two license keys and generate a JSON patch",
	Long: `The diff command compares the claims of two license keys and produces a JSON patch (RFC 6902)
that can be applied to the source claims to obtain the target claims.

The source and target can be local file paths or remote URLs.
When a public key is specified, both license keys are verified before the comparison.`,
	Example: `  # Review the changes of a license renewal (default YAML output)
  license-issuer diff acme-2025.key acme-2026.key

  # Diff with JSON patch output after verifying both license keys
  license-issuer diff acme-2025.key acme-2026.key \
    --key=/path/to/public.pem \
    --output=json-patch`,
	Args: cobra.ExactArgs(2),
	RunE: diffCmdRun,
}

type diffFlags struct {
	output  string
	keyPath string
}

var diffArgs = diffFlags{output: "json-patch-yaml"}

func init() {
	diffCmd.Flags().StringVarP(&diffArgs.output, "output", "o", diffArgs.output,
		"Output format for the diff result. Supported formats: json-patch-yaml, json-patch.")
	diffCmd.Flags().StringVarP(&diffArgs.keyPath, "key", "k", "",
		"path or URL to the RSA public key used to verify both license keys")
	registerCompletion(diffCmd, "output", func() []string { return []string{"json-patch-yaml", "json-patch"} })

	rootCmd.AddCommand(diffCmd)
}

func diffCmdRun(cmd *cobra.Command, args []string) error {
	if diffArgs.output != "json-patch-yaml" && diffArgs.output != "json-patch" {
		return fmt.Errorf("unsupported output format %q, supported formats: json-patch-yaml, json-patch", diffArgs.output)
	}

	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	source, err := readClaims(ctx, args[0])
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	target, err := readClaims(ctx, args[1])
	if err != nil {
		return fmt.Errorf("reading target: %w", err)
	}

	patch, err := jsondiff.CompareJSON(source, target, jsondiff.Rationalize())
	if err != nil {
		return fmt.Errorf("computing diff: %w", err)
	}
	if len(patch) == 0 {
		rootCmd.Println("✔ no differences found")
		return nil
	}

	switch diffArgs.output {
	case "json-patch":
		patchJSON, err := json.MarshalIndent(patch, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling patch: %w", err)
		}
		rootCmd.Println(string(patchJSON))
	case "json-patch-yaml":
		patchYAML, err := yaml.Marshal(patch)
		if err != nil {
			return fmt.Errorf("marshalling patch: %w", err)
		}
		rootCmd.Print(string(patchYAML))
	}

	return nil
}

// readClaims returns the canonical claims of a license key, verified
// against the --key public key when one is specified.
func readClaims(ctx context.Context, licensePath string) ([]byte, error) {
	licenseData, err := loadLicense(ctx, licensePath)
	if err != nil {
		return nil, err
	}

	if diffArgs.keyPath == "" {
		_, payload, err := lkm.Inspect(licenseData)
		return payload, err
	}

	publicKey, err := loadPublicKey(ctx, diffArgs.keyPath, "")
	if err != nil {
		return nil, err
	}
	claims, err := lkm.Verify(licenseData, publicKey)
	if err != nil {
		return nil, err
	}
	return lkm.Canonicalize(claims)
}
