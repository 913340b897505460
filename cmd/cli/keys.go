// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"strings"

	"github.com/controlplaneio-fluxcd/license-issuer/internal/lkm"
)

const (
	privateKeyEnvVar = "LICENSE_ISSUER_PRIVATE_KEY"
	publicKeyEnvVar  = "LICENSE_ISSUER_PUBLIC_KEY"

	// defaultLicensePath is where sign writes and verify reads license keys by default.
	defaultLicensePath = "license.key"
)

// loadKeyData reads key material from file path, HTTP URL, or environment variable
func loadKeyData(ctx context.Context, keyPath, envVarName string) ([]byte, error) {
	if keyPath != "" {
		// Check if it's an HTTP URL
		if lkm.IsURL(keyPath) {
			contentType := lkm.ContentTypePEM
			if strings.HasSuffix(keyPath, ".json") || strings.HasSuffix(keyPath, ".jwks") {
				contentType = lkm.ContentTypeKeySet
			}
			logger.Info("fetching key", "url", keyPath, "contentType", contentType)
			return lkm.Fetch(ctx, keyPath, lkm.FetchOpt.WithContentType(contentType))
		}
		// Load from file or /dev/stdin
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, err
		}
		return keyData, nil
	} else if keyData := os.Getenv(envVarName); keyData != "" {
		// Load from environment variable
		logger.Info("loading key from environment", "variable", envVarName)
		return []byte(keyData), nil
	} else {
		return nil, fmt.Errorf("key must be specified with --key flag or %s environment variable",
			envVarName)
	}
}

// loadPrivateKey reads an RSA private key in PEM or JWKS format.
func loadPrivateKey(ctx context.Context, keyPath string) (*rsa.PrivateKey, error) {
	keyData, err := loadKeyData(ctx, keyPath, privateKeyEnvVar)
	if err != nil {
		return nil, err
	}
	return lkm.PrivateKeyFromBytes(keyData)
}

// loadPublicKey reads an RSA public key in PEM, JWKS or hex format.
// When keyID is set, the key is looked up by ID in a JWKS.
func loadPublicKey(ctx context.Context, keyPath, keyID string) (*rsa.PublicKey, error) {
	keyData, err := loadKeyData(ctx, keyPath, publicKeyEnvVar)
	if err != nil {
		return nil, err
	}
	if keyID != "" {
		return lkm.PublicKeyFromJWKS(keyData, keyID)
	}
	return lkm.PublicKeyFromBytes(keyData)
}

// loadLicense reads a license key from file path, HTTP URL or /dev/stdin.
func loadLicense(ctx context.Context, licensePath string) ([]byte, error) {
	if lkm.IsURL(licensePath) {
		logger.Info("fetching license key", "url", licensePath)
		return lkm.Fetch(ctx, licensePath, lkm.FetchOpt.WithContentType(lkm.ContentTypeLicense))
	}
	data, err := os.ReadFile(licensePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read license file: %w", err)
	}
	return data, nil
}
