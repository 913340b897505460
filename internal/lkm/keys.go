// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/go-jose/go-jose/v4"
)

// KeySetAlgorithm is the JWK algorithm of RSA signing keys in a key set.
const KeySetAlgorithm = string(jose.RS512)

// RSAKeySet represents a JWK Set holding RSA public or private keys.
type RSAKeySet struct {
	// Issuer is the identifier of the entity that issued the keys.
	// It is present when the set contains a private key.
	Issuer string `json:"issuer,omitempty"`

	// Keys is the list of JSON Web Keys that make up the set.
	Keys []jose.JSONWebKey `json:"keys"`
}

// PrivateKeyFromPEM parses an RSA private key in PKCS#1
// ("RSA PRIVATE KEY") or PKCS#8 ("PRIVATE KEY") PEM format.
func PrivateKeyFromPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to decode PEM block"))
	}
	if _, ok := block.Headers["DEK-Info"]; ok {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("encrypted PEM keys are not supported"))
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, KeyError(ErrInvalidKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, KeyError(ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, KeyError(ErrUnsupportedKey, fmt.Errorf("found %T", parsed))
		}
		return key, nil
	default:
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("unsupported PEM block type %q", block.Type))
	}
}

// PublicKeyFromPEM parses an RSA public key in PKIX ("PUBLIC KEY"),
// PKCS#1 ("RSA PUBLIC KEY") or X.509 certificate PEM format.
func PublicKeyFromPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to decode PEM block"))
	}

	switch block.Type {
	case "PUBLIC KEY":
		return publicKeyFromPKIX(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, KeyError(ErrInvalidKey, err)
		}
		return key, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, KeyError(ErrInvalidKey, err)
		}
		key, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, KeyError(ErrUnsupportedKey, fmt.Errorf("found %T", cert.PublicKey))
		}
		return key, nil
	default:
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("unsupported PEM block type %q", block.Type))
	}
}

// PublicKeyFromHex parses a hex encoded PKIX DER public key,
// the form in which verifiers usually embed the issuer key.
func PublicKeyFromHex(data []byte) (*rsa.PublicKey, error) {
	der, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, KeyError(ErrInvalidKey, err)
	}
	return publicKeyFromPKIX(der)
}

// PublicKeyToHex returns the hex encoded PKIX DER form of the public key.
func PublicKeyToHex(key *rsa.PublicKey) (string, error) {
	if key == nil {
		return "", KeyError(ErrPublicKeyRequired, nil)
	}
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", KeyError(ErrInvalidKey, err)
	}
	return hex.EncodeToString(der), nil
}

func publicKeyFromPKIX(der []byte) (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, KeyError(ErrInvalidKey, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, KeyError(ErrUnsupportedKey, fmt.Errorf("found %T", parsed))
	}
	return key, nil
}

// RSAKeySetFromJSON creates an RSAKeySet from a JSON byte slice.
func RSAKeySetFromJSON(data []byte) (*RSAKeySet, error) {
	var keySet RSAKeySet
	if err := json.Unmarshal(data, &keySet); err != nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to unmarshal key set: %w", err))
	}
	if len(keySet.Keys) == 0 {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("key set has no keys"))
	}
	if keySet.Issuer != "" && len(keySet.Keys) > 1 {
		return nil, KeyError(ErrInvalidKey,
			fmt.Errorf("key set with issuer %s cannot contain multiple keys", keySet.Issuer))
	}
	return &keySet, nil
}

// checkSigningKey verifies that the JWK is meant for RS512 signatures.
func checkSigningKey(key jose.JSONWebKey) error {
	if key.Algorithm != KeySetAlgorithm {
		return fmt.Errorf("key with ID %s has unsupported algorithm %s, expected %s",
			key.KeyID, key.Algorithm, KeySetAlgorithm)
	}
	if key.Use != "sig" {
		return fmt.Errorf("key with ID %s has unsupported use %s, expected 'sig'", key.KeyID, key.Use)
	}
	return nil
}

// PrivateKeyFromJWKS extracts the RSA private key from a key set in JSON format.
// The set must hold a single RS512 signing key.
func PrivateKeyFromJWKS(data []byte) (*rsa.PrivateKey, error) {
	keySet, err := RSAKeySetFromJSON(data)
	if err != nil {
		return nil, err
	}

	firstKey := keySet.Keys[0]
	if err := checkSigningKey(firstKey); err != nil {
		return nil, KeyError(ErrInvalidKey, err)
	}

	privateKey, ok := firstKey.Key.(*rsa.PrivateKey)
	if !ok {
		return nil, KeyError(ErrUnsupportedKey, fmt.Errorf("key with ID %s is not an RSA private key", firstKey.KeyID))
	}
	return privateKey, nil
}

// PublicKeyFromJWKS extracts the RSA public key by key ID from a key set
// in JSON format. An empty key ID selects the first key of the set.
func PublicKeyFromJWKS(data []byte, keyID string) (*rsa.PublicKey, error) {
	keySet, err := RSAKeySetFromJSON(data)
	if err != nil {
		return nil, err
	}

	for _, key := range keySet.Keys {
		if keyID != "" && key.KeyID != keyID {
			continue
		}
		if err := checkSigningKey(key); err != nil {
			return nil, KeyError(ErrInvalidKey, err)
		}
		switch k := key.Key.(type) {
		case *rsa.PublicKey:
			return k, nil
		case *rsa.PrivateKey:
			return &k.PublicKey, nil
		default:
			return nil, KeyError(ErrUnsupportedKey, fmt.Errorf("key with ID %s is not an RSA key", key.KeyID))
		}
	}

	return nil, KeyError(ErrInvalidKey, fmt.Errorf("no public key found with ID %s", keyID))
}

// PrivateKeyFromBytes parses an RSA private key in PEM or JWKS format.
func PrivateKeyFromBytes(data []byte) (*rsa.PrivateKey, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, KeyError(ErrPrivateKeyRequired, nil)
	}
	if trimmed[0] == '{' {
		return PrivateKeyFromJWKS(trimmed)
	}
	return PrivateKeyFromPEM(trimmed)
}

// PublicKeyFromBytes parses an RSA public key in PEM, JWKS or hex format.
// A PEM encoded private key is accepted and its public half returned.
func PublicKeyFromBytes(data []byte) (*rsa.PublicKey, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, KeyError(ErrPublicKeyRequired, nil)
	case trimmed[0] == '{':
		return PublicKeyFromJWKS(trimmed, "")
	case bytes.HasPrefix(trimmed, []byte("-----BEGIN")):
		if bytes.Contains(trimmed, []byte("PRIVATE KEY-----")) {
			key, err := PrivateKeyFromPEM(trimmed)
			if err != nil {
				return nil, err
			}
			return &key.PublicKey, nil
		}
		return PublicKeyFromPEM(trimmed)
	default:
		return PublicKeyFromHex(trimmed)
	}
}

// PrivateKeyFromFile reads an RSA private key in PEM or JWKS format from a file.
func PrivateKeyFromFile(filePath string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to read private key from file %s: %w", filePath, err))
	}
	return PrivateKeyFromBytes(data)
}

// PublicKeyFromFile reads an RSA public key in PEM, JWKS or hex format from a file.
func PublicKeyFromFile(filePath string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to read public key from file %s: %w", filePath, err))
	}
	return PublicKeyFromBytes(data)
}
