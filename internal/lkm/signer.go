// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"fmt"
)

// SignatureHash is the hash algorithm bound to the PKCS#1 v1.5 signature.
// Verifiers must use the same algorithm.
const SignatureHash = crypto.SHA512

// SignedArtifact holds the canonical claims bytes and the signature over them.
// It is immutable: accessors return copies.
type SignedArtifact struct {
	claims    []byte
	signature []byte
}

// Claims returns a copy of the canonical claims bytes.
func (a *SignedArtifact) Claims() []byte {
	return bytes.Clone(a.claims)
}

// Signature returns a copy of the raw signature bytes.
func (a *SignedArtifact) Signature() []byte {
	return bytes.Clone(a.signature)
}

// Envelope returns the license artifact in text format.
func (a *SignedArtifact) Envelope() []byte {
	return EncodeEnvelope(a.claims, a.signature)
}

// String returns the license artifact in text format.
func (a *SignedArtifact) String() string {
	return string(a.Envelope())
}

// Digest returns the SHA-512 digest of the canonical claims bytes.
func Digest(claims []byte) []byte {
	sum := sha512.Sum512(claims)
	return sum[:]
}

// Sign canonicalizes the claims, computes the SHA-512 digest and signs
// it with the RSA private key using PKCS#1 v1.5 padding.
// PKCS#1 v1.5 signing is deterministic: the same claims and key
// always produce the same artifact.
func Sign(claims *LicenseClaims, privateKey *rsa.PrivateKey) (*SignedArtifact, error) {
	if privateKey == nil {
		return nil, KeyError(ErrPrivateKeyRequired, nil)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, KeyError(ErrInvalidKey, err)
	}

	payload, err := Canonicalize(claims)
	if err != nil {
		return nil, err
	}

	signature, err := rsa.SignPKCS1v15(nil, privateKey, SignatureHash, Digest(payload))
	if err != nil {
		return nil, KeyError(ErrInvalidKey, fmt.Errorf("failed to sign claims: %w", err))
	}

	return &SignedArtifact{
		claims:    payload,
		signature: signature,
	}, nil
}

// SignLicense returns the license artifact in text format for the given claims.
func SignLicense(claims *LicenseClaims, privateKey *rsa.PrivateKey) ([]byte, error) {
	artifact, err := Sign(claims, privateKey)
	if err != nil {
		return nil, err
	}
	return artifact.Envelope(), nil
}
