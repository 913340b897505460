// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

// Package lkm (License Key Management) issues and verifies signed license
// artifacts for the UniDoc product line.
//
// A license artifact binds a set of entitlement claims to an RSA signature:
//
//   - The claims are encoded as compact JSON with a fixed key order,
//     so the same logical claims always produce the same bytes
//   - The SHA-512 digest of the encoded claims is signed with an RSA
//     private key using PKCS#1 v1.5 padding, which is deterministic
//   - The claims and the signature are base64 encoded and wrapped in
//     a text envelope delimited by fixed marker lines
//
// The envelope format is:
//
//	-----BEGIN UNIDOC LICENSE KEY-----
//	<base64 claims>
//	+
//	<base64 signature>
//	-----END UNIDOC LICENSE KEY-----
//
// Verification is the inverse operation and requires only the issuer's
// public key. Failures are reported with a stable Kind, so that callers can
// tell a corrupted artifact (KindEnvelope) from a tampered or forged one
// (KindSignature). Expiry is not enforced by the format itself, verifiers
// apply CheckExpiry where a zero expires_at means the license never expires.
//
// Keys are accepted in PEM (PKCS#1, PKCS#8, PKIX), hex encoded DER and
// JSON Web Key Set formats. Key generation and storage are out of scope.
package lkm
