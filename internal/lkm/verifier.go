// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"crypto/rsa"
	"fmt"
	"time"
)

// verifyOptions holds the internal configuration for the Verify function.
type verifyOptions struct {
	customerName string
	checkExpiry  bool
	now          time.Time
}

// VerifyOption configures a Verify operation.
type VerifyOption func(*verifyOptions)

// VerifyOpt contains options for the Verify function.
var VerifyOpt verifyOptionBuilder

// verifyOptionBuilder is the internal builder for VerifyOption functions.
type verifyOptionBuilder struct{}

// WithCustomerName requires the license to be issued to the named customer.
func (verifyOptionBuilder) WithCustomerName(name string) VerifyOption {
	return func(opts *verifyOptions) {
		opts.customerName = name
	}
}

// WithExpiryCheck rejects licenses expired at the given time.
func (verifyOptionBuilder) WithExpiryCheck(now time.Time) VerifyOption {
	return func(opts *verifyOptions) {
		opts.checkExpiry = true
		opts.now = now
	}
}

// Verify decodes the license artifact, verifies the PKCS#1 v1.5 SHA-512
// signature with the RSA public key and returns the signed claims.
//
// The returned errors can be told apart with IsKind:
//   - KindEnvelope when the markers are missing or a segment is not valid base64
//   - KindSignature when the signature does not match the claims
//   - KindEncoding when the signed claims are not valid JSON
//   - KindKey when the public key is missing
//
// When the expiry check is enabled and the license has expired, the claims
// are returned together with ErrLicenseExpired.
func Verify(data []byte, publicKey *rsa.PublicKey, opts ...VerifyOption) (*LicenseClaims, error) {
	options := &verifyOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if publicKey == nil {
		return nil, KeyError(ErrPublicKeyRequired, nil)
	}

	payload, signature, err := DecodeEnvelope(data)
	if err != nil {
		return nil, InvalidLicenseKeyError(err)
	}

	if err := rsa.VerifyPKCS1v15(publicKey, SignatureHash, Digest(payload), signature); err != nil {
		return nil, InvalidLicenseKeyError(SignatureError(err))
	}

	claims, err := ParseClaims(payload)
	if err != nil {
		return nil, InvalidLicenseKeyError(err)
	}

	if options.customerName != "" && options.customerName != claims.CustomerName {
		return nil, InvalidLicenseKeyError(fmt.Errorf("%w: expected %q, found %q",
			ErrCustomerMismatch, options.customerName, claims.CustomerName))
	}

	if options.checkExpiry {
		if err := CheckExpiry(claims, options.now); err != nil {
			return claims, err
		}
	}

	return claims, nil
}

// CheckExpiry returns ErrLicenseExpired if the license has expired at the given time.
// A zero expires_at means the license never expires.
func CheckExpiry(claims *LicenseClaims, now time.Time) error {
	if claims.IsExpired(now) {
		return fmt.Errorf("%w on %s", ErrLicenseExpired, claims.GetExpiry())
	}
	return nil
}

// Inspect decodes the claims of a license artifact without verifying the signature.
// The result must not be trusted, it is meant for display and comparison only.
func Inspect(data []byte) (*LicenseClaims, []byte, error) {
	payload, _, err := DecodeEnvelope(data)
	if err != nil {
		return nil, nil, InvalidLicenseKeyError(err)
	}
	claims, err := ParseClaims(payload)
	if err != nil {
		return nil, nil, InvalidLicenseKeyError(err)
	}
	return claims, payload, nil
}
