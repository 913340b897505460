// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"errors"
	"fmt"
)

// Kind is a stable category of license key failures.
// Callers should branch on Kind or on the sentinel errors below,
// error messages are meant for humans and may change.
type Kind string

const (
	// KindKey marks a missing, malformed or unusable signing or verification key.
	KindKey Kind = "Key"

	// KindEncoding marks claims that cannot be canonically encoded or decoded.
	KindEncoding Kind = "Encoding"

	// KindEnvelope marks a license artifact with broken framing or invalid base64.
	KindEnvelope Kind = "Envelope"

	// KindSignature marks a signature that does not match the claims.
	KindSignature Kind = "Signature"
)

// ErrPrivateKeyRequired is returned when a private key is required but not provided.
var ErrPrivateKeyRequired = errors.New("private key is required")

// ErrPublicKeyRequired is returned when a public key is required but not provided.
var ErrPublicKeyRequired = errors.New("public key is required")

// ErrInvalidKey is returned when key material cannot be parsed or used.
var ErrInvalidKey = errors.New("invalid key")

// ErrUnsupportedKey is returned when the key is not an RSA key.
var ErrUnsupportedKey = errors.New("unsupported key type, expected RSA")

// ErrEncodeClaims is returned when a claim value has no canonical encoding.
var ErrEncodeClaims = errors.New("failed to encode claims")

// ErrInvalidExpiry is returned when an explicit expiry falls on the never expires value.
var ErrInvalidExpiry = errors.New("expiry time is reserved for licenses that never expire")

// ErrParseClaims is returned when the signed claims cannot be decoded.
var ErrParseClaims = errors.New("failed to parse claims")

// ErrInvalidEnvelope is returned when the license markers are missing or altered.
var ErrInvalidEnvelope = errors.New("invalid license envelope")

// ErrDecodeBase64 is returned when a license segment is not valid base64.
var ErrDecodeBase64 = errors.New("failed to decode base64 segment")

// ErrSignatureMismatch is returned when the signature does not verify against the claims.
var ErrSignatureMismatch = errors.New("signature does not match claims")

// ErrLicenseExpired is returned when the license expiry time has passed.
var ErrLicenseExpired = errors.New("license has expired")

// ErrCustomerMismatch is returned when the license was issued to a different customer.
var ErrCustomerMismatch = errors.New("customer name does not match license")

// Error is the structured error returned by the lkm package.
// It wraps one of the sentinel errors so that both errors.Is
// and IsKind can be used by callers.
type Error struct {
	Kind  Kind
	Err   error
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err, e.Cause)
	}
	return e.Err.Error()
}

// Unwrap returns both the sentinel error and the underlying cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func newError(kind Kind, sentinel error, cause error) error {
	return &Error{Kind: kind, Err: sentinel, Cause: cause}
}

// KeyError wraps err as a KindKey failure.
func KeyError(sentinel error, cause error) error {
	return newError(KindKey, sentinel, cause)
}

// EncodingError wraps err as a KindEncoding failure.
func EncodingError(sentinel error, cause error) error {
	return newError(KindEncoding, sentinel, cause)
}

// EnvelopeError wraps err as a KindEnvelope failure.
func EnvelopeError(sentinel error, cause error) error {
	return newError(KindEnvelope, sentinel, cause)
}

// SignatureError wraps err as a KindSignature failure.
func SignatureError(cause error) error {
	return newError(KindSignature, ErrSignatureMismatch, cause)
}

// IsKind reports whether err is, or wraps, an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// InvalidLicenseKeyError wraps an error with the "invalid license key" prefix.
func InvalidLicenseKeyError(err error) error {
	return fmt.Errorf("invalid license key: %w", err)
}
