// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCustomerName is the placeholder used when no customer name is given.
	DefaultCustomerName = "TestCustomer"

	// DefaultCreatedBy is the default issuing system identifier.
	DefaultCreatedBy = "license-generator"

	// DefaultCreatorName is the default issuer name.
	DefaultCreatorName = "License Generator"

	// DefaultCreatorEmail is the default issuer contact address.
	DefaultCreatorEmail = "admin@example.com"

	// LicenseIDLength is the number of hex characters in a license ID.
	LicenseIDLength = 16
)

// IDGenerator returns a new license ID.
type IDGenerator func() (string, error)

// claimsOptions holds the internal configuration for NewLicenseClaims.
type claimsOptions struct {
	licenseID    string
	customerID   string
	idGenerator  IDGenerator
	tier         Tier
	createdAt    time.Time
	expiresAt    time.Time
	expiry       time.Duration
	createdBy    string
	creatorName  string
	creatorEmail string
	features     []string
	trial        bool
}

// ClaimsOption configures NewLicenseClaims.
type ClaimsOption func(*claimsOptions)

// ClaimsOpt contains options for the NewLicenseClaims function.
var ClaimsOpt claimsOptionBuilder

// claimsOptionBuilder is the internal builder for ClaimsOption functions.
type claimsOptionBuilder struct{}

// WithLicenseID sets an issuer-allocated license ID.
func (claimsOptionBuilder) WithLicenseID(id string) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.licenseID = id
	}
}

// WithIDGenerator sets the function used to allocate a license ID
// when none is given with WithLicenseID.
func (claimsOptionBuilder) WithIDGenerator(gen IDGenerator) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.idGenerator = gen
	}
}

// WithCustomerID sets an issuer-allocated customer ID.
func (claimsOptionBuilder) WithCustomerID(id string) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.customerID = id
	}
}

// WithTier sets the entitlement level.
func (claimsOptionBuilder) WithTier(tier Tier) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.tier = tier
	}
}

// WithCreatedAt sets the issue time.
func (claimsOptionBuilder) WithCreatedAt(t time.Time) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.createdAt = t
	}
}

// WithExpiresAt sets an absolute expiry time.
// It takes precedence over WithExpiry.
func (claimsOptionBuilder) WithExpiresAt(t time.Time) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.expiresAt = t
	}
}

// WithExpiry sets the validity period counted from the issue time.
// A zero duration produces a license that never expires.
func (claimsOptionBuilder) WithExpiry(d time.Duration) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.expiry = d
	}
}

// WithCreator sets the issuer provenance fields.
// Empty values keep the defaults.
func (claimsOptionBuilder) WithCreator(createdBy, name, email string) ClaimsOption {
	return func(opts *claimsOptions) {
		if createdBy != "" {
			opts.createdBy = createdBy
		}
		if name != "" {
			opts.creatorName = name
		}
		if email != "" {
			opts.creatorEmail = email
		}
	}
}

// WithFeatures grants exactly the named products.
// Unknown names are ignored.
func (claimsOptionBuilder) WithFeatures(features ...string) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.features = features
	}
}

// WithTrial marks the license as a non-production grant.
func (claimsOptionBuilder) WithTrial(trial bool) ClaimsOption {
	return func(opts *claimsOptions) {
		opts.trial = trial
	}
}

// NewLicenseClaims creates the claims of a license for the given customer.
// Fields not set through options get the issuer defaults: business tier,
// all products granted, no trial and no expiry.
// If no license ID is given, one is allocated with the ID generator,
// by default NewLicenseID. If no customer ID is given, it is derived
// from the customer name with CustomerIDFromName.
// Apart from allocating IDs, the construction has no side effects.
func NewLicenseClaims(customerName string, opts ...ClaimsOption) (*LicenseClaims, error) {
	// Configure default options.
	options := &claimsOptions{
		idGenerator:  NewLicenseID,
		tier:         TierBusiness,
		createdBy:    DefaultCreatedBy,
		creatorName:  DefaultCreatorName,
		creatorEmail: DefaultCreatorEmail,
		features:     Features(),
	}

	// Apply user-provided options.
	for _, opt := range opts {
		opt(options)
	}

	if customerName == "" {
		customerName = DefaultCustomerName
	}

	licenseID := options.licenseID
	if licenseID == "" {
		id, err := options.idGenerator()
		if err != nil {
			return nil, fmt.Errorf("failed to generate license ID: %w", err)
		}
		licenseID = id
	}

	customerID := options.customerID
	if customerID == "" {
		customerID = CustomerIDFromName(customerName)
	}

	createdAt := options.createdAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Zero is the never expires sentinel.
	var expiresAt int64
	switch {
	case !options.expiresAt.IsZero():
		expiresAt = options.expiresAt.Unix()
	case options.expiry != 0:
		expiresAt = createdAt.Add(options.expiry).Unix()
	}
	if expiresAt == 0 && (!options.expiresAt.IsZero() || options.expiry != 0) {
		return nil, EncodingError(ErrInvalidExpiry, fmt.Errorf("expiry resolves to the Unix epoch"))
	}

	claims := &LicenseClaims{
		LicenseID:    licenseID,
		CustomerID:   customerID,
		CustomerName: customerName,
		Tier:         options.tier,
		CreatedAt:    createdAt.UTC().Unix(),
		ExpiresAt:    expiresAt,
		CreatedBy:    options.createdBy,
		CreatorName:  options.creatorName,
		CreatorEmail: options.creatorEmail,
		Trial:        options.trial,
	}
	claims.SetFeatures(options.features)

	return claims, nil
}

// NewLicenseID allocates a unique and chronologically sortable license ID.
// It returns the first 16 hex characters of a UUID v7 in upper case,
// which hold the millisecond timestamp and the monotonic sub-millisecond counter.
func NewLicenseID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[:LicenseIDLength]), nil
}

// CustomerIDFromName derives a stable customer ID from the customer name
// in the format 'CUST<10 hex characters>'.
func CustomerIDFromName(name string) string {
	hash := sha256.Sum256([]byte(name))
	return fmt.Sprintf("CUST%X", hash[:5])
}
