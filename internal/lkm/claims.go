// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Tier is the entitlement level granted by a license.
type Tier string

const (
	TierUnlicensed Tier = "unlicensed"
	TierCommunity  Tier = "community"
	TierIndividual Tier = "individual"
	TierBusiness   Tier = "business"
)

// Tiers returns the closed set of known tiers.
func Tiers() []Tier {
	return []Tier{TierUnlicensed, TierCommunity, TierIndividual, TierBusiness}
}

// IsValid reports whether the tier is one of the known tiers.
func (t Tier) IsValid() bool {
	return slices.Contains(Tiers(), t)
}

// Product feature names, matching the JSON keys of the feature flags.
const (
	FeatureUniPDF    = "unipdf"
	FeatureUniOffice = "unioffice"
	FeatureUniHTML   = "unihtml"
)

// Features returns the names of all licensable products.
func Features() []string {
	return []string{FeatureUniPDF, FeatureUniOffice, FeatureUniHTML}
}

// LicenseClaims holds the entitlement facts embedded in a license artifact.
//
// The field order is part of the wire contract: the signature covers the
// canonical encoding of these fields in declaration order, see Canonicalize.
type LicenseClaims struct {
	// LicenseID is the fixed-length hexadecimal identifier of the license.
	// +required
	LicenseID string `json:"license_id"`

	// CustomerID is the identifier of the grantee.
	// +required
	CustomerID string `json:"customer_id"`

	// CustomerName is the display name of the grantee.
	// Verifiers may require it to match the name supplied by the application.
	// +required
	CustomerName string `json:"customer_name"`

	// Tier is the entitlement level.
	// +required
	Tier Tier `json:"tier"`

	// CreatedAt is the issue time in Unix timestamp format.
	// +required
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is the expiry time in Unix timestamp format.
	// Zero means the license never expires.
	// +optional
	ExpiresAt int64 `json:"expires_at"`

	// CreatedBy is the identifier of the issuing system.
	CreatedBy string `json:"created_by"`

	// CreatorName is the name of the issuing person or system.
	CreatorName string `json:"creator_name"`

	// CreatorEmail is the contact address of the issuer.
	CreatorEmail string `json:"creator_email"`

	// UniPDF grants the PDF product.
	UniPDF bool `json:"unipdf"`

	// UniOffice grants the Office product.
	UniOffice bool `json:"unioffice"`

	// UniHTML grants the HTML product.
	UniHTML bool `json:"unihtml"`

	// Trial marks a non-production grant.
	Trial bool `json:"trial"`
}

// NeverExpires reports whether the license carries the no-expiry sentinel.
func (c *LicenseClaims) NeverExpires() bool {
	return c.ExpiresAt == 0
}

// IsExpired reports whether the license has expired at the given time.
// A license without expiry is never expired.
func (c *LicenseClaims) IsExpired(now time.Time) bool {
	if c.NeverExpires() {
		return false
	}
	return !now.Before(time.Unix(c.ExpiresAt, 0))
}

// GetCreatedAt returns the issue time in RFC3339 format.
func (c *LicenseClaims) GetCreatedAt() string {
	return time.Unix(c.CreatedAt, 0).UTC().Format(time.RFC3339)
}

// GetExpiry returns the expiry time in RFC3339 format, or "never".
func (c *LicenseClaims) GetExpiry() string {
	if c.NeverExpires() {
		return "never"
	}
	return time.Unix(c.ExpiresAt, 0).UTC().Format(time.RFC3339)
}

// IsLicensed reports whether the tier grants a commercial license.
func (c *LicenseClaims) IsLicensed() bool {
	return c.Tier != "" && c.Tier != TierUnlicensed
}

// HasFeature checks if the license grants the named product.
func (c *LicenseClaims) HasFeature(name string) bool {
	switch strings.ToLower(name) {
	case FeatureUniPDF:
		return c.UniPDF
	case FeatureUniOffice:
		return c.UniOffice
	case FeatureUniHTML:
		return c.UniHTML
	default:
		return false
	}
}

// Features returns the names of the granted products.
func (c *LicenseClaims) Features() []string {
	var features []string
	for _, f := range Features() {
		if c.HasFeature(f) {
			features = append(features, f)
		}
	}
	return features
}

// SetFeatures grants exactly the named products and revokes the others.
// Unknown names are returned to the caller.
func (c *LicenseClaims) SetFeatures(names []string) (unknown []string) {
	c.UniPDF, c.UniOffice, c.UniHTML = false, false, false
	for _, name := range names {
		switch strings.ToLower(name) {
		case FeatureUniPDF:
			c.UniPDF = true
		case FeatureUniOffice:
			c.UniOffice = true
		case FeatureUniHTML:
			c.UniHTML = true
		default:
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// String returns an indented JSON representation of the claims.
// The output is for display only and must not be signed.
func (c LicenseClaims) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "invalid license claims"
	}
	return string(data)
}
