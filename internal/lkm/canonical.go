// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// claimField binds a JSON key to the accessor of its value.
type claimField struct {
	key   string
	value func(c *LicenseClaims) any
}

// claimFields is the canonical field order of LicenseClaims.
// It must list the fields in the same order as the struct declaration,
// so that the canonical bytes match json.Marshal of the struct.
var claimFields = []claimField{
	{"license_id", func(c *LicenseClaims) any { return c.LicenseID }},
	{"customer_id", func(c *LicenseClaims) any { return c.CustomerID }},
	{"customer_name", func(c *LicenseClaims) any { return c.CustomerName }},
	{"tier", func(c *LicenseClaims) any { return string(c.Tier) }},
	{"created_at", func(c *LicenseClaims) any { return c.CreatedAt }},
	{"expires_at", func(c *LicenseClaims) any { return c.ExpiresAt }},
	{"created_by", func(c *LicenseClaims) any { return c.CreatedBy }},
	{"creator_name", func(c *LicenseClaims) any { return c.CreatorName }},
	{"creator_email", func(c *LicenseClaims) any { return c.CreatorEmail }},
	{"unipdf", func(c *LicenseClaims) any { return c.UniPDF }},
	{"unioffice", func(c *LicenseClaims) any { return c.UniOffice }},
	{"unihtml", func(c *LicenseClaims) any { return c.UniHTML }},
	{"trial", func(c *LicenseClaims) any { return c.Trial }},
}

// Canonicalize returns the canonical encoding of the claims:
// a compact JSON object with the keys in fixed order, no whitespace
// between tokens, base 10 integers and Go JSON string escaping.
// The same logical claims always produce the same bytes.
func Canonicalize(claims *LicenseClaims) ([]byte, error) {
	if claims == nil {
		return nil, EncodingError(ErrEncodeClaims, fmt.Errorf("claims are nil"))
	}
	return encodeFields(claims, claimFields)
}

func encodeFields(claims *LicenseClaims, fields []claimField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeString(f.key)
		if err != nil {
			return nil, EncodingError(ErrEncodeClaims, fmt.Errorf("key %q: %w", f.key, err))
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := encodeValue(&buf, f.value(claims)); err != nil {
			return nil, EncodingError(ErrEncodeClaims, fmt.Errorf("field %q: %w", f.key, err))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		// json.Marshal would replace invalid bytes with U+FFFD and the signed
		// claims would differ from the issued ones.
		if !utf8.ValidString(val) {
			return fmt.Errorf("value %q is not valid UTF-8", val)
		}
		data, err := encodeString(val)
		if err != nil {
			return err
		}
		buf.Write(data)
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// encodeString quotes s with the same escaping rules as json.Marshal.
func encodeString(s string) ([]byte, error) {
	return json.Marshal(s)
}

// ParseClaims decodes canonical claims bytes into LicenseClaims.
func ParseClaims(data []byte) (*LicenseClaims, error) {
	var claims LicenseClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, EncodingError(ErrParseClaims, err)
	}
	return &claims, nil
}
