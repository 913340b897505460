// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// EnvelopeHeader is the first line of a license artifact.
	EnvelopeHeader = "-----BEGIN UNIDOC LICENSE KEY-----"

	// EnvelopeSeparator separates the claims segment from the signature segment.
	EnvelopeSeparator = "+"

	// EnvelopeFooter is the last line of a license artifact.
	EnvelopeFooter = "-----END UNIDOC LICENSE KEY-----"
)

// EncodeEnvelope wraps the claims and signature bytes in the license text format.
// Each segment is encoded with standard base64 on a single line, and every
// line, including the footer, is terminated by '\n'.
func EncodeEnvelope(claims, signature []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(EnvelopeHeader)
	buf.WriteByte('\n')
	buf.WriteString(base64.StdEncoding.EncodeToString(claims))
	buf.WriteByte('\n')
	buf.WriteString(EnvelopeSeparator)
	buf.WriteByte('\n')
	buf.WriteString(base64.StdEncoding.EncodeToString(signature))
	buf.WriteByte('\n')
	buf.WriteString(EnvelopeFooter)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// DecodeEnvelope extracts the claims and signature bytes from a license artifact.
// Leading and trailing whitespace around the artifact and CRLF line endings are
// tolerated, the marker lines must match exactly.
func DecodeEnvelope(data []byte) (claims []byte, signature []byte, err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, EnvelopeError(ErrInvalidEnvelope, fmt.Errorf("license is empty"))
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}

	if lines[0] != EnvelopeHeader {
		return nil, nil, EnvelopeError(ErrInvalidEnvelope, fmt.Errorf("header line not found"))
	}
	if lines[len(lines)-1] != EnvelopeFooter {
		return nil, nil, EnvelopeError(ErrInvalidEnvelope, fmt.Errorf("footer line not found"))
	}
	if len(lines) != 5 {
		return nil, nil, EnvelopeError(ErrInvalidEnvelope,
			fmt.Errorf("expected 5 lines, found %d", len(lines)))
	}
	if lines[2] != EnvelopeSeparator {
		return nil, nil, EnvelopeError(ErrInvalidEnvelope, fmt.Errorf("separator line not found"))
	}

	claims, err = decodeSegment("claims", lines[1])
	if err != nil {
		return nil, nil, err
	}
	signature, err = decodeSegment("signature", lines[3])
	if err != nil {
		return nil, nil, err
	}
	return claims, signature, nil
}

func decodeSegment(name, line string) ([]byte, error) {
	if line == "" {
		return nil, EnvelopeError(ErrDecodeBase64, fmt.Errorf("%s segment is empty", name))
	}
	// Strict decoding rejects non-zero padding bits, so that a segment
	// has exactly one textual form.
	data, err := base64.StdEncoding.Strict().DecodeString(line)
	if err != nil {
		return nil, EnvelopeError(ErrDecodeBase64, fmt.Errorf("%s segment: %w", name, err))
	}
	return data, nil
}
