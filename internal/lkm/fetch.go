// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package lkm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ContentType represents the accepted content types of Fetch requests.
type ContentType string

const (
	// ContentTypePEM represents PEM encoded key material.
	// Suitable for fetching RSA public or private keys.
	ContentTypePEM ContentType = "application/x-pem-file"

	// ContentTypeKeySet represents the JSON Web Key Set content type.
	// Suitable for fetching RSAKeySet documents.
	ContentTypeKeySet ContentType = "application/jwks"

	// ContentTypeLicense represents the license artifact text format.
	// Suitable for fetching artifacts produced by SignLicense.
	ContentTypeLicense ContentType = "text/plain"
)

// defaultMaxSize limits the size of fetched keys and licenses.
const defaultMaxSize = 1 << 20

// fetchOptions holds the internal configuration for the Fetch function.
type fetchOptions struct {
	retries        int
	retryWait      time.Duration
	maxSize        int64
	allowLocalhost bool
	userAgent      string
	contentType    ContentType
}

// FetchOption configures a Fetch operation.
type FetchOption func(*fetchOptions)

// FetchOpt contains options for the Fetch function.
var FetchOpt fetchOptionBuilder

// fetchOptionBuilder is the internal builder for FetchOption functions.
type fetchOptionBuilder struct{}

// WithContentType sets the expected content type of the response body.
func (fetchOptionBuilder) WithContentType(contentType ContentType) FetchOption {
	return func(opts *fetchOptions) {
		opts.contentType = contentType
	}
}

// WithRetries sets the number of retries and the minimum wait between them.
func (fetchOptionBuilder) WithRetries(retries int, wait time.Duration) FetchOption {
	return func(opts *fetchOptions) {
		opts.retries = retries
		opts.retryWait = wait
	}
}

// WithMaxSize sets the maximum accepted response body size in bytes.
func (fetchOptionBuilder) WithMaxSize(size int64) FetchOption {
	return func(opts *fetchOptions) {
		opts.maxSize = size
	}
}

// WithLocalhost allows plain HTTP connections to localhost addresses.
func (fetchOptionBuilder) WithLocalhost(allow bool) FetchOption {
	return func(opts *fetchOptions) {
		opts.allowLocalhost = allow
	}
}

// WithUserAgent sets the User-Agent header for HTTP requests.
func (fetchOptionBuilder) WithUserAgent(userAgent string) FetchOption {
	return func(opts *fetchOptions) {
		opts.userAgent = userAgent
	}
}

// IsURL reports whether the location is an HTTP or HTTPS URL.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "http://")
}

// Fetch downloads key material or a license artifact from the given URL.
// HTTPS is required unless connecting to localhost, transient failures
// are retried and the body is checked against the expected content type.
func Fetch(ctx context.Context, rawURL string, opts ...FetchOption) ([]byte, error) {
	options := &fetchOptions{
		retries:        2,
		retryWait:      2 * time.Second,
		maxSize:        defaultMaxSize,
		userAgent:      "license-issuer-lkm/1.0",
		allowLocalhost: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	host := parsedURL.Hostname()
	isLocalhost := strings.EqualFold(host, "localhost") || host == "127.0.0.1" || host == "::1"
	if !strings.EqualFold(parsedURL.Scheme, "https") && (!isLocalhost || !options.allowLocalhost) {
		return nil, errors.New("HTTPS scheme is required")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = options.retries
	retryClient.RetryWaitMin = options.retryWait
	retryClient.RetryWaitMax = 2 * options.retryWait
	retryClient.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", options.userAgent)
	switch options.contentType {
	case ContentTypeKeySet:
		req.Header.Set("Accept", fmt.Sprintf("application/json, %s", options.contentType))
	case ContentTypePEM, ContentTypeLicense:
		req.Header.Set("Accept", string(options.contentType))
	}

	resp, err := retryClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed with status: %d", resp.StatusCode)
	}

	// Read one byte past the limit to detect oversized bodies.
	body, err := io.ReadAll(io.LimitReader(resp.Body, options.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("response body is empty")
	}
	if int64(len(body)) > options.maxSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", options.maxSize)
	}

	if err := validateBody(options.contentType, body); err != nil {
		return nil, err
	}
	return body, nil
}

// validateBody performs a basic sanity check of the body for the content type.
func validateBody(contentType ContentType, body []byte) error {
	switch contentType {
	case ContentTypeKeySet:
		if !json.Valid(body) {
			return errors.New("invalid JWKS response")
		}
	case ContentTypePEM:
		if !strings.Contains(string(body), "-----BEGIN ") {
			return errors.New("invalid PEM response")
		}
	case ContentTypeLicense:
		if !strings.Contains(string(body), EnvelopeHeader) {
			return errors.New("invalid license response")
		}
	}
	return nil
}
