// Package dedupe provides URL normalization and the per-run seen-URL /
// seen-key index consulted before accepting a new record. URLs are
// normalized so that the same opportunity reached via mirrors or redirects
// produces the same index entry.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	errEmptyInput          = errors.New("normalize url: empty input")
	errMissingSchemeOrHost = errors.New("normalize url: missing scheme or host")
)

// NormalizeURL reduces a URL to a comparison form: https scheme, lowercased
// host without default port, cleaned path without trailing slash, and no
// query or fragment. Equivalent URLs produce identical strings.
func NormalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errEmptyInput
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("normalize url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	host := strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	cleaned := "/"
	if parsed.Path != "" {
		cleaned = strings.TrimRight(path.Clean(parsed.Path), "/")
		if cleaned == "" {
			cleaned = "/"
		}
	}

	return "https://" + host + cleaned, nil
}

// URLHash normalizes the URL and returns its SHA-256 hex digest, used as a
// stable record identity when no source number exists.
func URLHash(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("url hash: %w", err)
	}

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// ExtractHost returns the lowercased hostname of a URL, without port.
func ExtractHost(rawURL string) (string, error) {
	if rawURL == "" {
		return "", errEmptyInput
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("extract host: %w", err)
	}
	if parsed.Host == "" {
		return "", errMissingSchemeOrHost
	}

	return strings.ToLower(parsed.Hostname()), nil
}
