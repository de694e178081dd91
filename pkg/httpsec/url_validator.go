// Package httpsec validates outbound URLs before the http_fetch tool
// (pkg/tools/http.go) dials them, adapted from
// cmd/http-worker/security's SSRF-protection validators.
package httpsec

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var blockedHostnames = map[string]bool{
	"localhost":            true,
	"127.0.0.1":            true,
	"::1":                  true,
	"0.0.0.0":              true,
	"::":                   true,
	"::ffff:127.0.0.1":     true,
}

var blockedPathPatterns = []string{
	"file://", "../", "..\\", "/etc/", "/proc/", "/sys/", "c:/", "c:\\", `\\.\pipe\`,
}

var encodedTraversalPatterns = []string{
	"%2e%2e/", "%2e%2e%2f", "..%2f", "%2e%2e\\", "%2e%2e%5c", "..%5c",
}

// URLValidator rejects URLs that would let a workflow reach internal
// infrastructure or the local filesystem through the http_fetch tool.
type URLValidator struct {
	allowedSchemes map[string]bool
}

// NewURLValidator returns a validator permitting only http/https.
func NewURLValidator() *URLValidator {
	return &URLValidator{allowedSchemes: map[string]bool{"http": true, "https": true}}
}

// Validate parses urlStr and runs scheme, host (SSRF), and path checks.
func (v *URLValidator) Validate(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	if !v.allowedSchemes[scheme] {
		return fmt.Errorf("scheme %q is not allowed (only http/https)", parsed.Scheme)
	}

	if err := validateHost(parsed.Hostname()); err != nil {
		return fmt.Errorf("host validation failed: %w", err)
	}

	if err := validatePath(parsed.Path); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	for key, values := range parsed.Query() {
		for _, value := range values {
			if err := validatePath(value); err != nil {
				return fmt.Errorf("query parameter %q rejected: %w", key, err)
			}
		}
	}

	return nil
}

func validateHost(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if blockedHostnames[strings.ToLower(hostname)] {
		return fmt.Errorf("hostname %q is blocked (loopback)", hostname)
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// DNS failure surfaces at dial time instead; nothing more to check here.
		return nil
	}
	for _, ip := range ips {
		if err := validateIP(ip); err != nil {
			return err
		}
	}
	return nil
}

func validateIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("IP %s is blocked (loopback)", ip)
	case ip.IsPrivate():
		return fmt.Errorf("IP %s is blocked (private network)", ip)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("IP %s is blocked (link-local, e.g. cloud metadata service)", ip)
	case ip.IsMulticast():
		return fmt.Errorf("IP %s is blocked (multicast)", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("IP %s is blocked (unspecified)", ip)
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return nil
	}
	normalized := strings.ToLower(path)
	for _, pattern := range blockedPathPatterns {
		if strings.Contains(normalized, pattern) {
			return fmt.Errorf("path contains blocked pattern %q", pattern)
		}
	}
	for _, pattern := range encodedTraversalPatterns {
		if strings.Contains(normalized, pattern) {
			return fmt.Errorf("path contains an encoded traversal pattern")
		}
	}
	return nil
}
