// Package ssrf validates outbound URLs and hostnames before the runtime
// ever opens a connection to them, backing the Grammar Shield's URL
// validator and the http_request tool's egress check.
package ssrf

import (
	"fmt"
	"net"
	"strings"
)

var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
}

var dangerousSuffixes = []string{
	".localhost",
	".local",
	".internal",
}

// IsBlockedHostname reports whether hostname is explicitly disallowed,
// independent of what it resolves to.
func IsBlockedHostname(hostname string) bool {
	normalized := normalizeHostname(hostname)
	if normalized == "" {
		return false
	}
	if blockedHostnames[normalized] {
		return true
	}
	for _, suffix := range dangerousSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return true
		}
	}
	return false
}

// ValidatePublicHostname checks that hostname is neither blocked nor
// resolves to a private/loopback/link-local address.
func ValidatePublicHostname(hostname string) error {
	normalized := normalizeHostname(hostname)
	if normalized == "" {
		return fmt.Errorf("ssrf: empty hostname")
	}
	if IsBlockedHostname(normalized) {
		return fmt.Errorf("ssrf: blocked hostname %q", hostname)
	}
	if ip := net.ParseIP(normalized); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("ssrf: hostname %q is a private/internal address", hostname)
		}
		return nil
	}
	ips, err := net.LookupIP(normalized)
	if err != nil {
		return fmt.Errorf("ssrf: resolve %q: %w", hostname, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("ssrf: no addresses for %q", hostname)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("ssrf: hostname %q resolves to a private/internal address", hostname)
		}
	}
	return nil
}

func normalizeHostname(hostname string) string {
	h := strings.ToLower(strings.TrimSpace(hostname))
	h = strings.TrimSuffix(h, ".")
	return h
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsPrivate() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		// Carrier-grade NAT and cloud metadata ranges not covered by
		// net.IP.IsPrivate.
		if v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
			return true
		}
		if v4[0] == 169 && v4[1] == 254 {
			return true
		}
	}
	return false
}
