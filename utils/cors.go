package utils

import (
	"net/netip"
	"net/url"
	"strings"
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"), // link-local IPv4
	netip.MustParsePrefix("::1/128"),        // loopback IPv6
	netip.MustParsePrefix("fe80::/10"),      // link-local IPv6
	netip.MustParsePrefix("fc00::/7"),       // unique local IPv6
}

// IsAllowedOrigin reports whether an Origin header value should be trusted.
// Localhost, private/RFC1918 addresses, .local hostnames, and single-label
// LAN names are allowed; public internet origins are not.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()

	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}

	// Single-label hostnames (no dots) are LAN names
	if !strings.Contains(hostname, ".") && !strings.Contains(hostname, ":") {
		return true
	}

	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return false
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
