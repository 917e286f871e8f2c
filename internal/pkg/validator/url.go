package validator

import (
	"net/netip"
	"net/url"
	"strings"

	apperrors "hiveroadmap/internal/pkg/errors"
)

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// ValidateWebhookURL rejects webhook targets that are not absolute http(s)
// URLs or that point at localhost or a private, loopback or link-local IP
// literal. Hostnames are not resolved.
func ValidateWebhookURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.BadRequest("url is required", nil)
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return apperrors.BadRequest("Invalid webhook URL", map[string]string{"url": raw})
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.BadRequest("Webhook URL must use http or https", map[string]string{"url": raw})
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return apperrors.BadRequest("Invalid webhook URL", map[string]string{"url": raw})
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return apperrors.BadRequest("Webhook URL host is not allowed", map[string]string{"host": host})
	}

	if IsBlockedIP(host) {
		return apperrors.BadRequest("Webhook URL host is not allowed", map[string]string{"host": host})
	}

	return nil
}

// IsBlockedIP reports whether host is an IP literal inside a blocked range.
// Anything that does not parse as an IP is not blocked.
func IsBlockedIP(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")

	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
