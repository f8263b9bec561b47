package validator

import (
	"net"
	"strings"

	"github.com/google/uuid"
)

// IsValidFileID reports whether s is a well-formed file identifier
// (canonical UUID). Malformed identifiers are rejected before any
// storage lookup.
func IsValidFileID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// IsValidIP validates an IP address (IPv4 or IPv6).
func IsValidIP(ip string) bool {
	if ip == "" {
		return false
	}
	return net.ParseIP(ip) != nil
}

// NormalizeIP strips an IPv6 zone identifier (fe80::1%eth0 -> fe80::1).
func NormalizeIP(ip string) string {
	if idx := strings.IndexByte(ip, '%'); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// IPOrDefault returns the normalized IP when valid, else the default.
func IPOrDefault(ip, def string) string {
	normalized := NormalizeIP(ip)
	if IsValidIP(normalized) {
		return normalized
	}
	return def
}
