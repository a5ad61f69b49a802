package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// GetIP returns the client address, preferring proxy headers in this order:
// CF-Connecting-IP, X-Forwarded-For (first valid entry), X-Real-IP. It falls
// back to RemoteAddr. Only use it behind a proxy that overwrites these headers.
func GetIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for part := range strings.SplitSeq(forwarded, ",") {
			if ip := parseIP(part); ip != "" {
				return ip
			}
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return RemoteIP(r)
}

// RemoteIP returns the peer address of the connection, ignoring headers.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP returns the normalized form of s, or "" if s is not an address.
// IPv4-mapped IPv6 addresses are unmapped.
func parseIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
