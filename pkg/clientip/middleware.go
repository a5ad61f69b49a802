package clientip

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// Middleware stores the client address in the request context. With
// trustHeaders false only the connection peer is used.
func Middleware(trustHeaders bool) func(http.Handler) http.Handler {
	resolve := RemoteIP
	if trustHeaders {
		resolve = GetIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), resolve(r))))
		})
	}
}

// ParsePrefixes parses CIDR blocks or bare addresses. A bare address becomes
// a single-host prefix.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, v)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, v)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Allowlist rejects requests whose address (as stored by Middleware) is not
// inside one of prefixes. An empty list allows everything. Rejected requests
// are passed to deny.
func Allowlist(prefixes []netip.Prefix, deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Allowed(prefixes, FromContext(r.Context())) {
				next.ServeHTTP(w, r)
				return
			}
			deny.ServeHTTP(w, r)
		})
	}
}

// Allowed reports whether ip falls inside any prefix.
func Allowed(prefixes []netip.Prefix, ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
