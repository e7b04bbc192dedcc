package middleware

import (
	"net"
	"net/http"
	"strings"
)

// forwardingHeaders are consulted in order; the first valid address wins.
var forwardingHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// GetClientIP returns the address the API rate limit is keyed on.
// Proxy headers are trusted when they hold a parseable IP, otherwise the
// host part of RemoteAddr is used.
func GetClientIP(r *http.Request) string {
	for _, header := range forwardingHeaders {
		if ip := firstValidIP(r.Header.Get(header)); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// firstValidIP reads the left-most entry of a comma separated header value.
func firstValidIP(value string) string {
	if value == "" {
		return ""
	}

	candidate, _, _ := strings.Cut(value, ",")
	candidate = strings.TrimSpace(candidate)

	if net.ParseIP(candidate) == nil {
		return ""
	}

	return candidate
}
