package middleware

import (
	"net"
	"net/url"
	"strings"
)

// IsHostAllowed checks a Host header against the allow-list before the TLS
// redirect echoes it back. An empty list allows every host.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}
	return hostMatches(host, allowedHosts)
}

func isOriginAllowed(origin string, allowedHosts []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return hostMatches(u.Host, allowedHosts)
}

// hostMatches compares host[:port] with each allowed entry. An entry with a
// port must match exactly; an entry without one matches any port.
func hostMatches(host string, allowedHosts []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	name := hostname(host)

	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == host {
			return true
		}
		if _, _, err := net.SplitHostPort(allowed); err != nil && hostname(allowed) == name {
			return true
		}
	}
	return false
}

func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
