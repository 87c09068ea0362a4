package governance

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// extractHost parses an endpoint URI and returns the authority's host
// component. The host only — any user-info component is discarded, so
// "https://good.com@evil.com/x" yields "evil.com" and a trusted-looking
// user-info part cannot spoof the allowlist check.
func extractHost(endpoint string) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}
	return host, true
}

// normalizeHost canonicalizes a host for allowlist comparison under
// strict validation: lowercase, at most one trailing label separator
// stripped, and internationalized labels mapped to their
// ASCII-compatible (punycode) form. This collapses "Good.COM.",
// "good.com", and the unicode spelling of a punycode domain onto one
// canonical string. Subdomain-suffix confusion is defeated by exact set
// membership, not by normalization.
func normalizeHost(host string) string {
	h := strings.ToLower(host)
	h = strings.TrimSuffix(h, ".")
	if ascii, err := idna.Lookup.ToASCII(h); err == nil {
		h = ascii
	}
	return h
}

// domainAllowed reports whether host is a member of the allowlist.
// Strict mode normalizes both sides; legacy mode compares the raw
// parsed host byte-for-byte against the allowlist as written, leaving
// case, trailing-dot, and punycode variation undetected. That legacy
// gap is intentional and documented, not a bug.
func domainAllowed(host string, allowed []string, strict bool) bool {
	if strict {
		host = normalizeHost(host)
	}
	for _, entry := range allowed {
		if strict {
			if normalizeHost(entry) == host {
				return true
			}
		} else if entry == host {
			return true
		}
	}
	return false
}
