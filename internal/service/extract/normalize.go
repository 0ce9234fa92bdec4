package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.-]+\.[a-z]{2,}$`)

// NormalizeEmail lower-cases and validates an address, converting an
// internationalized domain to its ASCII form. Invalid input yields "".
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = strings.TrimPrefix(email, "mailto:")
	if idx := strings.IndexByte(email, '?'); idx >= 0 {
		email = email[:idx]
	}
	email = strings.Trim(email, ".<>()[]\"',;:")

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return ""
	}
	asciiDomain, err := idna.Lookup.ToASCII(domain)
	if err != nil || asciiDomain == "" {
		return ""
	}
	email = local + "@" + asciiDomain
	if !emailPattern.MatchString(email) || strings.Contains(email, "..") {
		return ""
	}
	return email
}

// NormalizePhone reduces a number to its digits, keeping a leading "+".
// Applying it to its own output returns the same value.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

// EmailDomain returns the domain part of an address.
func EmailDomain(email string) string {
	_, domain, _ := strings.Cut(strings.ToLower(email), "@")
	return domain
}

// RegistrableDomain maps a host to its eTLD+1, e.g. mail.firma.co.uk to
// firma.co.uk. Hosts the public suffix list cannot resolve are returned as is.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// SameSite reports whether two hosts share a registrable domain.
func SameSite(a, b string) bool {
	ra, rb := RegistrableDomain(a), RegistrableDomain(b)
	return ra != "" && ra == rb
}
