// Package extract pulls contact signals out of web pages and free text.
// Every rule is a separate function so locale-specific formats can be tested
// and swapped on their own.
package extract

import "strings"

// Rules is the immutable rule set used by an Extractor.
type Rules struct {
	// GenericPrefixes are role mailboxes that never identify a person.
	GenericPrefixes []string
	// IgnoredEmailSuffixes filters asset names such as logo@2x.png.
	IgnoredEmailSuffixes []string
	MinPhoneDigits       int
	ProximityWindow      int
	MinMetaDescription   int
	MinParagraph         int
	MaxDescription       int
}

// DefaultRules returns the rules for German-language company sites.
func DefaultRules() Rules {
	return Rules{
		GenericPrefixes: []string{
			"info", "kontakt", "support", "noreply", "no-reply", "office", "mail",
			"hello", "hallo", "webmaster", "admin", "postmaster", "contact",
			"service", "datenschutz", "privacy", "presse", "press", "jobs",
			"karriere", "bewerbung", "buchhaltung", "rechnung",
		},
		IgnoredEmailSuffixes: []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"},
		MinPhoneDigits:       8,
		ProximityWindow:      5,
		MinMetaDescription:   20,
		MinParagraph:         50,
		MaxDescription:       500,
	}
}

// Extractor applies a rule set to pages and text.
type Extractor struct {
	rules   Rules
	generic map[string]struct{}
}

// New builds an Extractor. Zero numeric limits fall back to DefaultRules.
func New(rules Rules) *Extractor {
	def := DefaultRules()
	if rules.GenericPrefixes == nil {
		rules.GenericPrefixes = def.GenericPrefixes
	}
	if rules.IgnoredEmailSuffixes == nil {
		rules.IgnoredEmailSuffixes = def.IgnoredEmailSuffixes
	}
	if rules.MinPhoneDigits <= 0 {
		rules.MinPhoneDigits = def.MinPhoneDigits
	}
	if rules.ProximityWindow <= 0 {
		rules.ProximityWindow = def.ProximityWindow
	}
	if rules.MinMetaDescription <= 0 {
		rules.MinMetaDescription = def.MinMetaDescription
	}
	if rules.MinParagraph <= 0 {
		rules.MinParagraph = def.MinParagraph
	}
	if rules.MaxDescription <= 0 {
		rules.MaxDescription = def.MaxDescription
	}

	generic := make(map[string]struct{}, len(rules.GenericPrefixes))
	for _, p := range rules.GenericPrefixes {
		generic[strings.ToLower(strings.TrimSuffix(p, "@"))] = struct{}{}
	}
	return &Extractor{rules: rules, generic: generic}
}

// IsGeneric reports whether the mailbox part of email is a role address:
// a generic prefix on its own, or one followed by ".", "-" or "_" and a
// qualifier such as a city (info.berlin@, kontakt-hh@).
func (x *Extractor) IsGeneric(email string) bool {
	local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok {
		return false
	}
	if _, generic := x.generic[local]; generic {
		return true
	}
	for i := 1; i < len(local)-1; i++ {
		if strings.IndexByte(".-_", local[i]) < 0 {
			continue
		}
		if _, generic := x.generic[local[:i]]; generic {
			return true
		}
	}
	return false
}

// Personal filters out generic mailboxes, keeping order.
func (x *Extractor) Personal(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if !x.IsGeneric(e) {
			out = append(out, e)
		}
	}
	return out
}
