package names

import "strings"

// MaxCandidates caps how many mailbox patterns are generated per person.
const MaxCandidates = 9

// DefaultTemplates lists mailbox patterns from most to least common.
// {f} is the first name, {fi} its initial and {l} the last name.
var DefaultTemplates = []string{
	"{f}",
	"{f}.{l}",
	"{fi}.{l}",
	"{l}",
	"{f}{l}",
	"{fi}{l}",
	"{f}-{l}",
	"{f}_{l}",
	"{l}.{f}",
}

// FirstDotLast is the pattern used when a mail server cannot be probed.
const FirstDotLast = "{f}.{l}"

// Address renders a single template for the given name and domain.
func Address(template, first, last, domain string) string {
	if first == "" || last == "" || domain == "" {
		return ""
	}
	r := strings.NewReplacer("{fi}", first[:1], "{f}", first, "{l}", last)
	return r.Replace(template) + "@" + strings.ToLower(domain)
}

// Candidates renders templates in order, dropping duplicates, and returns at
// most MaxCandidates addresses. It returns nil when any input is missing.
func Candidates(first, last, domain string, templates []string) []string {
	if first == "" || last == "" || domain == "" {
		return nil
	}
	if templates == nil {
		templates = DefaultTemplates
	}

	seen := make(map[string]struct{}, len(templates))
	out := make([]string, 0, min(len(templates), MaxCandidates))
	for _, tpl := range templates {
		addr := Address(tpl, first, last, domain)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
		if len(out) == MaxCandidates {
			break
		}
	}
	return out
}
