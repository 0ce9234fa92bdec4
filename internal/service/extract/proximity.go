package extract

import (
	"strings"

	"github.com/octobees/contact-enricher/internal/service/names"
)

// NameProximity looks for lines mentioning one of needles and returns a
// non-generic address found within ProximityWindow lines of the mention.
// Addresses on the site's own registrable domain win over foreign ones.
// It returns "" when nothing qualifies.
func (x *Extractor) NameProximity(lines, needles []string, siteDomain string) string {
	if len(lines) == 0 || len(needles) == 0 {
		return ""
	}

	var fallback string
	for i, line := range lines {
		if !mentions(line, needles) {
			continue
		}
		lo := max(0, i-x.rules.ProximityWindow)
		hi := min(len(lines), i+x.rules.ProximityWindow+1)
		for _, email := range x.Personal(x.Emails(strings.Join(lines[lo:hi], "\n"))) {
			if siteDomain != "" && SameSite(EmailDomain(email), siteDomain) {
				return email
			}
			if fallback == "" {
				fallback = email
			}
		}
	}
	return fallback
}

func mentions(line string, needles []string) bool {
	lower := strings.ToLower(line)
	folded := names.FoldWords(line)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, n) || strings.Contains(folded, n) {
			return true
		}
	}
	return false
}
