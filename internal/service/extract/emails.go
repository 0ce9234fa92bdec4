package extract

import (
	"regexp"
	"strings"
)

var (
	emailToken   = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`)
	obfuscatedAt = regexp.MustCompile(`(?i)\s*[\[(]\s*(?:at|ät)\s*[\])]\s*`)
	obfuscatedDt = regexp.MustCompile(`(?i)\s*[\[(]\s*(?:dot|punkt)\s*[\])]\s*`)
)

// Deobfuscate rewrites the common "name (at) firma [dot] de" spellings into
// plain addresses.
func Deobfuscate(text string) string {
	text = obfuscatedAt.ReplaceAllString(text, "@")
	return obfuscatedDt.ReplaceAllString(text, ".")
}

// Emails returns every distinct, normalized address in text, in order of
// first appearance. Asset file names that look like addresses are skipped.
func (x *Extractor) Emails(text string) []string {
	matches := emailToken.FindAllString(Deobfuscate(text), -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		email := NormalizeEmail(m)
		if email == "" || x.ignoredEmail(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

func (x *Extractor) ignoredEmail(email string) bool {
	for _, suffix := range x.rules.IgnoredEmailSuffixes {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}
