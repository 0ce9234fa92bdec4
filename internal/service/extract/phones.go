package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// phoneToken matches international (+49 / 0049) and national (leading zero)
// German numbers with the usual space, slash, dash, dot and bracket grouping.
var phoneToken = regexp.MustCompile(
	`(?:\+|00)49[ \t\-/.]*(?:\(0\)[ \t\-/.]*)?\(?\d[\d \t\-/.()]{5,18}\d` +
		`|\(?0\d{2,5}\)?[ \t\-/.]*\d[\d \t\-/.]{3,14}\d`)

var faxLabel = regexp.MustCompile(`(?i)(?:tele)?fax\.?[ \t]*:?[ \t]*$`)

// labelLookbehind bounds how far before a number a "Fax:" label is searched.
const labelLookbehind = 16

// Phones returns every distinct normalized number in text. Numbers labelled
// as fax and numbers with fewer than MinPhoneDigits digits are dropped.
func (x *Extractor) Phones(text string) []string {
	locs := phoneToken.FindAllStringIndex(text, -1)
	seen := make(map[string]struct{}, len(locs))
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:start])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		if faxLabel.MatchString(text[max(0, start-labelLookbehind):start]) {
			continue
		}

		phone := NormalizePhone(strings.Replace(text[start:end], "(0)", "", 1))
		if !x.HasPhoneDigits(phone) {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		out = append(out, phone)
	}
	return out
}

// HasPhoneDigits reports whether phone carries at least MinPhoneDigits digits.
func (x *Extractor) HasPhoneDigits(phone string) bool {
	return digitCount(phone) >= x.rules.MinPhoneDigits
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// IsGermanMobile reports whether a normalized number uses a German mobile
// prefix (+491, 01 or 00491).
func IsGermanMobile(phone string) bool {
	phone = NormalizePhone(phone)
	return strings.HasPrefix(phone, "+491") ||
		strings.HasPrefix(phone, "00491") ||
		strings.HasPrefix(phone, "01")
}
