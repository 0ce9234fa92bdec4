// Package names folds personal names into ASCII tokens and derives the
// mailbox patterns a company is likely to use for a person.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rules holds the locale tables used while parsing a name.
type Rules struct {
	Titles        []string
	NoblePrefixes []string
	Separators    []string
}

// DefaultRules returns the German-market tables. Each call returns fresh slices.
func DefaultRules() Rules {
	return Rules{
		Titles:        []string{"dr", "prof", "dipl", "ing", "mag", "mba", "msc", "bsc", "ra"},
		NoblePrefixes: []string{"von", "van", "de", "zu", "vom"},
		Separators:    []string{"–", "—", "|", "•"},
	}
}

// Name is a parsed personal name. First and Last are folded; the Raw fields
// keep the tokens as written.
type Name struct {
	First    string
	Last     string
	RawFirst string
	RawLast  string
}

// Complete reports whether both first and last name are known.
func (n Name) Complete() bool {
	return n.First != "" && n.Last != ""
}

// Needles returns the lower-cased forms under which the person may appear in
// page text: as written and ASCII-folded.
func (n Name) Needles() []string {
	if !n.Complete() {
		return nil
	}
	raw := strings.ToLower(n.RawFirst + " " + n.RawLast)
	folded := n.First
	for _, tok := range strings.Fields(n.RawLast) {
		folded += " " + Fold(tok)
	}
	if folded == raw {
		return []string{raw}
	}
	return []string{raw, folded}
}

// Normalizer parses full names using a fixed rule set.
type Normalizer struct {
	titles     map[string]struct{}
	nobles     map[string]struct{}
	separators []string
}

// NewNormalizer builds a Normalizer from rules.
func NewNormalizer(rules Rules) *Normalizer {
	n := &Normalizer{
		titles:     make(map[string]struct{}, len(rules.Titles)),
		nobles:     make(map[string]struct{}, len(rules.NoblePrefixes)),
		separators: append([]string(nil), rules.Separators...),
	}
	for _, t := range rules.Titles {
		n.titles[strings.ToLower(t)] = struct{}{}
	}
	for _, p := range rules.NoblePrefixes {
		n.nobles[strings.ToLower(p)] = struct{}{}
	}
	return n
}

// Parse splits a full name into first and last name.
// "Dr. Anna von Neumann – CTO" yields First "anna", Last "vonneumann".
func (n *Normalizer) Parse(full string) Name {
	full = n.truncate(full)

	tokens := make([]string, 0, 4)
	for _, tok := range strings.Fields(full) {
		if n.isTitle(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}

	switch len(tokens) {
	case 0:
		return Name{}
	case 1:
		return Name{First: Fold(tokens[0]), RawFirst: tokens[0]}
	}

	first := tokens[0]
	last := tokens[len(tokens)-1]
	rawLast := last
	if len(tokens) >= 3 {
		prefix := tokens[len(tokens)-2]
		if _, ok := n.nobles[strings.ToLower(prefix)]; ok {
			rawLast = prefix + " " + last
			last = prefix + last
		}
	}

	return Name{
		First:    Fold(first),
		Last:     Fold(last),
		RawFirst: first,
		RawLast:  rawLast,
	}
}

func (n *Normalizer) truncate(full string) string {
	cut := len(full)
	for _, sep := range n.separators {
		if idx := strings.Index(full, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return full[:cut]
}

// isTitle matches "Dr.", "Prof." and compounds such as "Dipl.-Ing.".
func (n *Normalizer) isTitle(tok string) bool {
	tok = strings.TrimRight(strings.ToLower(tok), ".,")
	if tok == "" {
		return true
	}
	if _, ok := n.titles[tok]; ok {
		return true
	}
	parts := strings.FieldsFunc(tok, func(r rune) bool { return r == '.' || r == '-' })
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if _, ok := n.titles[p]; !ok {
			return false
		}
	}
	return true
}

var umlauts = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
	"ß", "ss", "ẞ", "ss",
)

// Fold lower-cases s, spells out German umlauts, strips remaining diacritics
// and drops every character that cannot appear in a mailbox name.
func Fold(s string) string {
	s = umlauts.Replace(strings.ToLower(strings.TrimSpace(s)))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// FoldWords folds every whitespace-separated word of s and rejoins them with
// single spaces, so folded text can still be searched for a full name.
func FoldWords(s string) string {
	words := strings.Fields(s)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if f := Fold(w); f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}
