package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is what a single fetched document yields.
type Page struct {
	Emails      []string
	Phones      []string
	Description string
	// Lines is the visible text split at block boundaries, used for
	// name-proximity scanning.
	Lines []string
}

// ParseHTML extracts contact data from an HTML document. Script, style and
// noscript content never reaches the text rules.
func (x *Extractor) ParseHTML(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, eris.Wrap(err, "parse html")
	}
	doc.Find("script, style, noscript, template, svg").Remove()

	lines := Lines(doc)
	text := strings.Join(lines, "\n")

	emails := x.Emails(text)
	doc.Find(`a[href^="mailto:"], a[href^="MAILTO:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		emails = append(emails, x.Emails(strings.TrimPrefix(strings.ToLower(href), "mailto:"))...)
	})
	phones := x.Phones(text)
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if p := NormalizePhone(strings.TrimPrefix(href, "tel:")); x.HasPhoneDigits(p) {
			phones = append(phones, p)
		}
	})

	return Page{
		Emails:      Dedupe(emails),
		Phones:      Dedupe(phones),
		Description: x.Description(doc),
		Lines:       lines,
	}, nil
}

// ParseText extracts contact data from a text/plain document.
func (x *Extractor) ParseText(text string) Page {
	lines := SplitLines(text)
	joined := strings.Join(lines, "\n")
	return Page{
		Emails: x.Emails(joined),
		Phones: x.Phones(joined),
		Lines:  lines,
	}
}

// Description prefers the meta or og:description tag when it is longer than
// MinMetaDescription, else the first paragraph longer than MinParagraph,
// truncated to MaxDescription characters.
func (x *Extractor) Description(doc *goquery.Document) string {
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`, `meta[name="og:description"]`} {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok {
			continue
		}
		content = collapseSpace(content)
		if runeLen(content) > x.rules.MinMetaDescription {
			return truncate(content, x.rules.MaxDescription)
		}
	}

	var desc string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapseSpace(s.Text())
		if runeLen(text) > x.rules.MinParagraph {
			desc = truncate(text, x.rules.MaxDescription)
			return false
		}
		return true
	})
	return desc
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
}

// Lines renders the visible text of doc with a line break at every block
// element, mirroring how the page reads in a browser.
func Lines(doc *goquery.Document) []string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return SplitLines(b.String())
}

// SplitLines splits text on newlines, collapses whitespace inside each line
// and drops empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = collapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Dedupe removes repeated values, keeping first occurrences.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
