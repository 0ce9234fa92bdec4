package research

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/extract"
)

// minFallbackLine is the shortest line accepted as a description when the
// answer has no numbered sections.
const minFallbackLine = 50

var (
	citationMarker = regexp.MustCompile(`[ \t]*\[\d+(?:\s*,\s*\d+)*\]`)
	markdownNoise  = strings.NewReplacer("**", "", "__", "", "`", "")
	headingPrefix  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	sectionMarker  = regexp.MustCompile(`(?m)^[ \t]*(?:[-*][ \t]*)?([1-5])[.)][ \t]*`)
	urlToken       = regexp.MustCompile(`(?i)\bhttps?://[^\s<>()\[\]"']+|\bwww\.[^\s<>()\[\]"']+`)
	notFound       = regexp.MustCompile(`(?i)nicht gefunden|keine (?:öffentlich(?:en)? )?(?:informationen|angaben|daten)|nicht bekannt|unbekannt|not found|no information`)
)

// socialDomains are never taken as a company website.
var socialDomains = []string{
	"linkedin.com", "xing.com", "facebook.com", "instagram.com", "twitter.com",
	"x.com", "youtube.com", "youtu.be", "tiktok.com", "kununu.com", "perplexity.ai",
}

// ParseAnswer turns a free-text research answer into structured fields.
func ParseAnswer(text string, x *extract.Extractor) entity.PerplexityData {
	text = Clean(text)
	var data entity.PerplexityData

	emails := x.Emails(text)
	if personal := x.Personal(emails); len(personal) > 0 {
		data.Email = &personal[0]
	} else if len(emails) > 0 {
		data.Email = &emails[0]
	}
	if phones := x.Phones(text); len(phones) > 0 {
		data.Phone = &phones[0]
	}
	if site := Website(text); site != "" {
		data.Website = &site
	}

	sections := Sections(text)
	if len(sections) > 0 {
		data.CompanyDescription = answer(sections[1])
		data.BusinessProcesses = answer(sections[2])
		return data
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) >= minFallbackLine && !notFound.MatchString(line) {
			data.CompanyDescription = &line
			break
		}
	}
	return data
}

// Clean strips citation markers and markdown emphasis.
func Clean(text string) string {
	text = citationMarker.ReplaceAllString(text, "")
	text = markdownNoise.Replace(text)
	text = headingPrefix.ReplaceAllString(text, "")
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// Sections splits a numbered answer into its parts keyed by question number.
// Only markers numbered above the previous one open a section; a nested list
// restarting at 1, or indented deeper than the first marker, stays in the
// current section. It returns nil when no numbered structure is present.
func Sections(text string) map[int]string {
	locs := sectionMarker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	nums := make([]int, len(locs))
	for i, loc := range locs {
		nums[i], _ = strconv.Atoi(text[loc[2]:loc[3]])
	}

	var opened [][]int
	top, nested, topIndent := 0, 0, 0
	for i, loc := range locs {
		n := nums[i]
		indent := len(text[loc[0]:loc[2]]) - len(strings.TrimLeft(text[loc[0]:loc[2]], " \t"))
		if top > 0 && indent > topIndent {
			continue
		}
		switch {
		case n > top && !(nested > 0 && n == nested+1 && slices.Contains(nums[i+1:], n)):
			if top == 0 {
				topIndent = indent
			}
			opened = append(opened, loc)
			top, nested = n, 0
		case top > 0 && n == 1:
			nested = 1
		case nested > 0 && n == nested+1:
			nested = n
		}
	}

	out := make(map[int]string, len(opened))
	for i, loc := range opened {
		n, _ := strconv.Atoi(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(opened) {
			end = opened[i+1][0]
		}
		out[n] = strings.TrimSpace(text[loc[1]:end])
	}
	return out
}

// answer drops an echoed question or a short "Label:" prefix and returns nil
// for empty or "not found" answers.
func answer(section string) *string {
	section = strings.Join(strings.Fields(section), " ")
	if idx := strings.Index(section, "?"); idx >= 0 && idx < 200 {
		section = strings.TrimSpace(section[idx+1:])
	}
	if idx := strings.Index(section, ":"); idx >= 0 && idx <= 40 && !strings.Contains(section[:idx], ".") {
		section = strings.TrimSpace(section[idx+1:])
	}
	if section == "" {
		return nil
	}
	if len([]rune(section)) < 80 && notFound.MatchString(section) {
		return nil
	}
	return &section
}

// Website returns the first URL in text that is not a social network
// profile, normalized to scheme://host.
func Website(text string) string {
	for _, raw := range urlToken.FindAllString(text, -1) {
		raw = strings.TrimRight(raw, ".,;:!?")
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if isSocial(host) {
			continue
		}
		return u.Scheme + "://" + host
	}
	return ""
}

func isSocial(host string) bool {
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
