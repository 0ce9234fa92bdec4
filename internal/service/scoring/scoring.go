package scoring

import (
	"net/url"
	"strings"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/extract"
)

const (
	categoryContact      = "contact_completeness"
	categoryVerification = "verification"
	categoryBusiness     = "business_profile"
)

var freeHostingDomains = []string{
	"wordpress.com",
	"blogspot.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"medium.com",
	"substack.com",
	"godaddysites.com",
	"notion.site",
	"googlepages.com",
	"jimdofree.com",
	"jimdosite.com",
	"business.site",
}

// ScoreResult reports the aggregate score and the per-category breakdown.
type ScoreResult struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// ComputeScore rates how reachable and well described a lead is after
// enrichment.
func ComputeScore(result entity.EnrichmentResult) ScoreResult {
	breakdown := map[string]int{
		categoryContact:      scoreContactCompleteness(result),
		categoryVerification: scoreVerification(result),
		categoryBusiness:     scoreBusinessProfile(result),
	}

	total := 0
	for _, value := range breakdown {
		total += value
	}

	return ScoreResult{
		Total:     total,
		Breakdown: breakdown,
	}
}

func scoreContactCompleteness(result entity.EnrichmentResult) int {
	score := 0
	if hasValue(result.Email) {
		score += 15
	}
	if hasValue(result.Phone) {
		score += 10
		if extract.IsGermanMobile(*result.Phone) {
			score += 5
		}
	}
	return min(score, 30)
}

// scoreVerification rewards emails that came from the lead's own website or
// mail server rather than from the lead record or AI research.
func scoreVerification(result entity.EnrichmentResult) int {
	score := 0
	if hasValue(result.Email) && sourceOf(*result.Email, result.AllEmailsFound) == entity.SourceWebsite {
		score += 15
	}
	if result.EnrichmentSource != nil && *result.EnrichmentSource == entity.EnrichmentSourceBoth {
		score += 5
	}
	return min(score, 20)
}

func scoreBusinessProfile(result entity.EnrichmentResult) int {
	score := 0
	if hasValue(result.CompanyDescription) {
		score += 10
	}
	if hasValue(result.BusinessProcesses) {
		score += 10
	}
	if result.Website != nil && highQualityDomain(*result.Website) {
		score += 10
	}
	return min(score, 30)
}

func sourceOf(value string, found []entity.FoundContact) entity.Source {
	for _, c := range found {
		if strings.EqualFold(c.Value, value) {
			return c.Source
		}
	}
	return ""
}

func hasValue(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

func highQualityDomain(raw string) bool {
	domain := extractDomain(raw)
	if domain == "" {
		return false
	}
	for _, bad := range freeHostingDomains {
		if domain == bad || strings.HasSuffix(domain, "."+bad) {
			return false
		}
	}
	return strings.Count(domain, ".") >= 1
}

func extractDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if !strings.Contains(lowered, "://") {
		lowered = "https://" + lowered
	}
	parsed, err := url.Parse(lowered)
	if err != nil {
		return ""
	}
	host := strings.TrimSpace(strings.ToLower(parsed.Hostname()))
	host = strings.TrimPrefix(host, "www.")
	return host
}
