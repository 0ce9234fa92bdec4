package entity

import "time"

// EnrichmentSource describes which discovery channels contributed data.
type EnrichmentSource string

const (
	EnrichmentSourceWebsite    EnrichmentSource = "website"
	EnrichmentSourcePerplexity EnrichmentSource = "perplexity"
	EnrichmentSourceBoth       EnrichmentSource = "both"
)

// Status classifies how complete an enrichment turned out.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// EnrichmentResult is the sole output of an enrichment call.
type EnrichmentResult struct {
	Email              *string           `json:"email"`
	Phone              *string           `json:"phone"`
	Website            *string           `json:"website"`
	CompanyDescription *string           `json:"company_description"`
	BusinessProcesses  *string           `json:"business_processes"`
	EnrichmentSource   *EnrichmentSource `json:"enrichment_source"`
	AllEmailsFound     []FoundContact    `json:"all_emails_found"`
	AllPhonesFound     []FoundContact    `json:"all_phones_found"`
	EnrichedAt         time.Time         `json:"enriched_at"`
	Status             Status            `json:"status"`
	Error              string            `json:"error,omitempty"`
}

// StatusFor derives the completeness status from the four tracked fields.
func StatusFor(email, phone, description, processes *string) Status {
	present := 0
	for _, v := range []*string{email, phone, description, processes} {
		if v != nil && *v != "" {
			present++
		}
	}
	switch present {
	case 4:
		return StatusComplete
	case 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}
