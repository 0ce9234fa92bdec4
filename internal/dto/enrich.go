package dto

import (
	"strings"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/scoring"
)

// EnrichRequest is the body of POST /enrich.
type EnrichRequest struct {
	LeadID      string  `json:"lead_id"`
	Name        string  `json:"name"`
	Company     *string `json:"company"`
	Website     *string `json:"website"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	LinkedInURL *string `json:"linkedin_url"`
	Headline    *string `json:"headline"`
	Async       bool    `json:"async"`
}

// Lead converts the request into the engine input, dropping blank fields.
func (r EnrichRequest) Lead() entity.Lead {
	return entity.Lead{
		Name:        strings.TrimSpace(r.Name),
		Company:     trimmed(r.Company),
		Website:     trimmed(r.Website),
		Email:       trimmed(r.Email),
		Phone:       trimmed(r.Phone),
		LinkedInURL: trimmed(r.LinkedInURL),
		Headline:    trimmed(r.Headline),
	}
}

// EnrichResponse is returned by synchronous enrichment and posted to the
// callback endpoint after asynchronous enrichment.
type EnrichResponse struct {
	LeadID string                  `json:"lead_id,omitempty"`
	Result entity.EnrichmentResult `json:"result"`
	Score  scoring.ScoreResult     `json:"score"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
