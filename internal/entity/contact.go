package entity

// Source identifies where a contact signal was discovered.
type Source string

const (
	SourceWebsite  Source = "website"
	SourceAI       Source = "ai"
	SourceExisting Source = "existing"
)

// FoundContact is one candidate email or phone together with its provenance.
type FoundContact struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// ScrapedData aggregates every page crawled for a single lead.
// Emails are lower-cased and phones digit-normalized before they land here.
type ScrapedData struct {
	Emails      []string `json:"emails"`
	Phones      []string `json:"phones"`
	Description *string  `json:"description"`
}

// HasData reports whether the crawl produced any usable signal.
func (d ScrapedData) HasData() bool {
	return len(d.Emails) > 0 || len(d.Phones) > 0 || d.Description != nil
}

// PerplexityData is the structured view of a free-text AI research answer.
type PerplexityData struct {
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Website            *string `json:"website"`
	CompanyDescription *string `json:"company_description"`
	BusinessProcesses  *string `json:"business_processes"`
}

// HasData reports whether any field of the answer could be parsed.
func (d *PerplexityData) HasData() bool {
	if d == nil {
		return false
	}
	return d.Email != nil || d.Phone != nil || d.Website != nil || d.CompanyDescription != nil || d.BusinessProcesses != nil
}

// SmtpGuessResult reports the outcome of probing a domain's mail server.
type SmtpGuessResult struct {
	VerifiedEmail *string `json:"verified_email"`
	CatchAll      bool    `json:"catch_all"`
	PatternsTried int     `json:"patterns_tried"`
	// Unverified marks a synthesized best guess produced without a live probe.
	Unverified bool   `json:"unverified,omitempty"`
	Error      string `json:"error,omitempty"`
}
