package entity

// Lead is the caller-owned input of an enrichment call. Only Name is required.
type Lead struct {
	Name        string  `json:"name"`
	Company     *string `json:"company,omitempty"`
	Website     *string `json:"website,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
	Headline    *string `json:"headline,omitempty"`
}
