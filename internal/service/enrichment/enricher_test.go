package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/contact-enricher/internal/config"
	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/crawler"
	"github.com/octobees/contact-enricher/internal/service/extract"
	"github.com/octobees/contact-enricher/internal/service/research"
)

type stubCrawler struct {
	res     crawler.Result
	err     error
	panics  bool
	website string
	needles []string
}

func (s *stubCrawler) Crawl(_ context.Context, website string, needles []string) (crawler.Result, error) {
	if s.panics {
		panic("parser exploded")
	}
	s.website = website
	s.needles = needles
	return s.res, s.err
}

type stubVerifier struct {
	res    entity.SmtpGuessResult
	called bool
	args   []string
}

func (s *stubVerifier) Verify(_ context.Context, first, last, domain string) entity.SmtpGuessResult {
	s.called = true
	s.args = []string{first, last, domain}
	return s.res
}

type stubResearcher struct {
	data   *entity.PerplexityData
	err    error
	called bool
}

func (s *stubResearcher) Research(context.Context, entity.Lead) (*entity.PerplexityData, error) {
	s.called = true
	return s.data, s.err
}

type stubMX struct{ missing map[string]bool }

func (s stubMX) HasMX(_ context.Context, domain string) bool { return !s.missing[domain] }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }

func newEnricher(c *stubCrawler, v *stubVerifier, r *stubResearcher, mx MXChecker) *Enricher {
	if mx == nil {
		mx = stubMX{}
	}
	return New(Deps{
		Crawler:    c,
		Verifier:   v,
		Researcher: r,
		MX:         mx,
		Now:        func() time.Time { return fixedNow },
	}, Options{})
}

func TestEnrichGenericOnlyYieldsNoEmail(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{Scraped: entity.ScrapedData{Emails: []string{"kontakt@firma.de"}}, Domain: "firma.de"}}
	v := &stubVerifier{res: entity.SmtpGuessResult{Error: "no_mx_record"}}
	r := &stubResearcher{err: research.ErrDisabled}

	got := newEnricher(c, v, r, nil).Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})

	assert.Nil(t, got.Email)
	assert.Equal(t, []entity.FoundContact{{Value: "kontakt@firma.de", Source: entity.SourceWebsite}}, got.AllEmailsFound)
	assert.Equal(t, entity.StatusFailed, got.Status)
	require.NotNil(t, got.EnrichmentSource)
	assert.Equal(t, entity.EnrichmentSourceWebsite, *got.EnrichmentSource)
	assert.True(t, v.called)
	assert.Equal(t, "https://firma.de", c.website)
	assert.Equal(t, fixedNow, got.EnrichedAt)
}

func TestEnrichUsesSMTPResult(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{Domain: "schmidt-consulting.de"}}
	v := &stubVerifier{res: entity.SmtpGuessResult{VerifiedEmail: str("anna.schmidt@schmidt-consulting.de"), PatternsTried: 3}}
	r := &stubResearcher{err: errors.New("timeout")}

	got := newEnricher(c, v, r, nil).Enrich(context.Background(), entity.Lead{
		Name:    "Anna Schmidt",
		Website: str("https://schmidt-consulting.de"),
	})

	require.NotNil(t, got.Email)
	assert.Equal(t, "anna.schmidt@schmidt-consulting.de", *got.Email)
	assert.Equal(t, []string{"anna", "schmidt", "schmidt-consulting.de"}, v.args)
	assert.Equal(t, entity.FoundContact{Value: "anna.schmidt@schmidt-consulting.de", Source: entity.SourceWebsite}, got.AllEmailsFound[0])
	require.NotNil(t, got.EnrichmentSource)
	assert.Equal(t, entity.EnrichmentSourceWebsite, *got.EnrichmentSource)
	assert.Equal(t, entity.StatusPartial, got.Status)
	require.NotNil(t, got.Website)
	assert.Equal(t, "https://schmidt-consulting.de", *got.Website)
	assert.True(t, r.called)
}

func TestEnrichSMTPWithAIContribution(t *testing.T) {
	c := &stubCrawler{}
	v := &stubVerifier{res: entity.SmtpGuessResult{VerifiedEmail: str("anna.schmidt@schmidt-consulting.de"), PatternsTried: 3}}
	r := &stubResearcher{data: &entity.PerplexityData{CompanyDescription: str("Beratung für den Mittelstand.")}}

	got := newEnricher(c, v, r, nil).Enrich(context.Background(), entity.Lead{
		Name:    "Anna Schmidt",
		Website: str("https://schmidt-consulting.de"),
	})

	require.NotNil(t, got.EnrichmentSource)
	assert.Equal(t, entity.EnrichmentSourceBoth, *got.EnrichmentSource)
	require.NotNil(t, got.CompanyDescription)
	assert.Equal(t, "Beratung für den Mittelstand.", *got.CompanyDescription)
}

func TestEnrichNameMatchSkipsSMTP(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{
		Scraped:   entity.ScrapedData{Emails: []string{"info@firma.de", "a.schmidt@firma.de"}},
		NameMatch: "a.schmidt@firma.de",
		Domain:    "firma.de",
	}}
	v := &stubVerifier{}
	r := &stubResearcher{data: &entity.PerplexityData{Email: str("anna@firma.de")}}

	got := newEnricher(c, v, r, nil).Enrich(context.Background(), entity.Lead{Name: "Dr. Anna Schmidt", Website: str("firma.de")})

	require.NotNil(t, got.Email)
	assert.Equal(t, "a.schmidt@firma.de", *got.Email)
	assert.False(t, v.called)
	assert.True(t, r.called)
	assert.Equal(t, []string{"anna schmidt"}, c.needles)
	require.NotNil(t, got.EnrichmentSource)
	assert.Equal(t, entity.EnrichmentSourceBoth, *got.EnrichmentSource)
}

func TestEnrichScrapedPatternCountsAsPersonal(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{
		Scraped: entity.ScrapedData{Emails: []string{"info@firma.de", "vertrieb@firma.de", "mueller@firma.de"}},
		Domain:  "firma.de",
	}}
	v := &stubVerifier{}

	got := newEnricher(c, v, &stubResearcher{err: research.ErrDisabled}, nil).
		Enrich(context.Background(), entity.Lead{Name: "Jörg Müller", Website: str("firma.de")})

	require.NotNil(t, got.Email)
	assert.Equal(t, "mueller@firma.de", *got.Email)
	assert.False(t, v.called)
}

func TestEnrichNoMXFallsBackToAI(t *testing.T) {
	c := &stubCrawler{}
	v := &stubVerifier{res: entity.SmtpGuessResult{Error: "no_mx_record"}}
	r := &stubResearcher{data: &entity.PerplexityData{
		Email: str("Max.Mustermann@Mustermann-Gruppe.de"),
		Phone: str("+49 89 1234567"),
	}}

	got := newEnricher(c, v, r, stubMX{missing: map[string]bool{"firma.de": true}}).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})

	require.NotNil(t, got.Email)
	assert.Equal(t, "max.mustermann@mustermann-gruppe.de", *got.Email)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "+49891234567", *got.Phone)
	assert.Equal(t, []entity.FoundContact{{Value: "max.mustermann@mustermann-gruppe.de", Source: entity.SourceAI}}, got.AllEmailsFound)
	assert.Equal(t, entity.StatusPartial, got.Status)
}

func TestEnrichRejectsEmailWithoutMX(t *testing.T) {
	r := &stubResearcher{data: &entity.PerplexityData{Email: str("max@gibtsnicht.de")}}
	got := newEnricher(&stubCrawler{}, &stubVerifier{}, r, stubMX{missing: map[string]bool{"gibtsnicht.de": true}}).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann"})

	assert.Nil(t, got.Email)
	assert.Len(t, got.AllEmailsFound, 1)
}

func TestEnrichRejectedPickFallsThrough(t *testing.T) {
	lead := entity.Lead{Name: "Max Mustermann", Email: str("max@alt.de")}
	r := &stubResearcher{data: &entity.PerplexityData{Email: str("max.mustermann@neu.de")}}

	got := newEnricher(&stubCrawler{}, &stubVerifier{}, r, stubMX{missing: map[string]bool{"alt.de": true}}).
		Enrich(context.Background(), lead)

	require.NotNil(t, got.Email)
	assert.Equal(t, "max.mustermann@neu.de", *got.Email)
	assert.Equal(t, []entity.FoundContact{
		{Value: "max@alt.de", Source: entity.SourceExisting},
		{Value: "max.mustermann@neu.de", Source: entity.SourceAI},
	}, got.AllEmailsFound)
}

func TestEnrichPhonePriority(t *testing.T) {
	tests := []struct {
		name    string
		lead    *string
		scraped []string
		ai      *string
		want    string
	}{
		{"existing wins", str("030 1234567"), []string{"01711234567"}, str("+49 89 7654321"), "0301234567"},
		{"scraped mobile preferred", nil, []string{"0301234567", "0171 1234567"}, nil, "01711234567"},
		{"scraped landline before ai mobile", nil, []string{"0301234567"}, str("+49 171 7654321"), "0301234567"},
		{"ai as last resort", nil, nil, str("+49 171 7654321"), "+491717654321"},
		{"short existing number skipped", str("12"), nil, str("+49 171 7654321"), "+491717654321"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubCrawler{res: crawler.Result{Scraped: entity.ScrapedData{Phones: tt.scraped}}}
			r := &stubResearcher{data: &entity.PerplexityData{Phone: tt.ai}}
			got := newEnricher(c, &stubVerifier{}, r, nil).
				Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de"), Phone: tt.lead})

			require.NotNil(t, got.Phone)
			assert.Equal(t, tt.want, *got.Phone)
		})
	}
}

func TestEnrichShortPhoneOnlyYieldsNoPhone(t *testing.T) {
	got := newEnricher(&stubCrawler{}, &stubVerifier{}, &stubResearcher{}, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de"), Phone: str("12")})

	assert.Nil(t, got.Phone)
	assert.Equal(t, []entity.FoundContact{{Value: "12", Source: entity.SourceExisting}}, got.AllPhonesFound)
}

func TestEnrichDescriptionPrefersAI(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{Scraped: entity.ScrapedData{Description: str("Von der Website.")}}}
	r := &stubResearcher{data: &entity.PerplexityData{BusinessProcesses: str("Auftragsannahme")}}

	got := newEnricher(c, &stubVerifier{}, r, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})
	require.NotNil(t, got.CompanyDescription)
	assert.Equal(t, "Von der Website.", *got.CompanyDescription)
	require.NotNil(t, got.BusinessProcesses)

	r.data.CompanyDescription = str("Von der KI.")
	got = newEnricher(c, &stubVerifier{}, r, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})
	assert.Equal(t, "Von der KI.", *got.CompanyDescription)
}

func TestEnrichComplete(t *testing.T) {
	c := &stubCrawler{res: crawler.Result{
		Scraped:   entity.ScrapedData{Emails: []string{"max.mustermann@firma.de"}, Phones: []string{"01711234567"}},
		NameMatch: "max.mustermann@firma.de",
	}}
	r := &stubResearcher{data: &entity.PerplexityData{
		CompanyDescription: str("Maschinenbau."),
		BusinessProcesses:  str("Angebote, Wartungsplanung"),
		Website:            str("https://andere-seite.de"),
	}}

	got := newEnricher(c, &stubVerifier{}, r, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("https://firma.de/")})

	assert.Equal(t, entity.StatusComplete, got.Status)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.Website)
	assert.Equal(t, "https://firma.de", *got.Website)
}

func TestEnrichWithoutWebsite(t *testing.T) {
	c := &stubCrawler{}
	v := &stubVerifier{}
	r := &stubResearcher{data: &entity.PerplexityData{Website: str("https://firma.de")}}

	got := newEnricher(c, v, r, nil).Enrich(context.Background(), entity.Lead{Name: "Max Mustermann"})

	assert.Empty(t, c.website)
	assert.False(t, v.called)
	require.NotNil(t, got.Website)
	assert.Equal(t, "https://firma.de", *got.Website)
	require.NotNil(t, got.EnrichmentSource)
	assert.Equal(t, entity.EnrichmentSourcePerplexity, *got.EnrichmentSource)
}

func TestEnrichCrawlErrorDegrades(t *testing.T) {
	c := &stubCrawler{err: crawler.ErrInvalidURL}
	got := newEnricher(c, &stubVerifier{}, &stubResearcher{err: research.ErrNoAnswer}, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})

	assert.Equal(t, entity.StatusFailed, got.Status)
	assert.Nil(t, got.EnrichmentSource)
	assert.Empty(t, got.Error)
	assert.NotNil(t, got.AllEmailsFound)
}

func TestEnrichRecoversFromPanic(t *testing.T) {
	got := newEnricher(&stubCrawler{panics: true}, &stubVerifier{}, &stubResearcher{}, nil).
		Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})

	assert.Equal(t, entity.StatusFailed, got.Status)
	assert.Contains(t, got.Error, "parser exploded")
	assert.Equal(t, fixedNow, got.EnrichedAt)
}

func TestEnrichRequiresName(t *testing.T) {
	r := &stubResearcher{}
	got := newEnricher(&stubCrawler{}, &stubVerifier{}, r, nil).Enrich(context.Background(), entity.Lead{Name: "  "})

	assert.Equal(t, entity.StatusFailed, got.Status)
	assert.Equal(t, ErrNameRequired.Error(), got.Error)
	assert.False(t, r.called)
}

// Status must follow the populated fields and the chosen email must never be
// a role mailbox, whatever combination of signals arrives.
func TestEnrichResultConsistency(t *testing.T) {
	x := extract.New(extract.DefaultRules())
	emailSets := [][]string{nil, {"info@firma.de"}, {"office@firma.de", "max@firma.de"}, {"support@firma.de", "hello@firma.de"}}
	aiSets := []*entity.PerplexityData{
		nil,
		{Email: str("noreply@firma.de")},
		{Email: str("admin@firma.de"), Phone: str("0301234567"), CompanyDescription: str("x"), BusinessProcesses: str("y")},
		{Email: str("max.mustermann@firma.de"), CompanyDescription: str("x")},
	}
	for _, emails := range emailSets {
		for _, ai := range aiSets {
			c := &stubCrawler{res: crawler.Result{Scraped: entity.ScrapedData{Emails: emails}}}
			v := &stubVerifier{res: entity.SmtpGuessResult{Error: "greylisted"}}
			got := newEnricher(c, v, &stubResearcher{data: ai}, nil).
				Enrich(context.Background(), entity.Lead{Name: "Max Mustermann", Website: str("firma.de")})

			assert.Equal(t, entity.StatusFor(got.Email, got.Phone, got.CompanyDescription, got.BusinessProcesses), got.Status)
			if got.Email != nil {
				assert.False(t, x.IsGeneric(*got.Email), *got.Email)
			}
			seen := map[string]bool{}
			for _, f := range got.AllEmailsFound {
				assert.False(t, seen[f.Value], "duplicate %s", f.Value)
				seen[f.Value] = true
			}
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{PhoneRegion: "DE"}
	e := NewFromConfig(cfg, nil)
	require.NotNil(t, e)
	assert.NotNil(t, e.crawler)
	assert.NotNil(t, e.verifier)
	assert.NotNil(t, e.researcher)
}
