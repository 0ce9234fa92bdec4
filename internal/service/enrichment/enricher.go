// Package enrichment fuses crawl, SMTP and AI research signals into a single
// contact answer for a lead.
package enrichment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/crawler"
	"github.com/octobees/contact-enricher/internal/service/extract"
	"github.com/octobees/contact-enricher/internal/service/names"
	"github.com/octobees/contact-enricher/internal/service/research"
)

// ErrNameRequired is reported when a lead arrives without a name.
var ErrNameRequired = eris.New("lead name is required")

// minNameMatch is the shortest name part matched inside a mailbox.
const minNameMatch = 3

type Crawler interface {
	Crawl(ctx context.Context, website string, needles []string) (crawler.Result, error)
}

type SMTPVerifier interface {
	Verify(ctx context.Context, first, last, domain string) entity.SmtpGuessResult
}

type Researcher interface {
	Research(ctx context.Context, lead entity.Lead) (*entity.PerplexityData, error)
}

type MXChecker interface {
	HasMX(ctx context.Context, domain string) bool
}

// Deps are the collaborators of an Enricher. Nil Crawler, Verifier or
// Researcher disable that signal source.
type Deps struct {
	Crawler    Crawler
	Verifier   SMTPVerifier
	Researcher Researcher
	MX         MXChecker
	Names      *names.Normalizer
	Extractor  *extract.Extractor
	Log        *zap.Logger
	Now        func() time.Time
}

type Options struct {
	PhoneRegion string
	// Templates overrides the mailbox patterns used to recognize scraped
	// personal addresses.
	Templates []string
}

// Enricher runs one linear enrichment per call and holds no per-call state.
type Enricher struct {
	crawler    Crawler
	verifier   SMTPVerifier
	researcher Researcher
	names      *names.Normalizer
	extractor  *extract.Extractor
	validator  *ContactValidator
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

func New(deps Deps, opts Options) *Enricher {
	if deps.Names == nil {
		deps.Names = names.NewNormalizer(names.DefaultRules())
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.New(extract.DefaultRules())
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Enricher{
		crawler:    deps.Crawler,
		verifier:   deps.Verifier,
		researcher: deps.Researcher,
		names:      deps.Names,
		extractor:  deps.Extractor,
		validator:  NewContactValidator(deps.MX, deps.Extractor, opts.PhoneRegion, deps.Log),
		opts:       opts,
		log:        deps.Log,
		now:        deps.Now,
	}
}

// Enrich never fails: every problem degrades the affected signal, and an
// unexpected panic yields a failed result carrying the message.
func (e *Enricher) Enrich(ctx context.Context, lead entity.Lead) (result entity.EnrichmentResult) {
	defer func() {
		if r := recover(); r != nil {
			err := eris.Errorf("enrichment panicked: %v", r)
			e.log.Error("enrichment aborted", zap.String("lead", lead.Name), zap.Error(err))
			result = failedResult(e.now(), err)
		}
	}()

	if strings.TrimSpace(lead.Name) == "" {
		return failedResult(e.now(), ErrNameRequired)
	}
	return e.enrich(ctx, lead)
}

func (e *Enricher) enrich(ctx context.Context, lead entity.Lead) entity.EnrichmentResult {
	name := e.names.Parse(lead.Name)
	website := leadWebsite(lead)
	domain := crawler.Domain(website)
	log := e.log.With(zap.String("lead", lead.Name), zap.String("domain", domain))

	// Crawl and look for the lead's own mailbox on the site.
	var crawl crawler.Result
	if website != "" && e.crawler != nil {
		res, err := e.crawler.Crawl(ctx, website, name.Needles())
		if err != nil {
			log.Warn("crawl failed", zap.Error(err))
		} else {
			crawl = res
		}
	}
	personal := crawl.NameMatch
	if personal == "" {
		personal = e.scrapedPersonal(crawl.Scraped.Emails, name, domain)
	}

	// Probe the mail server only when the site gave no personal address.
	var smtp entity.SmtpGuessResult
	if personal == "" && domain != "" && name.Complete() && e.verifier != nil {
		smtp = e.verifier.Verify(ctx, name.First, name.Last, domain)
		if smtp.Error != "" {
			log.Info("smtp verification inconclusive", zap.String("code", smtp.Error))
		}
	}

	// AI research runs regardless of the outcome above.
	var ai *entity.PerplexityData
	if e.researcher != nil {
		data, err := e.researcher.Research(ctx, lead)
		switch {
		case errors.Is(err, research.ErrDisabled):
		case err != nil:
			log.Warn("ai research failed", zap.Error(err))
		default:
			ai = data
		}
	}
	if ai == nil {
		ai = &entity.PerplexityData{}
	}

	emails := newContactSet(extract.NormalizeEmail)
	if smtp.VerifiedEmail != nil {
		emails.add(*smtp.VerifiedEmail, entity.SourceWebsite)
	}
	emails.addPtr(lead.Email, entity.SourceExisting)
	emails.addAll(crawl.Scraped.Emails, entity.SourceWebsite)
	emails.addPtr(ai.Email, entity.SourceAI)

	phones := newContactSet(extract.NormalizePhone)
	phones.addPtr(lead.Phone, entity.SourceExisting)
	phones.addAll(crawl.Scraped.Phones, entity.SourceWebsite)
	phones.addPtr(ai.Phone, entity.SourceAI)

	out := entity.EnrichmentResult{
		Email:              e.chooseEmail(ctx, personal, smtp, emails, website, log),
		Phone:              e.choosePhone(phones),
		Website:            firstNonEmpty(nonEmpty(website), ai.Website),
		CompanyDescription: firstNonEmpty(ai.CompanyDescription, crawl.Scraped.Description),
		BusinessProcesses:  nonEmptyPtr(ai.BusinessProcesses),
		EnrichmentSource:   sourceOf(crawl.Scraped.HasData() || smtp.VerifiedEmail != nil, ai.HasData()),
		AllEmailsFound:     emails.items,
		AllPhonesFound:     phones.items,
		EnrichedAt:         e.now(),
	}
	out.Status = entity.StatusFor(out.Email, out.Phone, out.CompanyDescription, out.BusinessProcesses)

	log.Info("lead enriched",
		zap.String("status", string(out.Status)),
		zap.Int("pages", crawl.PagesVisited),
		zap.Bool("name_match", crawl.NameMatch != ""),
		zap.Int("smtp_patterns", smtp.PatternsTried),
	)
	return out
}

// scrapedPersonal picks a crawled non-generic address that looks like it
// belongs to the lead: its mailbox equals a generated pattern or contains the
// first or last name. Addresses on the site's own domain win.
func (e *Enricher) scrapedPersonal(emails []string, name names.Name, domain string) string {
	if name.First == "" {
		return ""
	}
	var fallback string
	for _, email := range e.extractor.Personal(emails) {
		if !e.belongsTo(email, name) {
			continue
		}
		if domain != "" && extract.SameSite(extract.EmailDomain(email), domain) {
			return email
		}
		if fallback == "" {
			fallback = email
		}
	}
	return fallback
}

func (e *Enricher) belongsTo(email string, name names.Name) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	for _, candidate := range names.Candidates(name.First, name.Last, domain, e.opts.Templates) {
		if candidate == email {
			return true
		}
	}
	if len(name.First) >= minNameMatch && strings.Contains(local, name.First) {
		return true
	}
	return len(name.Last) >= minNameMatch && strings.Contains(local, name.Last)
}

// chooseEmail applies the priority personal scrape > SMTP result > best other
// signal. SMTP answers are trusted as is; every other pick must pass
// validation, and a rejected pick falls through to the next one.
func (e *Enricher) chooseEmail(ctx context.Context, personal string, smtp entity.SmtpGuessResult, found *contactSet, website string, log *zap.Logger) *string {
	type pick struct {
		email   string
		trusted bool
	}
	var picks []pick
	if personal != "" {
		picks = append(picks, pick{email: personal})
	}
	if smtp.VerifiedEmail != nil {
		picks = append(picks, pick{email: *smtp.VerifiedEmail, trusted: true})
	}
	for _, email := range e.rankOthers(found, website) {
		picks = append(picks, pick{email: email})
	}

	tried := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		email := extract.NormalizeEmail(p.email)
		if email == "" || e.extractor.IsGeneric(email) {
			continue
		}
		if _, dup := tried[email]; dup {
			continue
		}
		tried[email] = struct{}{}

		if p.trusted {
			return &email
		}
		verdict := e.validator.ValidateEmail(ctx, email, website)
		if !verdict.OK {
			log.Info("email rejected", zap.String("email", email), zap.String("reason", verdict.Reason))
			continue
		}
		if verdict.DomainMismatch {
			log.Info("email domain differs from website", zap.String("email", email))
		}
		return &email
	}
	return nil
}

// rankOthers orders the non-generic found addresses, those on the website's
// domain first, keeping source priority within each group.
func (e *Enricher) rankOthers(found *contactSet, website string) []string {
	site := crawler.Domain(website)
	var same, other []string
	for _, c := range found.items {
		if e.extractor.IsGeneric(c.Value) {
			continue
		}
		if site != "" && extract.SameSite(extract.EmailDomain(c.Value), site) {
			same = append(same, c.Value)
		} else {
			other = append(other, c.Value)
		}
	}
	return append(same, other...)
}

// choosePhone takes the highest-priority source that has a usable number and,
// within it, prefers a mobile number.
func (e *Enricher) choosePhone(found *contactSet) *string {
	for _, source := range []entity.Source{entity.SourceExisting, entity.SourceWebsite, entity.SourceAI} {
		var first string
		for _, c := range found.items {
			if c.Source != source || !e.validator.IsValidPhone(c.Value) {
				continue
			}
			if e.validator.IsMobile(c.Value) {
				v := c.Value
				return &v
			}
			if first == "" {
				first = c.Value
			}
		}
		if first != "" {
			return &first
		}
	}
	return nil
}

func sourceOf(website, ai bool) *entity.EnrichmentSource {
	var s entity.EnrichmentSource
	switch {
	case website && ai:
		s = entity.EnrichmentSourceBoth
	case website:
		s = entity.EnrichmentSourceWebsite
	case ai:
		s = entity.EnrichmentSourcePerplexity
	default:
		return nil
	}
	return &s
}

func failedResult(now time.Time, err error) entity.EnrichmentResult {
	return entity.EnrichmentResult{
		AllEmailsFound: []entity.FoundContact{},
		AllPhonesFound: []entity.FoundContact{},
		EnrichedAt:     now,
		Status:         entity.StatusFailed,
		Error:          err.Error(),
	}
}

func leadWebsite(lead entity.Lead) string {
	if lead.Website == nil {
		return ""
	}
	base, err := crawler.NormalizeURL(*lead.Website)
	if err != nil {
		return ""
	}
	return base
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmptyPtr(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v := nonEmptyPtr(v); v != nil {
			return v
		}
	}
	return nil
}

// contactSet keeps tagged contacts unique by normalized value.
type contactSet struct {
	normalize func(string) string
	seen      map[string]struct{}
	items     []entity.FoundContact
}

func newContactSet(normalize func(string) string) *contactSet {
	return &contactSet{normalize: normalize, seen: map[string]struct{}{}, items: []entity.FoundContact{}}
}

func (s *contactSet) add(raw string, source entity.Source) {
	value := s.normalize(raw)
	if value == "" {
		return
	}
	if _, dup := s.seen[value]; dup {
		return
	}
	s.seen[value] = struct{}{}
	s.items = append(s.items, entity.FoundContact{Value: value, Source: source})
}

func (s *contactSet) addPtr(raw *string, source entity.Source) {
	if raw != nil {
		s.add(*raw, source)
	}
}

func (s *contactSet) addAll(values []string, source entity.Source) {
	for _, v := range values {
		s.add(v, source)
	}
}
