package enrichment

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/service/crawler"
	"github.com/octobees/contact-enricher/internal/service/extract"
)

// Rejection reasons reported by ContactValidator.
const (
	ReasonInvalid = "invalid_email"
	ReasonGeneric = "generic_mailbox"
	ReasonNoMX    = "no_mx_record"
)

const defaultPhoneRegion = "DE"

// Verdict is the outcome of validating one address. A domain mismatch is
// flagged but does not reject the address.
type Verdict struct {
	OK             bool
	Reason         string
	DomainMismatch bool
}

// ContactValidator encapsulates the acceptance rules for a chosen contact.
type ContactValidator struct {
	mx        MXChecker
	extractor *extract.Extractor
	region    string
	log       *zap.Logger
}

// NewContactValidator builds a validator. region is the default phone region
// used when a number has no country prefix.
func NewContactValidator(mx MXChecker, x *extract.Extractor, region string, log *zap.Logger) *ContactValidator {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = defaultPhoneRegion
	}
	if x == nil {
		x = extract.New(extract.DefaultRules())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactValidator{mx: mx, extractor: x, region: region, log: log}
}

// ValidateEmail checks syntax, the generic-mailbox rule and MX presence, and
// flags addresses whose domain differs from website.
func (v *ContactValidator) ValidateEmail(ctx context.Context, email, website string) Verdict {
	normalized := extract.NormalizeEmail(email)
	if normalized == "" {
		return Verdict{Reason: ReasonInvalid}
	}
	domain := extract.EmailDomain(normalized)
	if !isDomainValid(domain) {
		return Verdict{Reason: ReasonInvalid}
	}
	if v.extractor.IsGeneric(normalized) {
		return Verdict{Reason: ReasonGeneric}
	}
	if v.mx != nil && !v.mx.HasMX(ctx, domain) {
		return Verdict{Reason: ReasonNoMX}
	}

	verdict := Verdict{OK: true}
	if website != "" {
		if site := crawler.Domain(website); site != "" && !extract.SameSite(domain, site) {
			verdict.DomainMismatch = true
			v.log.Debug("email domain differs from website",
				zap.String("email_domain", domain), zap.String("website", site))
		}
	}
	return verdict
}

// IsMobile reports whether phone is a mobile number, either by the German
// prefix rule or by the numbering plan of the configured region.
func (v *ContactValidator) IsMobile(phone string) bool {
	if extract.IsGermanMobile(phone) {
		return true
	}
	number, err := phonenumbers.Parse(phone, v.region)
	if err != nil {
		return false
	}
	switch phonenumbers.GetNumberType(number) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
		return true
	default:
		return false
	}
}

// IsValidPhone reports whether phone has enough digits and parses as a
// possible number for the configured region.
func (v *ContactValidator) IsValidPhone(phone string) bool {
	if !v.extractor.HasPhoneDigits(phone) {
		return false
	}
	number, err := phonenumbers.Parse(phone, v.region)
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(number)
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}
