package enrichment

import (
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/config"
	"github.com/octobees/contact-enricher/internal/service/crawler"
	"github.com/octobees/contact-enricher/internal/service/extract"
	"github.com/octobees/contact-enricher/internal/service/mxcheck"
	"github.com/octobees/contact-enricher/internal/service/names"
	"github.com/octobees/contact-enricher/internal/service/research"
	"github.com/octobees/contact-enricher/internal/service/smtpverify"
)

// NewFromConfig wires the production collaborators. AI research is disabled
// when no API key is configured.
func NewFromConfig(cfg *config.Config, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.NewNop()
	}
	x := extract.New(extract.DefaultRules())
	mx := mxcheck.New(mxcheck.SystemResolver{}, cfg.DNSTimeout, log.Named("mx"))

	site := crawler.New(
		crawler.NewHTTPClient(cfg.Crawl.Timeout),
		x,
		crawler.Options{Timeout: cfg.Crawl.Timeout, Delay: cfg.Crawl.Delay, UserAgent: cfg.Crawl.UserAgent},
		log.Named("crawler"),
	)
	verifier := smtpverify.New(
		&smtpverify.TCPTransport{ConnectTimeout: cfg.SMTP.ConnectTimeout, CommandTimeout: cfg.SMTP.CommandTimeout},
		mx,
		smtpverify.Options{Port: cfg.SMTP.Port, SenderDomain: cfg.SMTP.SenderDomain},
		log.Named("smtp"),
	)

	var chat research.ChatClient
	if cfg.AI.APIKey != "" {
		chat = research.NewClient(cfg.AI.APIKey,
			research.WithBaseURL(cfg.AI.BaseURL),
			research.WithModel(cfg.AI.Model),
		)
	}
	researcher := research.NewResearcher(chat, x, research.Options{
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	}, log.Named("research"))

	return New(Deps{
		Crawler:    site,
		Verifier:   verifier,
		Researcher: researcher,
		MX:         mx,
		Names:      names.NewNormalizer(names.DefaultRules()),
		Extractor:  x,
		Log:        log.Named("enrichment"),
	}, Options{PhoneRegion: cfg.PhoneRegion})
}
