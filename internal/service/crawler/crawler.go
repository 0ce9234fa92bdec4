// Package crawler fetches a small, fixed set of pages from a company website
// and aggregates the contact data found on them.
package crawler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/extract"
)

// ErrInvalidURL is returned when a website cannot be turned into a base URL.
var ErrInvalidURL = eris.New("invalid website url")

// DefaultPaths lists the pages visited per site. Imprint and contact pages
// come first; the home page is fetched last.
var DefaultPaths = []string{"/impressum", "/kontakt", "/contact", "/about", "/ueber-uns", "/"}

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	defaultTimeout  = 10 * time.Second
	defaultDelay    = 500 * time.Millisecond
	defaultMaxBody  = 2 << 20
	maxRedirects    = 5
	homePath        = "/"
	acceptedContent = "text/html,text/plain;q=0.9"
)

// HTTPClient abstracts HTTP requests to simplify testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tunes a Crawler. Zero values take defaults.
type Options struct {
	Timeout      time.Duration
	Delay        time.Duration
	UserAgent    string
	Paths        []string
	MaxBodyBytes int64
}

// Result is the aggregate of one crawl.
type Result struct {
	Scraped entity.ScrapedData
	// NameMatch is the personal address found next to the lead's name.
	NameMatch    string
	PagesVisited int
	// Domain is the site's host without a leading "www.".
	Domain string
}

type Crawler struct {
	client    HTTPClient
	extractor *extract.Extractor
	opts      Options
	log       *zap.Logger
}

// NewHTTPClient returns a client that follows at most five redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return eris.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// New builds a Crawler. A nil client uses NewHTTPClient.
func New(client HTTPClient, x *extract.Extractor, opts Options, log *zap.Logger) *Crawler {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	} else if opts.Delay == 0 {
		opts.Delay = defaultDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if len(opts.Paths) == 0 {
		opts.Paths = DefaultPaths
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	if client == nil {
		client = NewHTTPClient(opts.Timeout)
	}
	if x == nil {
		x = extract.New(extract.DefaultRules())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Crawler{client: client, extractor: x, opts: opts, log: log}
}

// NormalizeURL adds a missing https scheme and strips trailing slashes, query
// and fragment.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidURL, "%s: %v", raw, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", eris.Wrapf(ErrInvalidURL, "%s", raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// Domain returns the host of a normalized base URL without "www.".
func Domain(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Crawl visits every configured path of website in order, one at a time,
// pausing Delay after each request completes before starting the next. Failed pages are skipped; only an unusable
// website is an error. needles are the name forms used for proximity matching.
func (c *Crawler) Crawl(ctx context.Context, website string, needles []string) (Result, error) {
	base, err := NormalizeURL(website)
	if err != nil {
		return Result{}, err
	}
	res := Result{Domain: Domain(base)}
	log := c.log.With(zap.String("domain", res.Domain))

	var emails, phones []string
	for i, path := range c.opts.Paths {
		if i > 0 {
			if err := pause(ctx, c.opts.Delay); err != nil {
				log.Debug("crawl stopped", zap.Error(err))
				break
			}
		}
		page, ok := c.fetch(ctx, base+path, log.With(zap.String("path", path)))
		if !ok {
			continue
		}
		res.PagesVisited++
		emails = append(emails, page.Emails...)
		phones = append(phones, page.Phones...)
		if path == homePath && page.Description != "" {
			desc := page.Description
			res.Scraped.Description = &desc
		}
		if res.NameMatch == "" {
			res.NameMatch = c.extractor.NameProximity(page.Lines, needles, res.Domain)
		}
	}

	res.Scraped.Emails = extract.Dedupe(emails)
	res.Scraped.Phones = extract.Dedupe(phones)
	log.Debug("crawl finished",
		zap.Int("pages", res.PagesVisited),
		zap.Int("emails", len(res.Scraped.Emails)),
		zap.Int("phones", len(res.Scraped.Phones)),
		zap.Bool("name_match", res.NameMatch != ""),
	)
	return res, nil
}

func (c *Crawler) fetch(ctx context.Context, target string, log *zap.Logger) (extract.Page, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		log.Debug("crawl request invalid", zap.Error(err))
		return extract.Page{}, false
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", acceptedContent)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("crawl fetch failed", zap.Error(err))
		return extract.Page{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("crawl fetch skipped", zap.Int("status", resp.StatusCode))
		return extract.Page{}, false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		log.Debug("crawl content type unreadable", zap.String("content_type", resp.Header.Get("Content-Type")))
		return extract.Page{}, false
	}

	body := io.LimitReader(resp.Body, c.opts.MaxBodyBytes)
	switch mediaType {
	case "text/html":
		page, err := c.extractor.ParseHTML(body)
		if err != nil {
			log.Debug("crawl parse failed", zap.Error(err))
			return extract.Page{}, false
		}
		return page, true
	case "text/plain":
		raw, err := io.ReadAll(body)
		if err != nil {
			log.Debug("crawl read failed", zap.Error(err))
			return extract.Page{}, false
		}
		return c.extractor.ParseText(string(raw)), true
	default:
		log.Debug("crawl content type skipped", zap.String("content_type", mediaType))
		return extract.Page{}, false
	}
}

// pause blocks for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
