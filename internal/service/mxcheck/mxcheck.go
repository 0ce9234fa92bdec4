// Package mxcheck answers mail-exchange questions about a domain.
package mxcheck

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// ErrNoMX is returned when a domain has no usable mail exchanger.
var ErrNoMX = eris.New("no mx record")

const defaultTimeout = 5 * time.Second

// Resolver abstracts DNS lookups to simplify testing.
type Resolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// SystemResolver resolves through the host's configured DNS servers.
type SystemResolver struct{}

func (SystemResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}

// Checker performs bounded MX lookups.
type Checker struct {
	resolver Resolver
	timeout  time.Duration
	log      *zap.Logger
}

// New builds a Checker. A nil resolver uses the system resolver.
func New(resolver Resolver, timeout time.Duration, log *zap.Logger) *Checker {
	if resolver == nil {
		resolver = SystemResolver{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{resolver: resolver, timeout: timeout, log: log}
}

// HasMX reports whether domain can receive mail. It fails open only on
// transient lookup errors (timeouts, SERVFAIL, refused connections), which
// count as true. It returns false for an authoritative NXDOMAIN, an empty MX
// answer, or a domain that is not a valid host name, so those addresses are
// rejected rather than assumed deliverable.
func (c *Checker) HasMX(ctx context.Context, domain string) bool {
	records, err := c.lookup(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false
		}
		if errors.Is(err, ErrNoMX) {
			return false
		}
		c.log.Debug("mx lookup failed, assuming deliverable", zap.String("domain", domain), zap.Error(err))
		return true
	}
	return len(records) > 0
}

// PrimaryHost returns the exchanger with the lowest preference value.
func (c *Checker) PrimaryHost(ctx context.Context, domain string) (string, error) {
	records, err := c.lookup(ctx, domain)
	if err != nil {
		return "", eris.Wrapf(ErrNoMX, "lookup %s: %v", domain, err)
	}
	if len(records) == 0 {
		return "", eris.Wrapf(ErrNoMX, "lookup %s: empty answer", domain)
	}
	sorted := make([]*net.MX, 0, len(records))
	for _, r := range records {
		if r != nil && strings.Trim(r.Host, ".") != "" {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return "", eris.Wrapf(ErrNoMX, "lookup %s: null mx", domain)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Pref < sorted[j].Pref })
	return strings.TrimSuffix(sorted[0].Host, "."), nil
}

func (c *Checker) lookup(ctx context.Context, domain string) ([]*net.MX, error) {
	ascii, err := ToASCII(domain)
	if err != nil {
		return nil, eris.Wrapf(ErrNoMX, "invalid domain %q", domain)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.resolver.LookupMX(ctx, ascii)
}

// ToASCII lower-cases a domain and converts it to its punycode form.
func ToASCII(domain string) (string, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" || !strings.Contains(domain, ".") {
		return "", eris.Errorf("invalid domain %q", domain)
	}
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", eris.Wrap(err, "idna")
	}
	return ascii, nil
}
