// Package research asks a chat-completion API about a lead and parses the
// free-text answer.
package research

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/extract"
)

var (
	// ErrDisabled is returned when no API client is configured.
	ErrDisabled = eris.New("ai research disabled")
	// ErrNoAnswer is returned when the API replied without any content.
	ErrNoAnswer = eris.New("ai research returned no answer")
)

const (
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.1
)

type Options struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type Researcher struct {
	client    ChatClient
	extractor *extract.Extractor
	opts      Options
	log       *zap.Logger
}

// NewResearcher builds a Researcher. A nil client yields one that always
// returns ErrDisabled.
func NewResearcher(client ChatClient, x *extract.Extractor, opts Options, log *zap.Logger) *Researcher {
	if x == nil {
		x = extract.New(extract.DefaultRules())
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Researcher{client: client, extractor: x, opts: opts, log: log}
}

// Research runs one bounded request for lead. Every failure is returned as an
// error so the caller can degrade to "no AI data".
func (r *Researcher) Research(ctx context.Context, lead entity.Lead) (*entity.PerplexityData, error) {
	if r.client == nil {
		return nil, ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	temperature := r.opts.Temperature
	start := time.Now()
	resp, err := r.client.ChatCompletion(ctx, ChatRequest{
		Model: r.opts.Model,
		Messages: []Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildQuery(lead)},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "research request")
	}
	content := strings.TrimSpace(resp.Content())
	if content == "" {
		return nil, ErrNoAnswer
	}

	data := ParseAnswer(content, r.extractor)
	r.log.Debug("ai research answered",
		zap.Duration("latency", time.Since(start)),
		zap.Bool("email", data.Email != nil),
		zap.Bool("phone", data.Phone != nil),
		zap.Bool("description", data.CompanyDescription != nil),
	)
	return &data, nil
}
