// Package smtpverify checks whether guessed mailboxes exist by walking an SMTP
// dialogue up to RCPT TO. It never sends DATA, so no mail is delivered.
package smtpverify

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/contact-enricher/internal/entity"
	"github.com/octobees/contact-enricher/internal/service/names"
)

// Result codes reported in SmtpGuessResult.Error.
const (
	CodeNoCandidates      = "no_candidates"
	CodeNoMX              = "no_mx_record"
	CodeConnectTimeout    = "connect_timeout"
	CodeConnectionRefused = "connection_refused"
	CodeHostUnreachable   = "host_unreachable"
	CodeNetworkError      = "network_error"
	CodeGreylisted        = "greylisted"
	CodeTimeout           = "timeout"

	codeGreetingRejected = "greeting_rejected"
	codeEHLORejected     = "ehlo_rejected"
	codeMailFromRejected = "mail_from_rejected"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultPort         = 25
	defaultSenderDomain = "example.com"
)

// MXChecker is the slice of mxcheck.Checker the verifier needs.
type MXChecker interface {
	HasMX(ctx context.Context, domain string) bool
	PrimaryHost(ctx context.Context, domain string) (string, error)
}

// Options tunes a Verifier. Zero values take defaults.
type Options struct {
	Port         int
	SenderDomain string
	// Templates overrides the candidate address patterns.
	Templates   []string
	MaxAttempts int
}

// Verifier probes candidate mailboxes on a domain's primary mail exchanger.
type Verifier struct {
	transport Transport
	mx        MXChecker
	opts      Options
	log       *zap.Logger
	probeName func() string
}

// New builds a Verifier.
func New(transport Transport, mx MXChecker, opts Options, log *zap.Logger) *Verifier {
	if opts.Port <= 0 {
		opts.Port = defaultPort
	}
	if opts.SenderDomain == "" {
		opts.SenderDomain = defaultSenderDomain
	}
	if opts.MaxAttempts <= 0 || opts.MaxAttempts > names.MaxCandidates {
		opts.MaxAttempts = names.MaxCandidates
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{
		transport: transport,
		mx:        mx,
		opts:      opts,
		log:       log,
		probeName: randomMailbox,
	}
}

// Verify looks for a deliverable personal address for first/last at domain.
// Failures are reported through the result's Error code, never returned.
func (v *Verifier) Verify(ctx context.Context, first, last, domain string) entity.SmtpGuessResult {
	domain = strings.ToLower(strings.TrimSpace(domain))
	candidates := names.Candidates(first, last, domain, v.opts.Templates)
	if len(candidates) == 0 {
		return entity.SmtpGuessResult{Error: CodeNoCandidates}
	}

	host, err := v.mx.PrimaryHost(ctx, domain)
	if err != nil {
		v.log.Debug("smtp verify skipped", zap.String("domain", domain), zap.Error(err))
		return entity.SmtpGuessResult{Error: CodeNoMX}
	}

	s := &session{
		v:          v,
		addr:       net.JoinHostPort(host, strconv.Itoa(v.opts.Port)),
		domain:     domain,
		candidates: candidates[:min(len(candidates), v.opts.MaxAttempts)],
		log:        v.log.With(zap.String("domain", domain), zap.String("mx", host)),
	}
	result := s.run(ctx)

	if unreachable(result.Error) && v.mx.HasMX(ctx, domain) {
		guess := names.Address(names.FirstDotLast, first, last, domain)
		s.log.Info("smtp port unreachable, using unverified guess",
			zap.String("code", result.Error), zap.String("email", guess))
		return entity.SmtpGuessResult{VerifiedEmail: &guess, Unverified: true}
	}
	return result
}

func randomMailbox() string {
	return "nx-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

type state int

const (
	stateDisconnected state = iota
	stateConnected
	stateGreeted
	stateSenderAccepted
	stateCatchAllProbe
	stateProbing
	stateDone
)

func (s state) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnected:
		return "connected"
	case stateGreeted:
		return "greeted"
	case stateSenderAccepted:
		return "sender_accepted"
	case stateCatchAllProbe:
		return "catch_all_probe"
	case stateProbing:
		return "probing"
	default:
		return "done"
	}
}

// session is one pass of the verification state machine. Each step consumes
// at most one server reply and picks the next state.
type session struct {
	v          *Verifier
	addr       string
	domain     string
	candidates []string
	log        *zap.Logger

	state      state
	conn       Conn
	broken     bool
	catchAllOK bool
	next       int
	result     entity.SmtpGuessResult
}

func (s *session) run(ctx context.Context) entity.SmtpGuessResult {
	defer s.hangUp(ctx)
	for s.state != stateDone {
		prev := s.state
		s.state = s.step(ctx)
		s.log.Debug("smtp transition", zap.Stringer("from", prev), zap.Stringer("to", s.state))
	}
	return s.result
}

func (s *session) step(ctx context.Context) state {
	switch s.state {
	case stateDisconnected:
		conn, err := s.v.transport.Dial(ctx, s.addr)
		if err != nil {
			return s.fail(dialErrorCode(err), err)
		}
		s.conn = conn
		return stateConnected

	case stateConnected:
		reply, err := s.conn.Greeting(ctx)
		if err != nil {
			s.broken = true
			return s.fail(ioErrorCode(err), err)
		}
		if reply.Code != 220 {
			return s.reject(codeGreetingRejected, reply)
		}
		return s.hello(ctx)

	case stateGreeted:
		return s.mailFrom(ctx)

	case stateSenderAccepted:
		if !s.catchAllOK {
			return stateCatchAllProbe
		}
		return stateProbing

	case stateCatchAllProbe:
		s.catchAllOK = true
		s.result.PatternsTried++
		reply, ok := s.command(ctx, rcptTo(s.v.probeName()+"@"+s.domain))
		if !ok {
			return stateDone
		}
		switch {
		case reply.OK():
			best := s.candidates[0]
			s.result.CatchAll = true
			s.result.VerifiedEmail = &best
			return stateDone
		case reply.Greylisted():
			s.result.Error = CodeGreylisted
			return stateDone
		}
		return s.reset(ctx)

	case stateProbing:
		if s.next >= len(s.candidates) {
			return stateDone
		}
		candidate := s.candidates[s.next]
		s.next++
		s.result.PatternsTried++
		reply, ok := s.command(ctx, rcptTo(candidate))
		if !ok {
			return stateDone
		}
		switch {
		case reply.OK():
			s.result.VerifiedEmail = &candidate
			return stateDone
		case reply.Greylisted():
			s.result.Error = CodeGreylisted
			return stateDone
		}
		if s.next >= len(s.candidates) {
			return stateDone
		}
		return s.reset(ctx)
	}
	return stateDone
}

// hello sends EHLO and falls back to HELO once for servers that predate ESMTP.
func (s *session) hello(ctx context.Context) state {
	reply, ok := s.command(ctx, "EHLO "+s.v.opts.SenderDomain)
	if !ok {
		return stateDone
	}
	if reply.OK() {
		return stateGreeted
	}
	reply, ok = s.command(ctx, "HELO "+s.v.opts.SenderDomain)
	if !ok {
		return stateDone
	}
	if !reply.OK() {
		return s.reject(codeEHLORejected, reply)
	}
	return stateGreeted
}

func (s *session) mailFrom(ctx context.Context) state {
	reply, ok := s.command(ctx, "MAIL FROM:<verify@"+s.v.opts.SenderDomain+">")
	if !ok {
		return stateDone
	}
	if !reply.OK() {
		return s.reject(codeMailFromRejected, reply)
	}
	return stateSenderAccepted
}

// reset aborts the current transaction and opens a new one.
func (s *session) reset(ctx context.Context) state {
	if _, ok := s.command(ctx, "RSET"); !ok {
		return stateDone
	}
	return s.mailFrom(ctx)
}

func (s *session) command(ctx context.Context, line string) (Reply, bool) {
	reply, err := s.conn.Command(ctx, line)
	if err != nil {
		s.broken = true
		s.fail(ioErrorCode(err), err)
		return Reply{}, false
	}
	s.log.Debug("smtp reply", zap.String("command", verb(line)), zap.Int("code", reply.Code))
	return reply, true
}

func (s *session) fail(code string, err error) state {
	s.result.Error = code
	s.log.Debug("smtp session failed", zap.String("code", code), zap.Error(err))
	return stateDone
}

func (s *session) reject(prefix string, reply Reply) state {
	s.result.Error = prefix + ":" + strconv.Itoa(reply.Code)
	s.log.Debug("smtp command rejected", zap.String("code", s.result.Error), zap.String("message", reply.Message))
	return stateDone
}

// hangUp ends the session with QUIT unless the link already failed, and
// always releases the socket.
func (s *session) hangUp(ctx context.Context) {
	if s.conn == nil {
		return
	}
	if !s.broken {
		if _, err := s.conn.Command(ctx, "QUIT"); err != nil {
			s.log.Debug("smtp quit failed", zap.Error(err))
		}
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("smtp close failed", zap.Error(err))
	}
}

func rcptTo(addr string) string {
	return "RCPT TO:<" + addr + ">"
}
