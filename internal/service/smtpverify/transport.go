package smtpverify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
)

// Reply is one complete server response. Multi-line replies are joined.
type Reply struct {
	Code    int
	Message string
}

func (r Reply) OK() bool { return r.Code == 250 }

// Greylisted reports a temporary rejection that asks the sender to retry later.
func (r Reply) Greylisted() bool {
	return r.Code == 450 || r.Code == 451 || r.Code == 452
}

// Conn is a single mail-transport session: send one line, wait for one reply.
type Conn interface {
	Greeting(ctx context.Context) (Reply, error)
	Command(ctx context.Context, line string) (Reply, error)
	Close() error
}

// Transport opens sessions to a mail exchanger.
type Transport interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// TCPTransport speaks plain SMTP over TCP. Every read and write is bounded by
// CommandTimeout.
type TCPTransport struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	// DialContext overrides the dialer, mainly for tests.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

func (t *TCPTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	connectTimeout := t.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dial := t.DialContext
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	nc, err := dial(dctx, "tcp", addr)
	if err != nil {
		return nil, eris.Wrapf(err, "dial %s", addr)
	}
	commandTimeout := t.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = defaultTimeout
	}
	return &tcpConn{nc: nc, text: textproto.NewConn(nc), timeout: commandTimeout}, nil
}

type tcpConn struct {
	nc      net.Conn
	text    *textproto.Conn
	timeout time.Duration
}

func (c *tcpConn) Greeting(ctx context.Context) (Reply, error) {
	if err := c.nc.SetDeadline(c.deadline(ctx)); err != nil {
		return Reply{}, eris.Wrap(err, "set deadline")
	}
	return c.read()
}

func (c *tcpConn) Command(ctx context.Context, line string) (Reply, error) {
	if err := c.nc.SetDeadline(c.deadline(ctx)); err != nil {
		return Reply{}, eris.Wrap(err, "set deadline")
	}
	if err := c.text.PrintfLine("%s", line); err != nil {
		return Reply{}, eris.Wrapf(err, "write %s", verb(line))
	}
	return c.read()
}

func (c *tcpConn) Close() error {
	return c.text.Close()
}

func (c *tcpConn) read() (Reply, error) {
	code, msg, err := c.text.ReadResponse(0)
	if err != nil {
		return Reply{}, eris.Wrap(err, "read reply")
	}
	return Reply{Code: code, Message: msg}, nil
}

func (c *tcpConn) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

func verb(line string) string {
	v, _, _ := strings.Cut(line, " ")
	return strings.ToUpper(v)
}

// dialErrorCode maps a connection failure to its result code.
func dialErrorCode(err error) string {
	switch {
	case isTimeout(err):
		return CodeConnectTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return CodeHostUnreachable
	default:
		return CodeNetworkError
	}
}

// ioErrorCode maps a failure on an established session to its result code.
func ioErrorCode(err error) string {
	if isTimeout(err) {
		return CodeTimeout
	}
	return CodeNetworkError
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// unreachable reports the dial outcomes after which a best-guess address may
// still be synthesized.
func unreachable(code string) bool {
	return code == CodeConnectTimeout || code == CodeConnectionRefused || code == CodeHostUnreachable
}
