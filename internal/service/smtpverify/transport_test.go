package smtpverify

import (
	"context"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeServer runs a scripted SMTP server on the far end of a net.Pipe.
func pipeServer(t *testing.T, accept string) (*TCPTransport, <-chan []string) {
	t.Helper()
	seen := make(chan []string, 1)
	transport := &TCPTransport{
		ConnectTimeout: time.Second,
		CommandTimeout: time.Second,
		DialContext: func(context.Context, string, string) (net.Conn, error) {
			client, server := net.Pipe()
			go func() {
				defer server.Close()
				var lines []string
				defer func() { seen <- lines }()

				tp := textproto.NewConn(server)
				if err := tp.PrintfLine("220 mx.test ESMTP ready"); err != nil {
					return
				}
				for {
					line, err := tp.ReadLine()
					if err != nil {
						return
					}
					lines = append(lines, line)
					switch {
					case strings.HasPrefix(line, "EHLO"):
						_ = tp.PrintfLine("250-mx.test greets you")
						_ = tp.PrintfLine("250-SIZE 10240000")
						_ = tp.PrintfLine("250 8BITMIME")
					case line == "QUIT":
						_ = tp.PrintfLine("221 bye")
						return
					case strings.HasPrefix(line, "RCPT TO:") && line != "RCPT TO:<"+accept+">":
						_ = tp.PrintfLine("550 5.1.1 user unknown")
					default:
						_ = tp.PrintfLine("250 ok")
					}
				}
			}()
			return client, nil
		},
	}
	return transport, seen
}

func TestTCPTransportSession(t *testing.T) {
	transport, seen := pipeServer(t, "max.mustermann@firma.de")
	v := New(transport, firmaMX(), Options{}, nil)
	v.probeName = func() string { return "nx-probe" }

	got := v.Verify(context.Background(), "max", "mustermann", "firma.de")
	require.NotNil(t, got.VerifiedEmail)
	assert.Equal(t, "max.mustermann@firma.de", *got.VerifiedEmail)
	assert.Equal(t, 3, got.PatternsTried)
	assert.Empty(t, got.Error)

	lines := <-seen
	assert.Equal(t, "EHLO example.com", lines[0])
	assert.Equal(t, "QUIT", lines[len(lines)-1])
}

func TestTCPConnMultilineReply(t *testing.T) {
	transport, _ := pipeServer(t, "")
	conn, err := transport.Dial(context.Background(), "mx.test:25")
	require.NoError(t, err)
	defer conn.Close()

	greeting, err := conn.Greeting(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 220, greeting.Code)

	reply, err := conn.Command(context.Background(), "EHLO example.com")
	require.NoError(t, err)
	assert.Equal(t, 250, reply.Code)
	assert.Contains(t, reply.Message, "8BITMIME")

	reply, err = conn.Command(context.Background(), "QUIT")
	require.NoError(t, err)
	assert.Equal(t, 221, reply.Code)
}

func TestTCPConnReadTimeout(t *testing.T) {
	transport := &TCPTransport{
		CommandTimeout: 50 * time.Millisecond,
		DialContext: func(context.Context, string, string) (net.Conn, error) {
			client, server := net.Pipe()
			t.Cleanup(func() { server.Close() })
			return client, nil
		},
	}
	v := New(transport, firmaMX(), Options{}, nil)
	got := v.Verify(context.Background(), "max", "mustermann", "firma.de")

	assert.Equal(t, CodeTimeout, got.Error)
	assert.Nil(t, got.VerifiedEmail)
}
