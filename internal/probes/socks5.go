// Package probes implements the concrete engine.Job types that drive
// protocol-specific probes: SOCKS5, banner grab, DNS, SNMP, and the existing
// nmap pipeline.
package probes

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/anstrom/probeforge/internal/engine"
)

// Socks5AuthMethod mirrors the handshake's auth-negotiation byte.
type Socks5AuthMethod int

const (
	Socks5AuthNone Socks5AuthMethod = iota
	Socks5AuthGSSAPI
	Socks5AuthCreds
	Socks5AuthNoAcceptableMethods
	Socks5AuthOther
)

func (m Socks5AuthMethod) String() string {
	switch m {
	case Socks5AuthNone:
		return "no-auth"
	case Socks5AuthGSSAPI:
		return "gssapi"
	case Socks5AuthCreds:
		return "creds"
	case Socks5AuthNoAcceptableMethods:
		return "no-acceptable-methods"
	default:
		return "other"
	}
}

// Socks5Result is the engine.Job response for Socks5Scanner: either a
// confirmed SOCKS5 proxy with its negotiated auth method, or a peer that
// responded on the port but didn't speak SOCKS5.
type Socks5Result struct {
	IsSocks5 bool
	Auth     Socks5AuthMethod
	RawByte  byte
}

// Socks5Scanner probes a single address with a minimal SOCKS5 greeting and
// classifies the handshake response.
type Socks5Scanner struct {
	DialTimeout time.Duration
}

// NewSocks5Scanner builds a scanner with the given per-dial timeout.
func NewSocks5Scanner(dialTimeout time.Duration) Socks5Scanner {
	return Socks5Scanner{DialTimeout: dialTimeout}
}

// socks5Greeting requests version 5, one method, no-auth.
var socks5Greeting = [3]byte{5, 1, 0}

// Exec implements engine.Job[net.TCPAddr, Socks5Result].
func (s Socks5Scanner) Exec(ctx context.Context, addr net.TCPAddr) (engine.Signal[Socks5Result], error) {
	dialer := net.Dialer{Timeout: s.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return engine.Classify[Socks5Result](err, Socks5Result{}), nil
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(socks5Greeting[:]); err != nil {
		return engine.Classify[Socks5Result](err, Socks5Result{}), nil
	}

	var resp [2]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return engine.Classify[Socks5Result](err, Socks5Result{}), nil
	}

	if resp[0] != 5 {
		return engine.Success(engine.VerdictOpen, Socks5Result{IsSocks5: false, RawByte: resp[0]}), nil
	}

	return engine.Success(engine.VerdictOpen, Socks5Result{
		IsSocks5: true,
		Auth:     classifyAuthMethod(resp[1]),
		RawByte:  resp[1],
	}), nil
}

func classifyAuthMethod(b byte) Socks5AuthMethod {
	switch b {
	case 0x00:
		return Socks5AuthNone
	case 0x01:
		return Socks5AuthGSSAPI
	case 0x02:
		return Socks5AuthCreds
	case 0xFF:
		return Socks5AuthNoAcceptableMethods
	default:
		return Socks5AuthOther
	}
}

