// Package transport frames NHRP messages onto a datagram-oriented
// connection. Each underlying datagram carries exactly one NHRP message
// in each direction, so this layer's only job is encode/decode plus
// size accounting — there is no stream reassembly to do.
package transport

import (
	"context"
	"fmt"
	"net"

	"nhrpd/internal/nhrp"
)

// PacketConn is the minimal surface transport needs from the underlying
// raw socket. socket.Conn satisfies it; tests substitute an in-memory
// fake so the framing logic never needs a real NIC.
type PacketConn interface {
	ReadFrom(ctx context.Context, buf []byte) (int, net.HardwareAddr, error)
	WriteTo(buf []byte, dst net.HardwareAddr) error
}

// MaxDatagram bounds a single NHRP datagram. NBMA/mGRE deployments
// virtually always carry an MTU well under this; a message that would
// not fit is a caller bug, not a wire condition to recover from.
const MaxDatagram = 7200

// Inbound pairs a decoded message with the NBMA address it arrived
// from, so a handler can reply without re-deriving the peer's link
// address from the message body.
type Inbound struct {
	Message *nhrp.NhrpMessage
	From    net.HardwareAddr
}

// Transport reads and writes whole NHRP messages over a PacketConn.
type Transport struct {
	conn PacketConn
	buf  []byte
}

// New wraps conn for framed NHRP message exchange.
func New(conn PacketConn) *Transport {
	return &Transport{conn: conn, buf: make([]byte, MaxDatagram)}
}

// Recv blocks for the next inbound datagram and parses it. A malformed
// datagram is reported as an error rather than silently dropped — the
// caller (the server loop) decides whether to log and continue.
func (t *Transport) Recv(ctx context.Context) (*Inbound, error) {
	n, from, err := t.conn.ReadFrom(ctx, t.buf)
	if err != nil {
		return nil, err
	}
	msg, err := nhrp.Parse(t.buf[:n])
	if err != nil {
		return nil, fmt.Errorf("parse inbound datagram from %s: %w", from, err)
	}
	return &Inbound{Message: msg, From: from}, nil
}

// Send emits msg and writes it as a single datagram to dst.
func (t *Transport) Send(msg *nhrp.NhrpMessage, dst net.HardwareAddr) error {
	n := msg.BufferLen()
	if n > MaxDatagram {
		return fmt.Errorf("message of %d bytes exceeds max datagram size %d", n, MaxDatagram)
	}
	buf := make([]byte, n)
	msg.Emit(buf)
	if err := t.conn.WriteTo(buf, dst); err != nil {
		return fmt.Errorf("send to %s: %w", dst, err)
	}
	return nil
}
