// Package server drives the single-goroutine request/response loop: read
// one datagram, dispatch it to a handler, write the reply, repeat. This
// is the Go realization of the protocol core's single-threaded
// cooperative scheduler — the loop itself is intentionally
// straight-line, since every suspension point (socket read, socket
// write, peer-table lock) is already handled by the libraries it calls.
package server

import (
	"context"
	"log/slog"
	"time"

	"nhrpd/internal/dispatch"
	"nhrpd/internal/errs"
	"nhrpd/internal/nhrp"
	"nhrpd/internal/peertable"
	"nhrpd/internal/transport"
)

// Server owns the framed transport, the operation router, and the
// shared peer table's prune schedule.
type Server struct {
	Transport *transport.Transport
	Router    *dispatch.Router
	Table     *peertable.Table
	Logger    *slog.Logger
	Stats     *Stats

	// PruneInterval controls how often the peer table is swept for
	// expired bindings. Zero disables pruning; see DESIGN.md for why
	// this agent prunes by default where the teacher's own equivalent
	// method is never called from production code.
	PruneInterval time.Duration
}

// Run drives the loop until ctx is cancelled or a non-recoverable
// transport error occurs. Malformed inbound datagrams and handler
// errors are logged and do not stop the loop — RFC 2332 agents are
// expected to tolerate malformed peers.
func (s *Server) Run(ctx context.Context) error {
	if s.PruneInterval > 0 {
		go s.pruneLoop(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		in, err := s.Transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errs.IsTruncated(err) || errs.IsInvalid(err) || errs.IsNotImplemented(err) {
				s.Logger.Warn("dropping malformed inbound datagram", "err", err)
				continue
			}
			return err
		}

		reply, err := s.Router.Dispatch(ctx, in.Message, in.From)
		if err != nil {
			if errs.IsNotImplemented(err) {
				s.Logger.Debug("no reply for unserved operation", "optype", in.Message.Header.OpType, "err", err)
				continue
			}
			s.Logger.Warn("handler error", "optype", in.Message.Header.OpType, "err", err)
			continue
		}
		if reply == nil {
			continue
		}

		s.recordStats(in.Message.Header.OpType)

		if err := s.Transport.Send(reply, in.From); err != nil {
			s.Logger.Warn("send reply failed", "to", in.From, "err", err)
		}
	}
}

func (s *Server) recordStats(op nhrp.NhrpOp) {
	if s.Stats == nil {
		return
	}
	switch op {
	case nhrp.OpRegistrationRequest:
		s.Stats.recordRegistration()
	case nhrp.OpPurgeRequest:
		s.Stats.recordPurge()
	case nhrp.OpResolutionRequest:
		s.Stats.recordResolution()
	}
}

func (s *Server) pruneLoop(ctx context.Context) {
	t := time.NewTicker(s.PruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Table.Prune(); n > 0 {
				s.Logger.Debug("pruned expired bindings", "count", n)
			}
		}
	}
}
