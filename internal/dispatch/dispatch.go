// Package dispatch routes a decoded NHRP message to the handler
// registered for its operation type. Routing is a plain map lookup on
// the fixed header's optype rather than a reflection-based router.
package dispatch

import (
	"context"
	"net"

	"nhrpd/internal/errs"
	"nhrpd/internal/nhrp"
)

// Handler processes one inbound message from a given NBMA source and
// optionally returns a reply to emit back to that same source.
type Handler func(ctx context.Context, msg *nhrp.NhrpMessage, from net.HardwareAddr) (*nhrp.NhrpMessage, error)

// Router maps operation types to handlers. A zero Router has no routes.
type Router struct {
	handlers map[nhrp.NhrpOp]Handler
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[nhrp.NhrpOp]Handler)}
}

// Handle registers fn for op, replacing any existing handler.
func (r *Router) Handle(op nhrp.NhrpOp, fn Handler) {
	r.handlers[op] = fn
}

// Dispatch routes msg to its registered handler. An operation with no
// handler yields NotImplemented, matching Parse's own treatment of
// operation types this agent does not serve.
func (r *Router) Dispatch(ctx context.Context, msg *nhrp.NhrpMessage, from net.HardwareAddr) (*nhrp.NhrpMessage, error) {
	fn, ok := r.handlers[msg.Header.OpType]
	if !ok {
		return nil, errs.Newf(errs.NotImplemented, "no handler registered for operation %v", msg.Header.OpType)
	}
	return fn(ctx, msg, from)
}
