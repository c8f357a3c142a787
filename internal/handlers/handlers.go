// Package handlers implements the per-operation request logic: mutate
// the peer table and kernel neighbour sink as needed, then build the
// matching reply operation. Each handler here is grounded directly on
// the per-operation algorithms this agent's protocol core specifies —
// there is no handler-independent shared state beyond the table, the
// sink, and this agent's own device/address configuration.
package handlers

import (
	"context"
	"log/slog"
	"net"
	"time"

	"nhrpd/internal/neighbor"
	"nhrpd/internal/nhrp"
	"nhrpd/internal/peertable"
)

// Handlers bundles the collaborators every per-operation handler needs:
// the shared binding table, the kernel neighbour sink, and the
// interface index bindings are installed against.
type Handlers struct {
	Table     *peertable.Table
	Neighbors neighbor.Sink
	IfIndex   int
	Logger    *slog.Logger
}

// New returns a Handlers ready to register with a dispatch.Router.
func New(table *peertable.Table, sink neighbor.Sink, ifIndex int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Table: table, Neighbors: sink, IfIndex: ifIndex, Logger: logger}
}

func swapProtoAddrs(h nhrp.CommonHeader) nhrp.CommonHeader {
	h.SrcProtoAddr, h.DstProtoAddr = h.DstProtoAddr, h.SrcProtoAddr
	return h
}

// resolveBindingAddrs applies the "cie field, else header field" rule
// shared by Registration and Purge.
func resolveBindingAddrs(cie nhrp.CIE, header nhrp.CommonHeader) (protoAddr, nbmaAddr []byte) {
	protoAddr = cie.ClientProtoAddr
	if len(protoAddr) == 0 {
		protoAddr = header.SrcProtoAddr
	}
	nbmaAddr = cie.ClientNBMAAddr
	if len(nbmaAddr) == 0 {
		nbmaAddr = header.SrcNBMAAddr
	}
	return protoAddr, nbmaAddr
}

// Registration installs a peer-table binding and kernel neighbour entry
// per CIE in the request, then replies with a single echoed CIE marked
// Success.
func (h *Handlers) Registration(ctx context.Context, msg *nhrp.NhrpMessage, from net.HardwareAddr) (*nhrp.NhrpMessage, error) {
	req, ok := msg.Op.(*nhrp.RegistrationRequest)
	if !ok {
		return nil, errNotARegistration(msg)
	}

	var echoed nhrp.CIE
	for _, cie := range req.CIEs {
		protoAddr, nbmaAddr := resolveBindingAddrs(cie, req.CommonHeader)
		h.Table.Insert(protoAddr, nbmaAddr, holdingTime(cie.HoldingTime))

		if err := h.Neighbors.Install(h.IfIndex, net.IP(protoAddr), net.HardwareAddr(nbmaAddr)); err != nil {
			h.Logger.Warn("neighbour install failed", "proto_addr", net.IP(protoAddr), "err", err)
		}
		echoed = cie
	}
	echoed.Code = nhrp.CIESuccess

	reply := &nhrp.RegistrationReply{
		CommonHeader: swapProtoAddrs(req.CommonHeader),
		CIE:          echoed,
	}
	reply.Flags = req.Flags & nhrp.FlagUnique

	return &nhrp.NhrpMessage{
		Header: replyHeader(msg.Header, nhrp.OpRegistrationReply),
		Op:     reply,
	}, nil
}

// Purge removes the peer-table binding and kernel neighbour entry for
// each CIE in the request, then echoes the CIE list back.
func (h *Handlers) Purge(ctx context.Context, msg *nhrp.NhrpMessage, from net.HardwareAddr) (*nhrp.NhrpMessage, error) {
	req, ok := msg.Op.(*nhrp.PurgeRequest)
	if !ok {
		return nil, errNotAPurge(msg)
	}

	for _, cie := range req.CIEs {
		protoAddr, _ := resolveBindingAddrs(cie, req.CommonHeader)
		h.Table.Remove(protoAddr)
		if err := h.Neighbors.Remove(h.IfIndex, net.IP(protoAddr)); err != nil {
			h.Logger.Warn("neighbour remove failed", "proto_addr", net.IP(protoAddr), "err", err)
		}
	}

	reply := &nhrp.PurgeReply{
		CommonHeader: swapProtoAddrs(req.CommonHeader),
		CIEs:         req.CIEs,
	}

	return &nhrp.NhrpMessage{
		Header: replyHeader(msg.Header, nhrp.OpPurgeReply),
		Op:     reply,
	}, nil
}

// Resolution looks up the requested destination and builds a one-CIE
// reply reporting either the binding or NoBindingExists.
func (h *Handlers) Resolution(ctx context.Context, msg *nhrp.NhrpMessage, from net.HardwareAddr) (*nhrp.NhrpMessage, error) {
	req, ok := msg.Op.(*nhrp.ResolutionRequest)
	if !ok {
		return nil, errNotAResolution(msg)
	}

	var prefixLen uint8
	var holdTime uint16
	if req.CIE != nil {
		prefixLen = req.CIE.PrefixLength
		holdTime = req.CIE.HoldingTime
	}

	var cie nhrp.CIE
	if nbmaAddr, ok := h.Table.Lookup(req.DstProtoAddr); ok {
		cie = nhrp.CIE{
			Code:            nhrp.CIESuccess,
			PrefixLength:    prefixLen,
			HoldingTime:     holdTime,
			ClientNBMAAddr:  nbmaAddr,
			ClientProtoAddr: req.DstProtoAddr,
		}
	} else {
		cie = nhrp.CIE{Code: nhrp.CIENoBindingExists}
	}

	replyCommon := swapProtoAddrs(req.CommonHeader)
	replyCommon.Flags = (req.Flags & (nhrp.FlagRequesterRouter | nhrp.FlagUnique)) |
		nhrp.FlagAuthoritative | nhrp.FlagSrcStable | nhrp.FlagDstStable

	reply := &nhrp.ResolutionReply{
		CommonHeader: replyCommon,
		CIEs:         []nhrp.CIE{cie},
	}

	return &nhrp.NhrpMessage{
		Header: replyHeader(msg.Header, nhrp.OpResolutionReply),
		Op:     reply,
	}, nil
}

// holdingTime converts a CIE's wire holding time (seconds, 0 = forever)
// into the peer table's Duration convention.
func holdingTime(seconds uint16) time.Duration {
	if seconds == 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// replyHeader copies the request's fixed header and overwrites its
// optype with the reply's, per the dispatcher's step 3.
func replyHeader(h nhrp.FixedHeader, op nhrp.NhrpOp) nhrp.FixedHeader {
	h.OpType = op
	h.PktSize = 0
	h.Checksum = 0
	h.ExtOffset = 0
	return h
}
