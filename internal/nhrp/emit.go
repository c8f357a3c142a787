package nhrp

import (
	"fmt"

	"nhrpd/internal/wire"
)

// opBodyLen returns the exact octet count the operation's mandatory part
// occupies, independent of where it eventually lands in the buffer.
func opBodyLen(op Operation) int {
	h := op.Common()
	n := commonHeaderLen(h)
	switch o := op.(type) {
	case *ResolutionRequest:
		if o.CIE != nil {
			n += cieLen(o.CIE)
		}
	case *ResolutionReply:
		for i := range o.CIEs {
			n += cieLen(&o.CIEs[i])
		}
	case *RegistrationRequest:
		for i := range o.CIEs {
			n += cieLen(&o.CIEs[i])
		}
	case *RegistrationReply:
		n += cieLen(&o.CIE)
	case *PurgeRequest:
		for i := range o.CIEs {
			n += cieLen(&o.CIEs[i])
		}
	case *PurgeReply:
		for i := range o.CIEs {
			n += cieLen(&o.CIEs[i])
		}
	}
	return n
}

// writeOpBody writes op's mandatory part into b, which must be exactly
// opBodyLen(op) bytes.
func writeOpBody(b []byte, op Operation) {
	h := op.Common()
	encodeCommonHeader(b, h)
	off := commonHeaderLen(h)

	writeCIE := func(c *CIE) {
		encodeCIE(b[off:], c)
		off += cieLen(c)
	}

	switch o := op.(type) {
	case *ResolutionRequest:
		if o.CIE != nil {
			writeCIE(o.CIE)
		}
	case *ResolutionReply:
		for i := range o.CIEs {
			writeCIE(&o.CIEs[i])
		}
	case *RegistrationRequest:
		for i := range o.CIEs {
			writeCIE(&o.CIEs[i])
		}
	case *RegistrationReply:
		writeCIE(&o.CIE)
	case *PurgeRequest:
		for i := range o.CIEs {
			writeCIE(&o.CIEs[i])
		}
	case *PurgeReply:
		for i := range o.CIEs {
			writeCIE(&o.CIEs[i])
		}
	}
}

// extensionsLen returns the byte count the extension list occupies,
// including the trailing End-Of-Extensions sentinel when non-empty.
func extensionsLen(exts []Extension) int {
	if len(exts) == 0 {
		return 0
	}
	n := wire.ExtensionFixedLen // sentinel
	for i := range exts {
		n += extensionLen(&exts[i])
	}
	return n
}

// BufferLen returns the exact octet count m will occupy once emitted.
func (m *NhrpMessage) BufferLen() int {
	return wire.HeaderLen + opBodyLen(m.Op) + extensionsLen(m.Extensions)
}

// Emit writes m into buf, which must be at least BufferLen() bytes. It
// panics if buf is too small — callers always size with BufferLen first.
func (m *NhrpMessage) Emit(buf []byte) int {
	total := m.BufferLen()
	if len(buf) < total {
		panic(fmt.Sprintf("nhrp: Emit buffer too small: need %d, have %d", total, len(buf)))
	}
	buf = buf[:total]

	hv := wire.NewHeaderView(buf)
	hv.SetAFN(m.Header.AFN)
	hv.SetProtoTypeRaw(m.Header.ProtoType.Value)
	hv.SetSnap(m.Header.Snap)
	hv.SetHopCount(m.Header.HopCount)
	hv.SetVersion(m.Header.Version)
	hv.SetOpType(uint8(m.Op.OpType()))
	hv.SetPktSize(0)
	hv.SetExtOffset(0)
	hv.SetChecksum(0)

	bodyLen := opBodyLen(m.Op)
	extOff := wire.HeaderLen + bodyLen
	writeOpBody(buf[wire.HeaderLen:extOff], m.Op)

	extBytes := extensionsLen(m.Extensions)
	if extBytes > 0 {
		off := extOff
		for i := range m.Extensions {
			e := &m.Extensions[i]
			encodeExtension(buf[off:], e)
			off += extensionLen(e)
		}
		// Trailing End-Of-Extensions sentinel.
		sentinel := Extension{Type: wire.EndOfExtensions}
		encodeExtension(buf[off:], &sentinel)
	}

	hv.SetPktSize(uint16(total))
	if extBytes > 0 {
		hv.SetExtOffset(uint16(extOff))
	} else {
		hv.SetExtOffset(0)
	}
	hv.SetChecksum(0)
	hv.SetChecksum(hv.CalculateChecksum())

	return total
}
