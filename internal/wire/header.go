package wire

import (
	"encoding/binary"

	"nhrpd/internal/errs"
)

// HeaderLen is the fixed 18-octet NHRP fixed header length (RFC 2332 §5.2).
const HeaderLen = 18

// Fixed-header field offsets.
const (
	offAFN       = 0
	offProtoType = 2
	offSnap      = 4
	offHopCount  = 9
	offPktSize   = 10
	offChecksum  = 12
	offExtOffset = 14
	offVersion   = 16
	offOpType    = 17
)

// HeaderView is a zero-copy accessor over the fixed header octets of an
// NHRP packet. It never decodes a field into a richer type than the plain
// integer or byte-slice the wire carries.
type HeaderView struct {
	b []byte
}

// NewHeaderView wraps b without any length check; out-of-range accessors
// panic the way a slice index out of bounds always does.
func NewHeaderView(b []byte) HeaderView { return HeaderView{b: b} }

// NewHeaderViewChecked fails with Truncated if b is shorter than the fixed
// header.
func NewHeaderViewChecked(b []byte) (HeaderView, error) {
	if len(b) < HeaderLen {
		return HeaderView{}, errs.Newf(errs.Truncated, "fixed header needs %d bytes, got %d", HeaderLen, len(b))
	}
	return HeaderView{b: b}, nil
}

func (h HeaderView) AFN() uint16 { return binary.BigEndian.Uint16(h.b[offAFN:]) }
func (h HeaderView) SetAFN(v uint16) {
	binary.BigEndian.PutUint16(h.b[offAFN:], v)
}

func (h HeaderView) ProtoTypeRaw() uint16 { return binary.BigEndian.Uint16(h.b[offProtoType:]) }
func (h HeaderView) SetProtoTypeRaw(v uint16) {
	binary.BigEndian.PutUint16(h.b[offProtoType:], v)
}

func (h HeaderView) Snap() []byte { return h.b[offSnap : offSnap+5] }
func (h HeaderView) SetSnap(snap [5]byte) {
	copy(h.b[offSnap:offSnap+5], snap[:])
}

func (h HeaderView) HopCount() uint8     { return h.b[offHopCount] }
func (h HeaderView) SetHopCount(v uint8) { h.b[offHopCount] = v }

func (h HeaderView) PktSize() uint16 { return binary.BigEndian.Uint16(h.b[offPktSize:]) }
func (h HeaderView) SetPktSize(v uint16) {
	binary.BigEndian.PutUint16(h.b[offPktSize:], v)
}

func (h HeaderView) Checksum() uint16 { return binary.BigEndian.Uint16(h.b[offChecksum:]) }
func (h HeaderView) SetChecksum(v uint16) {
	binary.BigEndian.PutUint16(h.b[offChecksum:], v)
}

func (h HeaderView) ExtOffset() uint16 { return binary.BigEndian.Uint16(h.b[offExtOffset:]) }
func (h HeaderView) SetExtOffset(v uint16) {
	binary.BigEndian.PutUint16(h.b[offExtOffset:], v)
}

func (h HeaderView) Version() uint8     { return h.b[offVersion] }
func (h HeaderView) SetVersion(v uint8) { h.b[offVersion] = v }

func (h HeaderView) OpType() uint8     { return h.b[offOpType] }
func (h HeaderView) SetOpType(v uint8) { h.b[offOpType] = v }

// CalculateChecksum computes the RFC 1071 checksum over the whole packet
// (h.b, truncated to PktSize when it fits) with the checksum field treated
// as zero. This is the value Emit stores into the checksum field, not a
// verification of an already-emitted buffer — use SelfCheck for that.
func (h HeaderView) CalculateChecksum() uint16 {
	return RecomputeChecksum(h.b[:h.checksumEnd()])
}

// SelfCheck sums the packet (h.b, truncated to PktSize when it fits) as it
// actually stands, checksum field included. Per the RFC 1071 self-check
// property, a correctly stamped buffer sums to zero; a buffer that has been
// mutated anywhere within the summed range will not.
func (h HeaderView) SelfCheck() uint16 {
	return Checksum(h.b[:h.checksumEnd()])
}

func (h HeaderView) checksumEnd() int {
	end := len(h.b)
	if p := int(h.PktSize()); p > 0 && p <= len(h.b) {
		end = p
	}
	return end
}
