package wire

import (
	"encoding/binary"

	"nhrpd/internal/errs"
)

// CommonHeaderLen is the fixed prefix of every non-Error operation's
// mandatory part, before the four variable-length addresses.
const CommonHeaderLen = 10

const (
	offSHTL        = 0
	offSSTL        = 1
	offSrcProtoLen = 2
	offDstProtoLen = 3
	offFlags       = 4
	offRequestID   = 6
)

// OperationView is a zero-copy accessor over a CommonHeader window: the
// fixed 10-octet prefix plus the four variable-length addresses that
// follow it in order (src-NBMA, src-NBMA-subaddr, src-proto, dst-proto).
type OperationView struct {
	b []byte
}

func NewOperationView(b []byte) OperationView { return OperationView{b: b} }

func NewOperationViewChecked(b []byte) (OperationView, error) {
	if len(b) < CommonHeaderLen {
		return OperationView{}, errs.Newf(errs.Truncated, "common header needs %d bytes, got %d", CommonHeaderLen, len(b))
	}
	v := OperationView{b: b}
	if len(b) < v.Len() {
		return OperationView{}, errs.Newf(errs.Truncated, "common header addresses need %d bytes, got %d", v.Len(), len(b))
	}
	return v, nil
}

func (v OperationView) SHTL() AddrTL { return DecodeAddrTL(v.b[offSHTL]) }
func (v OperationView) SetSHTL(a AddrTL) {
	v.b[offSHTL] = a.Encode()
}

func (v OperationView) SSTL() AddrTL { return DecodeAddrTL(v.b[offSSTL]) }
func (v OperationView) SetSSTL(a AddrTL) {
	v.b[offSSTL] = a.Encode()
}

func (v OperationView) SrcProtoLen() uint8     { return v.b[offSrcProtoLen] }
func (v OperationView) SetSrcProtoLen(n uint8) { v.b[offSrcProtoLen] = n }

func (v OperationView) DstProtoLen() uint8     { return v.b[offDstProtoLen] }
func (v OperationView) SetDstProtoLen(n uint8) { v.b[offDstProtoLen] = n }

func (v OperationView) Flags() uint16 { return binary.BigEndian.Uint16(v.b[offFlags:]) }
func (v OperationView) SetFlags(f uint16) {
	binary.BigEndian.PutUint16(v.b[offFlags:], f)
}

func (v OperationView) RequestID() uint32 { return binary.BigEndian.Uint32(v.b[offRequestID:]) }
func (v OperationView) SetRequestID(id uint32) {
	binary.BigEndian.PutUint32(v.b[offRequestID:], id)
}

// fixedEnd is the offset where the variable addresses begin: always
// CommonHeaderLen, named separately so the address accessors below read
// clearly.
func (v OperationView) fixedEnd() int { return CommonHeaderLen }

func (v OperationView) SrcNBMAAddr() []byte {
	start := v.fixedEnd()
	end := start + int(v.SHTL().Len)
	return v.b[start:end]
}

func (v OperationView) SrcNBMASubAddr() []byte {
	start := v.fixedEnd() + int(v.SHTL().Len)
	end := start + int(v.SSTL().Len)
	return v.b[start:end]
}

func (v OperationView) SrcProtoAddr() []byte {
	start := v.fixedEnd() + int(v.SHTL().Len) + int(v.SSTL().Len)
	end := start + int(v.SrcProtoLen())
	return v.b[start:end]
}

func (v OperationView) DstProtoAddr() []byte {
	start := v.fixedEnd() + int(v.SHTL().Len) + int(v.SSTL().Len) + int(v.SrcProtoLen())
	end := start + int(v.DstProtoLen())
	return v.b[start:end]
}

// Len returns the total byte length of the CommonHeader including its four
// addresses — the offset where CIEs begin.
func (v OperationView) Len() int {
	return v.fixedEnd() + int(v.SHTL().Len) + int(v.SSTL().Len) + int(v.SrcProtoLen()) + int(v.DstProtoLen())
}
