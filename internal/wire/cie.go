package wire

import (
	"encoding/binary"

	"nhrpd/internal/errs"
)

// CIEFixedLen is the fixed prefix of a Client Information Entry, before its
// three variable-length addresses.
const CIEFixedLen = 12

const (
	offCIECode          = 0
	offCIEPrefixLen     = 1
	offCIEReserved      = 2
	offCIEMTU           = 4
	offCIEHoldingTime   = 6
	offCIEClientNBMATL  = 8
	offCIEClientNBMAS   = 9
	offCIEClientProtoLn = 10
	offCIEPreference    = 11
)

// CIEView is a zero-copy accessor over a single Client Information Entry.
type CIEView struct {
	b []byte
}

func NewCIEView(b []byte) CIEView { return CIEView{b: b} }

// NewCIEViewChecked fails with Truncated if b cannot hold the fixed prefix
// and the three addresses it declares.
func NewCIEViewChecked(b []byte) (CIEView, error) {
	if len(b) < CIEFixedLen {
		return CIEView{}, errs.Newf(errs.Truncated, "CIE needs %d bytes, got %d", CIEFixedLen, len(b))
	}
	v := CIEView{b: b}
	if len(b) < v.Len() {
		return CIEView{}, errs.Newf(errs.Truncated, "CIE declares %d bytes, got %d", v.Len(), len(b))
	}
	return v, nil
}

func (v CIEView) Code() uint8     { return v.b[offCIECode] }
func (v CIEView) SetCode(c uint8) { v.b[offCIECode] = c }

func (v CIEView) PrefixLength() uint8     { return v.b[offCIEPrefixLen] }
func (v CIEView) SetPrefixLength(p uint8) { v.b[offCIEPrefixLen] = p }

func (v CIEView) MTU() uint16 { return binary.BigEndian.Uint16(v.b[offCIEMTU:]) }
func (v CIEView) SetMTU(m uint16) {
	binary.BigEndian.PutUint16(v.b[offCIEMTU:], m)
}

func (v CIEView) HoldingTime() uint16 { return binary.BigEndian.Uint16(v.b[offCIEHoldingTime:]) }
func (v CIEView) SetHoldingTime(h uint16) {
	binary.BigEndian.PutUint16(v.b[offCIEHoldingTime:], h)
}

func (v CIEView) ClientNBMATL() AddrTL { return DecodeAddrTL(v.b[offCIEClientNBMATL]) }
func (v CIEView) SetClientNBMATL(a AddrTL) {
	v.b[offCIEClientNBMATL] = a.Encode()
}

func (v CIEView) ClientNBMASubTL() AddrTL { return DecodeAddrTL(v.b[offCIEClientNBMAS]) }
func (v CIEView) SetClientNBMASubTL(a AddrTL) {
	v.b[offCIEClientNBMAS] = a.Encode()
}

func (v CIEView) ClientProtoLen() uint8     { return v.b[offCIEClientProtoLn] }
func (v CIEView) SetClientProtoLen(n uint8) { v.b[offCIEClientProtoLn] = n }

func (v CIEView) Preference() uint8     { return v.b[offCIEPreference] }
func (v CIEView) SetPreference(p uint8) { v.b[offCIEPreference] = p }

func (v CIEView) ClientNBMAAddr() []byte {
	start := CIEFixedLen
	end := start + int(v.ClientNBMATL().Len)
	return v.b[start:end]
}

func (v CIEView) ClientNBMASubAddr() []byte {
	start := CIEFixedLen + int(v.ClientNBMATL().Len)
	end := start + int(v.ClientNBMASubTL().Len)
	return v.b[start:end]
}

func (v CIEView) ClientProtoAddr() []byte {
	start := CIEFixedLen + int(v.ClientNBMATL().Len) + int(v.ClientNBMASubTL().Len)
	end := start + int(v.ClientProtoLen())
	return v.b[start:end]
}

// Len is the total byte length of this entry, used by CIEIter to advance.
func (v CIEView) Len() int {
	return CIEFixedLen + int(v.ClientNBMATL().Len) + int(v.ClientNBMASubTL().Len) + int(v.ClientProtoLen())
}

// CIEIter walks a byte window entry by entry. It is fuse-on-error: once a
// malformed entry is seen, every subsequent Next returns false.
type CIEIter struct {
	b    []byte
	pos  int
	done bool
}

func NewCIEIter(b []byte) *CIEIter { return &CIEIter{b: b} }

// Next returns the next CIE and true, or a zero CIEView and false when the
// window is exhausted or a malformed entry fused the iterator.
func (it *CIEIter) Next() (CIEView, bool) {
	if it.done || it.pos >= len(it.b) {
		return CIEView{}, false
	}
	v, err := NewCIEViewChecked(it.b[it.pos:])
	if err != nil {
		it.done = true
		return CIEView{}, false
	}
	it.pos += v.Len()
	return v, true
}
