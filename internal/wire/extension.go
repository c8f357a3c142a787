package wire

import (
	"encoding/binary"

	"nhrpd/internal/errs"
)

// ExtensionFixedLen is the 4-octet extension header before its payload.
const ExtensionFixedLen = 4

// EndOfExtensions is the sentinel extension type that terminates the list.
const EndOfExtensions uint16 = 0x0000

const compulsoryBit = 0x8000
const extTypeMask = 0x3FFF

// ExtensionView is a zero-copy accessor over a single extension.
type ExtensionView struct {
	b []byte
}

func NewExtensionView(b []byte) ExtensionView { return ExtensionView{b: b} }

func NewExtensionViewChecked(b []byte) (ExtensionView, error) {
	if len(b) < ExtensionFixedLen {
		return ExtensionView{}, errs.Newf(errs.Truncated, "extension needs %d bytes, got %d", ExtensionFixedLen, len(b))
	}
	v := ExtensionView{b: b}
	if len(b) < v.Len() {
		return ExtensionView{}, errs.Newf(errs.Truncated, "extension declares %d bytes, got %d", v.Len(), len(b))
	}
	return v, nil
}

func (v ExtensionView) composite() uint16 { return binary.BigEndian.Uint16(v.b[0:2]) }

func (v ExtensionView) Compulsory() bool { return v.composite()&compulsoryBit != 0 }

func (v ExtensionView) Type() uint16 { return v.composite() & extTypeMask }

func (v ExtensionView) SetHeader(compulsory bool, typ uint16) {
	c := typ & extTypeMask
	if compulsory {
		c |= compulsoryBit
	}
	binary.BigEndian.PutUint16(v.b[0:2], c)
}

func (v ExtensionView) PayloadLen() uint16 { return binary.BigEndian.Uint16(v.b[2:4]) }
func (v ExtensionView) SetPayloadLen(n uint16) {
	binary.BigEndian.PutUint16(v.b[2:4], n)
}

func (v ExtensionView) Payload() []byte {
	return v.b[ExtensionFixedLen : ExtensionFixedLen+int(v.PayloadLen())]
}

// Len is the total byte length of this extension entry.
func (v ExtensionView) Len() int { return ExtensionFixedLen + int(v.PayloadLen()) }

// IsEndOfExtensions reports whether this entry is the 0x0000 sentinel.
func (v ExtensionView) IsEndOfExtensions() bool { return v.Type() == EndOfExtensions }

// ExtIter walks an extension window entry by entry. It fuses on a malformed
// entry, and it fuses after yielding the End-Of-Extensions sentinel once.
type ExtIter struct {
	b    []byte
	pos  int
	done bool
}

func NewExtIter(b []byte) *ExtIter { return &ExtIter{b: b} }

func (it *ExtIter) Next() (ExtensionView, bool) {
	if it.done || it.pos >= len(it.b) {
		return ExtensionView{}, false
	}
	v, err := NewExtensionViewChecked(it.b[it.pos:])
	if err != nil {
		it.done = true
		return ExtensionView{}, false
	}
	it.pos += v.Len()
	if v.IsEndOfExtensions() {
		it.done = true
	}
	return v, true
}
