package nhrp

import "nhrpd/internal/wire"

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// commonHeaderLen is the total wire length of h: the fixed prefix plus its
// four variable-length addresses.
func commonHeaderLen(h *CommonHeader) int {
	return wire.CommonHeaderLen + len(h.SrcNBMAAddr) + len(h.SrcNBMASubAddr) + len(h.SrcProtoAddr) + len(h.DstProtoAddr)
}

// cieLen is the total wire length of c.
func cieLen(c *CIE) int {
	return wire.CIEFixedLen + len(c.ClientNBMAAddr) + len(c.ClientNBMASubAddr) + len(c.ClientProtoAddr)
}

// decodeCommonHeader copies an OperationView's fields into an owned
// CommonHeader. The caller guarantees v's window is already length-checked.
func decodeCommonHeader(v wire.OperationView) CommonHeader {
	return CommonHeader{
		SHTL:           v.SHTL(),
		SSTL:           v.SSTL(),
		SrcProtoLen:    v.SrcProtoLen(),
		DstProtoLen:    v.DstProtoLen(),
		Flags:          v.Flags(),
		RequestID:      v.RequestID(),
		SrcNBMAAddr:    cloneBytes(v.SrcNBMAAddr()),
		SrcNBMASubAddr: cloneBytes(v.SrcNBMASubAddr()),
		SrcProtoAddr:   cloneBytes(v.SrcProtoAddr()),
		DstProtoAddr:   cloneBytes(v.DstProtoAddr()),
	}
}

func encodeCommonHeader(b []byte, h *CommonHeader) {
	v := wire.NewOperationView(b)
	v.SetSHTL(wire.AddrTL{Type: h.SHTL.Type, Len: uint8(len(h.SrcNBMAAddr))})
	v.SetSSTL(wire.AddrTL{Type: h.SSTL.Type, Len: uint8(len(h.SrcNBMASubAddr))})
	v.SetSrcProtoLen(uint8(len(h.SrcProtoAddr)))
	v.SetDstProtoLen(uint8(len(h.DstProtoAddr)))
	v.SetFlags(h.Flags)
	v.SetRequestID(h.RequestID)

	off := wire.CommonHeaderLen
	off += copy(b[off:], h.SrcNBMAAddr)
	off += copy(b[off:], h.SrcNBMASubAddr)
	off += copy(b[off:], h.SrcProtoAddr)
	copy(b[off:], h.DstProtoAddr)
}

func decodeCIE(v wire.CIEView) CIE {
	return CIE{
		Code:              v.Code(),
		PrefixLength:      v.PrefixLength(),
		MTU:               v.MTU(),
		HoldingTime:       v.HoldingTime(),
		ClientNBMATL:      v.ClientNBMATL(),
		ClientNBMASTL:     v.ClientNBMASubTL(),
		ClientProtoLen:    v.ClientProtoLen(),
		Preference:        v.Preference(),
		ClientNBMAAddr:    cloneBytes(v.ClientNBMAAddr()),
		ClientNBMASubAddr: cloneBytes(v.ClientNBMASubAddr()),
		ClientProtoAddr:   cloneBytes(v.ClientProtoAddr()),
	}
}

func encodeCIE(b []byte, c *CIE) {
	v := wire.NewCIEView(b)
	v.SetCode(c.Code)
	v.SetPrefixLength(c.PrefixLength)
	v.SetMTU(c.MTU)
	v.SetHoldingTime(c.HoldingTime)
	v.SetClientNBMATL(wire.AddrTL{Type: c.ClientNBMATL.Type, Len: uint8(len(c.ClientNBMAAddr))})
	v.SetClientNBMASubTL(wire.AddrTL{Type: c.ClientNBMASTL.Type, Len: uint8(len(c.ClientNBMASubAddr))})
	v.SetClientProtoLen(uint8(len(c.ClientProtoAddr)))
	v.SetPreference(c.Preference)

	off := wire.CIEFixedLen
	off += copy(b[off:], c.ClientNBMAAddr)
	off += copy(b[off:], c.ClientNBMASubAddr)
	copy(b[off:], c.ClientProtoAddr)
}

func decodeExtension(v wire.ExtensionView) Extension {
	return Extension{
		Compulsory: v.Compulsory(),
		Type:       v.Type(),
		Payload:    cloneBytes(v.Payload()),
	}
}

func encodeExtension(b []byte, e *Extension) {
	v := wire.NewExtensionView(b)
	v.SetHeader(e.Compulsory, e.Type)
	v.SetPayloadLen(uint16(len(e.Payload)))
	copy(b[wire.ExtensionFixedLen:], e.Payload)
}

func extensionLen(e *Extension) int { return wire.ExtensionFixedLen + len(e.Payload) }
