package nhrp

import "nhrpd/internal/wire"

// FixedHeader is the owned, decoded form of the 18-octet NHRP fixed
// header.
type FixedHeader struct {
	AFN       uint16
	ProtoType ProtocolClass
	Snap      [5]byte
	HopCount  uint8
	PktSize   uint16
	Checksum  uint16
	ExtOffset uint16
	Version   uint8
	OpType    NhrpOp
}

// CIE status codes that matter to this agent; the rest of the code space
// is operation-specific and passed through verbatim.
const (
	CIESuccess         uint8 = 0
	CIENoBindingExists uint8 = 13
)

// CommonHeader is the owned, decoded form of the mandatory part shared by
// every non-Error operation.
type CommonHeader struct {
	SHTL        wire.AddrTL
	SSTL        wire.AddrTL
	SrcProtoLen uint8
	DstProtoLen uint8
	Flags       uint16
	RequestID   uint32

	SrcNBMAAddr    []byte
	SrcNBMASubAddr []byte
	SrcProtoAddr   []byte
	DstProtoAddr   []byte
}

// Flag bits carried in CommonHeader.Flags (RFC 2332 §5.2.3).
const (
	FlagUnique           uint16 = 1 << 15 // Q/U bit
	FlagAuthoritative    uint16 = 1 << 14
	FlagRequesterRouter  uint16 = 1 << 13 // only meaningful on Resolution
	FlagSrcStable        uint16 = 1 << 12
	FlagSrcNAT           uint16 = 1 << 11
	FlagDstStable        uint16 = 1 << 10
)

// CIE is the owned, decoded form of a Client Information Entry.
type CIE struct {
	Code           uint8
	PrefixLength   uint8
	MTU            uint16
	HoldingTime    uint16
	ClientNBMATL   wire.AddrTL
	ClientNBMASTL  wire.AddrTL
	ClientProtoLen uint8
	Preference     uint8

	ClientNBMAAddr    []byte
	ClientNBMASubAddr []byte
	ClientProtoAddr   []byte
}

// Extension is the owned, decoded form of one extension entry.
type Extension struct {
	Compulsory bool
	Type       uint16
	Payload    []byte
}

// IsEndOfExtensions reports whether this is the 0x0000 sentinel.
func (e Extension) IsEndOfExtensions() bool { return e.Type == wire.EndOfExtensions }

// Operation is the tagged operation variant carried by an NhrpMessage.
// Each concrete type below satisfies it.
type Operation interface {
	OpType() NhrpOp
	Common() *CommonHeader
}

// ResolutionRequest carries zero or one optional CIE.
type ResolutionRequest struct {
	CommonHeader
	CIE *CIE
}

func (r *ResolutionRequest) OpType() NhrpOp        { return OpResolutionRequest }
func (r *ResolutionRequest) Common() *CommonHeader { return &r.CommonHeader }

// ResolutionReply always carries exactly one CIE in this agent's own
// replies, but the type accepts a vector per the wire format's generality.
type ResolutionReply struct {
	CommonHeader
	CIEs []CIE
}

func (r *ResolutionReply) OpType() NhrpOp        { return OpResolutionReply }
func (r *ResolutionReply) Common() *CommonHeader { return &r.CommonHeader }

// RegistrationRequest carries a vector of CIEs, one per NBMA/protocol
// address pair being registered.
type RegistrationRequest struct {
	CommonHeader
	CIEs []CIE
}

func (r *RegistrationRequest) OpType() NhrpOp        { return OpRegistrationRequest }
func (r *RegistrationRequest) Common() *CommonHeader { return &r.CommonHeader }

// RegistrationReply carries exactly one CIE, echoed from the request.
type RegistrationReply struct {
	CommonHeader
	CIE CIE
}

func (r *RegistrationReply) OpType() NhrpOp        { return OpRegistrationReply }
func (r *RegistrationReply) Common() *CommonHeader { return &r.CommonHeader }

// PurgeRequest carries a vector of CIEs being withdrawn.
type PurgeRequest struct {
	CommonHeader
	CIEs []CIE
}

func (r *PurgeRequest) OpType() NhrpOp        { return OpPurgeRequest }
func (r *PurgeRequest) Common() *CommonHeader { return &r.CommonHeader }

// PurgeReply echoes the purged CIEs back to the requester.
type PurgeReply struct {
	CommonHeader
	CIEs []CIE
}

func (r *PurgeReply) OpType() NhrpOp        { return OpPurgeReply }
func (r *PurgeReply) Common() *CommonHeader { return &r.CommonHeader }

// NhrpMessage is the complete owned message: fixed header, operation body,
// and an ordered list of extensions.
type NhrpMessage struct {
	Header     FixedHeader
	Op         Operation
	Extensions []Extension
}
