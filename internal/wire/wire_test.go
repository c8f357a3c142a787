package wire

import (
	"testing"

	"nhrpd/internal/errs"
)

func TestAddrTLRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   AddrTL
	}{
		{"nsap-zero", AddrTL{Type: NSAP, Len: 0}},
		{"nsap-max", AddrTL{Type: NSAP, Len: 63}},
		{"e164-four", AddrTL{Type: E164, Len: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeAddrTL(tc.in.Encode())
			if got != tc.in {
				t.Fatalf("round trip = %+v, want %+v", got, tc.in)
			}
		})
	}
}

// Values >=64 without the E.164 bit set are accepted on parse as
// NSAP(len&63), never an error.
func TestAddrTLAcceptsOverlongLengthOnParse(t *testing.T) {
	got := DecodeAddrTL(0x45) // bit7=0 (NSAP), low 6 bits = 0x05
	want := AddrTL{Type: NSAP, Len: 0x05}
	if got != want {
		t.Fatalf("DecodeAddrTL(0x45) = %+v, want %+v", got, want)
	}
}

func TestChecksumSelfCheck(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00}
	sum := Checksum(buf)
	buf2 := append([]byte(nil), buf...)
	// Inject the checksum field (bytes 10-11 here, for this ad hoc buffer)
	// and re-sum: RFC 1071 guarantees the result folds to zero.
	buf2[10] = byte(sum >> 8)
	buf2[11] = byte(sum)
	if Checksum(buf2) != 0 {
		t.Fatalf("checksum self-check failed: got %#x", Checksum(buf2))
	}
}

// A declared address length that runs past the end of the buffer must be
// rejected by the checked constructor rather than accepted and left to
// panic later when an address accessor slices past the buffer's end.
func TestNewOperationViewCheckedRejectsOverlongDeclaredAddress(t *testing.T) {
	b := make([]byte, 20)
	b[offSHTL] = 48 // NSAP, length 48: declares far more than the 10 bytes left

	_, err := NewOperationViewChecked(b)
	if err == nil {
		t.Fatalf("expected an error for a declared address length exceeding the buffer")
	}
	if !errs.IsTruncated(err) {
		t.Fatalf("err = %v, want Truncated", err)
	}
}

func TestNewOperationViewCheckedAcceptsExactLength(t *testing.T) {
	b := make([]byte, CommonHeaderLen+4)
	b[offSHTL] = 4 // NSAP, length 4: exactly fills the remaining bytes

	v, err := NewOperationViewChecked(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.SrcNBMAAddr()) != 4 {
		t.Fatalf("SrcNBMAAddr length = %d, want 4", len(v.SrcNBMAAddr()))
	}
}

func TestCIEIterFusesOnMalformedEntry(t *testing.T) {
	good := make([]byte, CIEFixedLen)
	bad := make([]byte, CIEFixedLen-1) // too short to be a valid entry
	b := append(append([]byte{}, good...), bad...)

	it := NewCIEIter(b)
	_, ok := it.Next()
	if !ok {
		t.Fatalf("expected first (well-formed) entry to parse")
	}
	_, ok = it.Next()
	if ok {
		t.Fatalf("expected second (malformed) entry to fuse the iterator")
	}
	_, ok = it.Next()
	if ok {
		t.Fatalf("iterator should stay fused after a malformed entry")
	}
}

func TestExtIterFusesAfterEndOfExtensions(t *testing.T) {
	eoe := make([]byte, ExtensionFixedLen) // type 0, payload len 0 == EOE
	trailing := make([]byte, ExtensionFixedLen)
	trailing[1] = 0x01 // a well-formed but unreachable entry after EOE
	b := append(append([]byte{}, eoe...), trailing...)

	it := NewExtIter(b)
	v, ok := it.Next()
	if !ok || !v.IsEndOfExtensions() {
		t.Fatalf("expected the sentinel to be yielded once")
	}
	_, ok = it.Next()
	if ok {
		t.Fatalf("iterator should fuse after yielding End-Of-Extensions")
	}
}

func TestOperationViewAddressSlicing(t *testing.T) {
	h := make([]byte, CommonHeaderLen+4+4)
	v := NewOperationView(h)
	v.SetSHTL(AddrTL{Type: NSAP, Len: 0})
	v.SetSSTL(AddrTL{Type: NSAP, Len: 0})
	v.SetSrcProtoLen(4)
	v.SetDstProtoLen(4)
	copy(v.SrcProtoAddr(), []byte{10, 0, 0, 2})
	copy(v.DstProtoAddr(), []byte{10, 0, 0, 1})

	if got := v.SrcProtoAddr(); got[0] != 10 || got[3] != 2 {
		t.Fatalf("SrcProtoAddr = %v", got)
	}
	if got := v.DstProtoAddr(); got[0] != 10 || got[3] != 1 {
		t.Fatalf("DstProtoAddr = %v", got)
	}
	if v.Len() != CommonHeaderLen+8 {
		t.Fatalf("Len() = %d, want %d", v.Len(), CommonHeaderLen+8)
	}
}
