package handlers

import (
	"context"
	"net"
	"testing"
	"time"

	"nhrpd/internal/nhrp"
	"nhrpd/internal/peertable"
	"nhrpd/internal/wire"
)

type fakeSink struct {
	installed map[string][]byte
	removed   []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{installed: make(map[string][]byte)}
}

func (f *fakeSink) Install(ifIndex int, protoAddr net.IP, nbmaAddr net.HardwareAddr) error {
	f.installed[protoAddr.String()] = append([]byte(nil), nbmaAddr...)
	return nil
}

func (f *fakeSink) Remove(ifIndex int, protoAddr net.IP) error {
	f.removed = append(f.removed, protoAddr.String())
	delete(f.installed, protoAddr.String())
	return nil
}

func baseCommon() nhrp.CommonHeader {
	return nhrp.CommonHeader{
		SHTL:         wire.AddrTL{Type: wire.NSAP},
		SSTL:         wire.AddrTL{Type: wire.NSAP},
		RequestID:    7,
		SrcNBMAAddr:  []byte{198, 51, 100, 5},
		SrcProtoAddr: []byte{10, 0, 0, 2},
		DstProtoAddr: []byte{10, 0, 0, 1},
	}
}

func TestRegistrationInsertsBindingAndInstallsNeighbour(t *testing.T) {
	tbl := peertable.New()
	sink := newFakeSink()
	h := New(tbl, sink, 3, nil)

	req := &nhrp.RegistrationRequest{
		CommonHeader: baseCommon(),
		CIEs: []nhrp.CIE{{
			Code:            0,
			HoldingTime:     7200,
			ClientProtoAddr: []byte{10, 0, 0, 2},
			ClientNBMAAddr:  []byte{198, 51, 100, 5},
		}},
	}
	msg := &nhrp.NhrpMessage{
		Header: nhrp.FixedHeader{OpType: nhrp.OpRegistrationRequest},
		Op:     req,
	}

	reply, err := h.Registration(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("Registration: %v", err)
	}

	nbma, ok := tbl.Lookup([]byte{10, 0, 0, 2})
	if !ok {
		t.Fatalf("expected a peer-table binding after Registration")
	}
	if string(nbma) != string([]byte{198, 51, 100, 5}) {
		t.Fatalf("bound NBMA addr = %v", nbma)
	}
	if _, ok := sink.installed["10.0.0.2"]; !ok {
		t.Fatalf("expected kernel neighbour install for 10.0.0.2")
	}

	rr, ok := reply.Op.(*nhrp.RegistrationReply)
	if !ok {
		t.Fatalf("reply op type = %T, want *RegistrationReply", reply.Op)
	}
	if rr.CIE.Code != nhrp.CIESuccess {
		t.Fatalf("reply CIE code = %d, want Success", rr.CIE.Code)
	}
	if reply.Header.OpType != nhrp.OpRegistrationReply {
		t.Fatalf("reply optype = %v, want RegistrationReply", reply.Header.OpType)
	}
	if string(rr.SrcProtoAddr) != string([]byte{10, 0, 0, 1}) || string(rr.DstProtoAddr) != string([]byte{10, 0, 0, 2}) {
		t.Fatalf("reply proto addrs not swapped: src=%v dst=%v", rr.SrcProtoAddr, rr.DstProtoAddr)
	}
}

func TestPurgeRemovesBindingAndNeighbour(t *testing.T) {
	tbl := peertable.New()
	sink := newFakeSink()
	proto := []byte{10, 0, 0, 2}
	tbl.Insert(proto, []byte{198, 51, 100, 5}, time.Hour)
	sink.installed["10.0.0.2"] = []byte{198, 51, 100, 5}

	h := New(tbl, sink, 3, nil)
	req := &nhrp.PurgeRequest{
		CommonHeader: baseCommon(),
		CIEs: []nhrp.CIE{{
			ClientProtoAddr: proto,
		}},
	}
	msg := &nhrp.NhrpMessage{Header: nhrp.FixedHeader{OpType: nhrp.OpPurgeRequest}, Op: req}

	reply, err := h.Purge(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok := tbl.Lookup(proto); ok {
		t.Fatalf("expected binding removed after Purge")
	}
	if len(sink.removed) != 1 || sink.removed[0] != "10.0.0.2" {
		t.Fatalf("expected neighbour removal for 10.0.0.2, got %v", sink.removed)
	}
	pr, ok := reply.Op.(*nhrp.PurgeReply)
	if !ok {
		t.Fatalf("reply op type = %T, want *PurgeReply", reply.Op)
	}
	if len(pr.CIEs) != 1 {
		t.Fatalf("expected the purged CIE echoed back")
	}
}

func TestResolutionHitReturnsSuccessCIE(t *testing.T) {
	tbl := peertable.New()
	tbl.Insert([]byte{10, 0, 0, 1}, []byte{198, 51, 100, 9}, time.Hour)
	h := New(tbl, newFakeSink(), 3, nil)

	req := &nhrp.ResolutionRequest{CommonHeader: baseCommon()}
	msg := &nhrp.NhrpMessage{Header: nhrp.FixedHeader{OpType: nhrp.OpResolutionRequest}, Op: req}

	reply, err := h.Resolution(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("Resolution: %v", err)
	}
	rr := reply.Op.(*nhrp.ResolutionReply)
	if len(rr.CIEs) != 1 {
		t.Fatalf("expected exactly one CIE in a resolution reply")
	}
	if rr.CIEs[0].Code != nhrp.CIESuccess {
		t.Fatalf("CIE code = %d, want Success", rr.CIEs[0].Code)
	}
	if string(rr.CIEs[0].ClientNBMAAddr) != string([]byte{198, 51, 100, 9}) {
		t.Fatalf("ClientNBMAAddr = %v", rr.CIEs[0].ClientNBMAAddr)
	}
	if rr.Flags&nhrp.FlagAuthoritative == 0 {
		t.Fatalf("expected authoritative flag set on a resolution reply")
	}
}

func TestResolutionMissReturnsNoBindingExists(t *testing.T) {
	tbl := peertable.New()
	h := New(tbl, newFakeSink(), 3, nil)

	req := &nhrp.ResolutionRequest{CommonHeader: baseCommon()}
	msg := &nhrp.NhrpMessage{Header: nhrp.FixedHeader{OpType: nhrp.OpResolutionRequest}, Op: req}

	reply, err := h.Resolution(context.Background(), msg, nil)
	if err != nil {
		t.Fatalf("Resolution: %v", err)
	}
	rr := reply.Op.(*nhrp.ResolutionReply)
	if rr.CIEs[0].Code != nhrp.CIENoBindingExists {
		t.Fatalf("CIE code = %d, want NoBindingExists", rr.CIEs[0].Code)
	}
	if len(rr.CIEs[0].ClientNBMAAddr) != 0 {
		t.Fatalf("expected null NBMA address on a miss, got %v", rr.CIEs[0].ClientNBMAAddr)
	}
}
