package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"nhrpd/internal/dispatch"
	"nhrpd/internal/handlers"
	"nhrpd/internal/nhrp"
	"nhrpd/internal/peertable"
	"nhrpd/internal/transport"
	"nhrpd/internal/wire"
)

type nullSink struct{}

func (nullSink) Install(int, net.IP, net.HardwareAddr) error { return nil }
func (nullSink) Remove(int, net.IP) error                    { return nil }

type loopConn struct {
	toServer chan []byte
	replies  chan []byte
	from     net.HardwareAddr
}

func (l *loopConn) ReadFrom(ctx context.Context, buf []byte) (int, net.HardwareAddr, error) {
	select {
	case b := <-l.toServer:
		return copy(buf, b), l.from, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (l *loopConn) WriteTo(buf []byte, dst net.HardwareAddr) error {
	cp := append([]byte(nil), buf...)
	l.replies <- cp
	return nil
}

func buildResolutionRequest(t *testing.T) []byte {
	t.Helper()
	common := nhrp.CommonHeader{
		SHTL:         wire.AddrTL{Type: wire.NSAP},
		SSTL:         wire.AddrTL{Type: wire.NSAP},
		SrcNBMAAddr:  []byte{198, 51, 100, 5},
		SrcProtoAddr: []byte{10, 0, 0, 2},
		DstProtoAddr: []byte{10, 0, 0, 1},
	}
	op := &nhrp.ResolutionRequest{CommonHeader: common}
	msg := &nhrp.NhrpMessage{
		Header: nhrp.FixedHeader{
			AFN:       1,
			ProtoType: nhrp.ClassifyProtocolType(nhrp.EthertypeIPv4),
			Version:   1,
			OpType:    nhrp.OpResolutionRequest,
		},
		Op: op,
	}
	buf := make([]byte, msg.BufferLen())
	msg.Emit(buf)
	return buf
}

func TestServerRunDispatchesResolutionAndReplies(t *testing.T) {
	tbl := peertable.New()
	tbl.Insert([]byte{10, 0, 0, 1}, []byte{198, 51, 100, 9}, time.Hour)

	h := handlers.New(tbl, nullSink{}, 1, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	router := dispatch.NewRouter()
	router.Handle(nhrp.OpResolutionRequest, h.Resolution)
	router.Handle(nhrp.OpRegistrationRequest, h.Registration)
	router.Handle(nhrp.OpPurgeRequest, h.Purge)

	conn := &loopConn{
		toServer: make(chan []byte, 1),
		replies:  make(chan []byte, 1),
		from:     net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
	}
	stats := &Stats{}
	srv := &Server{
		Transport: transport.New(conn),
		Router:    router,
		Table:     tbl,
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Stats:     stats,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	conn.toServer <- buildResolutionRequest(t)

	select {
	case reply := <-conn.replies:
		msg, err := nhrp.Parse(reply)
		if err != nil {
			t.Fatalf("Parse reply: %v", err)
		}
		if msg.Header.OpType != nhrp.OpResolutionReply {
			t.Fatalf("reply optype = %v, want ResolutionReply", msg.Header.OpType)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a reply")
	}

	if stats.snapshot().Resolutions != 1 {
		t.Fatalf("resolutions counter = %d, want 1", stats.snapshot().Resolutions)
	}
}

func TestControlSocketServesJSONSnapshot(t *testing.T) {
	tbl := peertable.New()
	tbl.Insert([]byte{10, 0, 0, 2}, []byte{1, 2, 3, 4, 5, 6}, time.Hour)
	stats := &Stats{}
	stats.recordResolution()

	cs := &ControlSocket{Table: tbl, Stats: stats}
	path := filepath.Join(t.TempDir(), "nhrpd.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cs.Serve(ctx, path)

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", path)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial control socket: %v", err)
	}
	defer conn.Close()

	var view StatusView
	if err := json.NewDecoder(conn).Decode(&view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(view.Bindings) != 1 {
		t.Fatalf("bindings = %d, want 1", len(view.Bindings))
	}
	if view.Bindings[0].ProtoAddr != "10.0.0.2" {
		t.Fatalf("proto addr = %q", view.Bindings[0].ProtoAddr)
	}
	if view.Resolutions != 1 {
		t.Fatalf("resolutions = %d, want 1", view.Resolutions)
	}
}
