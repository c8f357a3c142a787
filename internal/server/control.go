package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"nhrpd/internal/peertable"
)

// BindingView is one peer-table entry as exposed to the monitor: plain
// strings and a remaining-seconds count rather than raw address bytes
// or a time.Time, so the wire format needs no custom marshalling.
type BindingView struct {
	ProtoAddr        string `json:"proto_addr"`
	NBMAAddr         string `json:"nbma_addr"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// StatusView is the full control-socket response: the current bindings
// plus the running counters.
type StatusView struct {
	Bindings      []BindingView `json:"bindings"`
	Registrations uint64        `json:"registrations"`
	Purges        uint64        `json:"purges"`
	Resolutions   uint64        `json:"resolutions"`
}

// ControlSocket serves read-only JSON snapshots of the peer table and
// counters over a Unix domain socket, entirely separate from the NHRP
// protocol socket — a connection here is always accept, write one
// StatusView, close.
type ControlSocket struct {
	Table  *peertable.Table
	Stats  *Stats
	Logger *slog.Logger
}

// Serve listens on path until ctx is cancelled. An existing socket file
// at path is removed first, mirroring how any Unix-domain-socket server
// must clear a stale file from a previous run.
func (c *ControlSocket) Serve(ctx context.Context, path string) error {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on control socket %q: %w", path, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accept on control socket: %w", err)
		}
		c.serveOne(conn)
	}
}

func (c *ControlSocket) serveOne(conn net.Conn) {
	defer conn.Close()

	view := StatusView{}
	now := time.Now()
	for _, e := range c.Table.Snapshot() {
		remaining := int64(-1)
		if e.HoldingTime > 0 {
			remaining = int64(e.Registered.Add(e.HoldingTime).Sub(now).Seconds())
			if remaining < 0 {
				remaining = 0
			}
		}
		view.Bindings = append(view.Bindings, BindingView{
			ProtoAddr:        net.IP(e.ProtoAddr).String(),
			NBMAAddr:         net.HardwareAddr(e.NBMAAddr).String(),
			RemainingSeconds: remaining,
		})
	}
	if c.Stats != nil {
		snap := c.Stats.snapshot()
		view.Registrations = snap.Registrations
		view.Purges = snap.Purges
		view.Resolutions = snap.Resolutions
	}

	if err := json.NewEncoder(conn).Encode(view); err != nil && c.Logger != nil {
		c.Logger.Warn("control socket write failed", "err", err)
	}
}
