// Command nhrpd is the NHRP next-hop resolution agent: it binds a raw
// socket to an NBMA-facing interface, serves Registration, Purge, and
// Resolution requests against a peer-table, and mirrors accepted
// bindings into the kernel neighbour table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nhrpd/internal/dispatch"
	"nhrpd/internal/handlers"
	"nhrpd/internal/iface"
	"nhrpd/internal/neighbor"
	"nhrpd/internal/nhrp"
	"nhrpd/internal/peertable"
	"nhrpd/internal/server"
	"nhrpd/internal/socket"
	"nhrpd/internal/transport"
)

func main() {
	var (
		ifaceName     = flag.String("iface", "", "NBMA-facing interface to bind the NHRP raw socket to (required)")
		logLevel      = flag.String("log-level", "info", "debug|info|warn|error")
		logPath       = flag.String("log-file", "nhrpd.log", "path to the log file (not stderr, so it never collides with an attached terminal UI)")
		pruneInterval = flag.Duration("prune-interval", time.Minute, "how often the peer table is swept for expired bindings (0 disables pruning)")
		monitorSocket = flag.String("monitor-socket", "", "if set, path of a Unix domain socket serving JSON peer-table snapshots for cmd/nhrpmon")
		skipIfacePrep = flag.Bool("skip-iface-prep", false, "skip the RTM_SETNEIGHTBL call that switches the device to application-probe mode")
	)
	flag.Parse()

	if *ifaceName == "" {
		fmt.Fprintln(os.Stderr, "nhrpd: -iface is required")
		os.Exit(2)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nhrpd: failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	handler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: parseLogLevel(*logLevel)})
	logger := slog.New(handler).With("component", "nhrpd")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := socket.Open(*ifaceName)
	if err != nil {
		logger.Error("failed to open NHRP socket", "iface", *ifaceName, "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	if !*skipIfacePrep {
		if err := iface.DisableLinkProbes(conn.IfIndex(), "arp_cache"); err != nil {
			logger.Warn("interface preparation failed; continuing with kernel-driven probing", "iface", *ifaceName, "err", err)
		}
	}

	table := peertable.New()
	sink := neighbor.New()
	h := handlers.New(table, sink, conn.IfIndex(), logger.With("component", "handlers"))

	router := dispatch.NewRouter()
	router.Handle(nhrp.OpRegistrationRequest, h.Registration)
	router.Handle(nhrp.OpPurgeRequest, h.Purge)
	router.Handle(nhrp.OpResolutionRequest, h.Resolution)

	stats := &server.Stats{}
	srv := &server.Server{
		Transport:     transport.New(conn),
		Router:        router,
		Table:         table,
		Logger:        logger.With("component", "server"),
		Stats:         stats,
		PruneInterval: *pruneInterval,
	}

	if *monitorSocket != "" {
		cs := &server.ControlSocket{Table: table, Stats: stats, Logger: logger.With("component", "control")}
		go func() {
			if err := cs.Serve(ctx, *monitorSocket); err != nil && ctx.Err() == nil {
				logger.Error("control socket stopped", "err", err)
			}
		}()
	}

	logger.Info("starting nhrpd", "iface", *ifaceName, "prune_interval", *pruneInterval, "monitor_socket", *monitorSocket)

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server loop exited", "err", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
