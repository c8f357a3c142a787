// Package neighbor installs and removes kernel neighbour-table entries
// for resolved NBMA bindings, so the kernel forwards overlay traffic
// straight to the right NBMA peer instead of re-triggering resolution.
// Construction follows the teacher pack's raw rtnetlink message style
// (build the nlmsghdr + fixed struct + rtattrs by hand, send, read the
// ACK) rather than pulling in a full netlink client library.
package neighbor

import (
	"encoding/binary"
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Sink installs and removes kernel neighbour entries. Both operations
// are idempotent: installing an already-installed binding updates it in
// place, and removing an absent one is not an error.
type Sink interface {
	Install(ifIndex int, protoAddr net.IP, nbmaAddr net.HardwareAddr) error
	Remove(ifIndex int, protoAddr net.IP) error
}

// NetlinkSink is a Sink backed by the kernel's rtnetlink neighbour table
// (NETLINK_ROUTE, RTM_*NEIGH).
type NetlinkSink struct{}

// New returns a Sink that manipulates the real kernel neighbour table.
func New() *NetlinkSink { return &NetlinkSink{} }

const (
	nlmsgHdrLen = 16
	ndmsgLen    = 12
	rtaHdrLen   = 4
)

// ndmsg field offsets within the fixed struct ndmsg.
const (
	ndmFamily  = 0
	ndmIfindex = 4
	ndmState   = 8
	ndmFlags   = 10
	ndmType    = 11
)

func rtaAlignLen(l int) int { return (l + 3) &^ 3 }

// Install upserts a neighbour entry binding protoAddr to nbmaAddr on
// ifIndex, marked NUD_PERMANENT so the kernel never ages it out or
// re-ARPs for it — this agent's own holding-time logic in the peer
// table is the sole authority on when a binding is stale.
func (s *NetlinkSink) Install(ifIndex int, protoAddr net.IP, nbmaAddr net.HardwareAddr) error {
	fd, err := openNetlink()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	msg := buildNeighMsg(unix.RTM_NEWNEIGH,
		unix.NLM_F_REQUEST|unix.NLM_F_ACK|unix.NLM_F_CREATE|unix.NLM_F_REPLACE,
		ifIndex, protoAddr, nbmaAddr, unix.NUD_PERMANENT)

	if err := send(fd, msg); err != nil {
		return fmt.Errorf("install neighbour %s: %w", protoAddr, err)
	}
	if err := readAck(fd); err != nil {
		return fmt.Errorf("install neighbour %s: %w", protoAddr, err)
	}
	return nil
}

// Remove deletes the neighbour entry for protoAddr on ifIndex. A kernel
// ESRCH/ENOENT response (entry already gone) is treated as success.
func (s *NetlinkSink) Remove(ifIndex int, protoAddr net.IP) error {
	fd, err := openNetlink()
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	msg := buildNeighMsg(unix.RTM_DELNEIGH, unix.NLM_F_REQUEST|unix.NLM_F_ACK,
		ifIndex, protoAddr, nil, 0)

	if err := send(fd, msg); err != nil {
		return fmt.Errorf("remove neighbour %s: %w", protoAddr, err)
	}
	if err := readAck(fd); err != nil {
		if isErrno(err, unix.ESRCH) || isErrno(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("remove neighbour %s: %w", protoAddr, err)
	}
	return nil
}

func openNetlink() (int, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return -1, fmt.Errorf("open netlink socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind netlink socket: %w", err)
	}
	return fd, nil
}

func send(fd int, msg []byte) error {
	return unix.Sendto(fd, msg, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK})
}

// buildNeighMsg constructs an RTM_NEWNEIGH/RTM_DELNEIGH message with an
// NDA_DST attribute and, when nbmaAddr is non-nil, an NDA_LLADDR one.
func buildNeighMsg(msgType uint16, flags uint16, ifIndex int, protoAddr net.IP, nbmaAddr net.HardwareAddr, state uint16) []byte {
	family := uint8(unix.AF_INET)
	dst := protoAddr.To4()
	if dst == nil {
		family = unix.AF_INET6
		dst = protoAddr.To16()
	}

	dstAttrLen := rtaAlignLen(rtaHdrLen + len(dst))
	total := nlmsgHdrLen + ndmsgLen + dstAttrLen
	var llAttrLen int
	if len(nbmaAddr) > 0 {
		llAttrLen = rtaAlignLen(rtaHdrLen + len(nbmaAddr))
		total += llAttrLen
	}

	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	binary.LittleEndian.PutUint16(buf[4:6], msgType)
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint32(buf[8:12], 1)
	binary.LittleEndian.PutUint32(buf[12:16], 0)

	off := nlmsgHdrLen
	buf[off+ndmFamily] = family
	binary.LittleEndian.PutUint32(buf[off+ndmIfindex:off+ndmIfindex+4], uint32(ifIndex))
	binary.LittleEndian.PutUint16(buf[off+ndmState:off+ndmState+2], state)
	buf[off+ndmFlags] = 0
	buf[off+ndmType] = unix.RTN_UNICAST

	off = nlmsgHdrLen + ndmsgLen
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(rtaHdrLen+len(dst)))
	binary.LittleEndian.PutUint16(buf[off+2:off+4], unix.NDA_DST)
	copy(buf[off+rtaHdrLen:], dst)

	if len(nbmaAddr) > 0 {
		off += dstAttrLen
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(rtaHdrLen+len(nbmaAddr)))
		binary.LittleEndian.PutUint16(buf[off+2:off+4], unix.NDA_LLADDR)
		copy(buf[off+rtaHdrLen:], nbmaAddr)
	}

	return buf
}

// netlinkError wraps a raw kernel errno from an NLMSG_ERROR response so
// callers can match on it without parsing again.
type netlinkError struct{ errno unix.Errno }

func (e *netlinkError) Error() string { return fmt.Sprintf("netlink: %s", e.errno) }

func isErrno(err error, want unix.Errno) bool {
	ne, ok := err.(*netlinkError)
	return ok && ne.errno == want
}

func readAck(fd int) error {
	buf := make([]byte, 4096)
	n, _, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return fmt.Errorf("read netlink response: %w", err)
	}
	if n < nlmsgHdrLen {
		return fmt.Errorf("netlink response too short: %d bytes", n)
	}

	msgType := binary.LittleEndian.Uint16(buf[4:6])
	if msgType != unix.NLMSG_ERROR {
		return nil
	}
	if n < nlmsgHdrLen+4 {
		return fmt.Errorf("truncated NLMSG_ERROR response")
	}
	errno := *(*int32)(unsafe.Pointer(&buf[nlmsgHdrLen]))
	if errno == 0 {
		return nil
	}
	return &netlinkError{errno: unix.Errno(-errno)}
}
