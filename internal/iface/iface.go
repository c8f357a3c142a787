// Package iface prepares an NBMA-facing interface's neighbour-table
// parameters so the kernel does not waste link probes against peers this
// agent alone is responsible for resolving. It builds RTM_SETNEIGHTBL
// netlink requests by hand, in the same raw-construction style as
// internal/neighbor.
package iface

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	nlmsgHdrLen = 16
	ndtmsgLen   = 4
	rtaHdrLen   = 4
)

// Netlink attribute types for RTM_SETNEIGHTBL that are not exported by
// golang.org/x/sys/unix (it only carries the RTM_* message numbers).
const (
	ndtaName     = 1
	ndtaParms    = 4
	ndtpaIfindex = 1
	// Counts below name the kernel-side neighbour probe settings this
	// agent writes: application probes (resolution requests handed to
	// user space) are set to 1, while unicast and multicast reachability
	// probes are set to 0. An NHRP agent owns resolution itself, so the
	// kernel's own probes would be redundant with (and could race) the
	// protocol's Resolution-Request/Reply exchange.
	ndtpaAppProbes   = 10
	ndtpaUcastProbes = 11
	ndtpaMcastProbes = 12
)

func rtaAlignLen(l int) int { return (l + 3) &^ 3 }

// DisableLinkProbes sets APP_PROBES=1, UCAST_PROBES=0, MCAST_PROBES=0 on
// the neighbour table named by family for ifIndex. family is a kernel
// table name: "arp_cache" is sent with AF_INET, any other name with
// AF_INET6.
func DisableLinkProbes(ifIndex int, family string) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return fmt.Errorf("open netlink socket: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return fmt.Errorf("bind netlink socket: %w", err)
	}

	msg := buildSetNeighTblMsg(family, ifIndex)
	if err := unix.Sendto(fd, msg, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return fmt.Errorf("sending RTM_SETNEIGHTBL: %w", err)
	}
	if err := readAck(fd); err != nil {
		return fmt.Errorf("disable link probes on ifindex %d: %w", ifIndex, err)
	}
	return nil
}

// buildSetNeighTblMsg constructs an RTM_SETNEIGHTBL message:
//
//	nlmsghdr | ndtmsg | NDTA_NAME | NDTA_PARMS (nested) {
//	    NDTPA_IFINDEX, NDTPA_APP_PROBES, NDTPA_UCAST_PROBES, NDTPA_MCAST_PROBES
//	}
func buildSetNeighTblMsg(tableName string, ifIndex int) []byte {
	nameAttrLen := rtaAlignLen(rtaHdrLen + len(tableName) + 1)

	u32Entry := rtaAlignLen(rtaHdrLen + 4)
	parmsPayload := u32Entry * 4 // ifindex, app_probes, ucast_probes, mcast_probes
	parmsAttrLen := rtaHdrLen + parmsPayload

	total := nlmsgHdrLen + ndtmsgLen + nameAttrLen + rtaAlignLen(parmsAttrLen)
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	binary.LittleEndian.PutUint16(buf[4:6], unix.RTM_SETNEIGHTBL)
	binary.LittleEndian.PutUint16(buf[6:8], unix.NLM_F_REQUEST|unix.NLM_F_ACK)
	binary.LittleEndian.PutUint32(buf[8:12], 1)
	binary.LittleEndian.PutUint32(buf[12:16], 0)

	// ndtmsg: family in byte 0, rest padding/reserved for the kernel.
	off := nlmsgHdrLen
	if tableName == "arp_cache" {
		buf[off] = unix.AF_INET
	} else {
		buf[off] = unix.AF_INET6
	}

	off = nlmsgHdrLen + ndtmsgLen
	nameLen := len(tableName) + 1
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(rtaHdrLen+nameLen))
	binary.LittleEndian.PutUint16(buf[off+2:off+4], ndtaName)
	copy(buf[off+rtaHdrLen:], tableName)

	off += nameAttrLen
	parmsStart := off
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(parmsAttrLen))
	binary.LittleEndian.PutUint16(buf[off+2:off+4], unix.NLA_F_NESTED|ndtaParms)

	entry := func(off int, typ uint16, val uint32) int {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(rtaHdrLen+4))
		binary.LittleEndian.PutUint16(buf[off+2:off+4], typ)
		binary.LittleEndian.PutUint32(buf[off+rtaHdrLen:off+rtaHdrLen+4], val)
		return off + u32Entry
	}

	off = parmsStart + rtaHdrLen
	off = entry(off, ndtpaIfindex, uint32(ifIndex))
	off = entry(off, ndtpaAppProbes, 1)
	off = entry(off, ndtpaUcastProbes, 0)
	entry(off, ndtpaMcastProbes, 0)

	return buf
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
	return fmt.Errorf("netlink error: %s", unix.Errno(-errno))
}
