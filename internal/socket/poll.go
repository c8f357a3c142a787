package socket

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// errTimeout signals that waitReadable's deadline elapsed with nothing to
// read; it is not a socket error.
var errTimeout = errors.New("socket: poll timeout")

// waitReadable blocks until fd is readable or timeout elapses.
func waitReadable(fd int, timeout time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return errTimeout
		}
		return err
	}
	if n == 0 {
		return errTimeout
	}
	return nil
}
