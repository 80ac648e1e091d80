//go:build linux

package remote

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneConn enlarges the receive buffer so large dac_out responses drain in
// fewer reads.
func tuneConn(conn net.Conn, size int) {
	tc, ok := conn.(*net.TCPConn)
	if !ok || size <= 0 {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size)
	})
}
