package netpoll

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listen creates a non-blocking IPv4 TCP listening socket bound to port,
// with SO_REUSEADDR set so a restarted server doesn't stall in TIME_WAIT
// (spec §4.7). It returns the raw file descriptor for direct epoll
// registration, plus the actual bound port (useful when port is 0, e.g.
// in tests that need an ephemeral port); the caller owns closing the fd.
func Listen(port int) (fd int, boundPort int, err error) {
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, 0, fmt.Errorf("netpoll: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("netpoll: setsockopt SO_REUSEADDR: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("netpoll: bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("netpoll: listen: %w", err)
	}
	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("netpoll: getsockname: %w", err)
	}
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		unix.Close(fd)
		return -1, 0, fmt.Errorf("netpoll: unexpected sockaddr type %T", sa)
	}
	return fd, v4.Port, nil
}

// AcceptOne accepts a single pending connection off listenFd, returning the
// new non-blocking client fd and its remote address. ok is false when the
// accept queue is drained (EAGAIN/EWOULDBLOCK). The caller's accept loop
// keeps calling AcceptOne until ok is false, per the edge-triggered epoll
// contract (spec §4.7).
func AcceptOne(listenFd int) (fd int, remote string, ok bool, err error) {
	nfd, sa, aerr := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if aerr != nil {
		if aerr == unix.EAGAIN || aerr == unix.EWOULDBLOCK {
			return -1, "", false, nil
		}
		return -1, "", false, fmt.Errorf("netpoll: accept4: %w", aerr)
	}
	_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return nfd, sockaddrString(sa), true, nil
}

func sockaddrString(sa unix.Sockaddr) string {
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	ip := net.IP(v4.Addr[:])
	return fmt.Sprintf("%s:%d", ip.String(), v4.Port)
}
