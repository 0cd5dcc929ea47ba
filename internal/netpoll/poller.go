// Package netpoll wraps the raw Linux epoll and socket syscalls the single-
// threaded event loop (spec §4.7) is built on, using golang.org/x/sys/unix
// so the same syscall surface backs both this package and internal/ring's
// mmap calls, instead of mixing the frozen stdlib syscall package with
// x/sys/unix.
package netpoll

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Event is a readiness notification: Fd is the descriptor and Readable /
// Writable / Hangup / Err report which epoll bits fired.
type Event struct {
	Fd       int32
	Readable bool
	Writable bool
	Hangup   bool
	Err      bool
}

// Poller owns one epoll instance. It is not safe for concurrent use; the
// event loop is single-threaded by design (spec §4.7).
type Poller struct {
	fd int
}

// New creates an epoll instance.
func New() (*Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("netpoll: epoll_create1: %w", err)
	}
	return &Poller{fd: fd}, nil
}

// Add registers fd for edge-triggered readability (and, if wantWrite, write
// readiness too, used while a client's outbound buffer is backed up).
func (p *Poller) Add(fd int, wantWrite bool) error {
	return p.ctl(unix.EPOLL_CTL_ADD, fd, wantWrite)
}

// Modify changes the interest set for an already-registered fd, e.g. to add
// EPOLLOUT once a partial write leaves data queued, or drop it again once
// the queue drains.
func (p *Poller) Modify(fd int, wantWrite bool) error {
	return p.ctl(unix.EPOLL_CTL_MOD, fd, wantWrite)
}

func (p *Poller) ctl(op, fd int, wantWrite bool) error {
	events := uint32(unix.EPOLLIN | unix.EPOLLET | unix.EPOLLRDHUP)
	if wantWrite {
		events |= unix.EPOLLOUT
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if err := unix.EpollCtl(p.fd, op, fd, &ev); err != nil {
		return fmt.Errorf("netpoll: epoll_ctl: %w", err)
	}
	return nil
}

// Remove deregisters fd. Callers still close the fd themselves afterwards.
func (p *Poller) Remove(fd int) error {
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("netpoll: epoll_ctl del: %w", err)
	}
	return nil
}

// Wait blocks until at least one registered fd is ready, or timeoutMillis
// elapses (-1 blocks forever), retrying transparently on EINTR. buf is
// reused as scratch space for the raw epoll_wait call.
func (p *Poller) Wait(buf []unix.EpollEvent, timeoutMillis int) ([]Event, error) {
	for {
		n, err := unix.EpollWait(p.fd, buf, timeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("netpoll: epoll_wait: %w", err)
		}
		out := make([]Event, n)
		for i := 0; i < n; i++ {
			e := buf[i]
			out[i] = Event{
				Fd:       e.Fd,
				Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP) != 0,
				Writable: e.Events&unix.EPOLLOUT != 0,
				Hangup:   e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
				Err:      e.Events&unix.EPOLLERR != 0,
			}
		}
		return out, nil
	}
}

// Close releases the epoll instance.
func (p *Poller) Close() error {
	return unix.Close(p.fd)
}
