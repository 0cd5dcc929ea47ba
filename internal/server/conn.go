package server

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/flashdb/respkv/internal/command"
	"github.com/flashdb/respkv/internal/protocol"
	"github.com/flashdb/respkv/internal/ring"
	"github.com/flashdb/respkv/internal/store"
)

// errBufferOverflow means the client filled its ring buffer without the
// parser making progress, a protocol-level fault under spec §7.
var errBufferOverflow = errors.New("server: input ring buffer overflow")

// outbound is the per-client staging area for reply bytes that haven't yet
// been accepted by the socket. protocol.Writer flushes into it directly;
// the event loop separately drains it with raw non-blocking writes,
// re-buffering whatever the kernel didn't take (spec §4.7's "partial
// writes re-buffer").
type outbound struct {
	buf []byte
	off int
}

func (o *outbound) Write(p []byte) (int, error) {
	o.buf = append(o.buf, p...)
	return len(p), nil
}

func (o *outbound) pending() []byte { return o.buf[o.off:] }

func (o *outbound) advance(n int) {
	o.off += n
	if o.off == len(o.buf) {
		o.buf = o.buf[:0]
		o.off = 0
	}
}

func (o *outbound) empty() bool { return o.off >= len(o.buf) }

// conn is one client's state: exactly the set the spec (§5 "Resource
// ownership") says a client state exclusively owns: socket descriptor(s),
// ring buffer, parser, command handler, writer, output buffer.
type conn struct {
	fd      int
	writeFd int // dup of fd, per spec §4.7's "duplicate of the socket descriptor"
	remote  string

	in  *ring.Buffer
	out *outbound
	pw  *protocol.Writer

	handler *command.Handler
	parser  *protocol.Parser

	bad       bool
	wantWrite bool
}

func newConn(fd int, remote string, ringSize int, db *store.Database, table command.Table, now func() int64) (*conn, error) {
	writeFd, err := unix.Dup(fd)
	if err != nil {
		return nil, fmt.Errorf("dup: %w", err)
	}
	in, err := ring.New(ringSize)
	if err != nil {
		unix.Close(writeFd)
		return nil, err
	}

	c := &conn{fd: fd, writeFd: writeFd, remote: remote, in: in, out: &outbound{}}
	c.pw = protocol.NewWriter(c.out)
	c.handler = command.NewHandler(db, now, c.pw, table)
	c.parser = protocol.NewParser(c.handler)
	return c, nil
}

// readAndProcess implements spec §4.7's "per-client readiness" read loop.
func (c *conn) readAndProcess() error {
	for {
		free := c.in.Free()
		if free == 0 {
			c.bad = true
			return errBufferOverflow
		}
		n, err := unix.Read(c.fd, c.in.WriteSlice())
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				c.flush()
				return nil
			}
			c.bad = true
			return fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			c.bad = true
			return errors.New("server: peer hangup")
		}

		c.in.Advance(n)
		consumed, perr := c.parser.Parse(c.in.Bytes())
		c.in.Consume(consumed)
		c.pw.Flush()
		if perr != nil {
			c.bad = true
			return perr
		}
		if c.handler.Err() != nil {
			c.bad = true
			return c.handler.Err()
		}
		if !c.out.empty() {
			c.flush()
			if c.bad {
				return nil
			}
		}
		if n < free {
			c.flush()
			return nil
		}
	}
}

// flush writes pending outbound bytes until the buffer is drained or the
// socket would block (spec §4.7); whatever the socket did not accept stays
// buffered for the next readiness event, and a hard write error marks the
// connection a slow consumer to be dropped by the caller.
func (c *conn) flush() {
	for !c.out.empty() {
		n, err := unix.Write(c.writeFd, c.out.pending())
		if n > 0 {
			c.out.advance(n)
		}
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				return
			}
			c.bad = true
			return
		}
		if n == 0 {
			return
		}
	}
}

func (c *conn) close() {
	c.flush()
	_ = c.in.Close()
	_ = unix.Close(c.fd)
	_ = unix.Close(c.writeFd)
}
