// Package server implements the single-threaded, epoll-driven event loop
// (spec §4.7) that ties the ring buffer, RESP parser, command handler and
// writer together per client. The spec requires exactly one thread of
// execution servicing every client, so nothing here spawns a goroutine per
// connection; every socket is driven from the same epoll wait loop.
package server

import (
	"fmt"
	"log"

	"golang.org/x/sys/unix"

	"github.com/flashdb/respkv/internal/command"
	"github.com/flashdb/respkv/internal/netpoll"
	"github.com/flashdb/respkv/internal/store"
)

// Config holds the event loop's tunables: connection-plumbing knobs only.
// The spec has no auth, no client cap, and no protocol timeouts (§5
// "Timeouts: None").
type Config struct {
	Port        int
	RingSize    int // must be a power of two; spec §4.1
	SendBufSize int // SO_SNDBUF hint applied to each accepted socket, spec §4.7
}

// DefaultConfig returns the tuning the spec calls out by name: port 6379
// and a "large, e.g. 1 MiB" send buffer.
func DefaultConfig() Config {
	return Config{
		Port:        6379,
		RingSize:    64 * 1024,
		SendBufSize: 1 << 20,
	}
}

// Server owns the listener, the epoll instance, the shared database, and
// every live client's state (spec §5: "the event loop exclusively owns the
// listener and the database").
type Server struct {
	cfg        Config
	db         *store.Database
	table      command.Table
	now        func() int64
	poller     *netpoll.Poller
	listenFd   int
	actualPort int
	conns      map[int32]*conn
}

// New builds a Server around an already-constructed database and command
// table; it does not start listening until Listen (or Run) is called.
func New(cfg Config, db *store.Database, table command.Table, now func() int64) *Server {
	return &Server{
		cfg:   cfg,
		db:    db,
		table: table,
		now:   now,
		conns: make(map[int32]*conn),
	}
}

// Addr returns "127.0.0.1:<port>" for the bound listener, valid after
// Listen succeeds. Mainly useful in tests that bind an ephemeral port.
func (s *Server) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.actualPort)
}

// Listen performs the fatal-on-failure startup work (spec §6): binding the
// listener and creating the epoll instance. Separated from Serve so tests
// can discover the bound ephemeral port before the blocking loop starts.
func (s *Server) Listen() error {
	netpoll.IgnoreSIGPIPE()

	listenFd, boundPort, err := netpoll.Listen(s.cfg.Port)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	s.listenFd = listenFd
	s.actualPort = boundPort

	poller, err := netpoll.New()
	if err != nil {
		unix.Close(s.listenFd)
		return fmt.Errorf("server: %w", err)
	}
	s.poller = poller

	if err := s.poller.Add(s.listenFd, false); err != nil {
		poller.Close()
		unix.Close(s.listenFd)
		return fmt.Errorf("server: %w", err)
	}

	log.Printf("respkv server listening on :%d", s.actualPort)
	return nil
}

// Serve blocks servicing readiness events until an unrecoverable error
// occurs; Listen must have already succeeded.
func (s *Server) Serve() error {
	defer s.poller.Close()
	defer unix.Close(s.listenFd)

	events := make([]unix.EpollEvent, 128)
	for {
		ready, err := s.poller.Wait(events, -1)
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		for _, ev := range ready {
			if int(ev.Fd) == s.listenFd {
				s.acceptLoop()
				continue
			}
			s.serviceClient(ev)
		}
	}
}

// Run is Listen followed by Serve, the entry point cmd/flashdb-server
// calls in production.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// acceptLoop drains the accept queue: edge-triggered readiness fires once
// per not-ready-to-ready transition, so every readable listener event must
// accept until EAGAIN (spec §4.7).
func (s *Server) acceptLoop() {
	for {
		fd, remote, ok, err := netpoll.AcceptOne(s.listenFd)
		if err != nil {
			log.Printf("server: accept: %v", err)
			return
		}
		if !ok {
			return
		}
		_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, s.cfg.SendBufSize)

		c, err := newConn(fd, remote, s.cfg.RingSize, s.db, s.table, s.now)
		if err != nil {
			log.Printf("server: dropping %s: %v", remote, err)
			unix.Close(fd)
			continue
		}
		if err := s.poller.Add(fd, false); err != nil {
			log.Printf("server: epoll add %s: %v", remote, err)
			c.close()
			continue
		}
		s.conns[int32(fd)] = c
	}
}

// serviceClient runs the per-readiness read/parse/dispatch/flush cycle for
// one client (spec §4.7 "Per-client readiness") and tears the connection
// down on any client-originating fault.
func (s *Server) serviceClient(ev netpoll.Event) {
	c, ok := s.conns[ev.Fd]
	if !ok {
		return
	}
	if ev.Err {
		s.drop(c)
		return
	}
	if ev.Writable {
		c.flush()
		if c.bad {
			s.drop(c)
			return
		}
	}
	if ev.Readable || ev.Hangup {
		if err := c.readAndProcess(); err != nil {
			s.drop(c)
			return
		}
		if c.bad {
			s.drop(c)
			return
		}
	}
	// Reconcile EPOLLOUT interest with the buffer's actual state: arm it if
	// output is still backed up after this cycle, disarm it once drained,
	// so a write-only readiness event that fully flushes the buffer doesn't
	// leave EPOLLOUT armed forever.
	wantWrite := !c.out.empty()
	if wantWrite != c.wantWrite {
		c.wantWrite = wantWrite
		if err := s.poller.Modify(c.fd, wantWrite); err != nil {
			s.drop(c)
		}
	}
}

func (s *Server) drop(c *conn) {
	_ = s.poller.Remove(c.fd)
	delete(s.conns, int32(c.fd))
	c.close()
}
