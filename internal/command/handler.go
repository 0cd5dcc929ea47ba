// Package command implements the RESP command interpreter (spec §4.5):
// it consumes protocol.Handler events representing one outer array per
// pipelined command, assembles the argument vector, dispatches to a
// per-command Func by case-insensitive name, and writes the reply.
package command

import (
	"errors"

	"github.com/flashdb/respkv/internal/protocol"
	"github.com/flashdb/respkv/internal/store"
)

// ErrUnexpectedEvent marks a top-level event that isn't an array, a
// protocol-level fault the spec (§4.5) leaves as an implementation choice
// between "unknown command" and a fatal drop. This interpreter treats it
// as fatal, consistent with parser errors being fatal to the connection.
var ErrUnexpectedEvent = errors.New("command: non-array top-level event")

// ReplyWriter is the subset of protocol.Writer's ergonomic Reply* methods a
// command needs. LOAD's silent replay satisfies it with a no-op sink.
type ReplyWriter interface {
	ReplySimpleString(s string)
	ReplyError(msg string)
	ReplyInteger(n int64)
	ReplyBulkString(b []byte)
	ReplyNil()
	ReplyBulkStringArray(items [][]byte)
}

var _ ReplyWriter = (*protocol.Writer)(nil)

// Func implements one command. now is the wall-clock instant (unix ms) the
// dispatcher captured before invoking it.
type Func func(args [][]byte, db *store.Database, now int64, w ReplyWriter)

// Table maps a canonicalised (upper-cased ASCII) command name to its Func.
type Table map[string]Func

// DefaultTable returns the dispatch table for every command this server
// implements (spec §4.6).
func DefaultTable() Table {
	return Table{
		"PING":   cmdPing,
		"ECHO":   cmdEcho,
		"SET":    cmdSet,
		"GET":    cmdGet,
		"DEL":    cmdDel,
		"EXISTS": cmdExists,
		"INCR":   cmdIncr,
		"DECR":   cmdDecr,
		"RPUSH":  cmdRPush,
		"LPUSH":  cmdLPush,
		"LRANGE": cmdLRange,
		"SAVE":   cmdSave,
		"LOAD":   cmdLoad,
	}
}

var upperTable = buildUpperTable()

func buildUpperTable() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		b := byte(i)
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		t[i] = b
	}
	return t
}

func canonicalize(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = upperTable[c]
	}
	return string(out)
}

// Handler buffers one array-of-bulk-strings command as protocol.Handler
// events arrive and dispatches it on EndArray. It is not safe for use by
// more than one goroutine at a time, the same single-threaded assumption
// that lets store.Database skip locking applies here.
type Handler struct {
	db    *store.Database
	now   func() int64
	w     ReplyWriter
	table Table

	inArray bool
	argBuf  []byte
	ends    []int

	err error
}

var _ protocol.Handler = (*Handler)(nil)

// NewHandler creates a Handler dispatching against table, reading the
// clock from now and writing replies to w.
func NewHandler(db *store.Database, now func() int64, w ReplyWriter, table Table) *Handler {
	return &Handler{db: db, now: now, w: w, table: table}
}

// Err returns the sticky protocol-level fault, if any. The caller (the
// connection's event loop, or LOAD's replay driver) checks this after each
// Parse call and drops the connection / aborts the replay if it is set.
func (h *Handler) Err() error { return h.err }

func (h *Handler) BeginArray(n int64) {
	if h.inArray {
		h.err = ErrUnexpectedEvent
		return
	}
	h.inArray = true
	h.argBuf = h.argBuf[:0]
	if cap(h.ends) < int(n) && n > 0 {
		h.ends = make([]int, 0, n)
	} else {
		h.ends = h.ends[:0]
	}
}

func (h *Handler) EndArray() {
	if !h.inArray {
		return
	}
	h.inArray = false
	h.dispatch()
}

func (h *Handler) BeginBulkString(n int64) {
	if !h.inArray {
		h.err = ErrUnexpectedEvent
		return
	}
	if n > 0 && cap(h.argBuf)-len(h.argBuf) < int(n) {
		grown := make([]byte, len(h.argBuf), len(h.argBuf)+int(n))
		copy(grown, h.argBuf)
		h.argBuf = grown
	}
}

func (h *Handler) EndBulkString() {
	if !h.inArray {
		return
	}
	h.ends = append(h.ends, len(h.argBuf))
}

func (h *Handler) Chars(b []byte) {
	if !h.inArray {
		return
	}
	h.argBuf = append(h.argBuf, b...)
}

func (h *Handler) BeginSimpleString() { h.rejectTopLevel() }
func (h *Handler) EndSimpleString()   {}
func (h *Handler) BeginError()        { h.rejectTopLevel() }
func (h *Handler) EndError()          {}
func (h *Handler) BeginInteger()      { h.rejectTopLevel() }
func (h *Handler) EndInteger()        {}

func (h *Handler) rejectTopLevel() {
	if !h.inArray {
		h.err = ErrUnexpectedEvent
	}
}

func (h *Handler) dispatch() {
	n := len(h.ends)
	args := make([][]byte, n)
	start := 0
	for i, end := range h.ends {
		args[i] = h.argBuf[start:end]
		start = end
	}
	if n == 0 {
		h.w.ReplyError("ERR unknown command")
		return
	}
	fn, ok := h.table[canonicalize(args[0])]
	if !ok {
		h.w.ReplyError("ERR unknown command")
		return
	}
	fn(args, h.db, h.now(), h.w)
}
