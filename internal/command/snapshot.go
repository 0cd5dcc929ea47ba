package command

import (
	"io"
	"strconv"

	"github.com/flashdb/respkv/internal/protocol"
	"github.com/flashdb/respkv/internal/ring"
	"github.com/flashdb/respkv/internal/store"
)

// loadRingSize is the intake buffer LOAD feeds the parser from. Spec §6
// calls for "ring-buffered intake" even for the snapshot file, not just
// live sockets, so LOAD reuses the same ring.Buffer the event loop does.
const loadRingSize = 64 * 1024

// cmdSave iterates the keyspace and writes each entry as the RESP command
// that would recreate it (spec §6): SET (or SET ... PXAT for a string with
// an expiry) and RPUSH for a list. SAVE never mutates the database.
func cmdSave(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 1 {
		w.ReplyError(wrongArgs("save"))
		return
	}
	if db.OpenWriter == nil {
		w.ReplyError("ERR failed to save db state")
		return
	}
	sink, err := db.OpenWriter()
	if err != nil {
		w.ReplyError("ERR failed to save db state")
		return
	}

	pw := protocol.NewWriter(sink)
	db.Visit(func(key string, v store.Value) bool {
		if v.IsList {
			cmdArgs := make([][]byte, 0, len(v.Items)+2)
			cmdArgs = append(cmdArgs, []byte("RPUSH"), []byte(key))
			cmdArgs = append(cmdArgs, v.Items...)
			pw.ReplyBulkStringArray(cmdArgs)
			return true
		}
		if v.HasExpire {
			pw.ReplyBulkStringArray([][]byte{
				[]byte("SET"), []byte(key), v.Str,
				[]byte("PXAT"), strconv.AppendInt(nil, v.ExpireAt, 10),
			})
		} else {
			pw.ReplyBulkStringArray([][]byte{[]byte("SET"), []byte(key), v.Str})
		}
		return true
	})

	flushErr := pw.Flush()
	closeErr := sink.Close()
	if flushErr != nil || closeErr != nil {
		w.ReplyError("ERR failed to save db state")
		return
	}
	w.ReplySimpleString("OK")
}

// cmdLoad clears the database and replays the snapshot file's RESP command
// stream through a fresh parser and command handler whose replies are
// discarded (spec §4.6). A corrupt snapshot (a parse error or a non-array
// top-level value) aborts the load with an error; the database has already
// been cleared by that point, matching the source's "clear before replay"
// behaviour. A snapshot that ends partway through a command is not
// detected: the complete commands before it are replayed, the incomplete
// tail is dropped, and LOAD replies OK.
func cmdLoad(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 1 {
		w.ReplyError(wrongArgs("load"))
		return
	}
	if db.OpenReader == nil {
		w.ReplyError("ERR failed to load db state")
		return
	}
	src, err := db.OpenReader()
	if err != nil {
		w.ReplyError("ERR failed to load db state")
		return
	}
	defer src.Close()

	db.Clear()

	replay := NewHandler(db, func() int64 { return now }, discardWriter{}, DefaultTable())
	parser := protocol.NewParser(replay)

	buf, rerr := ring.New(loadRingSize)
	if rerr != nil {
		w.ReplyError("ERR failed to load db state")
		return
	}
	defer buf.Close()

	for {
		if buf.Free() == 0 {
			w.ReplyError("ERR failed to load db state")
			return
		}
		n, readErr := src.Read(buf.WriteSlice())
		if n > 0 {
			buf.Advance(n)
			consumed, perr := parser.Parse(buf.Bytes())
			buf.Consume(consumed)
			if perr != nil || replay.Err() != nil {
				w.ReplyError("ERR failed to load db state")
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			w.ReplyError("ERR failed to load db state")
			return
		}
	}
	w.ReplySimpleString("OK")
}

// discardWriter is the null reply sink LOAD's inner command handler writes
// to. Its replies were only ever meant for the original client that ran
// SAVE, not for whoever issues LOAD.
type discardWriter struct{}

func (discardWriter) ReplySimpleString(string)      {}
func (discardWriter) ReplyError(string)             {}
func (discardWriter) ReplyInteger(int64)            {}
func (discardWriter) ReplyBulkString([]byte)        {}
func (discardWriter) ReplyNil()                     {}
func (discardWriter) ReplyBulkStringArray([][]byte) {}

var _ ReplyWriter = discardWriter{}
