package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/respkv/internal/store"
)

// fakeReply records every Reply* call it receives, mirroring the recorder
// pattern internal/protocol's parser_test.go uses for Handler.
type fakeReply struct {
	calls []string
}

func (f *fakeReply) ReplySimpleString(s string)  { f.calls = append(f.calls, "simple:"+s) }
func (f *fakeReply) ReplyError(msg string)       { f.calls = append(f.calls, "error:"+msg) }
func (f *fakeReply) ReplyInteger(n int64)        { f.calls = append(f.calls, "int:"+itoa(n)) }
func (f *fakeReply) ReplyNil()                   { f.calls = append(f.calls, "nil") }
func (f *fakeReply) ReplyBulkString(b []byte)    { f.calls = append(f.calls, "bulk:"+string(b)) }
func (f *fakeReply) ReplyBulkStringArray(items [][]byte) {
	s := "array:["
	for i, it := range items {
		if i > 0 {
			s += ","
		}
		s += string(it)
	}
	f.calls = append(f.calls, s+"]")
}

func (f *fakeReply) last() string { return f.calls[len(f.calls)-1] }

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func args(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func TestCmdPing(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}
	cmdPing(args("PING"), db, 0, w)
	assert.Equal(t, "simple:PONG", w.last())

	cmdPing(args("PING", "hi"), db, 0, w)
	assert.Equal(t, "bulk:hi", w.last())

	cmdPing(args("PING", "a", "b"), db, 0, w)
	assert.Contains(t, w.last(), "error:")
}

func TestCmdSetAndGet(t *testing.T) {
	db := store.New(func() int64 { return 1000 })
	w := &fakeReply{}

	cmdSet(args("SET", "k", "v"), db, 1000, w)
	assert.Equal(t, "simple:OK", w.last())

	cmdGet(args("GET", "k"), db, 1000, w)
	assert.Equal(t, "bulk:v", w.last())

	cmdGet(args("GET", "missing"), db, 1000, w)
	assert.Equal(t, "nil", w.last())
}

func TestCmdSet_WithExpiryOptions(t *testing.T) {
	now := int64(1000)
	db := store.New(func() int64 { return now })
	w := &fakeReply{}

	cmdSet(args("SET", "k", "v", "ex", "2"), db, now, w)
	require.Equal(t, "simple:OK", w.last())

	now = 2999
	cmdGet(args("GET", "k"), db, now, w)
	assert.Equal(t, "bulk:v", w.last())

	now = 3000
	cmdGet(args("GET", "k"), db, now, w)
	assert.Equal(t, "nil", w.last())
}

func TestCmdSet_BadExpiryOption(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}
	cmdSet(args("SET", "k", "v", "bogus", "1"), db, 0, w)
	assert.Contains(t, w.last(), "syntax error")
}

func TestCmdDelAndExists(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}

	cmdSet(args("SET", "a", "1"), db, 0, w)
	cmdSet(args("SET", "b", "2"), db, 0, w)

	cmdExists(args("EXISTS", "a", "b", "c"), db, 0, w)
	assert.Equal(t, "int:2", w.last())

	cmdDel(args("DEL", "a", "c"), db, 0, w)
	assert.Equal(t, "int:1", w.last())

	cmdExists(args("EXISTS", "a"), db, 0, w)
	assert.Equal(t, "int:0", w.last())
}

func TestCmdIncrDecr(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}

	cmdIncr(args("INCR", "k"), db, 0, w)
	assert.Equal(t, "int:1", w.last())
	cmdIncr(args("INCR", "k"), db, 0, w)
	assert.Equal(t, "int:2", w.last())
	cmdDecr(args("DECR", "k"), db, 0, w)
	assert.Equal(t, "int:1", w.last())
}

func TestCmdIncr_NonIntegerValueIsError(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}
	cmdSet(args("SET", "k", "notanumber"), db, 0, w)
	cmdIncr(args("INCR", "k"), db, 0, w)
	assert.Contains(t, w.last(), "not an integer")
}

func TestCmdPushAndLRange(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}

	cmdRPush(args("RPUSH", "k", "b", "c"), db, 0, w)
	assert.Equal(t, "int:2", w.last())
	cmdLPush(args("LPUSH", "k", "a"), db, 0, w)
	assert.Equal(t, "int:3", w.last())

	cmdLRange(args("LRANGE", "k", "0", "-1"), db, 0, w)
	assert.Equal(t, "array:[a,b,c]", w.last())

	cmdLRange(args("LRANGE", "k", "5", "10"), db, 0, w)
	assert.Equal(t, "array:[]", w.last())

	cmdLRange(args("LRANGE", "missing", "0", "-1"), db, 0, w)
	assert.Equal(t, "array:[]", w.last())
}

func TestCmdPush_WrongType(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}
	cmdSet(args("SET", "k", "v"), db, 0, w)
	cmdRPush(args("RPUSH", "k", "x"), db, 0, w)
	assert.Contains(t, w.last(), "WRONGTYPE")
}

func TestCmdGet_WrongType(t *testing.T) {
	db := store.New(func() int64 { return 0 })
	w := &fakeReply{}
	cmdRPush(args("RPUSH", "k", "x"), db, 0, w)
	cmdGet(args("GET", "k"), db, 0, w)
	assert.Contains(t, w.last(), "WRONGTYPE")
}
