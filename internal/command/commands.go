package command

import (
	"strconv"

	"github.com/flashdb/respkv/internal/store"
)

func wrongArgs(name string) string {
	return "ERR wrong number of arguments for '" + name + "' command"
}

func wrongType() string {
	return store.ErrWrongType.Error()
}

func cmdPing(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	switch len(args) {
	case 1:
		w.ReplySimpleString("PONG")
	case 2:
		w.ReplyBulkString(args[1])
	default:
		w.ReplyError(wrongArgs("ping"))
	}
}

func cmdEcho(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 2 {
		w.ReplyError(wrongArgs("echo"))
		return
	}
	w.ReplyBulkString(args[1])
}

func cmdGet(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 2 {
		w.ReplyError(wrongArgs("get"))
		return
	}
	val, ok, err := db.GetString(string(args[1]))
	if err != nil {
		w.ReplyError(wrongType())
		return
	}
	if !ok {
		w.ReplyNil()
		return
	}
	w.ReplyBulkString(val)
}

func cmdSet(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 3 && len(args) != 5 {
		w.ReplyError(wrongArgs("set"))
		return
	}
	key, value := string(args[1]), args[2]

	hasExpire := false
	var expireAt int64
	if len(args) == 5 {
		opt := canonicalize(args[3])
		n, perr := strconv.ParseInt(string(args[4]), 10, 64)
		if perr != nil || n < 0 {
			w.ReplyError("ERR value is not an integer or out of range")
			return
		}
		switch opt {
		case "EX":
			expireAt = store.ExpiryEX(now, n)
		case "PX":
			expireAt = store.ExpiryPX(now, n)
		case "EXAT":
			expireAt = store.ExpiryEXAT(n)
		case "PXAT":
			expireAt = store.ExpiryPXAT(n)
		default:
			w.ReplyError("ERR syntax error")
			return
		}
		hasExpire = true
	}

	db.Set(key, value, hasExpire, expireAt)
	w.ReplySimpleString("OK")
}

func cmdDel(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) < 2 {
		w.ReplyError(wrongArgs("del"))
		return
	}
	var count int64
	for _, k := range args[1:] {
		if db.Del(string(k)) {
			count++
		}
	}
	w.ReplyInteger(count)
}

func cmdExists(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) < 2 {
		w.ReplyError(wrongArgs("exists"))
		return
	}
	var count int64
	for _, k := range args[1:] {
		if db.Exists(string(k)) {
			count++
		}
	}
	w.ReplyInteger(count)
}

func cmdIncr(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	incrDecr(args, db, w, "incr", 1)
}

func cmdDecr(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	incrDecr(args, db, w, "decr", -1)
}

func incrDecr(args [][]byte, db *store.Database, w ReplyWriter, name string, delta int64) {
	if len(args) != 2 {
		w.ReplyError(wrongArgs(name))
		return
	}
	key := string(args[1])
	cur, ok, err := db.GetString(key)
	if err != nil {
		w.ReplyError(wrongType())
		return
	}
	var curVal int64
	if ok {
		curVal, err = strconv.ParseInt(string(cur), 10, 64)
		if err != nil {
			w.ReplyError("ERR value is not an integer or out of range")
			return
		}
	}
	newVal := curVal + delta
	db.Set(key, strconv.AppendInt(nil, newVal, 10), false, 0)
	w.ReplyInteger(newVal)
}

func cmdRPush(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	pushCommand(args, db, w, "rpush", func(l *store.List, v []byte) int { return l.PushBack(v) })
}

func cmdLPush(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	pushCommand(args, db, w, "lpush", func(l *store.List, v []byte) int { return l.PushFront(v) })
}

func pushCommand(args [][]byte, db *store.Database, w ReplyWriter, name string, push func(*store.List, []byte) int) {
	if len(args) < 3 {
		w.ReplyError(wrongArgs(name))
		return
	}
	l, err := db.GetOrCreateList(string(args[1]))
	if err != nil {
		w.ReplyError(wrongType())
		return
	}
	var n int
	for _, v := range args[2:] {
		n = push(l, v)
	}
	w.ReplyInteger(int64(n))
}

func cmdLRange(args [][]byte, db *store.Database, now int64, w ReplyWriter) {
	if len(args) != 4 {
		w.ReplyError(wrongArgs("lrange"))
		return
	}
	start, err1 := strconv.Atoi(string(args[2]))
	stop, err2 := strconv.Atoi(string(args[3]))
	if err1 != nil || err2 != nil {
		w.ReplyError("ERR value is not an integer or out of range")
		return
	}
	l, ok, err := db.GetList(string(args[1]))
	if err != nil {
		w.ReplyError(wrongType())
		return
	}
	if !ok {
		w.ReplyBulkStringArray(nil)
		return
	}
	items := l.ToSlice()
	length := len(items)

	start = resolveIndex(start, length)
	stop = resolveIndex(stop, length)
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	// Redis convention (spec §9's resolved open question): an empty range
	// yields an empty array, not an error.
	if start > stop || length == 0 {
		w.ReplyBulkStringArray(nil)
		return
	}
	w.ReplyBulkStringArray(items[start : stop+1])
}

func resolveIndex(i, length int) int {
	if i < 0 {
		return length + i
	}
	return i
}

// cmdSave and cmdLoad live in snapshot.go, which owns the RESP-command-
// stream encoding described in spec §6.
