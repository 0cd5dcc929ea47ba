// Package protocol implements a push-based, resumable RESP (REdis
// Serialization Protocol) codec: a parser that consumes byte chunks and
// emits a stream of semantic events, and a writer that turns the same event
// stream back into bytes.
package protocol

// Handler receives one call per lexical boundary in the RESP grammar. Every
// method is void by design (spec §4.2): the parser never blocks and never
// returns per-event errors. A fatal parse fault is reported instead by
// Parser.Parse's own return value, and a handler that wants to reject an
// event sequence (see command.Handler) records the fault itself and lets
// its caller inspect it after the fact.
type Handler interface {
	BeginSimpleString()
	EndSimpleString()

	BeginError()
	EndError()

	BeginInteger()
	EndInteger()

	BeginBulkString(length int64)
	EndBulkString()

	BeginArray(length int64)
	EndArray()

	// Chars delivers zero or more chunks of a payload between a BeginX and
	// its matching EndX. For bulk strings the parser may split delivery
	// across several calls as bytes arrive; callers must not assume a
	// single call carries the whole payload.
	Chars(b []byte)
}
