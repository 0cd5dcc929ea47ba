package netpoll

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

// IgnoreSIGPIPE stops a write to a peer that has already reset the
// connection from killing the process, the default disposition for raw
// fd writes on Linux (spec §4.7 wants a dropped client, not a dead server).
func IgnoreSIGPIPE() {
	signal.Ignore(unix.SIGPIPE)
}
