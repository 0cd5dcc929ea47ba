package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashdb/respkv/internal/command"
	"github.com/flashdb/respkv/internal/store"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	db := store.New(func() int64 { return 0 })
	s := New(Config{Port: 0, RingSize: 4096, SendBufSize: 1 << 16}, db, command.DefaultTable(), db.Now)

	require.NoError(t, s.Listen())
	go func() {
		_ = s.Serve()
	}()
	// The spec's event loop is "nominally infinite" (§6) with no graceful
	// shutdown API, so the Serve goroutine outlives the test. That leaked
	// goroutine is an accepted tradeoff given there is no Close to call.
	return s.Addr()
}

func dialAndSend(t *testing.T, addr string, raw string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestServer_PingPong(t *testing.T) {
	addr := startTestServer(t)
	resp := dialAndSend(t, addr, "*1\r\n$4\r\nPING\r\n")
	require.Equal(t, "+PONG\r\n", resp)
}

func TestServer_InlineCommand(t *testing.T) {
	addr := startTestServer(t)
	resp := dialAndSend(t, addr, "PING\r\n")
	require.Equal(t, "+PONG\r\n", resp)
}

func TestServer_SetThenGet(t *testing.T) {
	addr := startTestServer(t)
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line1, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", line1)

	line2, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "$1\r\n", line2)
	line3, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "v\r\n", line3)
}

func TestServer_MalformedInputDropsConnection(t *testing.T) {
	addr := startTestServer(t)
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write([]byte("*1\r\n$abc\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = conn.Read(buf)
	require.Error(t, err)
}
