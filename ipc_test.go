//go:build windows
// +build windows

package interprocess

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startEchoServer(t *testing.T, endpoint string) *Server {
	t.Helper()
	server := NewServer(endpoint)
	server.SetMessageCallback(func(conn *Connection, msg []byte) {
		_ = conn.Post(msg)
	})
	require.NoError(t, server.Listen())
	t.Cleanup(server.Stop)
	return server
}

func TestPostDeliversMessage(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	startEchoServer(t, endpoint)

	client := NewClient(endpoint, WithDialTimeout(2*time.Second))
	received := make(chan []byte, 1)
	client.SetMessageCallback(func(conn *Connection, msg []byte) {
		received <- append([]byte(nil), msg...)
	})
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Post([]byte("hello")))

	select {
	case msg := <-received:
		require.Equal(t, "hello", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}
}

func TestTransactMessageRoundTrip(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	startEchoServer(t, endpoint)

	client := NewClient(endpoint, WithDialTimeout(2*time.Second))
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	reply, err := client.TransactMessage([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, "ping", string(reply))
}

func TestTransactMessageTimesOutWithoutReply(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	server := NewServer(endpoint)
	// No message callback is set, so nothing ever replies.
	require.NoError(t, server.Listen())
	t.Cleanup(server.Stop)

	client := NewClient(endpoint, WithDialTimeout(2*time.Second), WithTransactTimeout(300*time.Millisecond))
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	_, err := client.TransactMessage([]byte("ping"))
	require.True(t, errors.Is(err, ErrTransactTimeout), "got %v", err)
}

func TestMessageTooLargeRejectedSynchronously(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	startEchoServer(t, endpoint)

	client := NewClient(endpoint, WithDialTimeout(2*time.Second))
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	big := make([]byte, kBufferSize)
	err := client.Post(big)
	require.True(t, errors.Is(err, ErrMessageTooLarge), "got %v", err)
}

func TestBroadcastReachesAllConnections(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	server := NewServer(endpoint)
	require.NoError(t, server.Listen())
	t.Cleanup(server.Stop)

	const clientCount = 3
	received := make(chan []byte, clientCount)
	clients := make([]*Client, clientCount)
	for i := 0; i < clientCount; i++ {
		c := NewClient(endpoint, WithDialTimeout(2*time.Second))
		c.SetMessageCallback(func(conn *Connection, msg []byte) {
			received <- append([]byte(nil), msg...)
		})
		require.NoError(t, c.Connect())
		clients[i] = c
	}
	t.Cleanup(func() {
		for _, c := range clients {
			c.Close()
		}
	})

	require.Eventually(t, func() bool {
		return len(server.Connections()) == clientCount
	}, 2*time.Second, 10*time.Millisecond)

	server.Broadcast([]byte("all"))

	for i := 0; i < clientCount; i++ {
		select {
		case msg := <-received:
			require.Equal(t, "all", string(msg))
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for broadcast message %d", i)
		}
	}
}

func TestCloseConnectionNotifiesPeer(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	server := NewServer(endpoint)
	require.NoError(t, server.Listen())
	t.Cleanup(server.Stop)

	closed := make(chan struct{})
	client := NewClient(endpoint, WithDialTimeout(2*time.Second))
	client.SetCloseCallback(func(conn *Connection) { close(closed) })
	require.NoError(t, client.Connect())

	require.Eventually(t, func() bool {
		return len(server.Connections()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	for _, name := range server.Connections() {
		require.NoError(t, server.CloseConnection(name))
	}

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not notified of the server-initiated close")
	}
}

func TestClientConnectTwiceFails(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	startEchoServer(t, endpoint)

	client := NewClient(endpoint, WithDialTimeout(2*time.Second))
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	require.Error(t, client.Connect())
}

func TestServerListenTwiceFails(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	server := NewServer(endpoint)
	require.NoError(t, server.Listen())
	t.Cleanup(server.Stop)

	require.Error(t, server.Listen())
}
