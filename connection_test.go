//go:build windows
// +build windows

package interprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

// connectedPipePair dials a fresh named pipe and returns both ends' raw
// handles, already connected, for tests that want to drive Connection
// directly rather than through Server/Client.
func connectedPipePair(t *testing.T) (server, client windows.Handle) {
	t.Helper()
	endpoint := uniqueTestEndpoint(t)

	server, err := createServerInstance(endpoint, nil)
	require.NoError(t, err)

	accepted := make(chan error, 1)
	go func() {
		overlapped := &windows.Overlapped{}
		err := windows.ConnectNamedPipe(server, overlapped)
		if err == windows.ERROR_PIPE_CONNECTED {
			err = nil
		}
		if err == windows.ERROR_IO_PENDING {
			err = nil
		}
		accepted <- err
	}()

	client, err = dialClientInstance(endpoint, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, <-accepted)

	t.Cleanup(func() {
		closePipe(server)
		closePipe(client)
	})
	return server, client
}

func TestConnectionPostDeliversToPeer(t *testing.T) {
	serverPipe, clientPipe := connectedPipePair(t)

	received := make(chan []byte, 1)
	serverConn, err := newConnection("server-side", serverPipe, func(c *Connection, msg []byte) {
		received <- append([]byte(nil), msg...)
	}, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close(); serverConn.wait() })

	clientConn, err := newConnection("client-side", clientPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close(); clientConn.wait() })

	require.NoError(t, clientConn.Post([]byte("ping")))

	select {
	case msg := <-received:
		require.Equal(t, "ping", string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestConnectionPostRejectsOversizedMessage(t *testing.T) {
	serverPipe, clientPipe := connectedPipePair(t)

	serverConn, err := newConnection("server-side", serverPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close(); serverConn.wait() })
	clientConn, err := newConnection("client-side", clientPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close(); clientConn.wait() })

	err = clientConn.Post(make([]byte, kBufferSize))
	require.Equal(t, ErrMessageTooLarge, err)
}

func TestConnectionClosePreventsFurtherPosts(t *testing.T) {
	serverPipe, clientPipe := connectedPipePair(t)

	serverConn, err := newConnection("server-side", serverPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close(); serverConn.wait() })

	clientConn, err := newConnection("client-side", clientPipe, nil, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, clientConn.Close())
	clientConn.wait()

	err = clientConn.Post([]byte("too late"))
	require.Equal(t, ErrConnectionClosed, err)
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	serverPipe, clientPipe := connectedPipePair(t)

	serverConn, err := newConnection("server-side", serverPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close(); serverConn.wait() })

	clientConn, err := newConnection("client-side", clientPipe, nil, nil, nil, nil)
	require.NoError(t, err)

	require.NoError(t, clientConn.Close())
	require.NoError(t, clientConn.Close())
	clientConn.wait()
}

func TestConnectionCloseInvokesCloseCallback(t *testing.T) {
	serverPipe, clientPipe := connectedPipePair(t)

	serverConn, err := newConnection("server-side", serverPipe, nil, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { serverConn.Close(); serverConn.wait() })

	closed := make(chan struct{})
	clientConn, err := newConnection("client-side", clientPipe, nil, func(c *Connection) {
		close(closed)
	}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, clientConn.Close())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close callback never ran")
	}
	clientConn.wait()
}
