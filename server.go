//go:build windows
// +build windows

package interprocess

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server accepts connections on a single named-pipe endpoint and tracks
// every Connection currently open against it. Connections are keyed by
// their generated name, <endpoint>#<guid>, so CloseConnection and
// Broadcast never need the caller to have held onto a *Connection.
type Server struct {
	endpoint string
	cfg      *PipeConfig

	mu          sync.RWMutex
	connections map[string]*Connection
	acceptor    *acceptor
	log         *logrus.Entry

	onMessage MessageCallback
	onClose   CloseCallback
	onError   ExceptionCallback
}

// NewServer creates a Server for endpoint. Listen must be called to start
// accepting connections.
func NewServer(endpoint string, opts ...ServerOption) *Server {
	s := &Server{
		endpoint:    endpoint,
		cfg:         &PipeConfig{},
		connections: make(map[string]*Connection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return s
}

func (s *Server) SetMessageCallback(cb MessageCallback) {
	s.mu.Lock()
	s.onMessage = cb
	s.mu.Unlock()
}

func (s *Server) SetCloseCallback(cb CloseCallback) {
	s.mu.Lock()
	s.onClose = cb
	s.mu.Unlock()
}

func (s *Server) SetExceptionCallback(cb ExceptionCallback) {
	s.mu.Lock()
	s.onError = cb
	s.mu.Unlock()
}

// Listen starts the accept loop. Calling Listen twice without an
// intervening Stop returns an error.
func (s *Server) Listen() error {
	s.mu.Lock()
	if s.acceptor != nil {
		s.mu.Unlock()
		return errors.New("server already listening")
	}
	s.mu.Unlock()

	a, err := newAcceptor(s.endpoint, s.cfg, s, s.log)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.acceptor = a
	s.mu.Unlock()
	return nil
}

// Stop halts the accept loop and closes every open connection, waiting for
// each one's io goroutine to finish before returning.
func (s *Server) Stop() {
	s.mu.Lock()
	a := s.acceptor
	s.acceptor = nil
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if a != nil {
		a.stop()
	}
	for _, c := range conns {
		c.Close()
	}
	for _, c := range conns {
		c.wait()
	}
}

// Broadcast posts message to every connection currently open. Per-peer
// send failures (e.g. a connection that closed mid-broadcast) are reported
// through ExceptionCallback rather than aborting the broadcast.
func (s *Server) Broadcast(message []byte) {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		if err := c.Post(message); err != nil {
			s.dispatchError(errors.Wrapf(err, "broadcast to %s", c.Name()))
		}
	}
}

// CloseConnection closes a single named connection. Returns
// ErrConnectionClosed if name is not currently open.
func (s *Server) CloseConnection(name string) error {
	s.mu.RLock()
	c, ok := s.connections[name]
	s.mu.RUnlock()
	if !ok {
		return ErrConnectionClosed
	}
	return c.Close()
}

// Connections returns the names of every connection currently open.
func (s *Server) Connections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.connections))
	for n := range s.connections {
		names = append(names, n)
	}
	return names
}

func (s *Server) addConnection(conn *Connection) {
	s.mu.Lock()
	s.connections[conn.Name()] = conn
	s.mu.Unlock()
}

func (s *Server) dispatchMessage(conn *Connection, msg []byte) {
	s.mu.RLock()
	cb := s.onMessage
	s.mu.RUnlock()
	if cb != nil {
		cb(conn, msg)
	}
}

func (s *Server) dispatchClose(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn.Name())
	cb := s.onClose
	s.mu.Unlock()
	if cb != nil {
		cb(conn)
	}
}

func (s *Server) dispatchError(err error) {
	s.mu.RLock()
	cb := s.onError
	s.mu.RUnlock()
	if cb != nil {
		cb(err)
	}
}
