//go:build windows
// +build windows

package interprocess

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Client is the single-connection counterpart of Server: it dials one
// endpoint and, once connected, exposes the same Post/TransactMessage
// surface as the Connection it wraps.
type Client struct {
	endpoint        string
	dialTimeout     time.Duration
	transactTimeout time.Duration

	mu   sync.Mutex
	conn *Connection
	log  *logrus.Entry

	onMessage MessageCallback
	onClose   CloseCallback
	onError   ExceptionCallback
}

// NewClient creates a Client for endpoint. Connect must be called before
// Post or TransactMessage will succeed.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:        endpoint,
		dialTimeout:     kTimeout * time.Millisecond,
		transactTimeout: defaultTransactTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}

func (c *Client) SetMessageCallback(cb MessageCallback) {
	c.mu.Lock()
	c.onMessage = cb
	c.mu.Unlock()
}

func (c *Client) SetCloseCallback(cb CloseCallback) {
	c.mu.Lock()
	c.onClose = cb
	c.mu.Unlock()
}

func (c *Client) SetExceptionCallback(cb ExceptionCallback) {
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

// Connect dials the endpoint, blocking until connected or until
// dialTimeout elapses. It returns an error if the Client is already
// connected.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("client already connected")
	}
	timeout := c.dialTimeout
	c.mu.Unlock()

	conn, err := connect(c.endpoint, timeout, c.dispatchMessage, c.dispatchClose, c.dispatchError, c.log)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Connection returns the underlying Connection and whether one is
// currently established.
func (c *Client) Connection() (*Connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.conn != nil
}

// Post queues message for delivery without waiting for the write to
// complete.
func (c *Client) Post(message []byte) error {
	conn, ok := c.Connection()
	if !ok {
		return ErrConnectionClosed
	}
	return conn.Post(message)
}

// TransactMessage posts message and blocks for the reply, using the
// Client's configured transact timeout.
func (c *Client) TransactMessage(message []byte) ([]byte, error) {
	conn, ok := c.Connection()
	if !ok {
		return nil, ErrConnectionClosed
	}
	c.mu.Lock()
	timeout := c.transactTimeout
	c.mu.Unlock()
	return conn.TransactMessage(message, timeout)
}

// Close tears down the connection, if any, and waits for its io goroutine
// to finish.
func (c *Client) Close() error {
	conn, ok := c.Connection()
	if !ok {
		return nil
	}
	err := conn.Close()
	conn.wait()
	return err
}

func (c *Client) dispatchMessage(conn *Connection, msg []byte) {
	c.mu.Lock()
	cb := c.onMessage
	c.mu.Unlock()
	if cb != nil {
		cb(conn, msg)
	}
}

func (c *Client) dispatchClose(conn *Connection) {
	c.mu.Lock()
	c.conn = nil
	cb := c.onClose
	c.mu.Unlock()
	if cb != nil {
		cb(conn)
	}
}

func (c *Client) dispatchError(err error) {
	c.mu.Lock()
	cb := c.onError
	c.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}
