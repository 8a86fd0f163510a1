//go:build windows
// +build windows

package interprocess

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// WithBufferSize overrides the pipe input/output buffer size passed to
// CreateNamedPipe. It does not change the message size limit: a Connection
// still rejects messages of kBufferSize bytes or more and reads into a
// kBufferSize buffer.
func WithBufferSize(size uint32) ServerOption {
	return func(s *Server) { s.cfg.BufferSize = size }
}

// WithClientTimeout overrides the client connect timeout CreateNamedPipe
// advertises for every accepted instance.
func WithClientTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.cfg.ClientTimeout = d }
}

// WithSecurityDescriptor locks down the pipe's DACL via an SDDL string.
func WithSecurityDescriptor(sddl string) ServerOption {
	return func(s *Server) { s.cfg.SecurityDescriptor = sddl }
}

// WithQueueSize sets how many pipe instances the server keeps waiting for
// a peer concurrently, bounding how many clients can dial in at once
// without one racing ERROR_PIPE_BUSY against another.
func WithQueueSize(n uint32) ServerOption {
	return func(s *Server) { s.cfg.QueueSize = n }
}

// WithServerLogger overrides the *logrus.Entry the server and every
// connection it accepts log through. Defaults to logrus.StandardLogger().
func WithServerLogger(log *logrus.Entry) ServerOption {
	return func(s *Server) { s.log = log }
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithDialTimeout bounds how long Connect retries ERROR_PIPE_BUSY before
// giving up.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithTransactTimeout sets the default TransactMessage reply timeout for
// this Client; Connection.TransactMessage still accepts a per-call
// override.
func WithTransactTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.transactTimeout = d }
}

// WithClientLogger overrides the *logrus.Entry the client and its
// connection log through. Defaults to logrus.StandardLogger().
func WithClientLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) { c.log = log }
}
