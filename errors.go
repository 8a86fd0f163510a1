//go:build windows
// +build windows

package interprocess

import (
	"github.com/pkg/errors"
)

// Sentinel errors a caller can compare against with errors.Is. Post,
// TransactMessage and CloseConnection return them as they are;
// ErrPipeBusyTimeout reaches the caller inside a *PipeError, and Broadcast
// wraps a per-peer failure with the connection name before reporting it.
var (
	// ErrMessageTooLarge is returned synchronously by Post/TransactMessage
	// when the message is >= kBufferSize. Fails before any I/O is submitted.
	ErrMessageTooLarge = errors.New("message exceeds pipe buffer size")

	// ErrTransactTimeout is returned by TransactMessage when no reply
	// arrives within the transact timeout.
	ErrTransactTimeout = errors.New("transact timed out waiting for reply")

	// ErrTransactOnIOThread is returned by TransactMessage when called
	// from the Connection's own I/O goroutine, which would deadlock.
	ErrTransactOnIOThread = errors.New("TransactMessage must not be called on the I/O goroutine")

	// ErrPipeBusyTimeout is returned when every dial attempt observed the
	// pipe busy and none freed up within the configured timeout.
	ErrPipeBusyTimeout = errors.New("named pipe busy: timed out waiting for a free instance")

	// ErrConnectionClosed is returned by operations attempted on a
	// Connection that has already shut down.
	ErrConnectionClosed = errors.New("connection is closed")

	// errAcceptorStopped marks an in-progress accept that was cancelled
	// by Server.Stop. It never reaches ExceptionCallback.
	errAcceptorStopped = errors.New("acceptor stopped")
)

// PipeError wraps a failure from the pipe primitive (create, dial, mode
// switch, accept, or a failed read/write completion) with the operation and
// the endpoint or connection name that produced it.
type PipeError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *PipeError) Error() string {
	return errors.Wrapf(e.Err, "%s %s", e.Op, e.Endpoint).Error()
}

func (e *PipeError) Unwrap() error { return e.Err }

func newPipeError(op, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &PipeError{Op: op, Endpoint: endpoint, Err: err}
}

// ConnectFailedError reports an overlapped connect that returned neither
// ERROR_IO_PENDING nor ERROR_PIPE_CONNECTED.
type ConnectFailedError struct {
	Endpoint string
	Err      error
}

func (e *ConnectFailedError) Error() string {
	return errors.Wrapf(e.Err, "connect failed on %s", e.Endpoint).Error()
}

func (e *ConnectFailedError) Unwrap() error { return e.Err }

// IoSubmitError reports that re-arming a read or write after a completion
// failed to submit. It downgrades to a Connection shutdown, never an
// endpoint-wide failure.
type IoSubmitError struct {
	Connection string
	Op         string
	Err        error
}

func (e *IoSubmitError) Error() string {
	return errors.Wrapf(e.Err, "resubmit %s on %s", e.Op, e.Connection).Error()
}

func (e *IoSubmitError) Unwrap() error { return e.Err }
