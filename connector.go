//go:build windows
// +build windows

package interprocess

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// connect is the client-side counterpart of acceptor: it dials endpoint,
// retrying through ERROR_PIPE_BUSY until timeout elapses, and wraps the
// resulting pipe instance in a Connection. Where the Acceptor waits for a
// peer to arrive, the Connector goes and finds one; both hand off to the
// same Connection once a pipe instance is in hand.
func connect(endpoint string, timeout time.Duration, onMessage MessageCallback, onClose CloseCallback, onError ExceptionCallback, log *logrus.Entry) (*Connection, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("endpoint", endpoint)

	pipe, err := dialClientInstance(endpoint, timeout)
	if err != nil {
		log.WithError(err).Error("dial failed")
		return nil, err
	}

	name, err := newConnectionName(endpoint)
	if err != nil {
		closePipe(pipe)
		return nil, errors.Wrap(err, "name connection")
	}

	return newConnection(name, pipe, onMessage, onClose, onError, log)
}
