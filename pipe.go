//go:build windows
// +build windows

package interprocess

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// PipeConfig configures the named pipe a Server creates for every accepted
// instance, and the handle-state a Client dials into. The zero value matches
// the distilled spec's constants.
type PipeConfig struct {
	// BufferSize is both the input and output buffer size. Defaults to
	// kBufferSize. The largest message a Connection sends or reads stays
	// below kBufferSize whatever this is set to.
	BufferSize uint32

	// ClientTimeout is the client time-out CreateNamedPipe is given; it
	// bounds how long a blocking client waits for this instance. Defaults
	// to kTimeout milliseconds.
	ClientTimeout time.Duration

	// SecurityDescriptor, in SDDL format, locks down which principals may
	// connect to the pipe. Empty uses the system default DACL.
	SecurityDescriptor string

	// QueueSize bounds how many pipe instances concurrently sit waiting
	// for a peer to connect, conceptually similar to the backlog argument
	// to listen(2). Defaults to 1 (a single accept worker).
	QueueSize uint32
}

func (c *PipeConfig) bufferSize() uint32 {
	if c == nil || c.BufferSize == 0 {
		return kBufferSize
	}
	return c.BufferSize
}

func (c *PipeConfig) clientTimeoutMillis() uint32 {
	if c == nil || c.ClientTimeout == 0 {
		return kTimeout
	}
	return uint32(c.ClientTimeout / time.Millisecond)
}

func (c *PipeConfig) queueSize() uint32 {
	if c == nil || c.QueueSize == 0 {
		return 1
	}
	return c.QueueSize
}

// pipeName returns the platform-local name for an endpoint: the Windows
// named-pipe namespace prefix followed by the caller-supplied string.
func pipeName(endpoint string) string {
	return `\\.\pipe\` + endpoint
}

// createServerInstance creates a new named-pipe instance in duplex, message,
// overlapped, blocking mode with unlimited instances -- one call per accept
// cycle, mirroring the original design's CreateConnectInstance.
func createServerInstance(endpoint string, cfg *PipeConfig) (windows.Handle, error) {
	name16, err := windows.UTF16PtrFromString(pipeName(endpoint))
	if err != nil {
		return windows.InvalidHandle, newPipeError("PipeCreate", endpoint, err)
	}

	var sa *windows.SecurityAttributes
	if cfg != nil && cfg.SecurityDescriptor != "" {
		sd, err := SddlToSecurityDescriptor(cfg.SecurityDescriptor)
		if err != nil {
			return windows.InvalidHandle, newPipeError("PipeCreate", endpoint, err)
		}
		sa = &windows.SecurityAttributes{
			Length:             uint32(len(sd)),
			SecurityDescriptor: uintptr(pointerToBytes(sd)),
		}
	}

	size := cfg.bufferSize()
	h, err := windows.CreateNamedPipe(
		name16,
		windows.PIPE_ACCESS_DUPLEX|windows.FILE_FLAG_OVERLAPPED,
		windows.PIPE_TYPE_MESSAGE|windows.PIPE_READMODE_MESSAGE|windows.PIPE_WAIT,
		windows.PIPE_UNLIMITED_INSTANCES,
		size,
		size,
		cfg.clientTimeoutMillis(),
		sa,
	)
	if err != nil {
		return windows.InvalidHandle, newPipeError("PipeCreate", endpoint, err)
	}
	return h, nil
}

// dialClientInstance opens an existing pipe instance by endpoint name,
// retrying on ERROR_PIPE_BUSY until timeout elapses, then switches the
// handle to message-read mode.
func dialClientInstance(endpoint string, timeout time.Duration) (windows.Handle, error) {
	name16, err := windows.UTF16PtrFromString(pipeName(endpoint))
	if err != nil {
		return windows.InvalidHandle, newPipeError("PipeDial", endpoint, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		h, err := windows.CreateFile(
			name16,
			windows.GENERIC_READ|windows.GENERIC_WRITE,
			0,
			nil,
			windows.OPEN_EXISTING,
			windows.FILE_FLAG_OVERLAPPED,
			0,
		)
		if err == nil {
			if modeErr := setMessageReadMode(h); modeErr != nil {
				windows.CloseHandle(h)
				return windows.InvalidHandle, newPipeError("PipeMode", endpoint, modeErr)
			}
			return h, nil
		}
		if !errors.Is(err, windows.ERROR_PIPE_BUSY) {
			return windows.InvalidHandle, newPipeError("PipeDial", endpoint, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return windows.InvalidHandle, newPipeError("PipeBusyTimeout", endpoint, ErrPipeBusyTimeout)
		}
		waitMillis := uint32(remaining / time.Millisecond)
		if waitMillis == 0 {
			waitMillis = 1
		}
		if err := waitNamedPipe(name16, waitMillis); err != nil {
			if errors.Is(err, windows.WAIT_TIMEOUT) || errors.Is(err, windows.ERROR_SEM_TIMEOUT) {
				return windows.InvalidHandle, newPipeError("PipeBusyTimeout", endpoint, ErrPipeBusyTimeout)
			}
			return windows.InvalidHandle, newPipeError("PipeDial", endpoint, err)
		}
	}
}

func setMessageReadMode(h windows.Handle) error {
	mode := uint32(windows.PIPE_READMODE_MESSAGE)
	return windows.SetNamedPipeHandleState(h, &mode, nil, nil)
}

// cancelPipeIO cancels outstanding overlapped operations on h. Used to
// abort a pending read so a queued write can take the pipe, and on
// shutdown to unblock whatever completion routine is outstanding.
func cancelPipeIO(h windows.Handle) error {
	err := windows.CancelIoEx(h, nil)
	if err != nil && errors.Is(err, windows.ERROR_NOT_FOUND) {
		return nil
	}
	return err
}

// disconnectPipe tears down a server instance's connection so a half-open
// peer observes a broken pipe immediately rather than timing out.
func disconnectPipe(h windows.Handle) error {
	return disconnectNamedPipe(h)
}

func closePipe(h windows.Handle) error {
	return windows.CloseHandle(h)
}

func pointerToBytes(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}
