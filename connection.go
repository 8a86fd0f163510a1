//go:build windows
// +build windows

package interprocess

import (
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// Connection is one bidirectional, message-oriented endpoint of a named
// pipe. Every Connection owns exactly one goroutine, locked to its OS
// thread for the lifetime of the connection: ReadFileEx/WriteFileEx deliver
// their completion routines as APCs, and APCs only run on the thread that
// issued the call, while it sits in an alertable wait. That goroutine is
// the only place messageCallback/closeCallback ever run.
type Connection struct {
	name string
	pipe windows.Handle

	onMessage MessageCallback
	onClose   CloseCallback
	onError   ExceptionCallback

	mu        sync.Mutex
	state     State
	sendQueue [][]byte
	writing   bool
	closed    bool

	// pendingRead/pendingWrite hold the ioContext of whichever
	// ReadFileEx/WriteFileEx call is currently outstanding on pipe, so the
	// completion routine's *ioContext stays reachable to the garbage
	// collector until the kernel calls back -- without this, the ctx
	// returned by newIoContext would be rooted by nothing but the pointer
	// already in flight inside the kernel, which Go's collector cannot see.
	pendingRead  *ioContext
	pendingWrite *ioContext

	// postEvent wakes the io goroutine when Post adds to sendQueue.
	// closeEvent wakes it to unwind and tear the connection down.
	// cancelEvent is signalled once a cancelled read has actually stopped,
	// so beginWriteIfIdle can wait for it before arming a write -- the pipe
	// primitive only ever tolerates one outstanding operation at a time.
	postEvent   *event
	closeEvent  *event
	cancelEvent *event

	// transactMu/transactCond/transactWait/transactReply implement the
	// single in-flight TransactMessage rendezvous: a read completion that
	// lands while transactWait is set is routed to transactReply instead
	// of onMessage.
	transactMu    sync.Mutex
	transactCond  *sync.Cond
	transactWait  bool
	transactReply []byte

	readBuf []byte

	// inCallback is non-zero while onMessage/onClose is running on the io
	// goroutine. TransactMessage refuses to run while it is set, since
	// that call is necessarily happening on the one goroutine that would
	// have to service the very read it's about to block on.
	inCallback int32

	log *logrus.Entry

	done chan struct{}
}

func newConnection(name string, pipe windows.Handle, onMessage MessageCallback, onClose CloseCallback, onError ExceptionCallback, log *logrus.Entry) (*Connection, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("connection", name)

	postEvent, err := newEvent(false, false)
	if err != nil {
		return nil, errors.Wrap(err, "connection post event")
	}
	postGuard := newScopeGuard(func() { postEvent.close() })
	defer postGuard.run()

	closeEvent, err := newEvent(true, false)
	if err != nil {
		return nil, errors.Wrap(err, "connection close event")
	}
	closeGuard := newScopeGuard(func() { closeEvent.close() })
	defer closeGuard.run()

	cancelEvent, err := newEvent(true, false)
	if err != nil {
		return nil, errors.Wrap(err, "connection cancel event")
	}

	c := &Connection{
		name:        name,
		pipe:        pipe,
		onMessage:   onMessage,
		onClose:     onClose,
		onError:     onError,
		postEvent:   postEvent,
		closeEvent:  closeEvent,
		cancelEvent: cancelEvent,
		readBuf:     make([]byte, kBufferSize),
		log:         log,
		done:        make(chan struct{}),
	}
	c.transactCond = sync.NewCond(&c.transactMu)

	postGuard.dismiss()
	closeGuard.dismiss()
	go c.ioLoop()
	return c, nil
}

// Name returns the connection's unique identifier, <endpoint>#<guid>.
func (c *Connection) Name() string { return c.name }

// State reports whether the connection is idle, has a send outstanding or
// queued.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Post enqueues message for delivery and returns without waiting for the
// write to complete. Messages from a single Post/TransactMessage caller are
// delivered in the order they were queued.
func (c *Connection) Post(message []byte) error {
	if len(message) >= kBufferSize {
		return ErrMessageTooLarge
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.sendQueue = append(c.sendQueue, append([]byte(nil), message...))
	c.state = StateSendPending
	c.mu.Unlock()
	c.log.WithField("state", StateSendPending).Debug("message queued")

	if err := c.postEvent.set(); err != nil {
		return errors.Wrap(err, "signal post event")
	}
	return nil
}

// TransactMessage posts message and blocks until the next message this
// connection reads is delivered back as the reply, or until timeout
// elapses. A timeout <= 0 uses defaultTransactTimeout. Only one
// TransactMessage may be outstanding on a Connection at a time; a second
// caller blocks until the first completes.
func (c *Connection) TransactMessage(message []byte, timeout time.Duration) ([]byte, error) {
	if atomic.LoadInt32(&c.inCallback) != 0 {
		return nil, ErrTransactOnIOThread
	}
	if len(message) >= kBufferSize {
		return nil, ErrMessageTooLarge
	}
	if timeout <= 0 {
		timeout = defaultTransactTimeout
	}

	c.transactMu.Lock()
	for c.transactWait {
		c.transactCond.Wait()
	}
	c.transactWait = true
	c.transactReply = nil
	c.transactMu.Unlock()

	if err := c.Post(message); err != nil {
		c.abortTransact()
		return nil, err
	}

	reply := make(chan []byte, 1)
	go func() {
		c.transactMu.Lock()
		for c.transactWait && c.transactReply == nil {
			c.transactCond.Wait()
		}
		r := c.transactReply
		c.transactReply = nil
		c.transactWait = false
		c.transactCond.Broadcast()
		c.transactMu.Unlock()
		reply <- r
	}()

	select {
	case r := <-reply:
		if r == nil {
			return nil, ErrConnectionClosed
		}
		return r, nil
	case <-time.After(timeout):
		c.abortTransact()
		return nil, ErrTransactTimeout
	}
}

func (c *Connection) abortTransact() {
	c.transactMu.Lock()
	c.transactWait = false
	c.transactReply = nil
	c.transactCond.Broadcast()
	c.transactMu.Unlock()
}

// Close requests the connection shut down. Safe to call from any
// goroutine, including from within a MessageCallback or CloseCallback.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.closeEvent.set()
}

// wait blocks until the connection's io goroutine has fully torn down.
func (c *Connection) wait() {
	<-c.done
}

func (c *Connection) deliverMessage(msg []byte) {
	c.transactMu.Lock()
	if c.transactWait {
		c.transactReply = append([]byte(nil), msg...)
		c.transactWait = false
		c.transactCond.Broadcast()
		c.transactMu.Unlock()
		return
	}
	c.transactMu.Unlock()

	if c.onMessage == nil {
		return
	}
	atomic.StoreInt32(&c.inCallback, 1)
	func() {
		defer atomic.StoreInt32(&c.inCallback, 0)
		c.onMessage(c, msg)
	}()
}

// armRead issues a new ReadFileEx against readBuf and roots its ioContext
// in pendingRead until the completion routine clears it.
func (c *Connection) armRead() error {
	ctx := newIoContext(c, c.readBuf)
	c.mu.Lock()
	c.pendingRead = ctx
	c.mu.Unlock()

	if err := readFileEx(c.pipe, &ctx.buf[0], uint32(len(ctx.buf)), &ctx.Overlapped, readCompletionCallback); err != nil {
		c.mu.Lock()
		c.pendingRead = nil
		c.mu.Unlock()
		return err
	}
	return nil
}

// beginWriteIfIdle arms the next queued write if none is currently
// outstanding. Called from the io goroutine after observing postEvent.
//
// The pipe primitive tolerates only one outstanding overlapped operation at
// a time, and armRead leaves a read outstanding as soon as the connection
// is established. So before a write can be issued, the outstanding read
// must be cancelled and confirmed gone -- cancelReadAndWaitForIt does both.
func (c *Connection) beginWriteIfIdle() error {
	c.mu.Lock()
	if c.writing || len(c.sendQueue) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.writing = true
	c.mu.Unlock()

	if err := c.cancelReadAndWaitForIt(); err != nil {
		return err
	}
	return c.armNextWrite()
}

// cancelReadAndWaitForIt cancels the outstanding read (if any) and blocks,
// via the same alertable-wait pattern the io goroutine itself uses, until
// the completion routine has observed the cancellation and cleared
// pendingRead. Returns ErrConnectionClosed if closeEvent fires first.
func (c *Connection) cancelReadAndWaitForIt() error {
	c.mu.Lock()
	pending := c.pendingRead
	c.mu.Unlock()
	if pending == nil {
		return nil
	}

	if err := c.cancelEvent.reset(); err != nil {
		return errors.Wrap(err, "reset cancel event")
	}
	if err := cancelPipeIO(c.pipe); err != nil {
		return errors.Wrap(err, "CancelIoEx")
	}
	c.log.Debug("cancelling outstanding read to make room for a write")

	handles := [2]windows.Handle{c.cancelEvent.handle, c.closeEvent.handle}
	for {
		c.mu.Lock()
		stillPending := c.pendingRead != nil
		c.mu.Unlock()
		if !stillPending {
			return nil
		}

		ev, err := waitForMultipleObjectsEx(uint32(len(handles)), &handles[0], false, windows.INFINITE, true)
		if err != nil {
			return errors.Wrap(err, "WaitForMultipleObjectsEx")
		}
		switch ev {
		case 0:
			continue
		case 1:
			return ErrConnectionClosed
		case windows.WAIT_IO_COMPLETION:
			continue
		default:
			return errors.Errorf("unexpected WaitForMultipleObjectsEx result 0x%x", ev)
		}
	}
}

// armNextWrite pops the head of sendQueue and issues it, or, if the queue
// is empty, resumes reading and returns to idle. Called both from
// beginWriteIfIdle and, to chain sends, from onWriteComplete.
func (c *Connection) armNextWrite() error {
	c.mu.Lock()
	if len(c.sendQueue) == 0 {
		c.writing = false
		c.state = StateConnected
		c.mu.Unlock()
		c.log.WithField("state", StateConnected).Debug("writes drained, resuming read")
		return c.armRead()
	}
	msg := c.sendQueue[0]
	c.sendQueue = c.sendQueue[1:]
	c.state = StateSendPending
	c.mu.Unlock()

	ctx := newIoContext(c, msg)
	c.mu.Lock()
	c.pendingWrite = ctx
	c.mu.Unlock()

	var bufPtr *byte
	if len(msg) > 0 {
		bufPtr = &ctx.buf[0]
	}
	if err := writeFileEx(c.pipe, bufPtr, uint32(len(msg)), &ctx.Overlapped, writeCompletionCallback); err != nil {
		c.mu.Lock()
		c.pendingWrite = nil
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Connection) onReadComplete(errCode, numBytes uint32, ctx *ioContext) {
	c.mu.Lock()
	if c.pendingRead == ctx {
		c.pendingRead = nil
	}
	c.mu.Unlock()

	if errCode != 0 {
		if syscall.Errno(errCode) == windows.ERROR_OPERATION_ABORTED {
			c.cancelEvent.set()
			return
		}
		c.fail(newPipeError("PipeRead", c.name, syscall.Errno(errCode)))
		return
	}

	msg := append([]byte(nil), ctx.buf[:numBytes]...)
	c.deliverMessage(msg)

	c.mu.Lock()
	writing := c.writing
	c.mu.Unlock()
	if writing {
		// A write started racing this read's completion; leave the pipe
		// idle for beginWriteIfIdle/armNextWrite to claim rather than
		// re-arming a read that would immediately have to be cancelled.
		c.cancelEvent.set()
		return
	}

	if err := c.armRead(); err != nil {
		c.fail(&IoSubmitError{Connection: c.name, Op: "read", Err: err})
	}
}

func (c *Connection) onWriteComplete(errCode, numBytes uint32, ctx *ioContext) {
	c.mu.Lock()
	if c.pendingWrite == ctx {
		c.pendingWrite = nil
	}
	c.mu.Unlock()

	if errCode != 0 {
		if syscall.Errno(errCode) == windows.ERROR_OPERATION_ABORTED {
			return
		}
		c.fail(newPipeError("PipeWrite", c.name, syscall.Errno(errCode)))
		return
	}
	if err := c.armNextWrite(); err != nil {
		c.fail(&IoSubmitError{Connection: c.name, Op: "write", Err: err})
	}
}

func (c *Connection) fail(err error) {
	switch err.(type) {
	case *IoSubmitError:
		c.log.WithError(err).Warn("connection io resubmit failed")
	default:
		c.log.WithError(err).Error("connection error")
	}
	if c.onError != nil {
		c.onError(err)
	}
	// Any I/O failure ends the connection: wake ioLoop so it unwinds
	// through teardown and onClose.
	c.closeEvent.set()
}

// ioLoop is the single goroutine, locked to its OS thread, that owns this
// connection's handle. It issues the first read, then alternates between
// an alertable wait (so queued APCs -- the completion routines above --
// get to run) and reacting to postEvent/closeEvent.
func (c *Connection) ioLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.done)
	defer c.teardown()

	if err := c.armRead(); err != nil {
		c.fail(newPipeError("PipeRead", c.name, err))
		return
	}
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
	c.log.WithField("state", StateConnected).Debug("connection established")

	handles := [2]windows.Handle{c.postEvent.handle, c.closeEvent.handle}
	for {
		ev, err := waitForMultipleObjectsEx(uint32(len(handles)), &handles[0], false, windows.INFINITE, true)
		if err != nil {
			c.fail(errors.Wrap(err, "WaitForMultipleObjectsEx"))
			return
		}
		switch ev {
		case 0:
			if err := c.postEvent.reset(); err != nil {
				c.fail(errors.Wrap(err, "reset post event"))
				return
			}
			if err := c.beginWriteIfIdle(); err != nil {
				c.fail(&IoSubmitError{Connection: c.name, Op: "write", Err: err})
				return
			}
		case 1:
			return
		case windows.WAIT_IO_COMPLETION:
			// An APC ran to completion; go straight back into the wait.
		default:
			c.fail(errors.Errorf("unexpected WaitForMultipleObjectsEx result 0x%x", ev))
			return
		}
	}
}

func (c *Connection) teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	cancelPipeIO(c.pipe)
	disconnectPipe(c.pipe)
	closePipe(c.pipe)
	c.postEvent.close()
	c.closeEvent.close()
	c.cancelEvent.close()

	c.abortTransact()
	c.log.Debug("connection closed")

	if c.onClose != nil {
		atomic.StoreInt32(&c.inCallback, 1)
		c.onClose(c)
		atomic.StoreInt32(&c.inCallback, 0)
	}
}

// readCompletionRoutine and writeCompletionRoutine are the stable function
// pointers ReadFileEx/WriteFileEx call back into as APCs. Windows delivers
// the completion with the OVERLAPPED pointer it was given; since ioContext
// embeds windows.Overlapped as its first field, that pointer is also a
// valid *ioContext.
func readCompletionRoutine(errCode, numBytes uint32, overlapped *windows.Overlapped) uintptr {
	ctx := (*ioContext)(unsafe.Pointer(overlapped))
	ctx.conn.onReadComplete(errCode, numBytes, ctx)
	return 0
}

func writeCompletionRoutine(errCode, numBytes uint32, overlapped *windows.Overlapped) uintptr {
	ctx := (*ioContext)(unsafe.Pointer(overlapped))
	ctx.conn.onWriteComplete(errCode, numBytes, ctx)
	return 0
}

var (
	readCompletionCallback  = windows.NewCallback(readCompletionRoutine)
	writeCompletionCallback = windows.NewCallback(writeCompletionRoutine)
)
