//go:build windows
// +build windows

package interprocess

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

// acceptor is the server-side endpoint loop: it runs cfg.queueSize() worker
// goroutines, each repeatedly creating a fresh pipe instance, waiting for a
// peer to connect to it, and handing the resulting Connection to the owning
// Server. Running more than one worker bounds how many unclaimed pipe
// instances sit waiting for a peer at once, the same backlog knob the
// teacher's ListenPipe exposes as PipeConfig.QueueSize. Unlike the original
// design's single accept thread, which multiplexed many connections' APCs
// onto one alertable wait, each accepted Connection here gets its own
// goroutine (see Connection.ioLoop) -- an acceptor worker's job ends the
// moment a peer connects, and it immediately starts creating the next
// instance.
type acceptor struct {
	endpoint string
	cfg      *PipeConfig
	server   *Server
	log      *logrus.Entry

	stopEvent *event
	wg        sync.WaitGroup
	done      chan struct{}
}

func newAcceptor(endpoint string, cfg *PipeConfig, server *Server, log *logrus.Entry) (*acceptor, error) {
	stopEvent, err := newEvent(true, false)
	if err != nil {
		return nil, errors.Wrap(err, "acceptor stop event")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("endpoint", endpoint)

	a := &acceptor{
		endpoint:  endpoint,
		cfg:       cfg,
		server:    server,
		log:       log,
		stopEvent: stopEvent,
		done:      make(chan struct{}),
	}

	workers := int(cfg.queueSize())
	a.log.WithField("queueSize", workers).Debug("starting acceptor")
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.runWorker()
	}
	go func() {
		a.wg.Wait()
		a.stopEvent.close()
		close(a.done)
	}()
	return a, nil
}

// stop signals the acceptor to unwind and blocks until every worker has.
func (a *acceptor) stop() {
	a.stopEvent.set()
	<-a.done
}

func (a *acceptor) runWorker() {
	defer a.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		pipe, err := createServerInstance(a.endpoint, a.cfg)
		if err != nil {
			a.log.WithError(err).Error("create pipe instance failed")
			a.server.dispatchError(err)
			return
		}

		conn, err := a.acceptOne(pipe)
		if err != nil {
			closePipe(pipe)
			if errors.Is(err, errAcceptorStopped) {
				return
			}
			a.log.WithError(err).Warn("accept failed")
			a.server.dispatchError(err)
			continue
		}

		a.server.addConnection(conn)
	}
}

// acceptOne waits for a single peer to connect to pipe, returning the
// wrapped Connection once it has. It owns pipe only until it either hands
// it off to a Connection or returns an error -- callers must close pipe
// themselves on error.
func (a *acceptor) acceptOne(pipe windows.Handle) (*Connection, error) {
	connEvent, err := newEvent(true, false)
	if err != nil {
		return nil, errors.Wrap(err, "accept event")
	}
	defer connEvent.close()

	overlapped := &windows.Overlapped{HEvent: connEvent.handle}
	err = windows.ConnectNamedPipe(pipe, overlapped)
	if err == nil || errors.Is(err, windows.ERROR_PIPE_CONNECTED) {
		return a.finishAccept(pipe)
	}
	if !errors.Is(err, windows.ERROR_IO_PENDING) {
		return nil, &ConnectFailedError{Endpoint: a.endpoint, Err: err}
	}

	handles := [2]windows.Handle{connEvent.handle, a.stopEvent.handle}
	for {
		ev, err := waitForMultipleObjectsEx(uint32(len(handles)), &handles[0], false, windows.INFINITE, true)
		if err != nil {
			return nil, errors.Wrap(err, "WaitForMultipleObjectsEx")
		}
		switch ev {
		case 0:
			var transferred uint32
			if err := windows.GetOverlappedResult(pipe, overlapped, &transferred, false); err != nil {
				return nil, newPipeError("PipeAccept", a.endpoint, err)
			}
			return a.finishAccept(pipe)
		case 1:
			cancelPipeIO(pipe)
			return nil, errAcceptorStopped
		case windows.WAIT_IO_COMPLETION:
			continue
		default:
			return nil, errors.Errorf("unexpected WaitForMultipleObjectsEx result 0x%x", ev)
		}
	}
}

func (a *acceptor) finishAccept(pipe windows.Handle) (*Connection, error) {
	name, err := newConnectionName(a.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "name connection")
	}
	a.log.WithField("connection", name).Debug("accepted connection")
	return newConnection(name, pipe, a.server.dispatchMessage, a.server.dispatchClose, a.server.dispatchError, a.log)
}
