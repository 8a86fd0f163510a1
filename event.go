//go:build windows
// +build windows

package interprocess

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// event is a thin, owned wrapper over a Windows event object. Exactly one
// owner closes it, exactly once; newConnection, which creates several in a
// row, defers a scopeGuard per event until setup completes so a later failure
// in the same function cannot leak the handle.
type event struct {
	handle windows.Handle
}

// newEvent creates a Windows event object. manualReset events stay signalled
// until explicitly reset; auto-reset events return to non-signalled as soon
// as one waiter observes them.
func newEvent(manualReset, initialState bool) (*event, error) {
	h, err := windows.CreateEvent(nil, boolToUint32(manualReset), boolToUint32(initialState), nil)
	if err != nil {
		return nil, errors.Wrap(err, "CreateEvent")
	}
	return &event{handle: h}, nil
}

// set signals the event.
func (e *event) set() error {
	if err := windows.SetEvent(e.handle); err != nil {
		return errors.Wrap(err, "SetEvent")
	}
	return nil
}

// reset clears a manual-reset event back to non-signalled.
func (e *event) reset() error {
	if err := windows.ResetEvent(e.handle); err != nil {
		return errors.Wrap(err, "ResetEvent")
	}
	return nil
}

// close releases the underlying handle. Safe to call at most once.
func (e *event) close() error {
	if e == nil || e.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(e.handle)
	e.handle = 0
	return err
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
