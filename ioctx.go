//go:build windows
// +build windows

package interprocess

import (
	"golang.org/x/sys/windows"
)

// ioContext is the per-operation state an APC completion routine receives.
// It embeds windows.Overlapped first so a *windows.Overlapped pointer (what
// ReadFileEx/WriteFileEx hand back to the completion routine) can be cast
// straight back to *ioContext via unsafe.Pointer, mirroring how the
// original's IoCompletionRoutine embedded OVERLAPPED and a self pointer.
//
// The original design routed completions through four near-identical
// routines (CompletedReadRoutine/CompletedWriteRoutine, and a ...ForWait
// pair used only while a TransactMessage was outstanding) because which
// routine Windows called back was the only signal available. Here,
// readCompletionRoutine/writeCompletionRoutine are registered once at
// package scope and transact-vs-normal delivery is decided dynamically by
// Connection.deliverMessage, so ioContext needs no kind discriminant at all.
type ioContext struct {
	windows.Overlapped
	conn *Connection
	// buf is the slice the in-flight ReadFileEx/WriteFileEx call was
	// given; it must stay alive and unmoved until the completion routine
	// runs, so it lives here rather than as a local in the caller.
	buf []byte
}

func newIoContext(conn *Connection, buf []byte) *ioContext {
	return &ioContext{conn: conn, buf: buf}
}
