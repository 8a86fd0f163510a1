//go:build windows
// +build windows

package interprocess

import "github.com/bitdewy/interprocess/internal/guid"

// newConnectionName builds a connection identifier that is unique across
// the lifetime of the process and safe to reuse as a map key: endpoint,
// then a GUID. The original design named connections
// "<endpoint>#<int32 cast of the pipe handle>"; handle values are reused by
// the OS as soon as they're closed, so two connections accepted far apart
// in time could collide under that scheme across process restarts sharing
// a log. A random GUID per accepted/dialed instance has no such collision.
func newConnectionName(endpoint string) (string, error) {
	id, err := guid.New()
	if err != nil {
		return "", err
	}
	return endpoint + "#" + id.String(), nil
}
