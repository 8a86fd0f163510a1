//go:build windows
// +build windows

package interprocess

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

// uniqueTestEndpoint returns a pipe endpoint name specific to the running
// test, so parallel test functions never race over the same pipe.
func uniqueTestEndpoint(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "-", " ", "_").Replace(t.Name())
	return fmt.Sprintf("interprocess-test-%d-%s", os.Getpid(), name)
}
