//go:build windows
// +build windows

package interprocess

import (
	"testing"
	"time"

	"golang.org/x/sys/windows"
)

func TestPipeNameAddsNamespacePrefix(t *testing.T) {
	got := pipeName("my-endpoint")
	want := `\\.\pipe\my-endpoint`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDialUnknownEndpointFails(t *testing.T) {
	_, err := dialClientInstance(uniqueTestEndpoint(t), 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected dial to an endpoint nobody is listening on to fail")
	}
}

func TestCreateAndDialServerInstance(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	pipe, err := createServerInstance(endpoint, nil)
	if err != nil {
		t.Fatalf("createServerInstance: %v", err)
	}
	defer closePipe(pipe)

	dialErr := make(chan error, 1)
	go func() {
		client, err := dialClientInstance(endpoint, 2*time.Second)
		if err == nil {
			closePipe(client)
		}
		dialErr <- err
	}()

	overlapped := &windows.Overlapped{}
	if err := windows.ConnectNamedPipe(pipe, overlapped); err != nil &&
		err != windows.ERROR_PIPE_CONNECTED && err != windows.ERROR_IO_PENDING {
		t.Fatalf("ConnectNamedPipe: %v", err)
	}

	if err := <-dialErr; err != nil {
		t.Fatalf("dialClientInstance: %v", err)
	}
}

func TestCreateServerInstanceAcceptsCustomBufferSize(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	cfg := &PipeConfig{BufferSize: 8192}
	pipe, err := createServerInstance(endpoint, cfg)
	if err != nil {
		t.Fatalf("createServerInstance: %v", err)
	}
	closePipe(pipe)
}

func TestCreateServerInstanceRejectsBadSddl(t *testing.T) {
	endpoint := uniqueTestEndpoint(t)
	cfg := &PipeConfig{SecurityDescriptor: "not a valid sddl string"}
	_, err := createServerInstance(endpoint, cfg)
	if err == nil {
		t.Fatal("expected an invalid SDDL string to be rejected")
	}
}
