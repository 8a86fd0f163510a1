//go:build windows
// +build windows

package interprocess

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows/registry"
)

// registryBasePath is where RegisterEndpoint publishes endpoint metadata,
// adapted from the HKCU service-registration key go-winio's hvsock
// dialer uses to advertise Hyper-V socket service GUIDs.
const registryBasePath = `SOFTWARE\bitdewy\interprocess\Endpoints`

// RegisterEndpoint publishes this server's endpoint name under a
// well-known registry key, with a free-form description, so other
// processes can discover it without an out-of-band side channel.
func (s *Server) RegisterEndpoint(description string) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, registryBasePath+`\`+s.endpoint, registry.SET_VALUE)
	if err != nil {
		return errors.Wrapf(err, "register endpoint %s", s.endpoint)
	}
	defer key.Close()
	return key.SetStringValue("Description", description)
}

// UnregisterEndpoint removes the registry entry RegisterEndpoint created.
// It is not an error to unregister an endpoint that was never registered.
func (s *Server) UnregisterEndpoint() error {
	err := registry.DeleteKey(registry.CURRENT_USER, registryBasePath+`\`+s.endpoint)
	if err != nil && err != registry.ErrNotExist {
		return errors.Wrapf(err, "unregister endpoint %s", s.endpoint)
	}
	return nil
}

// LookupEndpointDescription reads back the description a running Server
// registered for endpoint, for clients that want to present a friendly
// name before dialing.
func LookupEndpointDescription(endpoint string) (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, registryBasePath+`\`+endpoint, registry.QUERY_VALUE)
	if err != nil {
		return "", errors.Wrapf(err, "open endpoint %s", endpoint)
	}
	defer key.Close()

	val, _, err := key.GetStringValue("Description")
	if err != nil {
		return "", errors.Wrapf(err, "read endpoint %s", endpoint)
	}
	return val, nil
}
