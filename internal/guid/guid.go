// Package guid provides the connection identifier used to suffix endpoint
// names. It is adapted from go-winio's pkg/guid, trimmed to the
// generation/parsing/stringification a Connection name needs: a stable,
// loggable suffix that does not collide across process restarts the way a
// reused kernel handle value would.
package guid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// GUID is a 128-bit identifier laid out the way native Windows code expects
// (mixed-endian encoding), so it can be round-tripped through APIs that
// expect a windows.GUID-shaped value without reinterpreting bytes.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// New returns a new version 4 (pseudorandom) GUID, as defined by RFC 4122.
func New() (GUID, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return GUID{}, errors.Wrap(err, "generating connection identifier")
	}

	b[6] = (b[6] & 0x0f) | 0x40 // version 4 (randomly generated)
	b[8] = (b[8] & 0x3f) | 0x80 // RFC 4122 variant

	var g GUID
	g.Data1 = binary.BigEndian.Uint32(b[0:4])
	g.Data2 = binary.BigEndian.Uint16(b[4:6])
	g.Data3 = binary.BigEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:16])
	return g, nil
}

func (g GUID) String() string {
	return fmt.Sprintf(
		"%08x-%04x-%04x-%04x-%012x",
		g.Data1,
		g.Data2,
		g.Data3,
		g.Data4[:2],
		g.Data4[2:])
}

// FromString parses the `xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx` format.
func FromString(s string) (GUID, error) {
	if len(s) != 36 {
		return GUID{}, errors.New("invalid GUID format (length)")
	}
	if s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return GUID{}, errors.New("invalid GUID format (dashes)")
	}

	var g GUID

	data1, err := strconv.ParseUint(s[0:8], 16, 32)
	if err != nil {
		return GUID{}, errors.Wrap(err, "invalid GUID format (Data1)")
	}
	g.Data1 = uint32(data1)

	data2, err := strconv.ParseUint(s[9:13], 16, 16)
	if err != nil {
		return GUID{}, errors.Wrap(err, "invalid GUID format (Data2)")
	}
	g.Data2 = uint16(data2)

	data3, err := strconv.ParseUint(s[14:18], 16, 16)
	if err != nil {
		return GUID{}, errors.Wrap(err, "invalid GUID format (Data3)")
	}
	g.Data3 = uint16(data3)

	for i, x := range []int{19, 21, 24, 26, 28, 30, 32, 34} {
		v, err := strconv.ParseUint(s[x:x+2], 16, 8)
		if err != nil {
			return GUID{}, errors.Wrap(err, "invalid GUID format (Data4)")
		}
		g.Data4[i] = uint8(v)
	}

	return g, nil
}
