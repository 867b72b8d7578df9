package debug

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	// DefaultPortBase is the first port probed for the inspector.
	DefaultPortBase = 9229

	// MaxPortMisses is the number of consecutive busy ports tolerated before
	// the search gives up.
	MaxPortMisses = 20
)

// ErrNoFreePort is returned when no inspector port could be found.
var ErrNoFreePort = errors.New("no free debug port")

// FindFreePort probes sequential loopback ports starting at base and returns
// the first one that can be bound.
func FindFreePort(base int) (int, error) {
	return findFreePort(base, MaxPortMisses, portAvailable)
}

func findFreePort(base, attempts int, available func(int) bool) (int, error) {
	if base <= 0 {
		base = DefaultPortBase
	}
	for port := base; port < base+attempts && port <= 65535; port++ {
		if available(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("%w: ports %d-%d are in use", ErrNoFreePort, base, base+attempts-1)
}

// portAvailable binds the port and releases it immediately. Another process can
// still take the port before the runner binds it.
func portAvailable(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
