//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import "fmt"

func platformMonitors() ([]MonitorInfo, error) {
	return nil, fmt.Errorf("monitor listing is not supported on this platform")
}
