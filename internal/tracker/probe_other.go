//go:build !windows

package tracker

import "errors"

var errProbeUnsupported = errors.New("foreground window probing is not supported on this platform")

// stubProbe keeps the engine, reports, and CLI usable on platforms without
// a foreground-window implementation; every sample degrades to "unknown".
type stubProbe struct{}

func newPlatformProbe() Probe {
	return stubProbe{}
}

func (stubProbe) ForegroundWindow() (uintptr, string, string, error) {
	return 0, "", "", errProbeUnsupported
}

func (stubProbe) AddressBarURL(uintptr, string) (string, error) {
	return "", errProbeUnsupported
}
