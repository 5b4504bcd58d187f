//go:build !linux

package osnet

import (
	"fmt"
	"runtime"
)

// NewPlatformBackend has no native implementation off Linux. Development on
// other platforms uses the fake backend instead.
func NewPlatformBackend() (*Backend, error) {
	return nil, fmt.Errorf("no native network backend for %s", runtime.GOOS)
}
