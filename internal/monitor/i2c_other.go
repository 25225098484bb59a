//go:build !linux

package monitor

import (
	"errors"
	"io/fs"
	"runtime"
)

// OpenI2C is only functional on Linux, where monitors expose DDC/CI
// through i2c-dev. Elsewhere every open reports Unsupported.
func OpenI2C(devicePath string) BusOpener {
	return func(index int) (Bus, error) {
		return nil, &Error{Kind: KindUnsupported, Op: "open bus",
			Err: errors.New("no DDC/CI transport for " + runtime.GOOS)}
	}
}

func classifyBusErr(err error) Kind {
	if errors.Is(err, fs.ErrNotExist) {
		return KindUnsupported
	}
	return KindUnknown
}
