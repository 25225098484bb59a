//go:build linux

package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// DDC/CI slave address on the display's DDC channel.
	ddcSlaveAddr = 0x37

	i2cDevGlob = "/dev/i2c-*"

	// I2C_SLAVE ioctl from <linux/i2c-dev.h>; not exported by x/sys/unix.
	ioctlI2CSlave = 0x0703
)

// i2cBus is an open i2c-dev device bound to the DDC slave address.
type i2cBus struct {
	fd int
}

// OpenI2C returns a BusOpener that maps a monitor index onto the host's
// display DDC buses, in ascending bus-number order. An explicit device
// path overrides the mapping for single-monitor setups where the index
// enumeration is unreliable.
func OpenI2C(devicePath string) BusOpener {
	return func(index int) (Bus, error) {
		path := devicePath
		if path == "" {
			buses, err := ddcBuses()
			if err != nil {
				return nil, err
			}
			if index < 0 || index >= len(buses) {
				return nil, &Error{Kind: KindUnsupported, Op: "open bus",
					Err: fmt.Errorf("no monitor at index %d (%d DDC buses)", index, len(buses))}
			}
			path = buses[index]
		}
		return openBus(path)
	}
}

func openBus(path string) (Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, wrapBusErr("open bus", &os.PathError{Op: "open", Path: path, Err: err})
	}
	if err := unix.IoctlSetInt(fd, ioctlI2CSlave, ddcSlaveAddr); err != nil {
		unix.Close(fd)
		return nil, wrapBusErr("open bus", fmt.Errorf("bind slave 0x%02x on %s: %w", ddcSlaveAddr, path, err))
	}
	return &i2cBus{fd: fd}, nil
}

func (b *i2cBus) Write(p []byte) error {
	_, err := unix.Write(b.fd, p)
	return err
}

func (b *i2cBus) Read(p []byte) (int, error) {
	return unix.Read(b.fd, p)
}

func (b *i2cBus) Close() error {
	return unix.Close(b.fd)
}

// ddcBuses lists i2c devices whose adapter belongs to a display
// connector, sorted by bus number. GPU drivers expose one DDC bus per
// output; SMBus controllers and the like are filtered out by name.
func ddcBuses() ([]string, error) {
	devs, err := filepath.Glob(i2cDevGlob)
	if err != nil || len(devs) == 0 {
		return nil, &Error{Kind: KindUnsupported, Op: "open bus",
			Err: errors.New("no i2c devices present (is i2c-dev loaded?)")}
	}

	var buses []string
	for _, dev := range devs {
		n, err := strconv.Atoi(strings.TrimPrefix(dev, "/dev/i2c-"))
		if err != nil {
			continue
		}
		name, err := os.ReadFile(fmt.Sprintf("/sys/class/i2c-adapter/i2c-%d/name", n))
		if err != nil {
			continue
		}
		if isDisplayAdapter(strings.TrimSpace(string(name))) {
			buses = append(buses, dev)
		}
	}
	if len(buses) == 0 {
		return nil, &Error{Kind: KindUnsupported, Op: "open bus",
			Err: errors.New("no display DDC buses found")}
	}

	sort.Slice(buses, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(buses[i], "/dev/i2c-"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(buses[j], "/dev/i2c-"))
		return ni < nj
	})
	return buses, nil
}

// isDisplayAdapter matches adapter names GPU drivers use for connector
// DDC channels (amdgpu/i915/nouveau/nvidia).
func isDisplayAdapter(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"ddc", "dp", "hdmi", "dvi", "vga", "card", "nvidia i2c"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// classifyBusErr maps i2c errnos onto the retry taxonomy.
func classifyBusErr(err error) Kind {
	switch {
	case errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV),
		errors.Is(err, unix.EOPNOTSUPP), errors.Is(err, fs.ErrNotExist),
		errors.Is(err, unix.EACCES):
		return KindUnsupported
	case errors.Is(err, unix.ETIMEDOUT), errors.Is(err, unix.EAGAIN),
		errors.Is(err, unix.EIO), errors.Is(err, unix.EBUSY),
		errors.Is(err, unix.EINTR):
		return KindTransient
	default:
		return KindUnknown
	}
}
