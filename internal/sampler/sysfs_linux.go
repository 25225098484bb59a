//go:build linux

package sampler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultSysfsRoot = "/sys/bus/usb/devices"

	// bInterfaceClass for HID devices (keyboards, mice).
	hidInterfaceClass = "03"
)

// Sysfs samples USB HID interfaces from the kernel's sysfs tree.
// Identifiers are the interface directory names (e.g. "1-1.4:1.0"),
// qualified with vendor:product of the parent device when readable, so
// that re-plugging the same device on the same port yields the same ID.
type Sysfs struct {
	// Root overrides the sysfs USB device directory. Used in tests.
	Root string
}

// NewSysfs returns a sampler reading from the default sysfs location.
func NewSysfs() *Sysfs {
	return &Sysfs{}
}

// Sample implements Sampler.
func (s *Sysfs) Sample(ctx context.Context) (Snapshot, error) {
	root := s.Root
	if root == "" {
		root = defaultSysfsRoot
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, root, err)
	}

	snap := make(Snapshot)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		name := e.Name()
		// Interface directories carry a ":<config>.<iface>" suffix;
		// plain device directories do not.
		if !strings.Contains(name, ":") {
			continue
		}

		class, err := os.ReadFile(filepath.Join(root, name, "bInterfaceClass"))
		if err != nil {
			// Interface went away between ReadDir and ReadFile.
			continue
		}
		if strings.TrimSpace(string(class)) != hidInterfaceClass {
			continue
		}

		snap[s.identify(root, name)] = struct{}{}
	}
	return snap, nil
}

// identify builds a stable identifier for a HID interface.
func (s *Sysfs) identify(root, iface string) string {
	dev := iface
	if i := strings.IndexByte(iface, ':'); i >= 0 {
		dev = iface[:i]
	}

	vendor := readAttr(filepath.Join(root, dev, "idVendor"))
	product := readAttr(filepath.Join(root, dev, "idProduct"))
	if vendor == "" || product == "" {
		return iface
	}
	return fmt.Sprintf("%s/%s:%s", iface, vendor, product)
}

func readAttr(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
