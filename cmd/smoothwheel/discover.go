//go:build linux

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
)

// findPointerDevice scans /dev/input/event* for the first device that looks
// like a mouse: a relative-axis device advertising REL_X, REL_Y and
// REL_WHEEL. Used when no device path is configured.
func findPointerDevice() (string, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return "", fmt.Errorf("%w: scan /dev/input: %v", ErrDeviceUnavailable, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		d, err := openPhysicalDevice(path)
		if err != nil {
			continue
		}
		ok := isPointerCaps(d.caps)
		d.release()
		if ok {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: no mouse-like device found under /dev/input (use -device to select one)", ErrDeviceUnavailable)
}

func isPointerCaps(caps deviceCaps) bool {
	return caps.hasRel(REL_X) && caps.hasRel(REL_Y) && caps.hasRel(REL_WHEEL)
}

// listDevices prints every readable event node with its name and whether it
// qualifies as a scroll-relay target.
func listDevices(w io.Writer) error {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		d, err := openPhysicalDevice(path)
		if err != nil {
			fmt.Fprintf(w, "%-22s (unreadable: %v)\n", path, err)
			continue
		}
		marker := ""
		if isPointerCaps(d.caps) {
			marker = "  [mouse]"
		}
		fmt.Fprintf(w, "%-22s %s%s\n", path, d.name, marker)
		d.release()
	}
	return nil
}
