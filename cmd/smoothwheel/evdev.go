//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Session acquisition failure classes. Wrapped causes carry the underlying
// errno for user-facing reporting.
var (
	ErrDeviceUnavailable     = errors.New("input device unavailable")
	ErrGrabFailed            = errors.New("exclusive grab failed")
	ErrVirtualDeviceCreation = errors.New("virtual device creation failed")
)

// ioctl request encoding (Linux _IOC macro). x/sys/unix does not carry the
// evdev and uinput requests, so they are assembled here.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uint32) uintptr {
	return uintptr(dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift)
}

// eviocgbit(ev, len) = _IOC(_IOC_READ, 'E', 0x20 + ev, len)
func eviocgbit(ev, size int) uintptr {
	return ioc(iocRead, 'E', uint32(0x20+ev), uint32(size))
}

// eviocgname(len) = _IOC(_IOC_READ, 'E', 0x06, len)
func eviocgname(size int) uintptr {
	return ioc(iocRead, 'E', 0x06, uint32(size))
}

// eviocgrab = _IOW('E', 0x90, int). The kernel reads the grab flag from the
// argument itself, not through a pointer.
func eviocgrab() uintptr {
	return ioc(iocWrite, 'E', 0x90, 4)
}

func ioctlPointer(fd int, req uintptr, p unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(p))
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlInt(fd int, req uintptr, val int) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(val))
	if errno != 0 {
		return errno
	}
	return nil
}

// deviceCaps is the capability set a physical device advertises, read once at
// open time. Only the event types the relay can faithfully mirror through
// uinput are captured: relative axes, keys/buttons, and misc events.
type deviceCaps struct {
	rel  []uint16
	keys []uint16
	msc  []uint16
}

func (c deviceCaps) hasRel(code uint16) bool {
	for _, r := range c.rel {
		if r == code {
			return true
		}
	}
	return false
}

// readBitmap fetches the EVIOCGBIT bitmap for one event type and expands it
// into the list of set codes.
func readBitmap(fd, ev, max int) ([]uint16, error) {
	buf := make([]byte, max/8+1)
	if err := ioctlPointer(fd, eviocgbit(ev, len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return nil, fmt.Errorf("EVIOCGBIT type=%#x: %w", ev, err)
	}

	var codes []uint16
	for code := 0; code <= max; code++ {
		if buf[code/8]&(1<<(code%8)) != 0 {
			codes = append(codes, uint16(code))
		}
	}
	return codes, nil
}

// physicalDevice owns one open evdev node and, after grab(), the exclusive
// claim on its event stream.
type physicalDevice struct {
	file    *os.File
	path    string
	name    string
	caps    deviceCaps
	grabbed bool
}

func openPhysicalDevice(path string) (*physicalDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, path, err)
	}

	d := &physicalDevice{file: f, path: path}
	fd := int(f.Fd())

	d.name = readDeviceName(fd)

	types, err := readBitmap(fd, 0, EV_MAX)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}
	for _, t := range types {
		switch t {
		case EV_REL:
			d.caps.rel, err = readBitmap(fd, EV_REL, REL_MAX)
		case EV_KEY:
			d.caps.keys, err = readBitmap(fd, EV_KEY, KEY_MAX)
		case EV_MSC:
			d.caps.msc, err = readBitmap(fd, EV_MSC, MSC_MAX)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
		}
	}

	return d, nil
}

func readDeviceName(fd int) string {
	buf := make([]byte, 256)
	if err := ioctlPointer(fd, eviocgname(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return "unknown"
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// eventSource exposes the file the reader goroutine blocks on.
func (d *physicalDevice) eventSource() *os.File {
	return d.file
}

// grab claims the device exclusively so the kernel stops delivering its
// events to any other consumer.
func (d *physicalDevice) grab() error {
	if err := ioctlInt(int(d.file.Fd()), eviocgrab(), 1); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGrabFailed, d.path, err)
	}
	d.grabbed = true
	return nil
}

// release ungrabs and closes the device. Closing also unblocks a reader
// goroutine stuck in a blocking read, which is what bounds shutdown time.
func (d *physicalDevice) release() error {
	if d.grabbed {
		_ = ioctlInt(int(d.file.Fd()), eviocgrab(), 0)
		d.grabbed = false
	}
	return d.file.Close()
}
