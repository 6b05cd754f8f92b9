//go:build linux

package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// uinput ioctl requests (from <linux/uinput.h>, UINPUT_IOCTL_BASE 'U').
func uiSetEvBit() uintptr   { return ioc(iocWrite, 'U', 100, 4) }
func uiSetKeyBit() uintptr  { return ioc(iocWrite, 'U', 101, 4) }
func uiSetRelBit() uintptr  { return ioc(iocWrite, 'U', 102, 4) }
func uiSetMscBit() uintptr  { return ioc(iocWrite, 'U', 104, 4) }
func uiDevCreate() uintptr  { return ioc(iocNone, 'U', 1, 0) }
func uiDevDestroy() uintptr { return ioc(iocNone, 'U', 2, 0) }

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev mirrors struct uinput_user_dev from <linux/uinput.h>.
type uinputUserDev struct {
	Name         [80]byte
	ID           inputID
	FFEffectsMax uint32
	Absmax       [64]int32
	Absmin       [64]int32
	Absfuzz      [64]int32
	Absflat      [64]int32
}

// virtualDevice owns one synthetic input device created through uinput.
// Its capability set mirrors the physical device so every pass-through
// event remains valid downstream.
type virtualDevice struct {
	file *os.File
	name string
}

func createVirtualDevice(name string, caps deviceCaps) (*virtualDevice, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open /dev/uinput: %v", ErrVirtualDeviceCreation, err)
	}

	d := &virtualDevice{file: f, name: name}
	if err := d.configure(caps); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *virtualDevice) configure(caps deviceCaps) error {
	fd := int(d.file.Fd())

	if err := ioctlInt(fd, uiSetEvBit(), EV_SYN); err != nil {
		return fmt.Errorf("%w: UI_SET_EVBIT EV_SYN: %v", ErrVirtualDeviceCreation, err)
	}
	if len(caps.rel) > 0 {
		if err := ioctlInt(fd, uiSetEvBit(), EV_REL); err != nil {
			return fmt.Errorf("%w: UI_SET_EVBIT EV_REL: %v", ErrVirtualDeviceCreation, err)
		}
		for _, code := range caps.rel {
			if err := ioctlInt(fd, uiSetRelBit(), int(code)); err != nil {
				return fmt.Errorf("%w: UI_SET_RELBIT %#x: %v", ErrVirtualDeviceCreation, code, err)
			}
		}
	}
	if len(caps.keys) > 0 {
		if err := ioctlInt(fd, uiSetEvBit(), EV_KEY); err != nil {
			return fmt.Errorf("%w: UI_SET_EVBIT EV_KEY: %v", ErrVirtualDeviceCreation, err)
		}
		for _, code := range caps.keys {
			if err := ioctlInt(fd, uiSetKeyBit(), int(code)); err != nil {
				return fmt.Errorf("%w: UI_SET_KEYBIT %#x: %v", ErrVirtualDeviceCreation, code, err)
			}
		}
	}
	if len(caps.msc) > 0 {
		if err := ioctlInt(fd, uiSetEvBit(), EV_MSC); err != nil {
			return fmt.Errorf("%w: UI_SET_EVBIT EV_MSC: %v", ErrVirtualDeviceCreation, err)
		}
		for _, code := range caps.msc {
			if err := ioctlInt(fd, uiSetMscBit(), int(code)); err != nil {
				return fmt.Errorf("%w: UI_SET_MSCBIT %#x: %v", ErrVirtualDeviceCreation, code, err)
			}
		}
	}

	var u uinputUserDev
	copy(u.Name[:], d.name)
	u.ID.Bustype = unix.BUS_VIRTUAL
	u.ID.Vendor = 0x1
	u.ID.Product = 0x1
	u.ID.Version = 1

	if err := binary.Write(d.file, binary.LittleEndian, &u); err != nil {
		return fmt.Errorf("%w: write uinput_user_dev: %v", ErrVirtualDeviceCreation, err)
	}
	if err := ioctlInt(fd, uiDevCreate(), 0); err != nil {
		return fmt.Errorf("%w: UI_DEV_CREATE: %v", ErrVirtualDeviceCreation, err)
	}
	return nil
}

// WriteEvent emits one event through the virtual device. The time fields are
// left zero; the kernel stamps events as it delivers them.
func (d *virtualDevice) WriteEvent(ev inputEvent) error {
	ev.Sec, ev.Usec = 0, 0
	if err := binary.Write(d.file, binary.LittleEndian, &ev); err != nil {
		return fmt.Errorf("write virtual device: %w", err)
	}
	return nil
}

// destroy removes the synthetic device and closes the handle.
func (d *virtualDevice) destroy() error {
	_ = ioctlInt(int(d.file.Fd()), uiDevDestroy(), 0)
	return d.file.Close()
}
