//go:build linux

package main

import (
	"log/slog"
	"os"
	"sync"
)

// physicalHandle is the relay-facing surface of a grabbed input device.
type physicalHandle interface {
	eventSource() *os.File
	release() error
}

// virtualHandle is the relay-facing surface of the uinput mirror.
type virtualHandle interface {
	eventWriter
	destroy() error
}

// session pairs the grabbed physical device with its virtual mirror.
// Acquisition is all-or-nothing: any failure unwinds what was already
// acquired, so no partial session is ever left running.
type session struct {
	phys physicalHandle
	virt virtualHandle

	path  string
	name  string
	hiRes bool

	logger    *slog.Logger
	closeOnce sync.Once
}

func openSession(cfg Config, logger *slog.Logger) (*session, error) {
	path := cfg.Device.Path
	if path == "" {
		var err error
		path, err = findPointerDevice()
		if err != nil {
			return nil, err
		}
		logger.Info("auto-discovered pointer device", "path", path)
	}

	phys, err := openPhysicalDevice(path)
	if err != nil {
		return nil, err
	}

	if err := phys.grab(); err != nil {
		phys.release()
		return nil, err
	}

	virt, err := createVirtualDevice(virtualDeviceName, phys.caps)
	if err != nil {
		phys.release()
		return nil, err
	}

	logger.Info("session open",
		"device", path,
		"name", phys.name,
		"virtual", virtualDeviceName,
		"rel_axes", len(phys.caps.rel),
		"keys", len(phys.caps.keys),
		"hi_res_wheel", phys.caps.hasRel(REL_WHEEL_HI_RES))

	return &session{
		phys:   phys,
		virt:   virt,
		path:   path,
		name:   phys.name,
		hiRes:  phys.caps.hasRel(REL_WHEEL_HI_RES),
		logger: logger,
	}, nil
}

// hiResWheel reports whether the physical device emits REL_WHEEL_HI_RES.
func (s *session) hiResWheel() bool {
	return s.hiRes
}

// Close releases the grab and destroys the virtual device. Safe to call from
// multiple exit paths; the release logic runs exactly once.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		if err := s.virt.destroy(); err != nil {
			s.logger.Warn("destroy virtual device", "error", err)
		}
		if err := s.phys.release(); err != nil {
			s.logger.Warn("release physical device", "error", err)
		}
		s.logger.Info("session closed", "device", s.path)
	})
}
