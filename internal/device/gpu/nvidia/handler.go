// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package nvidia implements the NVIDIA GPU power handler on top of NVML.
package nvidia

import (
	"fmt"
	"log/slog"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/wattmark/wattmark/internal/device"
)

// ErrNotInitialized is returned when power readings are requested before
// Init succeeded.
type ErrNotInitialized struct{}

func (e ErrNotInitialized) Error() string {
	return "NVML power handler not initialized"
}

// Handler implements device.PowerHandler for NVIDIA GPUs. NVML is used for
// device discovery and instantaneous board power readings.
type Handler struct {
	logger *slog.Logger
	nvml   nvmlLib

	handles []nvmlDeviceHandle
	devices []string
	inited  bool
}

var _ device.PowerHandler = (*Handler)(nil)

// OptionFn is a functional option for configuring the Handler
type OptionFn func(*Handler)

// WithLogger sets the logger for the Handler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(h *Handler) {
		h.logger = logger.With("handler", "nvml")
	}
}

// withNvmlLib replaces the NVML library binding, for testing
func withNvmlLib(lib nvmlLib) OptionFn {
	return func(h *Handler) {
		h.nvml = lib
	}
}

// NewHandler creates an NVIDIA GPU power handler. Construction performs no
// NVML calls; the library is first touched by Available or Init.
func NewHandler(opts ...OptionFn) *Handler {
	h := &Handler{
		logger: slog.Default().With("handler", "nvml"),
		nvml:   newRealNvmlLib(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string {
	return "nvml"
}

// Available probes whether NVML can be initialized and sees at least one
// GPU. The probe leaves NVML shut down again.
func (h *Handler) Available() bool {
	if ret := h.nvml.Init(); ret != nvml.SUCCESS {
		h.logger.Debug("NVML initialization failed", "reason", h.nvml.ErrorString(ret))
		return false
	}
	defer h.nvml.Shutdown()

	count, ret := h.nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		h.logger.Debug("NVML device count failed", "reason", h.nvml.ErrorString(ret))
		return false
	}
	return count > 0
}

// Init initializes NVML and enumerates the GPU devices
func (h *Handler) Init() error {
	if ret := h.nvml.Init(); ret != nvml.SUCCESS {
		return fmt.Errorf("failed to initialize NVML: %s", h.nvml.ErrorString(ret))
	}

	count, ret := h.nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return fmt.Errorf("failed to count GPU devices: %s", h.nvml.ErrorString(ret))
	}

	handles := make([]nvmlDeviceHandle, 0, count)
	devices := make([]string, 0, count)
	for i := range count {
		handle, ret := h.nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return fmt.Errorf("failed to get handle of GPU %d: %s", i, h.nvml.ErrorString(ret))
		}

		name, ret := handle.GetName()
		if ret != nvml.SUCCESS {
			if uuid, uret := handle.GetUUID(); uret == nvml.SUCCESS {
				name = uuid
			} else {
				name = fmt.Sprintf("gpu-%d", i)
			}
		}

		handles = append(handles, handle)
		devices = append(devices, name)
	}

	h.handles = handles
	h.devices = devices
	h.inited = true
	h.logger.Info("NVML initialized", "devices", len(devices))
	return nil
}

// Devices returns the GPU product names in NVML index order
func (h *Handler) Devices() []string {
	return h.devices
}

// PowerUsage returns the current board power draw per GPU in NVML index
// order.
func (h *Handler) PowerUsage() ([]device.Power, error) {
	if !h.inited {
		return nil, ErrNotInitialized{}
	}

	readings := make([]device.Power, 0, len(h.handles))
	for i, handle := range h.handles {
		// NVML reports milliwatts
		mw, ret := handle.GetPowerUsage()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("failed to read power of GPU %d: %s", i, h.nvml.ErrorString(ret))
		}
		readings = append(readings, device.Power(mw)*device.MilliWatt)
	}
	return readings, nil
}

// Shutdown releases NVML
func (h *Handler) Shutdown() error {
	if !h.inited {
		return nil
	}
	h.inited = false
	h.handles = nil

	if ret := h.nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("failed to shutdown NVML: %s", h.nvml.ErrorString(ret))
	}
	return nil
}
