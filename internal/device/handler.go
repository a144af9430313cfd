// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"github.com/wattmark/wattmark/internal/service"
)

// PowerHandler is the capability every hardware monitoring backend exposes.
// One implementation exists per vendor interface (NVML, RAPL powercap,
// hwmon, Redfish BMC, ...). A handler is probed with Available before use,
// initialized once with Init before sampling begins and shut down once with
// Shutdown after sampling ends.
type PowerHandler interface {
	service.Service     // Name()
	service.Initializer // Init()
	service.Shutdowner  // Shutdown()

	// Available reports whether this backend is usable on the current
	// machine (library present, permissions sufficient, hardware present).
	// It must be cheap and must not require Init to have been called.
	Available() bool

	// Devices returns the identifiers of the devices this backend monitors.
	// The order is stable across the process lifetime.
	Devices() []string

	// PowerUsage returns the instantaneous power draw per device, in the
	// same order as Devices.
	PowerUsage() ([]Power, error)
}
