// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"sync"
)

// NOTE: This fake handler is not intended to be used in production and is
// for testing and the CLI's development mode only.

// FakePowerHandler implements PowerHandler with canned readings.
type FakePowerHandler struct {
	name      string
	available bool
	devices   []string

	readings [][]Power // successive samples; the last one repeats
	next     int

	powerErr    error
	initErr     error
	shutdownErr error

	InitCount     int
	ShutdownCount int
	ProbeCount    int

	mu sync.Mutex
}

var _ PowerHandler = (*FakePowerHandler)(nil)

// FakeOptFn is a functional option for configuring FakePowerHandler
type FakeOptFn func(*FakePowerHandler)

// WithFakeName sets the handler name
func WithFakeName(name string) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.name = name
	}
}

// WithFakeAvailable sets what Available reports
func WithFakeAvailable(available bool) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.available = available
	}
}

// WithFakeDevices sets the device identifiers
func WithFakeDevices(devices ...string) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.devices = devices
	}
}

// WithFakeReadings sets the successive per-device samples PowerUsage
// returns. After the last sample is consumed it keeps repeating; with
// no samples at all PowerUsage reports no devices.
func WithFakeReadings(readings ...[]Power) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.readings = readings
	}
}

// WithFakePowerError makes PowerUsage fail with err
func WithFakePowerError(err error) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.powerErr = err
	}
}

// WithFakeInitError makes Init fail with err
func WithFakeInitError(err error) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.initErr = err
	}
}

// WithFakeShutdownError makes Shutdown fail with err
func WithFakeShutdownError(err error) FakeOptFn {
	return func(h *FakePowerHandler) {
		h.shutdownErr = err
	}
}

// NewFakePowerHandler creates a new fake power handler. By default it is
// available, exposes one device and reads a constant 100W.
func NewFakePowerHandler(opts ...FakeOptFn) *FakePowerHandler {
	h := &FakePowerHandler{
		name:      "fake",
		available: true,
		devices:   []string{"fake-0"},
		readings:  [][]Power{{100 * Watt}},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *FakePowerHandler) Name() string {
	return h.name
}

func (h *FakePowerHandler) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ProbeCount++
	return h.available
}

func (h *FakePowerHandler) Devices() []string {
	return h.devices
}

func (h *FakePowerHandler) PowerUsage() ([]Power, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.powerErr != nil {
		return nil, h.powerErr
	}
	if len(h.readings) == 0 {
		return []Power{}, nil
	}

	reading := h.readings[h.next]
	if h.next < len(h.readings)-1 {
		h.next++
	}

	out := make([]Power, len(reading))
	copy(out, reading)
	return out, nil
}

func (h *FakePowerHandler) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.InitCount++
	return h.initErr
}

func (h *FakePowerHandler) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ShutdownCount++
	return h.shutdownErr
}
