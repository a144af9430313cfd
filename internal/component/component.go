// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package component implements the tracked hardware components of a
// wattmark run. A Component represents one hardware type (gpu, cpu, ...),
// selects the first usable backend from the device registry and integrates
// the power samples it collects per epoch into energy.
package component

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wattmark/wattmark/internal/device"
)

// noEpoch marks a component that has not seen any epoch yet
const noEpoch = -1

// Component tracks power usage of one hardware type during a workload.
//
// Power samples are accumulated into one bucket per epoch. Buckets are
// opened lazily whenever the epoch number changes between collection
// calls, so callers may sample any number of times per epoch and epoch
// numbers need not be contiguous.
//
// A Component is not safe for concurrent use; the controlling loop is
// expected to serialize all calls.
type Component struct {
	name    string
	logger  *slog.Logger
	handler device.PowerHandler // nil when no backend was available

	// powerUsages holds one bucket per epoch in first-seen order. Each
	// bucket holds the per-device readings in collection order.
	powerUsages [][][]device.Power
	curEpoch    int
}

// OptionFn is a function that sets an option on a Component
type OptionFn func(*Component)

// WithLogger sets the logger for the Component
func WithLogger(logger *slog.Logger) OptionFn {
	return func(c *Component) {
		c.logger = logger
	}
}

// New creates a Component for the named hardware type and eagerly resolves
// its backend: the registry's candidate handlers are probed in priority
// order and the first available one is selected for the component's whole
// lifetime. Unknown names fail with NameError. Finding no usable backend
// is not an error here; handler-dependent operations fail later with the
// hardware type's unavailable error.
func New(name string, opts ...OptionFn) (*Component, error) {
	if !slices.Contains(device.ComponentNames(), name) {
		return nil, NameError{Name: name}
	}

	c := &Component{
		name:     name,
		logger:   slog.Default(),
		curEpoch: noEpoch,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", name)
	c.handler = c.resolveHandler()

	return c, nil
}

func (c *Component) resolveHandler() device.PowerHandler {
	for _, h := range device.HandlersFor(c.name) {
		if h.Available() {
			c.logger.Debug("selected power handler", "handler", h.Name())
			return h
		}
		c.logger.Debug("power handler not available", "handler", h.Name())
	}
	return nil
}

// Name returns the hardware type name of the component
func (c *Component) Name() string {
	return c.name
}

// Available reports whether a backend was resolved at construction time
func (c *Component) Available() bool {
	return c.handler != nil
}

// Handler returns the resolved backend, or the hardware type's registered
// unavailable error when none was resolved.
func (c *Component) Handler() (device.PowerHandler, error) {
	if c.handler == nil {
		return nil, device.ErrorFor(c.name)
	}
	return c.handler, nil
}

// Devices returns the device identifiers of the resolved backend
func (c *Component) Devices() ([]string, error) {
	handler, err := c.Handler()
	if err != nil {
		return nil, err
	}
	return handler.Devices(), nil
}

// Init delegates the one-time setup hook to the resolved backend
func (c *Component) Init() error {
	handler, err := c.Handler()
	if err != nil {
		return err
	}
	return handler.Init()
}

// Shutdown delegates the teardown hook to the resolved backend
func (c *Component) Shutdown() error {
	handler, err := c.Handler()
	if err != nil {
		return err
	}
	return handler.Shutdown()
}

// CollectPowerUsage queries one fresh power reading from the backend and
// appends it to the bucket for the given epoch. Epochs start at 1; calls
// with a smaller epoch are no-ops so callers can invoke this during a
// warm-up phase without special-casing. A new bucket is opened whenever
// the epoch differs from the one seen on the previous call.
func (c *Component) CollectPowerUsage(epoch int) error {
	if epoch < 1 {
		return nil
	}

	if epoch != c.curEpoch {
		c.curEpoch = epoch
		c.powerUsages = append(c.powerUsages, nil)
	}

	handler, err := c.Handler()
	if err != nil {
		return err
	}

	reading, err := handler.PowerUsage()
	if err != nil {
		return fmt.Errorf("failed to read power usage of %s: %w", c.name, err)
	}

	last := len(c.powerUsages) - 1
	c.powerUsages[last] = append(c.powerUsages[last], reading)
	return nil
}

// EpochsCollected returns the number of epoch buckets collected so far
func (c *Component) EpochsCollected() int {
	return len(c.powerUsages)
}

// LastReading returns the most recently collected per-device reading, or
// nil if nothing has been collected yet.
func (c *Component) LastReading() []device.Power {
	for i := len(c.powerUsages) - 1; i >= 0; i-- {
		if n := len(c.powerUsages[i]); n > 0 {
			return c.powerUsages[i][n-1]
		}
	}
	return nil
}

// EnergyUsage integrates the collected power samples into per-epoch energy.
// epochTimes holds the elapsed wall-clock time per epoch, positionally
// aligned with the epoch buckets; pairing stops at the shorter of the two
// sequences. For each pair the per-device power is averaged across the
// bucket's samples, multiplied by the elapsed time and summed across
// devices. A bucket without samples yields zero energy.
func (c *Component) EnergyUsage(epochTimes []time.Duration) []device.Energy {
	n := min(len(c.powerUsages), len(epochTimes))

	usages := make([]device.Energy, 0, n)
	for i := range n {
		usages = append(usages, bucketEnergy(c.powerUsages[i], epochTimes[i]))
	}
	return usages
}

// bucketEnergy integrates one epoch bucket: mean per-device power times
// elapsed time, summed across devices. Samples are expected to have the
// same width (the handler's device order is stable); shorter samples are
// tolerated and averaged over the readings they appear in.
func bucketEnergy(samples [][]device.Power, elapsed time.Duration) device.Energy {
	if len(samples) == 0 {
		return 0
	}

	nDevices := 0
	for _, sample := range samples {
		nDevices = max(nDevices, len(sample))
	}

	sums := make([]float64, nDevices)
	counts := make([]int, nDevices)
	for _, sample := range samples {
		for d, p := range sample {
			sums[d] += p.MicroWatts()
			counts[d]++
		}
	}

	var totalMicroJoules float64
	seconds := elapsed.Seconds()
	for d := range nDevices {
		if counts[d] == 0 {
			continue
		}
		meanMicroWatts := sums[d] / float64(counts[d])
		totalMicroJoules += meanMicroWatts * seconds
	}

	return device.Energy(totalMicroJoules)
}
