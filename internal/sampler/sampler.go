// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler implements the collection loop of a tracking run. It
// periodically samples power from every tracked component and keeps the
// per-epoch wall-clock times that the components' energy integration is
// paired with.
package sampler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wattmark/wattmark/internal/component"
	"github.com/wattmark/wattmark/internal/device"
	"github.com/wattmark/wattmark/internal/service"
	"k8s.io/utils/clock"
)

// Sampler drives CollectPowerUsage on all components at a fixed interval.
// Run opens the first epoch itself, so a run without further epoch
// boundaries integrates into a single epoch. Callers mark additional
// boundaries with BeginEpoch, or set WithEpochDuration to let the sampler
// advance epochs on its own when the workload has no natural epoch signal.
type Sampler struct {
	logger     *slog.Logger
	components []*component.Component

	clock         clock.WithTicker
	interval      time.Duration
	epochDuration time.Duration

	mu         sync.Mutex
	epoch      int
	epochStart time.Time
	epochTimes []time.Duration
}

var (
	_ service.Initializer = (*Sampler)(nil)
	_ service.Runner      = (*Sampler)(nil)
	_ service.Shutdowner  = (*Sampler)(nil)
)

type Opts struct {
	logger        *slog.Logger
	clock         clock.WithTicker
	interval      time.Duration
	epochDuration time.Duration
}

// DefaultOpts returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:        slog.Default(),
		clock:         clock.RealClock{},
		interval:      time.Second,
		epochDuration: 0, // manual epoch control
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Sampler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock for the Sampler
func WithClock(c clock.WithTicker) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithInterval sets the sampling interval
func WithInterval(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.interval = d
	}
}

// WithEpochDuration makes the sampler advance epochs itself every d
func WithEpochDuration(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.epochDuration = d
	}
}

// New creates a Sampler for the given components
func New(components []*component.Component, applyOpts ...OptionFn) *Sampler {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Sampler{
		logger:        opts.logger.With("service", "sampler"),
		components:    components,
		clock:         opts.clock,
		interval:      opts.interval,
		epochDuration: opts.epochDuration,
	}
}

func (s *Sampler) Name() string {
	return "sampler"
}

// Init initializes the backend of every available component. Components
// without a usable backend are skipped with a warning so that a partial
// hardware setup still produces data for the rest.
func (s *Sampler) Init() error {
	for _, c := range s.components {
		if !c.Available() {
			s.logger.Warn("skipping component without usable backend", "component", c.Name())
			continue
		}
		if err := c.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Run samples all components until ctx is done. The first epoch starts
// with the run, and the epoch open when the context ends is closed so
// its duration participates in the final energy report.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.BeginEpoch()

	var epochCh <-chan time.Time
	if s.epochDuration > 0 {
		epochTicker := s.clock.NewTicker(s.epochDuration)
		defer epochTicker.Stop()
		epochCh = epochTicker.C()
	}

	for {
		select {
		case <-ticker.C():
			s.collect()

		case <-epochCh:
			s.BeginEpoch()

		case <-ctx.Done():
			s.EndEpoch()
			return nil
		}
	}
}

// BeginEpoch closes the currently open epoch, if any, and starts the next
// one. Before the first call the sampler is in a warm-up state: samples
// are collected with epoch 0, which the components ignore.
func (s *Sampler) BeginEpoch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.epoch >= 1 && !s.epochStart.IsZero() {
		s.epochTimes = append(s.epochTimes, now.Sub(s.epochStart))
	}
	s.epoch++
	s.epochStart = now
	s.logger.Debug("epoch started", "epoch", s.epoch)
}

// EndEpoch closes the currently open epoch without starting a new one
func (s *Sampler) EndEpoch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch >= 1 && !s.epochStart.IsZero() {
		s.epochTimes = append(s.epochTimes, s.clock.Now().Sub(s.epochStart))
		s.epochStart = time.Time{}
	}
}

// CurrentEpoch returns the epoch samples are currently collected under
func (s *Sampler) CurrentEpoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// EpochTimes returns the durations of the completed epochs
func (s *Sampler) EpochTimes() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	times := make([]time.Duration, len(s.epochTimes))
	copy(times, s.epochTimes)
	return times
}

func (s *Sampler) collect() {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	for _, c := range s.components {
		if !c.Available() {
			continue
		}
		if err := c.CollectPowerUsage(epoch); err != nil {
			s.logger.Warn("failed to collect power usage",
				"component", c.Name(), "epoch", epoch, "error", err)
		}
	}
}

// Shutdown shuts down the backend of every available component
func (s *Sampler) Shutdown() error {
	var retErr error
	for _, c := range s.components {
		if !c.Available() {
			continue
		}
		if err := c.Shutdown(); err != nil {
			s.logger.Warn("component shutdown failed", "component", c.Name(), "error", err)
			retErr = err
		}
	}
	return retErr
}

// ComponentEnergy is one component's share of a Report
type ComponentEnergy struct {
	Name      string
	Available bool
	Devices   []string
	LastPower []device.Power
	Energy    []device.Energy
	Total     device.Energy
}

// Report holds the per-epoch energy usage of all tracked components
type Report struct {
	EpochTimes []time.Duration
	Components []ComponentEnergy
}

// Report integrates the samples collected so far into per-epoch energy.
// It can be called during the run (completed epochs only) or after it.
func (s *Sampler) Report() Report {
	epochTimes := s.EpochTimes()

	report := Report{EpochTimes: epochTimes}
	for _, c := range s.components {
		ce := ComponentEnergy{
			Name:      c.Name(),
			Available: c.Available(),
			LastPower: c.LastReading(),
		}
		if devices, err := c.Devices(); err == nil {
			ce.Devices = devices
		}

		ce.Energy = c.EnergyUsage(epochTimes)
		for _, e := range ce.Energy {
			ce.Total += e
		}
		report.Components = append(report.Components, ce)
	}
	return report
}
