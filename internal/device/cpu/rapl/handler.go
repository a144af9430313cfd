// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package rapl implements the Intel RAPL CPU power handler on top of the
// Linux powercap sysfs interface. RAPL exposes monotonically increasing
// microjoule counters per zone; instantaneous power is derived from the
// counter delta between successive readings.
package rapl

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/procfs/sysfs"
	"github.com/wattmark/wattmark/internal/device"
	"k8s.io/utils/clock"
)

// zone is one RAPL energy zone (package, dram, psys, ...)
type zone interface {
	Name() string
	Energy() (device.Energy, error)
	MaxEnergy() device.Energy
}

// zoneReader is the seam between the handler and sysfs, for mocking
type zoneReader interface {
	Zones() ([]zone, error)
}

// Handler implements device.PowerHandler for Intel CPUs via RAPL powercap.
// Each RAPL zone is reported as one device.
type Handler struct {
	logger    *slog.Logger
	sysfsPath string
	reader    zoneReader
	clock     clock.PassiveClock

	zones      []zone
	lastEnergy []device.Energy
	lastRead   time.Time
}

var _ device.PowerHandler = (*Handler)(nil)

// OptionFn is a functional option for configuring the Handler
type OptionFn func(*Handler)

// WithLogger sets the logger for the Handler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(h *Handler) {
		h.logger = logger.With("handler", "rapl")
	}
}

// WithZoneReader sets the zone reader, for testing
func WithZoneReader(r zoneReader) OptionFn {
	return func(h *Handler) {
		h.reader = r
	}
}

// WithClock sets the clock used for power derivation, for testing
func WithClock(c clock.PassiveClock) OptionFn {
	return func(h *Handler) {
		h.clock = c
	}
}

// NewHandler creates a RAPL power handler reading from the given sysfs
// mount point (usually "/sys"). Construction never touches the
// filesystem; Available and Init do.
func NewHandler(sysfsPath string, opts ...OptionFn) *Handler {
	h := &Handler{
		logger:    slog.Default().With("handler", "rapl"),
		sysfsPath: sysfsPath,
		clock:     clock.RealClock{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string {
	return "rapl"
}

func (h *Handler) ensureReader() error {
	if h.reader != nil {
		return nil
	}

	fs, err := sysfs.NewFS(h.sysfsPath)
	if err != nil {
		return fmt.Errorf("failed to open sysfs: %w", err)
	}
	h.reader = &powercapReader{fs: fs}
	return nil
}

// Available reports whether RAPL zones exist and the first one is
// readable. Reading RAPL usually requires root or CAP_SYS_RAWIO.
func (h *Handler) Available() bool {
	if err := h.ensureReader(); err != nil {
		h.logger.Debug("RAPL not available", "reason", err)
		return false
	}

	zones, err := h.reader.Zones()
	if err != nil || len(zones) == 0 {
		h.logger.Debug("no RAPL zones found", "error", err)
		return false
	}

	if _, err := zones[0].Energy(); err != nil {
		h.logger.Debug("RAPL zone not readable", "zone", zones[0].Name(), "error", err)
		return false
	}
	return true
}

// Init enumerates the RAPL zones and primes the baseline energy readings
// the first PowerUsage call derives its deltas from.
func (h *Handler) Init() error {
	if err := h.ensureReader(); err != nil {
		return err
	}

	zones, err := h.reader.Zones()
	if err != nil {
		return fmt.Errorf("failed to read RAPL zones: %w", err)
	}
	if len(zones) == 0 {
		return fmt.Errorf("no RAPL zones found")
	}

	baseline := make([]device.Energy, len(zones))
	for i, z := range zones {
		e, err := z.Energy()
		if err != nil {
			return fmt.Errorf("failed to read energy of zone %s: %w", z.Name(), err)
		}
		baseline[i] = e
	}

	h.zones = zones
	h.lastEnergy = baseline
	h.lastRead = h.clock.Now()
	h.logger.Info("RAPL initialized", "zones", len(zones))
	return nil
}

// Devices returns the RAPL zone names in enumeration order
func (h *Handler) Devices() []string {
	names := make([]string, 0, len(h.zones))
	for _, z := range h.zones {
		names = append(names, z.Name())
	}
	return names
}

// PowerUsage derives the average power per zone since the previous call
// (or since Init for the first call) from the microjoule counter deltas.
// Counter wraparound is corrected using the zone's max energy range.
func (h *Handler) PowerUsage() ([]device.Power, error) {
	if len(h.zones) == 0 {
		return nil, fmt.Errorf("RAPL handler not initialized")
	}

	now := h.clock.Now()
	elapsed := now.Sub(h.lastRead).Seconds()
	if elapsed <= 0 {
		return make([]device.Power, len(h.zones)), nil
	}

	readings := make([]device.Power, len(h.zones))
	for i, z := range h.zones {
		e, err := z.Energy()
		if err != nil {
			return nil, fmt.Errorf("failed to read energy of zone %s: %w", z.Name(), err)
		}

		delta := deltaEnergy(h.lastEnergy[i], e, z.MaxEnergy())
		readings[i] = device.Power(float64(delta) / elapsed)
		h.lastEnergy[i] = e
	}
	h.lastRead = now
	return readings, nil
}

// Shutdown drops the cached zones; powercap needs no teardown
func (h *Handler) Shutdown() error {
	h.zones = nil
	h.lastEnergy = nil
	return nil
}

// deltaEnergy returns curr - prev, correcting for one counter wraparound
// at maxEnergy.
func deltaEnergy(prev, curr, maxEnergy device.Energy) device.Energy {
	if curr >= prev {
		return curr - prev
	}
	if maxEnergy > 0 {
		return maxEnergy - prev + curr
	}
	return 0
}

// powercapReader reads RAPL zones via the powercap sysfs interface
type powercapReader struct {
	fs sysfs.FS
}

func (p *powercapReader) Zones() ([]zone, error) {
	raplZones, err := sysfs.GetRaplZones(p.fs)
	if err != nil {
		return nil, fmt.Errorf("failed to read rapl zones: %w", err)
	}

	zones := make([]zone, 0, len(raplZones))
	for _, rz := range raplZones {
		zones = append(zones, sysfsRaplZone{zone: rz})
	}
	return zones, nil
}

// sysfsRaplZone adapts sysfs.RaplZone to the zone interface
type sysfsRaplZone struct {
	zone sysfs.RaplZone
}

func (s sysfsRaplZone) Name() string {
	if s.zone.Index > 0 {
		return fmt.Sprintf("%s-%d", s.zone.Name, s.zone.Index)
	}
	return s.zone.Name
}

func (s sysfsRaplZone) Energy() (device.Energy, error) {
	mj, err := s.zone.GetEnergyMicrojoules()
	return device.Energy(mj), err
}

func (s sysfsRaplZone) MaxEnergy() device.Energy {
	return device.Energy(s.zone.MaxMicrojoules)
}
