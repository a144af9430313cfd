// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwmon implements a CPU power handler on top of the Linux hwmon
// sysfs class. It is the fallback for machines without RAPL (and is where
// most AMD and ARM platforms surface their power sensors). Unlike RAPL,
// hwmon exposes instantaneous microwatt readings directly.
package hwmon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wattmark/wattmark/internal/device"
	"golang.org/x/sys/unix"
)

// sensor is one power*_input file of one hwmon chip
type sensor struct {
	label string // "<chip>:<power label>"
	path  string // .../hwmonN/powerM_input
}

// sensorReader is the seam between the handler and sysfs, for mocking
type sensorReader interface {
	Sensors() ([]sensor, error)
}

// Handler implements device.PowerHandler reading hwmon power sensors.
// Each sensor is reported as one device.
type Handler struct {
	logger *slog.Logger
	reader sensorReader

	sensors []sensor
}

var _ device.PowerHandler = (*Handler)(nil)

// OptionFn is a functional option for configuring the Handler
type OptionFn func(*Handler)

// WithLogger sets the logger for the Handler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(h *Handler) {
		h.logger = logger.With("handler", "hwmon")
	}
}

// WithSensorReader sets the sensor reader, for testing
func WithSensorReader(r sensorReader) OptionFn {
	return func(h *Handler) {
		h.reader = r
	}
}

// NewHandler creates a hwmon power handler reading from the given sysfs
// mount point (usually "/sys").
func NewHandler(sysfsPath string, opts ...OptionFn) *Handler {
	h := &Handler{
		logger: slog.Default().With("handler", "hwmon"),
		reader: &sysfsSensorReader{basePath: filepath.Join(sysfsPath, "class", "hwmon")},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string {
	return "hwmon"
}

// Available reports whether at least one readable hwmon power sensor
// exists.
func (h *Handler) Available() bool {
	sensors, err := h.reader.Sensors()
	if err != nil || len(sensors) == 0 {
		h.logger.Debug("no hwmon power sensors found", "error", err)
		return false
	}
	if _, err := readMicroWatts(sensors[0].path); err != nil {
		h.logger.Debug("hwmon sensor not readable", "sensor", sensors[0].label, "error", err)
		return false
	}
	return true
}

// Init enumerates and caches the power sensors
func (h *Handler) Init() error {
	sensors, err := h.reader.Sensors()
	if err != nil {
		return fmt.Errorf("failed to read hwmon sensors: %w", err)
	}
	if len(sensors) == 0 {
		return fmt.Errorf("no hwmon power sensors found")
	}

	if _, err := readMicroWatts(sensors[0].path); err != nil {
		return fmt.Errorf("failed to read hwmon sensor %s: %w", sensors[0].label, err)
	}

	h.sensors = sensors
	h.logger.Info("hwmon initialized", "sensors", len(sensors))
	return nil
}

// Devices returns the sensor labels in enumeration order
func (h *Handler) Devices() []string {
	labels := make([]string, 0, len(h.sensors))
	for _, s := range h.sensors {
		labels = append(labels, s.label)
	}
	return labels
}

// PowerUsage reads the current microwatt value of every sensor
func (h *Handler) PowerUsage() ([]device.Power, error) {
	if len(h.sensors) == 0 {
		return nil, fmt.Errorf("hwmon handler not initialized")
	}

	readings := make([]device.Power, 0, len(h.sensors))
	for _, s := range h.sensors {
		uw, err := readMicroWatts(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read hwmon sensor %s: %w", s.label, err)
		}
		readings = append(readings, device.Power(uw)*device.MicroWatt)
	}
	return readings, nil
}

// Shutdown drops the cached sensors; hwmon needs no teardown
func (h *Handler) Shutdown() error {
	h.sensors = nil
	return nil
}

// readMicroWatts parses one power*_input file (value in microwatts)
func readMicroWatts(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}

// sysfsSensorReader scans /sys/class/hwmon for power*_input files
type sysfsSensorReader struct {
	basePath string
}

func (r *sysfsSensorReader) Sensors() ([]sensor, error) {
	if err := unix.Access(r.basePath, unix.R_OK); err != nil {
		return nil, fmt.Errorf("hwmon not available: %w", err)
	}

	chips, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hwmon directory: %w", err)
	}

	var sensors []sensor
	for _, chip := range chips {
		chipPath := filepath.Join(r.basePath, chip.Name())

		chipName := chip.Name()
		if data, err := os.ReadFile(filepath.Join(chipPath, "name")); err == nil {
			chipName = strings.TrimSpace(string(data))
		}

		inputs, err := filepath.Glob(filepath.Join(chipPath, "power*_input"))
		if err != nil {
			continue
		}
		sort.Strings(inputs)

		for _, input := range inputs {
			label := strings.TrimSuffix(filepath.Base(input), "_input")
			labelPath := filepath.Join(chipPath, label+"_label")
			if data, err := os.ReadFile(labelPath); err == nil {
				label = strings.TrimSpace(string(data))
			}
			sensors = append(sensors, sensor{
				label: fmt.Sprintf("%s:%s", chipName, label),
				path:  input,
			})
		}
	}
	return sensors, nil
}
