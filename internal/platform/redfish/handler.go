// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

// Package redfish implements the platform power handler. It reads
// whole-chassis power draw from the machine's BMC over the Redfish API,
// covering everything the component-level sensors (RAPL, NVML) do not.
package redfish

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/redfish"
	"github.com/wattmark/wattmark/internal/device"
)

// Handler implements device.PowerHandler for BMC chassis power. Each
// chassis with power metering is reported as one device.
type Handler struct {
	logger      *slog.Logger
	configPath  string
	httpTimeout time.Duration

	cfg     *BMCConfig
	client  *gofish.APIClient
	chassis []*redfish.Chassis
	devices []string
}

var _ device.PowerHandler = (*Handler)(nil)

// OptionFn is a functional option for configuring the Handler
type OptionFn func(*Handler)

// WithLogger sets the logger for the Handler
func WithLogger(logger *slog.Logger) OptionFn {
	return func(h *Handler) {
		h.logger = logger.With("handler", "redfish")
	}
}

// WithHTTPTimeout sets the timeout of BMC requests
func WithHTTPTimeout(d time.Duration) OptionFn {
	return func(h *Handler) {
		h.httpTimeout = d
	}
}

// NewHandler creates a Redfish platform power handler. The BMC connection
// details are read from the YAML file at configPath; an empty path (no BMC
// configured) makes the handler permanently unavailable.
func NewHandler(configPath string, opts ...OptionFn) *Handler {
	h := &Handler{
		logger:      slog.Default().With("handler", "redfish"),
		configPath:  configPath,
		httpTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Name() string {
	return "redfish"
}

// Available reports whether a valid BMC configuration exists. The BMC is
// not contacted here; connection failures surface from Init.
func (h *Handler) Available() bool {
	if h.configPath == "" {
		return false
	}

	cfg, err := LoadConfig(h.configPath)
	if err != nil {
		h.logger.Debug("BMC config not usable", "path", h.configPath, "error", err)
		return false
	}
	h.cfg = cfg
	return true
}

// Init connects to the BMC and enumerates the chassis that report power
func (h *Handler) Init() error {
	if h.cfg == nil {
		cfg, err := LoadConfig(h.configPath)
		if err != nil {
			return err
		}
		h.cfg = cfg
	}

	httpClient := &http.Client{Timeout: h.httpTimeout}
	if h.cfg.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := gofish.Connect(gofish.ClientConfig{
		Endpoint:   h.cfg.Endpoint,
		Username:   h.cfg.Username,
		Password:   h.cfg.Password,
		HTTPClient: httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to BMC at %s: %w", h.cfg.Endpoint, err)
	}

	if client.Service == nil {
		client.Logout()
		return fmt.Errorf("BMC service is not available")
	}

	chassis, err := client.Service.Chassis()
	if err != nil {
		client.Logout()
		return fmt.Errorf("failed to get chassis collection: %w", err)
	}
	if len(chassis) == 0 {
		client.Logout()
		return fmt.Errorf("no chassis found in BMC")
	}

	// keep only chassis that actually report power
	var metered []*redfish.Chassis
	var devices []string
	for _, c := range chassis {
		power, err := c.Power()
		if err != nil || power == nil || len(power.PowerControl) == 0 {
			h.logger.Debug("chassis has no power metering", "chassis", c.ID)
			continue
		}
		metered = append(metered, c)
		devices = append(devices, c.ID)
	}
	if len(metered) == 0 {
		client.Logout()
		return fmt.Errorf("no chassis with power metering found in BMC")
	}

	h.client = client
	h.chassis = metered
	h.devices = devices
	h.logger.Info("Redfish initialized", "endpoint", h.cfg.Endpoint, "chassis", len(metered))
	return nil
}

// Devices returns the IDs of the metered chassis
func (h *Handler) Devices() []string {
	return h.devices
}

// PowerUsage reads the consumed watts of every metered chassis
func (h *Handler) PowerUsage() ([]device.Power, error) {
	if h.client == nil {
		return nil, fmt.Errorf("redfish handler not initialized")
	}

	readings := make([]device.Power, 0, len(h.chassis))
	for _, c := range h.chassis {
		power, err := c.Power()
		if err != nil {
			return nil, fmt.Errorf("failed to read power of chassis %s: %w", c.ID, err)
		}
		if power == nil || len(power.PowerControl) == 0 {
			return nil, fmt.Errorf("chassis %s stopped reporting power", c.ID)
		}

		var watts float64
		for _, pc := range power.PowerControl {
			watts += float64(pc.PowerConsumedWatts)
		}
		readings = append(readings, device.Power(watts)*device.Watt)
	}
	return readings, nil
}

// Shutdown logs out of the BMC session
func (h *Handler) Shutdown() error {
	if h.client == nil {
		return nil
	}
	h.client.Logout()
	h.client = nil
	h.chassis = nil
	return nil
}
