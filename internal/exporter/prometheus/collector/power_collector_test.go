// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattmark/wattmark/internal/device"
	"github.com/wattmark/wattmark/internal/sampler"
)

type stubReporter struct {
	report sampler.Report
}

func (s *stubReporter) Report() sampler.Report {
	return s.report
}

func testReport() sampler.Report {
	return sampler.Report{
		EpochTimes: []time.Duration{time.Hour, 30 * time.Minute},
		Components: []sampler.ComponentEnergy{{
			Name:      "gpu",
			Available: true,
			Devices:   []string{"gpu-0", "gpu-1"},
			LastPower: []device.Power{150 * device.Watt, 250 * device.Watt},
			Energy:    []device.Energy{720_000 * device.Joule, 1_080_000 * device.Joule},
			Total:     1_800_000 * device.Joule,
		}, {
			Name:      "cpu",
			Available: false,
		}},
	}
}

func TestPowerCollector_Describe(t *testing.T) {
	c := NewPowerCollector(&stubReporter{}, "test-node", slog.Default())
	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	assert.Len(t, ch, 5)
}

func TestPowerCollector_Collect(t *testing.T) {
	c := NewPowerCollector(&stubReporter{report: testReport()}, "test-node", slog.Default())

	expected := `
# HELP wattmark_component_available Whether a usable backend was resolved for the component (0 or 1)
# TYPE wattmark_component_available gauge
wattmark_component_available{component="cpu",node_name="test-node"} 0
wattmark_component_available{component="gpu",node_name="test-node"} 1
# HELP wattmark_component_epoch_joules Energy consumed by a component during one epoch in joules
# TYPE wattmark_component_epoch_joules gauge
wattmark_component_epoch_joules{component="gpu",epoch="1",node_name="test-node"} 720000
wattmark_component_epoch_joules{component="gpu",epoch="2",node_name="test-node"} 1.08e+06
# HELP wattmark_component_joules_total Energy consumed by a component over the completed epochs in joules
# TYPE wattmark_component_joules_total counter
wattmark_component_joules_total{component="gpu",node_name="test-node"} 1.8e+06
# HELP wattmark_component_power_watts Latest power reading of a component device in watts
# TYPE wattmark_component_power_watts gauge
wattmark_component_power_watts{component="gpu",device="gpu-0",node_name="test-node"} 150
wattmark_component_power_watts{component="gpu",device="gpu-1",node_name="test-node"} 250
# HELP wattmark_epochs_total Number of completed epochs
# TYPE wattmark_epochs_total counter
wattmark_epochs_total{node_name="test-node"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected))
	require.NoError(t, err)
}

func TestPowerCollector_CollectEmptyReport(t *testing.T) {
	c := NewPowerCollector(&stubReporter{}, "test-node", slog.Default())

	expected := `
# HELP wattmark_epochs_total Number of completed epochs
# TYPE wattmark_epochs_total counter
wattmark_epochs_total{node_name="test-node"} 0
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected))
	require.NoError(t, err)
}

func TestPowerCollector_UnknownDeviceName(t *testing.T) {
	report := testReport()
	report.Components[0].Devices = nil
	c := NewPowerCollector(&stubReporter{report: report}, "test-node", slog.Default())

	expected := `
# HELP wattmark_component_power_watts Latest power reading of a component device in watts
# TYPE wattmark_component_power_watts gauge
wattmark_component_power_watts{component="gpu",device="device-0",node_name="test-node"} 150
wattmark_component_power_watts{component="gpu",device="device-1",node_name="test-node"} 250
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "wattmark_component_power_watts")
	require.NoError(t, err)
}
