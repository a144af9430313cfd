// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wattmark/wattmark/internal/sampler"
)

const nodeNameLabel = "node_name"

// Reporter supplies the data the collector turns into metrics. The
// sampler implements it.
type Reporter interface {
	Report() sampler.Report
}

// PowerCollector exposes the tracked components' power and energy. All
// metrics of one scrape come from a single Report call so power and
// energy are always consistent with each other.
type PowerCollector struct {
	reporter Reporter
	logger   *slog.Logger

	powerDesc       *prometheus.Desc
	energyDesc      *prometheus.Desc
	epochEnergyDesc *prometheus.Desc
	availableDesc   *prometheus.Desc
	epochsDesc      *prometheus.Desc
}

// NewPowerCollector creates a collector reading from the given Reporter.
// nodeName is attached to every metric as a constant label.
func NewPowerCollector(reporter Reporter, nodeName string, logger *slog.Logger) *PowerCollector {
	constLabels := prometheus.Labels{nodeNameLabel: nodeName}

	return &PowerCollector{
		reporter: reporter,
		logger:   logger.With("collector", "power"),

		powerDesc: prometheus.NewDesc(
			prometheus.BuildFQName(wattmarkNS, "component", "power_watts"),
			"Latest power reading of a component device in watts",
			[]string{"component", "device"}, constLabels),
		energyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(wattmarkNS, "component", "joules_total"),
			"Energy consumed by a component over the completed epochs in joules",
			[]string{"component"}, constLabels),
		epochEnergyDesc: prometheus.NewDesc(
			prometheus.BuildFQName(wattmarkNS, "component", "epoch_joules"),
			"Energy consumed by a component during one epoch in joules",
			[]string{"component", "epoch"}, constLabels),
		availableDesc: prometheus.NewDesc(
			prometheus.BuildFQName(wattmarkNS, "component", "available"),
			"Whether a usable backend was resolved for the component (0 or 1)",
			[]string{"component"}, constLabels),
		epochsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(wattmarkNS, "", "epochs_total"),
			"Number of completed epochs",
			nil, constLabels),
	}
}

// Describe implements the prometheus.Collector interface
func (c *PowerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.powerDesc
	ch <- c.energyDesc
	ch <- c.epochEnergyDesc
	ch <- c.availableDesc
	ch <- c.epochsDesc
}

// Collect implements the prometheus.Collector interface
func (c *PowerCollector) Collect(ch chan<- prometheus.Metric) {
	report := c.reporter.Report()

	ch <- prometheus.MustNewConstMetric(c.epochsDesc,
		prometheus.CounterValue, float64(len(report.EpochTimes)))

	for _, comp := range report.Components {
		available := 0.0
		if comp.Available {
			available = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.availableDesc,
			prometheus.GaugeValue, available, comp.Name)

		if !comp.Available {
			continue
		}

		for i, p := range comp.LastPower {
			ch <- prometheus.MustNewConstMetric(c.powerDesc,
				prometheus.GaugeValue, p.Watts(), comp.Name, c.deviceLabel(comp.Devices, i))
		}

		ch <- prometheus.MustNewConstMetric(c.energyDesc,
			prometheus.CounterValue, comp.Total.Joules(), comp.Name)

		for i, e := range comp.Energy {
			ch <- prometheus.MustNewConstMetric(c.epochEnergyDesc,
				prometheus.GaugeValue, e.Joules(), comp.Name, fmt.Sprintf("%d", i+1))
		}
	}
}

func (c *PowerCollector) deviceLabel(devices []string, i int) string {
	if i < len(devices) {
		return devices[i]
	}
	return fmt.Sprintf("device-%d", i)
}
