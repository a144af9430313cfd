// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wattmark/wattmark/internal/sampler"
	"github.com/wattmark/wattmark/internal/service"
)

type (
	Initializer = service.Initializer
	Runner      = service.Runner
	Shutdowner  = service.Shutdowner
)

// Reporter supplies the energy data the exporter renders. The sampler
// implements it.
type Reporter interface {
	Report() sampler.Report
}

// Exporter renders live power readings to stdout while the run is in
// progress and a per-epoch energy report when it ends.
type Exporter struct {
	logger   *slog.Logger
	reporter Reporter
	out      io.WriteCloser
	ticker   time.Ticker
	interval time.Duration
}

var (
	_ Initializer = (*Exporter)(nil)
	_ Runner      = (*Exporter)(nil)
	_ Shutdowner  = (*Exporter)(nil)
)

type Opts struct {
	logger   *slog.Logger
	out      io.WriteCloser
	interval time.Duration
}

// DefaultOpts() returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:   slog.Default().With("service", "stdout"),
		out:      os.Stdout,
		interval: 2 * time.Second,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Exporter
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

func WithOutput(out io.WriteCloser) OptionFn {
	return func(o *Opts) {
		o.out = out
	}
}

func WithInterval(interval time.Duration) OptionFn {
	return func(o *Opts) {
		o.interval = interval
	}
}

func NewExporter(reporter Reporter, applyOpts ...OptionFn) *Exporter {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	exporter := &Exporter{
		logger:   opts.logger.With("service", "stdout"),
		reporter: reporter,
		out:      opts.out,
		interval: opts.interval,
	}

	return exporter
}

func (e *Exporter) Init() error {
	e.ticker = *time.NewTicker(e.interval)
	return nil
}

func (e *Exporter) Run(ctx context.Context) error {
	for {
		select {
		case <-e.ticker.C:
			writePower(e.out, e.reporter.Report())
		case <-ctx.Done():
			writeEnergy(e.out, e.reporter.Report())
			return nil
		}
	}
}

// writePower renders the live view: the latest power reading per device
// of every component with a usable backend.
func writePower(out io.Writer, report sampler.Report) {
	rows := [][]string{}
	for _, c := range report.Components {
		if !c.Available {
			continue
		}
		for i, p := range c.LastPower {
			rows = append(rows, []string{c.Name, deviceName(c.Devices, i), p.String()})
		}
	}
	if len(rows) == 0 {
		return
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Component", "Device", "Power(W)"})
	_ = table.Bulk(rows)
	_ = table.Render()
}

// writeEnergy renders the final report: per-epoch energy per component
// plus the run total, in kWh.
func writeEnergy(out io.Writer, report sampler.Report) {
	rows := [][]string{}
	for _, c := range report.Components {
		if !c.Available {
			rows = append(rows, []string{c.Name, "-", "unavailable", "-"})
			continue
		}
		for i, usage := range c.Energy {
			rows = append(rows, []string{
				c.Name,
				fmt.Sprintf("%d", i+1),
				report.EpochTimes[i].String(),
				fmt.Sprintf("%.6f kWh", usage.KiloWattHours()),
			})
		}
		rows = append(rows, []string{
			c.Name, "total", "",
			fmt.Sprintf("%.6f kWh", c.Total.KiloWattHours()),
		})
	}
	if len(rows) == 0 {
		return
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Component", "Epoch", "Duration", "Energy"})
	_ = table.Bulk(rows)
	_ = table.Render()
}

func deviceName(devices []string, i int) string {
	if i < len(devices) {
		return devices[i]
	}
	return fmt.Sprintf("device-%d", i)
}

func (e *Exporter) Shutdown() error {
	return e.out.Close()
}

// Name implements service.Name
func (e *Exporter) Name() string {
	return "stdout"
}
