// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/utils/ptr"

	"github.com/wattmark/wattmark/internal/component"
	"github.com/wattmark/wattmark/internal/config"
	"github.com/wattmark/wattmark/internal/device"
	"github.com/wattmark/wattmark/internal/device/cpu/hwmon"
	"github.com/wattmark/wattmark/internal/device/cpu/rapl"
	"github.com/wattmark/wattmark/internal/device/gpu/nvidia"
	"github.com/wattmark/wattmark/internal/exporter/prometheus"
	"github.com/wattmark/wattmark/internal/exporter/stdout"
	"github.com/wattmark/wattmark/internal/logger"
	"github.com/wattmark/wattmark/internal/platform/redfish"
	"github.com/wattmark/wattmark/internal/sampler"
	"github.com/wattmark/wattmark/internal/server"
	"github.com/wattmark/wattmark/internal/service"
	"github.com/wattmark/wattmark/internal/version"
)

func main() {
	// parse args and config and exit with error if there is an error
	cfg, err := parseArgsAndConfig()
	if err != nil {
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	slog.SetDefault(log)
	logVersionInfo(log)
	printConfigInfo(log, cfg)

	services, err := createServices(log, cfg)
	if err != nil {
		log.Error("Failed to create services", "error", err)
		os.Exit(1)
	}

	if err := service.Init(log, services); err != nil {
		log.Error("Service initialization failed", "error", err)
		os.Exit(1)
	}

	log.Info("Starting Wattmark")
	if err := service.Run(context.Background(), log, services); err != nil {
		log.Error("Wattmark terminated with an error", "error", err)
		os.Exit(1)
	}
	log.Info("Graceful shutdown completed")
}

func logVersionInfo(logger *slog.Logger) {
	v := version.Info()
	logger.Info("Wattmark version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitBranch", v.GitBranch,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func parseArgsAndConfig() (*config.Config, error) {
	const appName = "wattmark"
	app := kingpin.New(appName, "Component energy tracker and Prometheus exporter.")

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logger.New("info", "text", os.Stdout)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		log.Info("Loading configuration file", "path", *configFile)
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			log.Error("Error loading config file", "error", err.Error())
			return nil, err
		}
		// Replace default config with loaded config
		cfg = loadedCfg
		log.Info("Completed loading of configuration file", "path", *configFile)
	}

	// Apply command line flags (these override config file settings)
	if err := updateConfig(cfg); err != nil {
		log.Error("Error applying command line flags", "error", err.Error())
		return nil, err
	}

	return cfg, nil
}

func printConfigInfo(logger *slog.Logger, cfg *config.Config) {
	if !logger.Enabled(context.Background(), slog.LevelInfo) || cfg.Log.Format == "json" {
		return
	}

	fmt.Printf(`
Configuration
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
%s
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
`, cfg)
}

// registerBackends populates the backend registry with the hardware the
// daemon knows how to read. For the cpu type rapl is preferred and hwmon
// is the fallback; the platform type is only registered when a BMC config
// was supplied. In development mode fake handlers with canned readings
// stand in for the hardware.
func registerBackends(logger *slog.Logger, cfg *config.Config) {
	if ptr.Deref(cfg.Dev.FakePowerMeter.Enabled, false) {
		logger.Warn("Development mode: using fake power meters with canned readings")
		device.Register(device.TypeCPU, device.ErrCPUUnavailable,
			device.NewFakePowerHandler(
				device.WithFakeName("fake-cpu"),
				device.WithFakeDevices("fake-cpu-0"),
			),
		)
		device.Register(device.TypeGPU, device.ErrGPUUnavailable,
			device.NewFakePowerHandler(
				device.WithFakeName("fake-gpu"),
				device.WithFakeDevices("fake-gpu-0"),
			),
		)
		return
	}

	device.Register(device.TypeGPU, device.ErrGPUUnavailable,
		nvidia.NewHandler(nvidia.WithLogger(logger)),
	)
	device.Register(device.TypeCPU, device.ErrCPUUnavailable,
		rapl.NewHandler(cfg.Host.SysFS, rapl.WithLogger(logger)),
		hwmon.NewHandler(cfg.Host.SysFS, hwmon.WithLogger(logger)),
	)
	if cfg.Platform.BMCConfig != "" {
		device.Register(device.TypePlatform, device.ErrPlatformUnavailable,
			redfish.NewHandler(cfg.Platform.BMCConfig, redfish.WithLogger(logger)),
		)
	}
}

func nodeName(cfg *config.Config) string {
	if cfg.Host.Name != "" {
		return cfg.Host.Name
	}
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return "unknown"
}

func createServices(logger *slog.Logger, cfg *config.Config) ([]service.Service, error) {
	logger.Debug("Creating all services")

	registerBackends(logger, cfg)

	components, err := component.CreateComponents(
		cfg.Components.Selection,
		component.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	smplr := sampler.New(components,
		sampler.WithLogger(logger),
		sampler.WithInterval(cfg.Sampler.Interval),
		sampler.WithEpochDuration(cfg.Sampler.EpochDuration),
	)

	apiServer := server.NewAPIServer(
		server.WithLogger(logger),
		server.WithListenAddress(cfg.Web.ListenAddresses),
		server.WithWebConfigFile(cfg.Web.Config),
	)

	services := []service.Service{
		smplr,
		apiServer,
		server.NewProbe(apiServer, components),
		service.NewSignalHandler(os.Interrupt),
	}

	if ptr.Deref(cfg.Exporter.Prometheus.Enabled, false) {
		collectors, err := prometheus.CreateCollectors(
			smplr,
			prometheus.WithLogger(logger),
			prometheus.WithNodeName(nodeName(cfg)),
		)
		if err != nil {
			return nil, err
		}
		promExporter := prometheus.NewExporter(
			smplr,
			apiServer,
			prometheus.WithLogger(logger),
			prometheus.WithCollectors(collectors),
			prometheus.WithDebugCollectors(cfg.Exporter.Prometheus.DebugCollectors),
		)
		services = append(services, promExporter)
	}

	if ptr.Deref(cfg.Exporter.Stdout.Enabled, false) {
		stdoutExporter := stdout.NewExporter(
			smplr,
			stdout.WithLogger(logger),
			stdout.WithInterval(cfg.Exporter.Stdout.Interval),
		)
		services = append(services, stdoutExporter)
	}

	if ptr.Deref(cfg.Debug.Pprof.Enabled, false) {
		services = append(services, server.NewPprof(apiServer))
	}

	return services, nil
}
