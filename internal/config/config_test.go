// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"
)

// populatedDir returns a readable non-empty directory usable as a sysfs
// stand-in for validation
func populatedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0o644))
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/sys", cfg.Host.SysFS)
	assert.Equal(t, "all", cfg.Components.Selection)
	assert.Equal(t, 1*time.Second, cfg.Sampler.Interval)
	assert.Equal(t, time.Duration(0), cfg.Sampler.EpochDuration)
	assert.Equal(t, ptr.To(false), cfg.Exporter.Stdout.Enabled)
	assert.Equal(t, ptr.To(true), cfg.Exporter.Prometheus.Enabled)
	assert.Equal(t, []string{"go"}, cfg.Exporter.Prometheus.DebugCollectors)
	assert.Equal(t, []string{DefaultListenAddress}, cfg.Web.ListenAddresses)
	assert.Equal(t, ptr.To(false), cfg.Dev.FakePowerMeter.Enabled)
}

func TestLoad(t *testing.T) {
	yamlData := `
log:
  level: debug
  format: json
host:
  sysfs: ` + populatedDir(t) + `
components:
  selection: gpu,cpu
sampler:
  interval: 2000000000
web:
  listenAddresses:
    - ":9999"
dev:
  fake-power-meter:
    enabled: true
`
	cfg, err := Load(strings.NewReader(yamlData))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "gpu,cpu", cfg.Components.Selection)
	assert.Equal(t, 2*time.Second, cfg.Sampler.Interval)
	assert.Equal(t, []string{":9999"}, cfg.Web.ListenAddresses)
	assert.Equal(t, ptr.To(true), cfg.Dev.FakePowerMeter.Enabled)

	// unset fields keep their defaults
	assert.Equal(t, ptr.To(true), cfg.Exporter.Prometheus.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(strings.NewReader("log: ["))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{{
		name:    "bad log level",
		yaml:    "log:\n  level: loud",
		wantErr: "invalid log level",
	}, {
		name:    "bad log format",
		yaml:    "log:\n  format: xml",
		wantErr: "invalid log format",
	}, {
		name:    "empty selection",
		yaml:    "components:\n  selection: \" \"",
		wantErr: "component selection cannot be empty",
	}, {
		name:    "negative epoch duration",
		yaml:    "sampler:\n  epochDuration: -5000000000",
		wantErr: "invalid epoch duration",
	}, {
		name:    "bad listen address",
		yaml:    "web:\n  listenAddresses: [\"not-an-address\"]",
		wantErr: "invalid web listen address",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yamlData := "host:\n  sysfs: " + populatedDir(t) + "\n" + tt.yaml
			_, err := Load(strings.NewReader(yamlData))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := "log:\n  level: warn\nhost:\n  sysfs: " + populatedDir(t) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRegisterFlags(t *testing.T) {
	t.Run("flags override config", func(t *testing.T) {
		app := kingpin.New("test", "")
		updateConfig := RegisterFlags(app)

		_, err := app.Parse([]string{
			"--log.level=debug",
			"--components=gpu",
			"--sampler.interval=10s",
			"--sampler.epoch-duration=1m",
			"--exporter.stdout",
			"--host.name=worker-1",
		})
		require.NoError(t, err)

		cfg := DefaultConfig()
		cfg.Host.SysFS = populatedDir(t)
		require.NoError(t, updateConfig(cfg))

		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "gpu", cfg.Components.Selection)
		assert.Equal(t, 10*time.Second, cfg.Sampler.Interval)
		assert.Equal(t, time.Minute, cfg.Sampler.EpochDuration)
		assert.Equal(t, ptr.To(true), cfg.Exporter.Stdout.Enabled)
		assert.Equal(t, "worker-1", cfg.Host.Name)
	})

	t.Run("unset flags keep config values", func(t *testing.T) {
		app := kingpin.New("test", "")
		updateConfig := RegisterFlags(app)

		_, err := app.Parse([]string{})
		require.NoError(t, err)

		cfg := DefaultConfig()
		cfg.Host.SysFS = populatedDir(t)
		cfg.Log.Level = "error"
		cfg.Components.Selection = "cpu"
		require.NoError(t, updateConfig(cfg))

		assert.Equal(t, "error", cfg.Log.Level)
		assert.Equal(t, "cpu", cfg.Components.Selection)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		app := kingpin.New("test", "")
		RegisterFlags(app)

		_, err := app.Parse([]string{"--log.level=verbose"})
		assert.Error(t, err)
	})
}

func TestValidateSkipsHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host.SysFS = "/definitely/not/a/dir"

	assert.Error(t, cfg.Validate())
	assert.NoError(t, cfg.Validate(SkipHostValidation))
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	assert.Contains(t, s, "level: info")
	assert.Contains(t, s, "selection: all")

	m := cfg.manualString()
	assert.Contains(t, m, LogLevelFlag)
	assert.Contains(t, m, ComponentsFlag)
}
