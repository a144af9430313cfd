// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package nvidia

import (
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	t.Run("init failure", func(t *testing.T) {
		lib := &mockNvmlLib{initRet: nvml.ERROR_LIBRARY_NOT_FOUND}
		h := NewHandler(withNvmlLib(lib))

		assert.False(t, h.Available())
		assert.Equal(t, 0, lib.shutdownCount)
	})

	t.Run("no devices", func(t *testing.T) {
		lib := &mockNvmlLib{}
		h := NewHandler(withNvmlLib(lib))

		assert.False(t, h.Available())
		// the probe must not leave NVML initialized
		assert.Equal(t, 1, lib.initCount)
		assert.Equal(t, 1, lib.shutdownCount)
	})

	t.Run("devices present", func(t *testing.T) {
		lib := &mockNvmlLib{devices: []*mockDeviceHandle{{name: "NVIDIA A100"}}}
		h := NewHandler(withNvmlLib(lib))

		assert.True(t, h.Available())
		assert.Equal(t, lib.initCount, lib.shutdownCount)
	})
}

func TestInitAndDevices(t *testing.T) {
	lib := &mockNvmlLib{devices: []*mockDeviceHandle{
		{name: "NVIDIA A100-SXM4-40GB"},
		{nameRet: nvml.ERROR_NOT_SUPPORTED, uuid: "GPU-42"},
	}}
	h := NewHandler(withNvmlLib(lib))

	require.NoError(t, h.Init())
	assert.Equal(t, []string{"NVIDIA A100-SXM4-40GB", "GPU-42"}, h.Devices())
}

func TestPowerUsage(t *testing.T) {
	lib := &mockNvmlLib{devices: []*mockDeviceHandle{
		{name: "gpu-a", powerMW: 250_000},
		{name: "gpu-b", powerMW: 125_500},
	}}
	h := NewHandler(withNvmlLib(lib))
	require.NoError(t, h.Init())

	readings, err := h.PowerUsage()
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.InDelta(t, 250, readings[0].Watts(), 0.001)
	assert.InDelta(t, 125.5, readings[1].Watts(), 0.001)
}

func TestPowerUsageBeforeInit(t *testing.T) {
	h := NewHandler(withNvmlLib(&mockNvmlLib{}))

	_, err := h.PowerUsage()
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrNotInitialized{})
}

func TestPowerUsageReadFailure(t *testing.T) {
	lib := &mockNvmlLib{devices: []*mockDeviceHandle{
		{name: "gpu-a", powerRet: nvml.ERROR_UNKNOWN},
	}}
	h := NewHandler(withNvmlLib(lib))
	require.NoError(t, h.Init())

	_, err := h.PowerUsage()
	assert.Error(t, err)
}

func TestShutdown(t *testing.T) {
	lib := &mockNvmlLib{devices: []*mockDeviceHandle{{name: "gpu-a"}}}
	h := NewHandler(withNvmlLib(lib))

	// shutdown before init is a no-op
	require.NoError(t, h.Shutdown())
	assert.Equal(t, 0, lib.shutdownCount)

	require.NoError(t, h.Init())
	require.NoError(t, h.Shutdown())
	assert.Equal(t, 1, lib.shutdownCount)

	_, err := h.PowerUsage()
	assert.Error(t, err)
}
