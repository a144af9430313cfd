// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package nvidia

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// mockNvmlLib is a hand-rolled nvmlLib for tests
type mockNvmlLib struct {
	initRet     nvml.Return
	shutdownRet nvml.Return
	countRet    nvml.Return
	devices     []*mockDeviceHandle

	initCount     int
	shutdownCount int
}

func (m *mockNvmlLib) Init() nvml.Return {
	m.initCount++
	return m.initRet
}

func (m *mockNvmlLib) Shutdown() nvml.Return {
	m.shutdownCount++
	return m.shutdownRet
}

func (m *mockNvmlLib) DeviceGetCount() (int, nvml.Return) {
	return len(m.devices), m.countRet
}

func (m *mockNvmlLib) DeviceGetHandleByIndex(index int) (nvmlDeviceHandle, nvml.Return) {
	if index < 0 || index >= len(m.devices) {
		return nil, nvml.ERROR_INVALID_ARGUMENT
	}
	return m.devices[index], nvml.SUCCESS
}

func (m *mockNvmlLib) ErrorString(ret nvml.Return) string {
	return nvml.ErrorString(ret)
}

type mockDeviceHandle struct {
	uuid     string
	name     string
	nameRet  nvml.Return
	powerMW  uint32
	powerRet nvml.Return
}

func (d *mockDeviceHandle) GetUUID() (string, nvml.Return) {
	return d.uuid, nvml.SUCCESS
}

func (d *mockDeviceHandle) GetName() (string, nvml.Return) {
	return d.name, d.nameRet
}

func (d *mockDeviceHandle) GetPowerUsage() (uint32, nvml.Return) {
	return d.powerMW, d.powerRet
}
