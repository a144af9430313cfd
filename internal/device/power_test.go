// SPDX-FileCopyrightText: 2025 The Wattmark Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnergyConversions(t *testing.T) {
	e := 720_000 * Joule

	assert.Equal(t, uint64(720_000_000_000), e.MicroJoules())
	assert.InDelta(t, 720_000_000, e.MilliJoules(), 0.001)
	assert.InDelta(t, 720_000, e.Joules(), 0.001)
	assert.InDelta(t, 0.2, e.KiloWattHours(), 1e-9)
	assert.Equal(t, "720000.00J", e.String())
}

func TestEnergyKiloWattHours(t *testing.T) {
	tests := []struct {
		energy Energy
		kwh    float64
	}{
		{0, 0},
		{Joule, 1.0 / 3_600_000},
		{3_600_000 * Joule, 1.0},
		{300_000 * Joule, 1.0 / 12},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.kwh, tt.energy.KiloWattHours(), 1e-12)
	}
}

func TestPowerConversions(t *testing.T) {
	p := 200 * Watt

	assert.InDelta(t, 200_000_000, p.MicroWatts(), 0.001)
	assert.InDelta(t, 200_000, p.MilliWatts(), 0.001)
	assert.InDelta(t, 200, p.Watts(), 0.001)
	assert.Equal(t, "200.00W", p.String())
}
