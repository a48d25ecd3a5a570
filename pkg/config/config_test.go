package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfigMap() map[string]any {
	return map[string]any{
		"meterNo":         "07351687",
		"baseDemandRange": map[string]any{"min": 20000, "max": 36000},
		"daysInMonth":     map[string]any{"4": 30, "7": 31},
		"seasonalAdjustment": map[string]any{
			"Peak": 1.0, "Half_Peak": 0.9, "Saturday_Half_Peak": 0.85, "Off_Peak": 0.7,
		},
		"basicChargeRates": map[string]any{
			"Summer":     map[string]any{"Contract": 223.6, "Half_Peak": 166.9, "Sat_Half_Peak": 44.7, "Off_Peak": 44.7},
			"Non_Summer": map[string]any{"Contract": 166.9, "Half_Peak": 166.9, "Sat_Half_Peak": 33.3, "Off_Peak": 33.3},
		},
		"energyRates": map[string]any{
			"Summer": map[string]any{
				"Weekday":  map[string]any{"Peak": 6.92, "Half_Peak": 4.33, "Off_Peak": 1.93},
				"Saturday": map[string]any{"Half_Peak": 2.57, "Off_Peak": 1.93},
				"Sunday":   map[string]any{"Off_Peak": 1.93},
			},
		},
		"demandLimits": map[string]any{
			"7": map[string]any{"Peak": 38000, "Half_Peak": 36000, "Saturday_Half_Peak": 35000, "Off_Peak": 30000},
		},
		"referenceEnergyKWH": map[string]any{
			"7": map[string]any{"Peak": 1200000, "Half_Peak": 2400000, "Saturday_Half_Peak": 500000, "Off_Peak": 1800000},
		},
		"lowDemandStart":     "02:00",
		"lowDemandEnd":       "05:00",
		"lowDemandRange":     map[string]any{"min": 3000, "max": 6000},
		"peakValues":         map[string]any{"2024-07-12 12:30": 37000},
		"contractCapacityKW": 38000,
	}
}

func writeConfig(t *testing.T, m map[string]any) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigMap()))
	require.NoError(t, err)

	assert.Equal(t, "07351687", cfg.MeterNo)
	assert.Equal(t, 31, cfg.DaysInMonth[7])
	assert.Equal(t, DefaultSmoothingWindow, cfg.SmoothingWindow, "window should default when unset")
	assert.Equal(t, 38000.0, cfg.ContractCapacityKW)

	w := cfg.LowDemandWindow()
	assert.True(t, w.Contains(3*60))
	assert.False(t, w.Contains(6*60))
}

func TestLoadMissingKeys(t *testing.T) {
	required := []string{
		"meterNo", "baseDemandRange", "daysInMonth", "seasonalAdjustment",
		"basicChargeRates", "energyRates", "demandLimits", "referenceEnergyKWH",
		"lowDemandStart", "lowDemandEnd", "lowDemandRange", "peakValues",
		"contractCapacityKW",
	}
	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			m := validConfigMap()
			delete(m, key)
			_, err := Load(writeConfig(t, m))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingKey, "deleting %s should fail with ErrMissingKey", key)
		})
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	t.Run("even smoothing window", func(t *testing.T) {
		m := validConfigMap()
		m["smoothingWindow"] = 4
		_, err := Load(writeConfig(t, m))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "odd")
	})

	t.Run("inverted low-demand window", func(t *testing.T) {
		m := validConfigMap()
		m["lowDemandStart"] = "06:00"
		m["lowDemandEnd"] = "02:00"
		_, err := Load(writeConfig(t, m))
		require.Error(t, err)
	})

	t.Run("bad peak timestamp", func(t *testing.T) {
		m := validConfigMap()
		m["peakValues"] = map[string]any{"July 12 at noon": 37000}
		_, err := Load(writeConfig(t, m))
		require.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		m := validConfigMap()
		m["unknownKnob"] = true
		_, err := Load(writeConfig(t, m))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})
}

func TestPinsForMonth(t *testing.T) {
	m := validConfigMap()
	m["peakValues"] = map[string]any{
		"2024-07-12 12:30": 37000,
		"2024-07-03 18:15": 36000,
		"2024-04-12 12:30": 30000,
	}
	cfg, err := Load(writeConfig(t, m))
	require.NoError(t, err)

	pins := cfg.PinsForMonth(2024, time.July)
	require.Len(t, pins, 2)
	assert.Equal(t, "2024-07-03", pins[0].Date)
	assert.Equal(t, "18:15", pins[0].Time)
	assert.Equal(t, 36000.0, pins[0].DemandKW)
	assert.Equal(t, "2024-07-12", pins[1].Date)

	months := cfg.Months()
	require.Len(t, months, 2)
	assert.Equal(t, time.April, months[0].Month())
	assert.Equal(t, time.July, months[1].Month())
}
