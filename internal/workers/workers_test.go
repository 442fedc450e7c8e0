package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvOverride, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"one per CPU", 1.0, 0, 1, availableCPU},
		{"two per CPU", 2.0, 0, 1, availableCPU * 2},
		{"limit lower than calculated", 2.0, 2, 1, 2},
		{"very low multiplier", 0.1, 0, 1, max(1, int(float64(availableCPU)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]", tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int // -1 means fall back to the automatic value
	}{
		{"valid override", "8", 0, 8},
		{"override with limit", "20", 10, 10},
		{"override below limit", "3", 10, 3},
		{"non-numeric", "invalid", 0, -1},
		{"zero", "0", 0, -1},
		{"negative", "-5", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvOverride, tt.envValue)

			got := Count(1.0, tt.limit)
			if tt.expected < 0 {
				if got < 1 {
					t.Errorf("Count with invalid override = %d, want at least 1", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, EnvOverride, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForIndexAndScan(t *testing.T) {
	t.Setenv(EnvOverride, "")

	if got := ForIndex(); got < 1 || got > DefaultLimit {
		t.Errorf("ForIndex() = %d, want in [1, %d]", got, DefaultLimit)
	}
	if got := ForScan(1); got != 1 {
		t.Errorf("ForScan(1) = %d, want 1", got)
	}
}
