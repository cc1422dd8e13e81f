package main

import (
	"math"
	"testing"
)

// unitIndex returns the position of unit in speedUnits, or -1.
func unitIndex(unit string) int {
	for i, u := range speedUnits {
		if u == unit {
			return i
		}
	}
	return -1
}

func TestFromBytesBoundaries(t *testing.T) {
	tests := []struct {
		speed     float64
		wantUnit  string
		wantValue float64
	}{
		{0, "B/s", 0},
		{1, "B/s", 1},
		{1023.999, "B/s", 1023.999},
		{1024, "KiB/s", 1},
		{1536, "KiB/s", 1.5},
		{1024 * 1024, "MiB/s", 1},
		{3.42 * 1024 * 1024, "MiB/s", 3.42},
		{math.Pow(1024, 3), "GiB/s", 1},
		{math.Pow(1024, 4), "TiB/s", 1},
		{math.Pow(1024, 5), "PiB/s", 1},
		{math.Pow(1024, 6), "EiB/s", 1},
		{math.Pow(1024, 7), "ZiB/s", 1},
		{math.Pow(1024, 8), "YiB/s", 1},
		{2048 * math.Pow(1024, 8), "YiB/s", 2048},
	}

	for _, tt := range tests {
		got := FromBytes(tt.speed)
		if got.Unit != tt.wantUnit {
			t.Errorf("FromBytes(%g).Unit = %q, want %q", tt.speed, got.Unit, tt.wantUnit)
		}
		if math.Abs(got.Value-tt.wantValue) > 1e-9*math.Max(1, tt.wantValue) {
			t.Errorf("FromBytes(%g).Value = %g, want %g", tt.speed, got.Value, tt.wantValue)
		}
	}
}

func TestFromBytesNegative(t *testing.T) {
	for _, speed := range []float64{-1, -0.001, -1e30, math.Inf(-1), math.NaN()} {
		got := FromBytes(speed)
		if got.Value != 0 || got.Unit != "B/s" {
			t.Errorf("FromBytes(%g) = %+v, want {0 B/s}", speed, got)
		}
	}
}

func TestFromBytesPositiveInfinityStaysFinite(t *testing.T) {
	got := FromBytes(math.Inf(1))
	if got.Unit != "YiB/s" {
		t.Errorf("unit = %q, want YiB/s", got.Unit)
	}
	if math.IsInf(got.Value, 0) || math.IsNaN(got.Value) {
		t.Errorf("value = %g, want finite", got.Value)
	}
}

// Scaling back by the unit's power must reproduce the input.
func TestFromBytesRoundTrip(t *testing.T) {
	speeds := []float64{0, 0.5, 7, 999, 1024, 12345, 5e6, 7.7e9, 1.2e13, 9.9e16, 4.4e19, 3.3e22, 1.1e25, 8e28}
	for _, speed := range speeds {
		got := FromBytes(speed)
		k := unitIndex(got.Unit)
		if k < 0 {
			t.Fatalf("FromBytes(%g): unknown unit %q", speed, got.Unit)
		}
		back := got.Value * math.Pow(1024, float64(k))
		if math.Abs(back-speed) > 1e-9*math.Max(1, speed) {
			t.Errorf("FromBytes(%g) = %+v, scales back to %g", speed, got, back)
		}
		if k < len(speedUnits)-1 && got.Value >= 1024 {
			t.Errorf("FromBytes(%g) = %+v, value not reduced", speed, got)
		}
		if k > 0 && got.Value < 1 {
			t.Errorf("FromBytes(%g) = %+v, over-scaled", speed, got)
		}
	}
}

func TestReadableSpeedString(t *testing.T) {
	tests := []struct {
		speed    float64
		expected string
	}{
		{0, "0.00 B/s"},
		{512, "512.00 B/s"},
		{1024, "1.00 KiB/s"},
		{3.42 * 1024 * 1024, "3.42 MiB/s"},
		{-5, "0.00 B/s"},
	}

	for _, tt := range tests {
		if got := FromBytes(tt.speed).String(); got != tt.expected {
			t.Errorf("FromBytes(%g).String() = %q, want %q", tt.speed, got, tt.expected)
		}
	}
}
