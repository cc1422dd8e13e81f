package main

import (
	"fmt"
	"math"
)

// speedUnits is ordered by magnitude; index k means a scale of 1024^k.
var speedUnits = [...]string{
	"B/s",
	"KiB/s",
	"MiB/s",
	"GiB/s",
	"TiB/s",
	"PiB/s",
	"EiB/s",
	"ZiB/s",
	"YiB/s",
}

// ReadableSpeed is a byte rate scaled to a binary (base 1024) unit.
type ReadableSpeed struct {
	Value float64
	Unit  string
}

// FromBytes scales a rate in bytes per second to the largest unit that keeps
// the value at or above 1. Negative and NaN rates render as 0 B/s.
func FromBytes(speed float64) ReadableSpeed {
	if speed < 0 || math.IsNaN(speed) {
		return ReadableSpeed{Value: 0, Unit: speedUnits[0]}
	}
	if math.IsInf(speed, 1) {
		speed = math.MaxFloat64
	}

	k := 0
	scale := 1.0
	for k < len(speedUnits)-1 && speed >= scale*1024 {
		scale *= 1024
		k++
	}
	return ReadableSpeed{Value: speed / scale, Unit: speedUnits[k]}
}

// String renders the speed as a status line body, e.g. "3.42 MiB/s".
func (s ReadableSpeed) String() string {
	return fmt.Sprintf("%.2f %s", s.Value, s.Unit)
}

