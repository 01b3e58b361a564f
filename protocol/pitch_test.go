package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPitchConversion(t *testing.T) {
	tests := []struct {
		name       string
		pitch      int
		percentage float64
		multiplier float64
	}{
		{name: "stopped", pitch: 0, percentage: -100, multiplier: 0},
		{name: "normal", pitch: NormalPitch, percentage: 0, multiplier: 1},
		{name: "double", pitch: MaxPitch, percentage: 100, multiplier: 2},
		{name: "plus six percent", pitch: 1111490, percentage: 6, multiplier: 1.06},
		{name: "minus eight percent", pitch: 964690, percentage: -8, multiplier: 0.92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.percentage, PitchToPercentage(tt.pitch), 0.001)
			assert.InDelta(t, tt.multiplier, PitchToMultiplier(tt.pitch), 0.00001)
		})
	}
}
