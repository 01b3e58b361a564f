package protocol

const (
	// NormalPitch is the raw pitch value reported when a player runs at normal speed.
	NormalPitch = 0x100000

	// MaxPitch is the raw pitch value for double speed.
	MaxPitch = 0x200000
)

// PitchToPercentage converts a raw pitch value to the percentage deviation from
// normal speed shown on the player: 0 is -100%, NormalPitch is 0%, MaxPitch is +100%.
func PitchToPercentage(pitch int) float64 {
	return float64(pitch-NormalPitch) / 10485.76
}

// PitchToMultiplier converts a raw pitch value to a playback speed factor, 1.0 being normal speed.
func PitchToMultiplier(pitch int) float64 {
	return float64(pitch) / float64(NormalPitch)
}
