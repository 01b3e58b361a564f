package position

// constantGrid is a 4/4 grid at a fixed tempo whose first beat starts firstBeatMs into the track.
type constantGrid struct {
	beatMs      int64
	firstBeatMs int64
}

func (g constantGrid) BeatWithinBar(beat int) int {
	if beat < 1 {
		return 0
	}
	return (beat-1)%4 + 1
}

func (g constantGrid) TimeWithinTrack(beat int) int64 {
	return g.firstBeatMs + int64(beat-1)*g.beatMs
}

func (g constantGrid) FindBeatAtTime(ms int64) int {
	if ms < g.firstBeatMs {
		return -1
	}
	return int((ms-g.firstBeatMs)/g.beatMs) + 1
}

func (g constantGrid) String() string { return "constantGrid" }

// grid120 is a 120 BPM grid: a beat every 500ms.
var grid120 = constantGrid{beatMs: 500}
