package position

import (
	"fmt"
	"time"
)

// BeatGrid maps beat numbers to positions within a track. Grids are built and owned
// elsewhere; a TrackPosition only holds a reference and never modifies it.
type BeatGrid interface {
	// BeatWithinBar returns 1 to 4, where 1 is the down beat.
	BeatWithinBar(beatNumber int) int

	// TimeWithinTrack returns the millisecond position at which a beat starts.
	TimeWithinTrack(beatNumber int) int64

	// FindBeatAtTime returns the beat being played at a millisecond position,
	// or -1 before the first beat.
	FindBeatAtTime(milliseconds int64) int
}

// Confidence ranks how a position was obtained, strongest last.
type Confidence int

const (
	// ConfidenceInterpolated positions were projected from the last definitive position
	// using elapsed time, pitch and direction.
	ConfidenceInterpolated Confidence = iota
	// ConfidenceDefinitive positions were read directly from a packet field.
	ConfidenceDefinitive
	// ConfidencePrecise positions come from a player sending high resolution position
	// packets, exact even while paused, looping within a beat, or scrubbing.
	ConfidencePrecise
	// ConfidenceFromBeat positions were triggered by a beat packet.
	ConfidenceFromBeat
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceInterpolated:
		return "interpolated"
	case ConfidenceDefinitive:
		return "definitive"
	case ConfidencePrecise:
		return "precise"
	case ConfidenceFromBeat:
		return "from beat"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// Params carries the values a TrackPosition is built from.
type Params struct {
	Timestamp    time.Time
	Milliseconds int64
	BeatNumber   int
	Definitive   bool
	Precise      bool
	FromBeat     bool
	Playing      bool
	Pitch        float64 // playback speed, 1.0 being normal
	Reverse      bool
	BeatGrid     BeatGrid
}

// TrackPosition is an immutable belief about how far playback has reached at a
// moment in time. Values are safe to copy and share between goroutines.
type TrackPosition struct {
	timestamp    time.Time
	milliseconds int64
	beatNumber   int
	definitive   bool
	precise      bool
	fromBeat     bool
	playing      bool
	pitch        float64
	reverse      bool
	beatGrid     BeatGrid
}

// New builds a TrackPosition. A position triggered by a beat is always definitive.
func New(p Params) TrackPosition {
	return TrackPosition{
		timestamp:    p.Timestamp,
		milliseconds: p.Milliseconds,
		beatNumber:   p.BeatNumber,
		definitive:   p.Definitive || p.FromBeat,
		precise:      p.Precise,
		fromBeat:     p.FromBeat,
		playing:      p.Playing,
		pitch:        p.Pitch,
		reverse:      p.Reverse,
		beatGrid:     p.BeatGrid,
	}
}

// Timestamp returns when the position was observed or computed.
func (t TrackPosition) Timestamp() time.Time { return t.timestamp }

// Milliseconds returns how far into the track playback had reached.
func (t TrackPosition) Milliseconds() int64 { return t.milliseconds }

// BeatNumber returns the beat reported by, or computed for, this position.
func (t TrackPosition) BeatNumber() int { return t.beatNumber }

// Definitive reports whether the position was read from a packet rather than projected.
func (t TrackPosition) Definitive() bool { return t.definitive }

// Precise reports whether the position came from a high resolution position packet.
func (t TrackPosition) Precise() bool { return t.precise }

// FromBeat reports whether the position was triggered by a beat packet.
func (t TrackPosition) FromBeat() bool { return t.fromBeat }

// Playing reports whether the player was moving through the track.
func (t TrackPosition) Playing() bool { return t.playing }

// Pitch returns the playback speed multiplier, 1.0 being normal speed.
func (t TrackPosition) Pitch() float64 { return t.pitch }

// Reverse reports whether playback was running backwards.
func (t TrackPosition) Reverse() bool { return t.reverse }

// BeatGrid returns the grid the position was computed against, which may be nil.
func (t TrackPosition) BeatGrid() BeatGrid { return t.beatGrid }

// BeatWithinBar returns where the current beat falls in its bar, or 0 when no grid is
// known or playback has not reached the first beat.
func (t TrackPosition) BeatWithinBar() int {
	if t.beatGrid != nil && t.beatNumber > 0 {
		return t.beatGrid.BeatWithinBar(t.beatNumber)
	}
	return 0
}

// Confidence returns the strongest rung of the confidence ladder this position reaches.
func (t TrackPosition) Confidence() Confidence {
	switch {
	case t.fromBeat:
		return ConfidenceFromBeat
	case t.precise:
		return ConfidencePrecise
	case t.definitive:
		return ConfidenceDefinitive
	default:
		return ConfidenceInterpolated
	}
}

// IsInterpolated reports whether the position is an estimate projected from elapsed time.
func (t TrackPosition) IsInterpolated() bool {
	return t.Confidence() == ConfidenceInterpolated
}

func (t TrackPosition) String() string {
	return fmt.Sprintf("TrackPosition[timestamp:%d, milliseconds:%d, beatNumber:%d, definitive:%t, playing:%t, "+
		"pitch:%.2f, reverse:%t, beatGrid:%v, precise:%t, fromBeat:%t]",
		t.timestamp.UnixNano(), t.milliseconds, t.beatNumber, t.definitive, t.playing,
		t.pitch, t.reverse, t.beatGrid, t.precise, t.fromBeat)
}
