package position

import (
	"math"
	"time"
)

// InterpolateMilliseconds projects last forward to now. A position that was not
// playing does not move; otherwise elapsed time is scaled by pitch and applied in
// the direction of playback. Positions never go below the start of the track.
func InterpolateMilliseconds(last TrackPosition, now time.Time) int64 {
	if !last.playing {
		return last.milliseconds
	}

	elapsed := float64(now.Sub(last.timestamp)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}

	moved := int64(math.Round(last.pitch * elapsed))
	if last.reverse {
		moved = -moved
	}

	return max(last.milliseconds+moved, 0)
}

// Estimate returns the best position for now given the last known one. A stopped
// player's position is returned as it is; a moving player's is interpolated.
func Estimate(last TrackPosition, now time.Time) TrackPosition {
	if !last.playing {
		return last
	}

	ms := InterpolateMilliseconds(last, now)
	beat := last.beatNumber
	if last.beatGrid != nil {
		beat = beatAtTime(last.beatGrid, ms)
	}

	return New(Params{
		Timestamp:    now,
		Milliseconds: ms,
		BeatNumber:   beat,
		Playing:      true,
		Pitch:        last.pitch,
		Reverse:      last.reverse,
		BeatGrid:     last.beatGrid,
	})
}

// beatAtTime is the grid beat playing at ms, or 0 before the first beat.
func beatAtTime(grid BeatGrid, ms int64) int {
	return max(grid.FindBeatAtTime(ms), 0)
}

// nearestBeat returns the beat whose start lies closest to ms.
func nearestBeat(grid BeatGrid, ms int64) int {
	beat := max(grid.FindBeatAtTime(ms), 1)
	next := beat + 1

	if abs(grid.TimeWithinTrack(next)-ms) < abs(grid.TimeWithinTrack(beat)-ms) {
		return next
	}
	return beat
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
