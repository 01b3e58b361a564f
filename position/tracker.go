package position

import (
	"log/slog"
	"sync"
	"time"

	"github.com/itsbrex/beat-link/protocol"
)

// Tracker keeps the latest TrackPosition for each player that has a beat grid.
// Grids are supplied by the caller; players without one are not tracked.
type Tracker struct {
	grids     map[int]BeatGrid
	positions map[int]TrackPosition

	// anchors hold the position interpolation starts from: the last definitive
	// position, or the last point at which pitch or direction changed since then.
	anchors map[int]TrackPosition

	mu     sync.RWMutex
	logger *slog.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		grids:     make(map[int]BeatGrid),
		positions: make(map[int]TrackPosition),
		anchors:   make(map[int]TrackPosition),
		logger:    logger,
	}
}

// SetBeatGrid installs the grid for the track a player has loaded. Any position
// computed against a previous grid is discarded.
func (t *Tracker) SetBeatGrid(device int, grid BeatGrid) {
	if grid == nil {
		t.ClearBeatGrid(device)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.grids[device] = grid
	delete(t.positions, device)
	delete(t.anchors, device)

	t.logger.Debug("Beat grid installed", slog.Int("device", device))
}

// ClearBeatGrid stops tracking a player until a new grid is installed.
func (t *Tracker) ClearBeatGrid(device int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.grids, device)
	delete(t.positions, device)
	delete(t.anchors, device)
}

// Forget drops everything known about a player, typically after it left the network.
func (t *Tracker) Forget(device int) {
	t.ClearBeatGrid(device)
}

// HandleStatus refines the position from a status packet. While a player keeps
// playing, the position is interpolated from the last definitive position and the
// newly reported pitch and direction apply from this packet on. When it starts,
// stops, or reports a beat that disagrees with the interpolation, the position is
// taken directly from the reported beat number.
func (t *Tracker) HandleStatus(status *protocol.CdjStatus) {
	device := status.DeviceNumber()

	t.mu.Lock()
	defer t.mu.Unlock()

	grid, ok := t.grids[device]
	if !ok {
		return
	}

	params := Params{
		Timestamp: status.Timestamp(),
		Playing:   status.IsPlaying(),
		Pitch:     protocol.PitchToMultiplier(status.Pitch()),
		Reverse:   status.IsPlayingBackwards(),
		BeatGrid:  grid,
	}

	last, known := t.positions[device]
	if known && last.playing && params.Playing {
		anchor := t.anchors[device]
		ms := InterpolateMilliseconds(anchor, params.Timestamp)
		beat := beatAtTime(grid, ms)

		if reported := status.BeatNumber(); reported == 0 || abs(int64(beat-reported)) <= 1 {
			params.Milliseconds = ms
			params.BeatNumber = beat
			pos := New(params)
			t.positions[device] = pos
			if pos.pitch != anchor.pitch || pos.reverse != anchor.reverse {
				t.anchors[device] = pos
			}
			return
		}

		t.logger.Debug("Interpolated position disagrees with status, resynchronizing",
			slog.Int("device", device),
			slog.Int("interpolated_beat", beat),
			slog.Int("reported_beat", status.BeatNumber()),
		)
	}

	params.BeatNumber = status.BeatNumber()
	params.Milliseconds = beatStart(grid, params.BeatNumber)
	params.Definitive = true
	t.record(device, New(params))
}

// record stores a definitive position, which also becomes the interpolation anchor.
func (t *Tracker) record(device int, pos TrackPosition) {
	t.positions[device] = pos
	t.anchors[device] = pos
}

// NewBeat records the start of a beat as a definitive position. A beat packet does
// not say which beat it announces, so the number is derived from the previous
// position: one past a definitive beat, or the grid beat nearest the interpolation.
func (t *Tracker) NewBeat(beat *protocol.Beat) {
	device := beat.DeviceNumber()

	t.mu.Lock()
	defer t.mu.Unlock()

	grid, ok := t.grids[device]
	if !ok {
		return
	}
	last, ok := t.positions[device]
	if !ok {
		return
	}

	var number int
	if last.definitive && !last.reverse {
		number = last.beatNumber + 1
	} else {
		number = nearestBeat(grid, InterpolateMilliseconds(t.anchors[device], beat.Timestamp()))
	}

	t.record(device, New(Params{
		Timestamp:    beat.Timestamp(),
		Milliseconds: beatStart(grid, number),
		BeatNumber:   number,
		FromBeat:     true,
		Playing:      true,
		Pitch:        protocol.PitchToMultiplier(beat.Pitch()),
		BeatGrid:     grid,
	}))
}

// Latest returns the most recent recorded position, without interpolation.
func (t *Tracker) Latest(device int) (TrackPosition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.positions[device]
	return pos, ok
}

// Position returns the best estimate of where a player is at now.
func (t *Tracker) Position(device int, now time.Time) (TrackPosition, bool) {
	t.mu.RLock()
	last, ok := t.positions[device]
	anchor := t.anchors[device]
	t.mu.RUnlock()

	if !ok {
		return TrackPosition{}, false
	}
	if !last.playing {
		return last, true
	}
	return Estimate(anchor, now), true
}

// Devices returns the number of players currently tracked.
func (t *Tracker) Devices() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

func beatStart(grid BeatGrid, beat int) int64 {
	if beat < 1 {
		return 0
	}
	return grid.TimeWithinTrack(beat)
}
