package position

import (
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsbrex/beat-link/internal/packettest"
	"github.com/itsbrex/beat-link/protocol"
)

func newTestTracker() *Tracker {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewTracker(logger)
}

func statusAt(t *testing.T, s packettest.Status, at time.Time) *protocol.CdjStatus {
	t.Helper()

	status, err := protocol.DecodeCdjStatus(protocol.Packet{Data: s.Bytes(), Addr: packettest.Sender, ReceivedAt: at})
	require.NoError(t, err)
	return status
}

func beatAt(t *testing.T, b packettest.Beat, at time.Time) *protocol.Beat {
	t.Helper()

	beat, err := protocol.DecodeBeat(protocol.Packet{Data: b.Bytes(), Addr: packettest.Sender, ReceivedAt: at})
	require.NoError(t, err)
	return beat
}

func pausedStatus(device, beat int) packettest.Status {
	s := packettest.PlayingStatus(device, beat)
	s.Flags = 0
	s.PlayState1 = 5
	s.PlayState2 = 126
	s.PlayState3 = 1
	return s
}

func TestTrackerIgnoresPlayersWithoutGrid(t *testing.T) {
	tracker := newTestTracker()

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 5), epoch))
	tracker.NewBeat(beatAt(t, packettest.NormalBeat(2, 1), epoch))

	_, ok := tracker.Latest(2)
	assert.False(t, ok)
	_, ok = tracker.Position(2, epoch)
	assert.False(t, ok)
	assert.Equal(t, 0, tracker.Devices())
}

func TestTrackerIgnoresBeatBeforeAnyStatus(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	tracker.NewBeat(beatAt(t, packettest.NormalBeat(2, 1), epoch))

	_, ok := tracker.Latest(2)
	assert.False(t, ok)
}

func TestTrackerPlaybackSequence(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	// First status while playing: taken directly from the reported beat.
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 1), epoch))
	pos, ok := tracker.Latest(2)
	require.True(t, ok)
	assert.Equal(t, ConfidenceDefinitive, pos.Confidence())
	assert.Equal(t, int64(0), pos.Milliseconds())
	assert.True(t, pos.Playing())

	// Subsequent status within the same beat: interpolated.
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 1), epoch.Add(250*time.Millisecond)))
	pos, _ = tracker.Latest(2)
	assert.True(t, pos.IsInterpolated())
	assert.Equal(t, int64(250), pos.Milliseconds())
	assert.Equal(t, 1, pos.BeatNumber())

	// Beat packet: the nearest grid beat to the interpolated position.
	tracker.NewBeat(beatAt(t, packettest.NormalBeat(2, 2), epoch.Add(500*time.Millisecond)))
	pos, _ = tracker.Latest(2)
	assert.Equal(t, ConfidenceFromBeat, pos.Confidence())
	assert.True(t, pos.Definitive())
	assert.Equal(t, 2, pos.BeatNumber())
	assert.Equal(t, int64(500), pos.Milliseconds())
	assert.Equal(t, 2, pos.BeatWithinBar())

	// Next beat follows the definitive one.
	tracker.NewBeat(beatAt(t, packettest.NormalBeat(2, 3), epoch.Add(time.Second)))
	pos, _ = tracker.Latest(2)
	assert.Equal(t, 3, pos.BeatNumber())
	assert.Equal(t, int64(1000), pos.Milliseconds())

	// Between updates the position is projected forward.
	estimate, ok := tracker.Position(2, epoch.Add(1200*time.Millisecond))
	require.True(t, ok)
	assert.True(t, estimate.IsInterpolated())
	assert.Equal(t, int64(1200), estimate.Milliseconds())
	assert.Equal(t, 3, estimate.BeatNumber())

	// Pausing pins the position to the reported beat.
	tracker.HandleStatus(statusAt(t, pausedStatus(2, 3), epoch.Add(1300*time.Millisecond)))
	pos, _ = tracker.Latest(2)
	assert.Equal(t, ConfidenceDefinitive, pos.Confidence())
	assert.False(t, pos.Playing())
	assert.Equal(t, int64(1000), pos.Milliseconds())

	later, _ := tracker.Position(2, epoch.Add(time.Minute))
	assert.Equal(t, pos, later)
}

func TestTrackerResynchronizesOnJump(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 1), epoch))
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 40), epoch.Add(200*time.Millisecond)))

	pos, _ := tracker.Latest(2)
	assert.True(t, pos.Definitive())
	assert.Equal(t, 40, pos.BeatNumber())
	assert.Equal(t, int64(19500), pos.Milliseconds())
}

func TestTrackerReverse(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(1, grid120)

	reverse := packettest.PlayingStatus(1, 21)
	reverse.PlayState3 = 1

	tracker.HandleStatus(statusAt(t, reverse, epoch))
	pos, _ := tracker.Latest(1)
	assert.True(t, pos.Reverse())
	assert.Equal(t, int64(10000), pos.Milliseconds())

	tracker.HandleStatus(statusAt(t, reverse, epoch.Add(400*time.Millisecond)))
	pos, _ = tracker.Latest(1)
	assert.True(t, pos.IsInterpolated())
	assert.Equal(t, int64(9600), pos.Milliseconds())
	assert.Equal(t, 20, pos.BeatNumber())
}

func TestTrackerPitchChange(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(3, grid120)

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(3, 1), epoch))

	faster := packettest.PlayingStatus(3, 1)
	faster.Pitch1 = protocol.MaxPitch
	tracker.HandleStatus(statusAt(t, faster, epoch.Add(100*time.Millisecond)))

	pos, _ := tracker.Latest(3)
	assert.Equal(t, int64(100), pos.Milliseconds())
	assert.Equal(t, 2.0, pos.Pitch())

	estimate, _ := tracker.Position(3, epoch.Add(200*time.Millisecond))
	assert.Equal(t, int64(300), estimate.Milliseconds())

	// The new pitch keeps applying from the point it was reported.
	tracker.HandleStatus(statusAt(t, faster, epoch.Add(200*time.Millisecond)))
	pos, _ = tracker.Latest(3)
	assert.True(t, pos.IsInterpolated())
	assert.Equal(t, int64(300), pos.Milliseconds())
}

func TestTrackerBeatZeroBeforePlayback(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	tracker.HandleStatus(statusAt(t, pausedStatus(2, 0), epoch))

	pos, ok := tracker.Latest(2)
	require.True(t, ok)
	assert.Equal(t, int64(0), pos.Milliseconds())
	assert.Equal(t, 0, pos.BeatNumber())
}

func TestTrackerNewGridDiscardsPosition(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 9), epoch))
	require.Equal(t, 1, tracker.Devices())

	tracker.SetBeatGrid(2, constantGrid{beatMs: 400})
	_, ok := tracker.Latest(2)
	assert.False(t, ok)

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 9), epoch))
	pos, _ := tracker.Latest(2)
	assert.Equal(t, int64(3200), pos.Milliseconds())

	tracker.SetBeatGrid(2, nil)
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 9), epoch))
	_, ok = tracker.Latest(2)
	assert.False(t, ok)
}

func TestTrackerForget(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(4, grid120)
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(4, 2), epoch))

	tracker.Forget(4)

	_, ok := tracker.Latest(4)
	assert.False(t, ok)
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(4, 3), epoch))
	_, ok = tracker.Latest(4)
	assert.False(t, ok)
}

func TestTrackerInterpolatedPositionsComeFromDefinitive(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	var lastDefinitive *TrackPosition
	at := epoch
	for i := 0; i < 40; i++ {
		beat := 1 + i/5
		tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, beat), at))

		pos, _ := tracker.Latest(2)
		if pos.Definitive() {
			lastDefinitive = &pos
		} else {
			require.NotNil(t, lastDefinitive, "interpolated position with no definitive predecessor")
			assert.Equal(t, InterpolateMilliseconds(*lastDefinitive, at), pos.Milliseconds())
		}
		at = at.Add(100 * time.Millisecond)
	}
}

func TestTrackerInterpolationDoesNotDriftWithUnevenSpacing(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, grid120)

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 1), epoch))
	definitive, ok := tracker.Latest(2)
	require.True(t, ok)

	spacing := 90900 * time.Microsecond
	for i := 1; i <= 20; i++ {
		at := epoch.Add(time.Duration(i) * spacing)
		elapsed := float64(time.Duration(i)*spacing) / float64(time.Millisecond)
		beat := 1 + int(elapsed/500)

		tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, beat), at))

		pos, _ := tracker.Latest(2)
		require.True(t, pos.IsInterpolated(), "status %d", i)
		assert.Equal(t, InterpolateMilliseconds(definitive, at), pos.Milliseconds(), "status %d", i)
		assert.Equal(t, int64(math.Round(elapsed)), pos.Milliseconds(), "status %d", i)
	}
}

func TestTrackerBeforeFirstBeat(t *testing.T) {
	tracker := newTestTracker()
	tracker.SetBeatGrid(2, constantGrid{beatMs: 500, firstBeatMs: 300})

	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 0), epoch))
	tracker.HandleStatus(statusAt(t, packettest.PlayingStatus(2, 0), epoch.Add(100*time.Millisecond)))

	pos, _ := tracker.Latest(2)
	assert.True(t, pos.IsInterpolated())
	assert.Equal(t, int64(100), pos.Milliseconds())
	assert.Equal(t, 0, pos.BeatNumber())
	assert.Equal(t, 0, pos.BeatWithinBar())
}
