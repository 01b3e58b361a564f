package protocol

import (
	"fmt"

	"github.com/itsbrex/beat-link/internal/bytefield"
)

// Status packet layout. Offsets follow Figure 11 of the DJ Link packet analysis.
const (
	StatusBusyOffset          = 39
	StatusTrackNumberOffset   = 50
	StatusBeatWithinBarOffset = 92
	StatusLocalUsbOffset      = 111
	StatusLinkedUsbOffset     = 117
	StatusPlayState1Offset    = 123
	StatusSyncNumberOffset    = 134
	StatusFlagsOffset         = 137
	StatusPlayState2Offset    = 139
	StatusPitch1Offset        = 141
	StatusBpmOffset           = 146
	StatusPitch2Offset        = 153
	StatusPlayState3Offset    = 157
	StatusBeatNumberOffset    = 160
	StatusCueCountdownOffset  = 164
	StatusPitch3Offset        = 193
	StatusPitch4Offset        = 197
	StatusPacketNumberOffset  = 200
)

// Bits of the status flag byte
const (
	OnAirFlag   = 0x08
	SyncedFlag  = 0x10
	MasterFlag  = 0x20
	PlayingFlag = 0x40
)

// Local USB states
const (
	LocalUsbLoaded    = 0
	LocalUsbUnloading = 2
	LocalUsbEmpty     = 4
)

// NoCueCountdown is the countdown value reported when no cue point lies within 64 bars.
const NoCueCountdown = 511

// CdjStatus is a status update sent by a CDJ. All interpreted fields are computed
// when the packet is decoded; the value never changes afterwards and may be shared
// between goroutines.
type CdjStatus struct {
	updateHeader

	raw [CdjStatusLength]byte

	playState1 PlayState1
	playState2 PlayState2
	playState3 PlayState3
	pitch      int
	bpm        int
}

// DecodeCdjStatus interprets a status packet. The only failure is a packet whose
// length is not CdjStatusLength; unfamiliar byte values inside a correctly sized
// packet decode to the Unknown play states.
func DecodeCdjStatus(pkt Packet) (*CdjStatus, error) {
	header, err := newUpdateHeader(pkt, "CDJ status", CdjStatusLength)
	if err != nil {
		return nil, err
	}

	s := &CdjStatus{updateHeader: header}
	copy(s.raw[:], pkt.Data)

	s.pitch = bytefield.Int(s.raw[:], StatusPitch1Offset, 3)
	s.bpm = bytefield.Int(s.raw[:], StatusBpmOffset, 2)
	s.playState1 = playState1Of(s.raw[StatusPlayState1Offset])
	s.playState2 = playState2Of(s.raw[StatusPlayState2Offset])
	s.playState3 = playState3Of(s.raw[StatusPlayState3Offset])

	return s, nil
}

// PacketBytes returns a copy of the raw packet.
func (s *CdjStatus) PacketBytes() []byte {
	out := make([]byte, CdjStatusLength)
	copy(out, s.raw[:])
	return out
}

// PlayState1 returns the first play state (P1).
func (s *CdjStatus) PlayState1() PlayState1 { return s.playState1 }

// PlayState2 returns the second play state (P2).
func (s *CdjStatus) PlayState2() PlayState2 { return s.playState2 }

// PlayState3 returns the third play state (P3).
func (s *CdjStatus) PlayState3() PlayState3 { return s.playState3 }

// Pitch returns the raw effective pitch (Pitch1), from 0 (stopped) to MaxPitch
// (double speed). Combined with Bpm it yields the tempo actually being played.
func (s *CdjStatus) Pitch() int { return s.pitch }

// PitchAt returns one of the four pitch copies a status packet carries, numbered 1 to 4.
// They behave slightly differently under different circumstances; Pitch returns copy 1.
func (s *CdjStatus) PitchAt(number int) (int, error) {
	switch number {
	case 1:
		return s.pitch, nil
	case 2:
		return bytefield.Int(s.raw[:], StatusPitch2Offset, 3), nil
	case 3:
		return bytefield.Int(s.raw[:], StatusPitch3Offset, 3), nil
	case 4:
		return bytefield.Int(s.raw[:], StatusPitch4Offset, 3), nil
	default:
		return 0, fmt.Errorf("%w: pitch number must be between 1 and 4, got %d", ErrInvalidArgument, number)
	}
}

// Bpm returns the track tempo multiplied by 100, so 120.5 BPM reads as 12050.
func (s *CdjStatus) Bpm() int { return s.bpm }

// EffectiveTempo returns the tempo being played once pitch is applied.
func (s *CdjStatus) EffectiveTempo() float64 {
	return float64(s.bpm) * PitchToMultiplier(s.pitch) / 100.0
}

// BeatWithinBar returns where in the bar the most recent beat fell, 1 being the down beat.
func (s *CdjStatus) BeatWithinBar() int { return int(s.raw[StatusBeatWithinBarOffset]) }

func (s *CdjStatus) flag(bit byte) bool { return s.raw[StatusFlagsOffset]&bit != 0 }

// IsTempoMaster reports whether the device claims to be the tempo master.
func (s *CdjStatus) IsTempoMaster() bool { return s.flag(MasterFlag) }

// IsPlaying reports the play flag.
func (s *CdjStatus) IsPlaying() bool { return s.flag(PlayingFlag) }

// IsSynced reports the sync flag.
func (s *CdjStatus) IsSynced() bool { return s.flag(SyncedFlag) }

// IsOnAir reports whether the player is routed to a mixer channel that is not faded out.
// Only Nexus mixers report this.
func (s *CdjStatus) IsOnAir() bool { return s.flag(OnAirFlag) }

// IsLocalUsbLoaded reports whether the player's own USB slot holds mounted media.
func (s *CdjStatus) IsLocalUsbLoaded() bool { return s.raw[StatusLocalUsbOffset] == LocalUsbLoaded }

// IsLocalUsbUnloading reports whether the USB media is being ejected.
func (s *CdjStatus) IsLocalUsbUnloading() bool {
	return s.raw[StatusLocalUsbOffset] == LocalUsbUnloading
}

// IsLocalUsbEmpty reports whether the USB slot is empty.
func (s *CdjStatus) IsLocalUsbEmpty() bool { return s.raw[StatusLocalUsbOffset] == LocalUsbEmpty }

// IsLinkedUsbAvailable reports whether some player on the network has USB media to link to.
func (s *CdjStatus) IsLinkedUsbAvailable() bool { return s.raw[StatusLinkedUsbOffset] != 0 }

// IsBusy reports whether the player is playing, searching, or loading a track.
func (s *CdjStatus) IsBusy() bool { return s.raw[StatusBusyOffset] != 0 }

// IsTrackLoaded reports whether any track is loaded, whatever its play state.
func (s *CdjStatus) IsTrackLoaded() bool { return s.playState1 != PlayState1NoTrack }

// IsLooping reports whether the player is playing a loop.
func (s *CdjStatus) IsLooping() bool { return s.playState1 == PlayState1Looping }

// IsCued reports whether the player is paused at the cue point.
func (s *CdjStatus) IsCued() bool { return s.playState1 == PlayState1Cued }

// IsSearching reports whether the player is scanning through the track.
func (s *CdjStatus) IsSearching() bool { return s.playState1 == PlayState1Searching }

// IsAtEnd reports whether playback has reached the end of the track.
func (s *CdjStatus) IsAtEnd() bool { return s.playState1 == PlayState1Ended }

// IsPaused is true whether or not the player is paused at the cue point.
func (s *CdjStatus) IsPaused() bool {
	return s.playState1 == PlayState1Paused || s.playState1 == PlayState1Cued
}

// IsPlayingForwards and IsPlayingBackwards are never both true.
func (s *CdjStatus) IsPlayingForwards() bool {
	return s.playState1 == PlayState1Playing && s.playState3 != PlayState3PausedOrReverse
}

// IsPlayingBackwards reports whether the player is playing in reverse.
func (s *CdjStatus) IsPlayingBackwards() bool {
	return s.playState1 == PlayState1Playing && s.playState3 == PlayState3PausedOrReverse
}

// IsPlayingVinylMode reports forward play with the jog wheel in vinyl mode.
func (s *CdjStatus) IsPlayingVinylMode() bool { return s.playState3 == PlayState3ForwardVinyl }

// IsPlayingCdjMode reports forward play with the jog wheel in CDJ mode.
func (s *CdjStatus) IsPlayingCdjMode() bool { return s.playState3 == PlayState3ForwardCdj }

// TrackNumber identifies the loaded track within the player's browse list.
func (s *CdjStatus) TrackNumber() int {
	return bytefield.Int(s.raw[:], StatusTrackNumberOffset, 2)
}

// SyncNumber increments whenever a new player becomes tempo master.
func (s *CdjStatus) SyncNumber() int {
	return bytefield.Int(s.raw[:], StatusSyncNumberOffset, 2)
}

// BeatNumber is 0 before playback reaches the first beat and increments on each beat.
func (s *CdjStatus) BeatNumber() int {
	return bytefield.Int(s.raw[:], StatusBeatNumberOffset, 4)
}

// CueCountdown returns how many beats remain until the next saved cue point:
// NoCueCountdown when there is none within 64 bars, 256 down to 1 while counting,
// and 0 on the beat of the cue itself.
func (s *CdjStatus) CueCountdown() int {
	return bytefield.Int(s.raw[:], StatusCueCountdownOffset, 2)
}

// FormatCueCountdown renders the countdown the way the player's display does.
func (s *CdjStatus) FormatCueCountdown() string {
	return FormatCueCountdown(s.CueCountdown())
}

// PacketNumber returns the sequence number of the packet, which increments with each packet sent.
func (s *CdjStatus) PacketNumber() int64 {
	return bytefield.Number(s.raw[:], StatusPacketNumberOffset, 4)
}

// FormatCueCountdown renders a raw cue countdown as "bars.beat", "--.-" when no
// countdown is in effect and "??.?" for values outside the known range.
func FormatCueCountdown(count int) string {
	switch {
	case count == NoCueCountdown:
		return "--.-"
	case count >= 1 && count <= 256:
		bars := (count - 1) / 4
		beats := (count-1)%4 + 1
		return fmt.Sprintf("%02d.%d", bars, beats)
	case count == 0:
		return "00.0"
	default:
		return "??.?"
	}
}

// String summarizes the status in a single line.
func (s *CdjStatus) String() string {
	return fmt.Sprintf("Beat: Device %d, name: %s, busy? %t, pitch: %+.2f%%, track: %d, track BPM: %.1f, "+
		"effective BPM: %.1f, beat: %d, beat within bar: %d, cue: %s, Playing? %t, Master? %t, Synced? %t, On-Air? %t",
		s.number, s.name, s.IsBusy(), PitchToPercentage(s.pitch), s.TrackNumber(), float64(s.bpm)/100.0,
		s.EffectiveTempo(), s.BeatNumber(), s.BeatWithinBar(), s.FormatCueCountdown(),
		s.IsPlaying(), s.IsTempoMaster(), s.IsSynced(), s.IsOnAir())
}
