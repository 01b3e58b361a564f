package protocol

import (
	"fmt"

	"github.com/itsbrex/beat-link/internal/bytefield"
)

// Beat packet layout
const (
	BeatNextBeatOffset      = 36
	BeatSecondBeatOffset    = 40
	BeatNextBarOffset       = 44
	BeatFourthBeatOffset    = 48
	BeatSecondBarOffset     = 52
	BeatEighthBeatOffset    = 56
	BeatPitchOffset         = 85
	BeatBpmOffset           = 90
	BeatBeatWithinBarOffset = 92
)

// MaxPlayerNumber is the highest device number a player uses; mixers report above it.
const MaxPlayerNumber = 32

// Beat announces that a device has started a new beat.
type Beat struct {
	updateHeader

	raw [BeatLength]byte

	pitch int
	bpm   int
}

// DecodeBeat interprets a beat packet, failing only on a length other than BeatLength.
func DecodeBeat(pkt Packet) (*Beat, error) {
	header, err := newUpdateHeader(pkt, "Beat", BeatLength)
	if err != nil {
		return nil, err
	}

	b := &Beat{updateHeader: header}
	copy(b.raw[:], pkt.Data)
	b.pitch = bytefield.Int(b.raw[:], BeatPitchOffset, 3)
	b.bpm = bytefield.Int(b.raw[:], BeatBpmOffset, 2)

	return b, nil
}

// PacketBytes returns a copy of the raw packet.
func (b *Beat) PacketBytes() []byte {
	out := make([]byte, BeatLength)
	copy(out, b.raw[:])
	return out
}

// Pitch returns the raw pitch at the time of the beat.
func (b *Beat) Pitch() int { return b.pitch }

// Bpm returns the track tempo multiplied by 100.
func (b *Beat) Bpm() int { return b.bpm }

// EffectiveTempo returns the tempo being played once pitch is applied.
func (b *Beat) EffectiveTempo() float64 {
	return float64(b.bpm) * PitchToMultiplier(b.pitch) / 100.0
}

// IsTempoMaster always reports false: beat packets do not carry the master flag.
// Consult the latest status for the same device instead.
func (b *Beat) IsTempoMaster() bool { return false }

// BeatWithinBar returns the position of this beat within its bar, 1 being the down beat.
func (b *Beat) BeatWithinBar() int { return int(b.raw[BeatBeatWithinBarOffset]) }

// IsBeatWithinBarMeaningful reports whether BeatWithinBar can be trusted. Mixers send
// beats too but have no notion of the bar.
func (b *Beat) IsBeatWithinBarMeaningful() bool { return b.number <= MaxPlayerNumber }

// NextBeat returns the milliseconds until the next beat at the current tempo.
// Like the other upcoming-beat fields it reads 0xffffffff past the end of the track.
func (b *Beat) NextBeat() int64 { return bytefield.Number(b.raw[:], BeatNextBeatOffset, 4) }

// SecondBeat returns the milliseconds until the beat after next.
func (b *Beat) SecondBeat() int64 { return bytefield.Number(b.raw[:], BeatSecondBeatOffset, 4) }

// NextBar returns the milliseconds until the next down beat.
func (b *Beat) NextBar() int64 { return bytefield.Number(b.raw[:], BeatNextBarOffset, 4) }

// FourthBeat returns the milliseconds until the fourth upcoming beat.
func (b *Beat) FourthBeat() int64 { return bytefield.Number(b.raw[:], BeatFourthBeatOffset, 4) }

// SecondBar returns the milliseconds until the down beat after next.
func (b *Beat) SecondBar() int64 { return bytefield.Number(b.raw[:], BeatSecondBarOffset, 4) }

// EighthBeat returns the milliseconds until the eighth upcoming beat.
func (b *Beat) EighthBeat() int64 { return bytefield.Number(b.raw[:], BeatEighthBeatOffset, 4) }

func (b *Beat) String() string {
	return fmt.Sprintf("Beat: Device %d, name: %s, pitch: %+.2f%%, track BPM: %.1f, effective BPM: %.1f, beat within bar: %d",
		b.number, b.name, PitchToPercentage(b.pitch), float64(b.bpm)/100.0, b.EffectiveTempo(), b.BeatWithinBar())
}
