package protocol

// PlayState1 is the first play state in a status packet (P1 in the packet analysis).
// Values the firmware sends that are not listed here decode as PlayState1Unknown.
type PlayState1 uint8

const (
	PlayState1Unknown PlayState1 = iota
	PlayState1NoTrack
	PlayState1Playing
	PlayState1Looping
	PlayState1Paused
	PlayState1Cued
	PlayState1Searching
	PlayState1Ended
)

func playState1Of(b byte) PlayState1 {
	switch b {
	case 0:
		return PlayState1NoTrack
	case 3:
		return PlayState1Playing
	case 4:
		return PlayState1Looping
	case 5:
		return PlayState1Paused
	case 6:
		return PlayState1Cued
	case 9:
		return PlayState1Searching
	case 17:
		return PlayState1Ended
	default:
		return PlayState1Unknown
	}
}

// Known reports whether the state came from a recognized byte value.
func (p PlayState1) Known() bool { return p != PlayState1Unknown }

func (p PlayState1) String() string {
	switch p {
	case PlayState1NoTrack:
		return "NO_TRACK"
	case PlayState1Playing:
		return "PLAYING"
	case PlayState1Looping:
		return "LOOPING"
	case PlayState1Paused:
		return "PAUSED"
	case PlayState1Cued:
		return "CUED"
	case PlayState1Searching:
		return "SEARCHING"
	case PlayState1Ended:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// PlayState2 is the second play state (P2), which tells whether the playhead is moving.
type PlayState2 uint8

const (
	PlayState2Unknown PlayState2 = iota
	PlayState2Moving
	PlayState2Stopped
)

func playState2Of(b byte) PlayState2 {
	switch b {
	case 122:
		return PlayState2Moving
	case 126:
		return PlayState2Stopped
	default:
		return PlayState2Unknown
	}
}

// Known reports whether the state came from a recognized byte value.
func (p PlayState2) Known() bool { return p != PlayState2Unknown }

func (p PlayState2) String() string {
	switch p {
	case PlayState2Moving:
		return "MOVING"
	case PlayState2Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// PlayState3 is the third play state (P3), which carries direction and jog mode.
type PlayState3 uint8

const (
	PlayState3Unknown PlayState3 = iota
	PlayState3NoTrack
	PlayState3PausedOrReverse
	PlayState3ForwardVinyl
	PlayState3ForwardCdj
)

func playState3Of(b byte) PlayState3 {
	switch b {
	case 0:
		return PlayState3NoTrack
	case 1:
		return PlayState3PausedOrReverse
	case 9:
		return PlayState3ForwardVinyl
	case 13:
		return PlayState3ForwardCdj
	default:
		return PlayState3Unknown
	}
}

// Known reports whether the state came from a recognized byte value.
func (p PlayState3) Known() bool { return p != PlayState3Unknown }

func (p PlayState3) String() string {
	switch p {
	case PlayState3NoTrack:
		return "NO_TRACK"
	case PlayState3PausedOrReverse:
		return "PAUSED_OR_REVERSE"
	case PlayState3ForwardVinyl:
		return "FORWARD_VINYL"
	case PlayState3ForwardCdj:
		return "FORWARD_CDJ"
	default:
		return "UNKNOWN"
	}
}
