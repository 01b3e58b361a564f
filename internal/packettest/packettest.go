// Package packettest builds well-formed DJ Link datagrams for tests. It encodes the
// wire layout on its own rather than through package protocol, so decoder tests
// compare two independent readings of the packet analysis.
package packettest

import (
	"net/netip"

	"github.com/itsbrex/beat-link/internal/bytefield"
)

// Sender is the address builders attach to packets by default.
var Sender = netip.MustParseAddr("192.168.1.12")

var magic = []byte{0x51, 0x73, 0x70, 0x74, 0x31, 0x57, 0x6d, 0x4a, 0x4f, 0x4c}

const normalPitch = 0x100000

func header(buf []byte, packetType byte, name string, number int) {
	copy(buf, magic)
	buf[10] = packetType
	copy(buf[11:31], name)
	buf[31] = 0x01
	buf[33] = byte(number)
	bytefield.PutNumber(buf, 34, 2, int64(len(buf)-36))
}

// Status describes the fields of a CDJ status packet.
type Status struct {
	DeviceNumber  int
	DeviceName    string
	Flags         byte
	PlayState1    byte
	PlayState2    byte
	PlayState3    byte
	Pitch1        int
	Pitch2        int
	Pitch3        int
	Pitch4        int
	Bpm           int
	BeatWithinBar byte
	LocalUsb      byte
	LinkedUsb     byte
	Busy          byte
	TrackNumber   int
	SyncNumber    int
	BeatNumber    int
	CueCountdown  int
	PacketNumber  int64
}

// IdleStatus returns a player at normal pitch with no track loaded.
func IdleStatus(number int) Status {
	return Status{
		DeviceNumber: number,
		DeviceName:   "CDJ-2000nexus",
		PlayState2:   126,
		Pitch1:       normalPitch,
		Pitch2:       normalPitch,
		Pitch3:       normalPitch,
		Pitch4:       normalPitch,
		LocalUsb:     4,
		CueCountdown: 511,
	}
}

// PlayingStatus returns a player playing forwards in CDJ mode at 120 BPM.
func PlayingStatus(number, beat int) Status {
	s := IdleStatus(number)
	s.Flags = 0x40
	s.PlayState1 = 3
	s.PlayState2 = 122
	s.PlayState3 = 13
	s.Bpm = 12000
	s.Busy = 1
	s.LocalUsb = 0
	s.TrackNumber = 1
	s.BeatNumber = beat
	s.BeatWithinBar = byte((beat-1)%4 + 1)
	return s
}

// Bytes encodes the status as a 212 byte datagram.
func (s Status) Bytes() []byte {
	buf := make([]byte, 212)
	header(buf, 0x0a, s.DeviceName, s.DeviceNumber)
	buf[39] = s.Busy
	bytefield.PutNumber(buf, 50, 2, int64(s.TrackNumber))
	buf[92] = s.BeatWithinBar
	buf[111] = s.LocalUsb
	buf[117] = s.LinkedUsb
	buf[123] = s.PlayState1
	bytefield.PutNumber(buf, 134, 2, int64(s.SyncNumber))
	buf[137] = s.Flags
	buf[139] = s.PlayState2
	bytefield.PutNumber(buf, 141, 3, int64(s.Pitch1))
	bytefield.PutNumber(buf, 146, 2, int64(s.Bpm))
	bytefield.PutNumber(buf, 153, 3, int64(s.Pitch2))
	buf[157] = s.PlayState3
	bytefield.PutNumber(buf, 160, 4, int64(s.BeatNumber))
	bytefield.PutNumber(buf, 164, 2, int64(s.CueCountdown))
	bytefield.PutNumber(buf, 193, 3, int64(s.Pitch3))
	bytefield.PutNumber(buf, 197, 3, int64(s.Pitch4))
	bytefield.PutNumber(buf, 200, 4, s.PacketNumber)
	return buf
}

// Beat describes the fields of a beat packet.
type Beat struct {
	DeviceNumber  int
	DeviceName    string
	Pitch         int
	Bpm           int
	BeatWithinBar byte
	NextBeat      int64
	SecondBeat    int64
	NextBar       int64
	FourthBeat    int64
	SecondBar     int64
	EighthBeat    int64
}

// NormalBeat returns a beat at 120 BPM and normal pitch.
func NormalBeat(number int, beatWithinBar byte) Beat {
	return Beat{
		DeviceNumber:  number,
		DeviceName:    "CDJ-2000nexus",
		Pitch:         normalPitch,
		Bpm:           12000,
		BeatWithinBar: beatWithinBar,
		NextBeat:      500,
		SecondBeat:    1000,
		NextBar:       500 * int64(5-beatWithinBar),
		FourthBeat:    2000,
		SecondBar:     500 * int64(9-beatWithinBar),
		EighthBeat:    4000,
	}
}

// Bytes encodes the beat as a 96 byte datagram.
func (b Beat) Bytes() []byte {
	buf := make([]byte, 96)
	header(buf, 0x28, b.DeviceName, b.DeviceNumber)
	bytefield.PutNumber(buf, 36, 4, b.NextBeat)
	bytefield.PutNumber(buf, 40, 4, b.SecondBeat)
	bytefield.PutNumber(buf, 44, 4, b.NextBar)
	bytefield.PutNumber(buf, 48, 4, b.FourthBeat)
	bytefield.PutNumber(buf, 52, 4, b.SecondBar)
	bytefield.PutNumber(buf, 56, 4, b.EighthBeat)
	bytefield.PutNumber(buf, 85, 3, int64(b.Pitch))
	bytefield.PutNumber(buf, 90, 2, int64(b.Bpm))
	buf[92] = b.BeatWithinBar
	return buf
}
