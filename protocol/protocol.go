package protocol

import (
	"bytes"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Protocol constants
const (
	// Packet types, found in the byte following the magic header
	PacketTypeCdjStatus = 0x0a
	PacketTypeBeat      = 0x28

	// Packet lengths
	CdjStatusLength = 212
	BeatLength      = 96

	// Shared header layout
	MagicSize          = 10
	PacketTypeOffset   = 10
	DeviceNameOffset   = 11
	DeviceNameSize     = 20
	DeviceNumberOffset = 33
	HeaderSize         = DeviceNumberOffset + 1
)

// Magic is the ten byte signature that starts every DJ Link packet.
var Magic = []byte{0x51, 0x73, 0x70, 0x74, 0x31, 0x57, 0x6d, 0x4a, 0x4f, 0x4c}

// Packet is a datagram as handed over by the network layer.
type Packet struct {
	Data       []byte
	Addr       netip.Addr
	ReceivedAt time.Time
}

// DeviceUpdate is the surface shared by every decoded packet a device sends.
type DeviceUpdate interface {
	Address() netip.Addr
	Timestamp() time.Time
	DeviceName() string
	DeviceNumber() int
	PacketBytes() []byte
	Pitch() int
	Bpm() int
	IsTempoMaster() bool
	EffectiveTempo() float64
	String() string
}

// updateHeader holds the identity fields every packet carries in the same place.
type updateHeader struct {
	addr      netip.Addr
	timestamp time.Time
	name      string
	number    int
}

// newUpdateHeader validates the packet length for its kind and extracts the sender identity.
func newUpdateHeader(pkt Packet, kind string, length int) (updateHeader, error) {
	if len(pkt.Data) != length {
		return updateHeader{}, fmt.Errorf("%w: %s packet must be %d bytes long, got %d",
			ErrMalformedPacket, kind, length, len(pkt.Data))
	}

	return updateHeader{
		addr:      pkt.Addr,
		timestamp: pkt.ReceivedAt,
		name:      ExtractName(pkt.Data[DeviceNameOffset : DeviceNameOffset+DeviceNameSize]),
		number:    int(pkt.Data[DeviceNumberOffset]),
	}, nil
}

// Address returns the address of the device that sent the packet.
func (h updateHeader) Address() netip.Addr { return h.addr }

// Timestamp returns when the packet was received.
func (h updateHeader) Timestamp() time.Time { return h.timestamp }

// DeviceName returns the name the device reports for itself.
func (h updateHeader) DeviceName() string { return h.name }

// DeviceNumber returns the player or mixer number, as set on the device.
func (h updateHeader) DeviceNumber() int { return h.number }

// ExtractName turns a fixed-size, NUL or space padded name field into a string.
func ExtractName(buf []byte) string {
	return strings.TrimFunc(string(buf), func(r rune) bool {
		return r <= ' '
	})
}

// Parse checks the DJ Link header and decodes the packet according to its type byte.
func Parse(pkt Packet) (DeviceUpdate, error) {
	if len(pkt.Data) < HeaderSize {
		return nil, fmt.Errorf("%w: packet too short: expected at least %d bytes, got %d",
			ErrMalformedPacket, HeaderSize, len(pkt.Data))
	}

	if !bytes.Equal(pkt.Data[:MagicSize], Magic) {
		return nil, fmt.Errorf("%w: missing DJ Link magic header", ErrMalformedPacket)
	}

	switch pkt.Data[PacketTypeOffset] {
	case PacketTypeCdjStatus:
		status, err := DecodeCdjStatus(pkt)
		if err != nil {
			return nil, err
		}
		return status, nil

	case PacketTypeBeat:
		beat, err := DecodeBeat(pkt)
		if err != nil {
			return nil, err
		}
		return beat, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPacketType, pkt.Data[PacketTypeOffset])
	}
}

// PacketTypeName returns a human-readable name for a packet type byte.
func PacketTypeName(packetType byte) string {
	switch packetType {
	case PacketTypeCdjStatus:
		return "CDJ status"
	case PacketTypeBeat:
		return "Beat"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", packetType)
	}
}
