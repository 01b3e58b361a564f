package protocol

import "errors"

var (
	// ErrMalformedPacket reports a datagram whose length or header does not match its declared type.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrUnknownPacketType reports a well-formed header carrying a type this package does not decode.
	ErrUnknownPacketType = errors.New("unknown packet type")

	// ErrInvalidArgument reports an accessor called with an out-of-range selector.
	ErrInvalidArgument = errors.New("invalid argument")
)
