// Package wire describes the datagram framing and opcode taxonomy of the
// session protocol: which byte(s) identify a packet's family, and which
// opcodes exist within the session-control family.
package wire

// Opcode is the 16-bit session-control opcode carried in the first two
// bytes of a session-control datagram, big-endian on the wire.
type Opcode uint16

// Session-control opcodes, encoded as the reference capture lays them
// out on the wire: the opcode number in the high byte, a zero low byte
// (so they satisfy IsSessionControl's T&0x00ff==0 test). Only family
// membership (see Classify) affects behavior here; the concrete values
// are part of the wire contract other peers expect, so they are not
// renumbered beyond restating them in this shifted form.
const (
	SessionRequest     Opcode = 0x0001 << 8
	SessionResponse    Opcode = 0x0002 << 8
	MultiPacket        Opcode = 0x0003 << 8
	Disconnect         Opcode = 0x0005 << 8
	Ping               Opcode = 0x0006 << 8
	NetStatRequest     Opcode = 0x0007 << 8
	NetStatResponse    Opcode = 0x0008 << 8
	DataChannelA       Opcode = 0x0009 << 8
	DataChannelB       Opcode = 0x000A << 8
	DataChannelC       Opcode = 0x000B << 8
	DataChannelD       Opcode = 0x000C << 8
	DataFragA          Opcode = 0x000D << 8
	DataFragB          Opcode = 0x000E << 8
	DataFragC          Opcode = 0x000F << 8
	DataFragD          Opcode = 0x0010 << 8
	DataAckA           Opcode = 0x0011 << 8
	DataAckB           Opcode = 0x0012 << 8
	DataAckC           Opcode = 0x0013 << 8
	DataAckD           Opcode = 0x0014 << 8
	DataOrderA         Opcode = 0x0015 << 8
	DataOrderB         Opcode = 0x0016 << 8
	DataOrderC         Opcode = 0x0017 << 8
	DataOrderD         Opcode = 0x0018 << 8
	FatalError         Opcode = 0x001D << 8
	FatalErrorResponse Opcode = 0x001E << 8
)

// FastpathUpperBound is the exclusive upper bound on the first byte of a
// fastpath datagram: values 0x00..0x0c are fastpath opcodes, 0x0d and
// above are not.
const FastpathUpperBound = 0x0d

// Family identifies which framing rules and CRC/crypto/compression
// pipeline apply to a datagram.
type Family int

const (
	// FamilyUnknown covers anything that is neither a well-formed
	// session-control opcode nor a fastpath opcode; it is always dropped.
	FamilyUnknown Family = iota
	// FamilyAckOrderPingDisconnect: CRC-checked, decrypted, never
	// compressed, delivered whole to HandleSessionPacket.
	FamilyAckOrderPingDisconnect
	// FamilyReliable: CRC-checked, decrypted, optionally compressed,
	// delivered to HandleSessionPacket.
	FamilyReliable
	// FamilySetup: SessionRequest/Response/FatalError(Response) — no CRC,
	// no decrypt, delivered raw to HandleSessionPacket.
	FamilySetup
	// FamilyFastpath: low-opcode unreliable datagrams, CRC-checked,
	// decrypted, optionally compressed, delivered to HandleFastpathPacket.
	FamilyFastpath
)

// IsSessionControl reports whether the big-endian u16 t identifies a
// session-control datagram: upper byte nonzero, lower byte zero.
func IsSessionControl(t uint16) bool {
	return t > 0x00ff && t&0x00ff == 0
}

// Classify determines which family a datagram's first two bytes belong
// to. typeLow is the first byte; t is the first two bytes as big-endian
// u16. Session-control membership is evaluated before opcode lookup, per
// spec: a malformed trailer on a recognized opcode still drops the
// packet, it does not get reclassified as unknown.
func Classify(typeLow byte, t uint16) Family {
	if IsSessionControl(t) {
		switch Opcode(t) {
		case Disconnect, DataAckA, DataAckB, DataAckC, DataAckD,
			DataOrderA, DataOrderB, DataOrderC, DataOrderD, Ping:
			return FamilyAckOrderPingDisconnect
		case MultiPacket, NetStatRequest, NetStatResponse,
			DataChannelA, DataChannelB, DataChannelC, DataChannelD,
			DataFragA, DataFragB, DataFragC, DataFragD:
			return FamilyReliable
		case SessionRequest, SessionResponse, FatalError, FatalErrorResponse:
			return FamilySetup
		default:
			return FamilyUnknown
		}
	}
	if typeLow < FastpathUpperBound {
		return FamilyFastpath
	}
	return FamilyUnknown
}
