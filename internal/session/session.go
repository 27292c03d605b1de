// Package session defines the receive core's view of a Session: the
// narrow surface the core reads from and writes to. The reliability
// window, ack/order/fragment reassembly, and application delivery live
// in an external collaborator (spec.md §1's "session state machine"),
// reached here only through the Delegate interface.
package session

import (
	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/comp"
	"github.com/galaxyemu/netcore/internal/peerkey"
)

// ID is a stable identifier for a Session, used so the registry, the
// write thread, and the session itself can all refer to a session by id
// instead of a raw pointer — breaking the cyclic ownership the original
// C++ had between loop, registry, session, and write thread.
type ID uint64

// Command is the high-level intent a session was created under.
type Command int

const (
	CommandNone Command = iota
	// CommandConnect marks a session this process originated via
	// OutboundRendezvous, as opposed to one a peer initiated with
	// SessionRequest.
	CommandConnect
)

// Delegate receives decoded payloads from the receive core. It stands in
// for the out-of-scope session state machine: reliability window,
// ack/order/fragment reassembly, and application delivery.
type Delegate interface {
	HandleSessionPacket(buf *bufpool.PacketBuffer)
	HandleFastpathPacket(buf *bufpool.PacketBuffer)
}

// Teardown is implemented by whatever owns the session arena (the
// receive loop) and invoked by a Session to retire itself.
type Teardown interface {
	RemoveAndDestroySession(id ID)
}

// Session is the concrete, core-facing session record. The core reads
// EncryptKey, Address, Port (and the PeerKey derived from them) and uses
// Cryptor; Delegate is where decoded payloads go.
type Session struct {
	ID       ID
	Delegate Delegate
	// Cryptor is this session's keyed CRC/cipher pair, built once at
	// creation from EncryptKey and the process's configured cipher.
	Cryptor *comp.Cryptor

	encryptKey   uint32
	addressNet   uint32 // network byte order
	portNet      uint16 // network byte order
	resendWindow uint32
	command      Command

	teardown Teardown
}

// New constructs a Session bound to addrNet/portNet (already in network
// byte order) and encryptKey, delivering decoded payloads to delegate
// and routing self-teardown through teardown. cryptMethod selects the
// cipher CompCryptor uses for this session (see comp.SelectBlockCrypt);
// pskKey is the process-wide key material from comp.DeriveKey(cfg.Key),
// folded into the session's own encryptKey so the operator's -key flag
// is actually load-bearing.
func New(id ID, addrNet uint32, portNet uint16, encryptKey uint32, cryptMethod string, pskKey []byte, delegate Delegate, teardown Teardown) *Session {
	return &Session{
		ID:         id,
		Delegate:   delegate,
		Cryptor:    comp.NewCryptor(cryptMethod, pskKey, encryptKey),
		encryptKey: encryptKey,
		addressNet: addrNet,
		portNet:    portNet,
		teardown:   teardown,
	}
}

// EncryptKey returns the session's negotiated 32-bit cipher/CRC key.
func (s *Session) EncryptKey() uint32 { return s.encryptKey }

// Address returns the peer's IPv4 address, network byte order.
func (s *Session) Address() uint32 { return s.addressNet }

// Port returns the peer's UDP port, network byte order.
func (s *Session) Port() uint16 { return s.portNet }

// PeerKey recomputes this session's registry key from its stored
// address/port. Used by RemoveAndDestroySession, which must not trust a
// key passed in from outside.
func (s *Session) PeerKey() peerkey.Key {
	return peerkey.FromNetworkOrder(s.addressNet, s.portNet)
}

// SetResendWindowSize sets the initial count of outstanding reliable
// packets the session may hold unacknowledged.
func (s *Session) SetResendWindowSize(n uint32) { s.resendWindow = n }

// ResendWindowSize returns the value set by SetResendWindowSize.
func (s *Session) ResendWindowSize() uint32 { return s.resendWindow }

// SetCommand records the command this session was created under
// (e.g. CommandConnect for a rendezvous-originated outbound session).
func (s *Session) SetCommand(c Command) { s.command = c }

// Command returns the value set by SetCommand.
func (s *Session) Command() Command { return s.command }

// HandleSessionPacket forwards a session-control/reliable payload to the
// delegate. Ownership of buf has already transferred to the session.
func (s *Session) HandleSessionPacket(buf *bufpool.PacketBuffer) {
	if s.Delegate != nil {
		s.Delegate.HandleSessionPacket(buf)
	}
}

// HandleFastpathPacket forwards a fastpath payload to the delegate.
func (s *Session) HandleFastpathPacket(buf *bufpool.PacketBuffer) {
	if s.Delegate != nil {
		s.Delegate.HandleFastpathPacket(buf)
	}
}

// RemoveAndDestroySession asks this session's owner to retire it. Safe
// to call more than once; the owner's removal path is idempotent.
func (s *Session) RemoveAndDestroySession() {
	if s.teardown != nil {
		s.teardown.RemoveAndDestroySession(s.ID)
	}
}
