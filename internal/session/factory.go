package session

import "sync/atomic"

// DelegateFactory builds the Delegate a new Session should deliver
// decoded payloads to. The concrete implementation is supplied by
// whatever owns the application layer (the Service); the receive core
// only needs to be able to ask for one per new session.
type DelegateFactory interface {
	NewDelegate(id ID) Delegate
}

// Factory constructs and destroys Session objects. It is independent of
// the registry: a session can exist in the factory's bookkeeping for a
// moment before (or after) it is installed in / removed from the
// registry.
type Factory struct {
	nextID      atomic.Uint64
	delegate    DelegateFactory
	cryptMethod string
	pskKey      []byte
}

// NewFactory builds a Factory that asks delegateFactory for each new
// session's Delegate and builds each session's Cryptor using cryptMethod,
// keyed off pskKey (see comp.DeriveKey) plus the session's own
// negotiated encrypt key.
func NewFactory(delegateFactory DelegateFactory, cryptMethod string, pskKey []byte) *Factory {
	return &Factory{delegate: delegateFactory, cryptMethod: cryptMethod, pskKey: pskKey}
}

// CreateSession allocates a new Session bound to addrNet/portNet and
// encryptKey, wired to a fresh Delegate and to teardown for self-removal.
func (f *Factory) CreateSession(addrNet uint32, portNet uint16, encryptKey uint32, teardown Teardown) *Session {
	id := ID(f.nextID.Add(1))
	var delegate Delegate
	if f.delegate != nil {
		delegate = f.delegate.NewDelegate(id)
	}
	return New(id, addrNet, portNet, encryptKey, f.cryptMethod, f.pskKey, delegate, teardown)
}

// DestroySession releases a session's resources. Must only be called
// after the registry no longer references the session by id.
func (f *Factory) DestroySession(s *Session) {
	if s == nil {
		return
	}
	if closer, ok := s.Delegate.(interface{ Close() }); ok {
		closer.Close()
	}
}
