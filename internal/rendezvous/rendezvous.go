// Package rendezvous implements the single-slot mailbox an external
// thread uses to ask the receive loop to originate a new outbound
// session. Writing is explicitly not safe against concurrent
// requesters — the contract requires a single external producer (the
// owning Service) — but Request refuses rather than silently clobbering
// a pending, undrained request.
package rendezvous

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Request when a prior request has not yet been
// drained by the receive loop.
var ErrBusy = errors.New("rendezvous: a request is already pending")

// request is the mailbox's contents. Port zero means empty.
type request struct {
	address string
	port    uint16
}

// Rendezvous is the single-writer, single-reader slot.
type Rendezvous struct {
	mu      sync.Mutex
	pending request
}

// New builds an empty Rendezvous.
func New() *Rendezvous {
	return &Rendezvous{}
}

// Request asks the receive loop to originate a session to address:port
// on its next iteration. Fails with ErrBusy if a request is already
// pending and undrained.
func (r *Rendezvous) Request(address string, port uint16) error {
	if port == 0 {
		return errors.New("rendezvous: port must be nonzero")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending.port != 0 {
		return ErrBusy
	}
	r.pending = request{address: address, port: port}
	return nil
}

// Drain consumes the pending request, if any, transitioning the slot
// back to empty. Called once per receive-loop iteration.
func (r *Rendezvous) Drain() (address string, port uint16, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending.port == 0 {
		return "", 0, false
	}
	address, port = r.pending.address, r.pending.port
	r.pending = request{}
	return address, port, true
}
