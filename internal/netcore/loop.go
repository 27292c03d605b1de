// Package netcore implements the receive core: the socket-read
// demultiplexer, the address→session registry wiring, the new-outbound-
// connection rendezvous, and the session teardown protocol, as specified
// in SPEC_FULL.md §4.G. This is the ~50%-of-the-core component.
package netcore

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/config"
	"github.com/galaxyemu/netcore/internal/peerkey"
	"github.com/galaxyemu/netcore/internal/registry"
	"github.com/galaxyemu/netcore/internal/rendezvous"
	"github.com/galaxyemu/netcore/internal/session"
)

// Loop is the receive core's main thread: it polls the socket with a
// bounded wait, processes one datagram per iteration, and drives the
// registry, the rendezvous mailbox, and the session factory.
type Loop struct {
	socket      Socket
	cfg         config.Config
	registry    *registry.Registry
	rendezvous  *rendezvous.Rendezvous
	factory     *session.Factory
	pool        *bufpool.Pool
	writeThread WriteThread
	logger      *log.Logger
	metrics     *Metrics

	arenaMu sync.Mutex
	arena   map[session.ID]*session.Session

	encryptKeySeq uint32 // placeholder key source for inbound SessionRequest handshakes
}

// New builds a Loop ready to Run. socket is the already-open UDP socket
// (not owned by the loop — the caller closes it after Run returns).
func New(socket Socket, cfg config.Config, reg *registry.Registry, rdv *rendezvous.Rendezvous, factory *session.Factory, writeThread WriteThread, logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		socket:      socket,
		cfg:         cfg,
		registry:    reg,
		rendezvous:  rdv,
		factory:     factory,
		pool:        bufpool.NewPool(cfg.MaxPayload() + 1),
		writeThread: writeThread,
		logger:      logger,
		metrics:     &Metrics{},
		arena:       make(map[session.ID]*session.Session),
	}
}

// Metrics exposes the loop's counters for a background logger.
func (l *Loop) Metrics() *Metrics { return l.metrics }

// Run drives the loop until ctx is cancelled. Each iteration: drain the
// outbound rendezvous, then wait up to cfg.PollTimeout for one datagram
// and process it. Cancellation is checked once per iteration, so the
// loop finishes its current iteration before returning, matching
// spec.md §5's shutdown contract.
func (l *Loop) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		l.drainRendezvous()
		l.receiveOne()
	}
}

// drainRendezvous implements spec.md §4.G step 1: if a rendezvous
// request is pending, originate a session to it.
func (l *Loop) drainRendezvous() {
	addr, port, ok := l.rendezvous.Drain()
	if !ok {
		return
	}
	ip := net.ParseIP(addr).To4()
	if ip == nil {
		l.logger.Printf("netcore: rendezvous request for invalid address %q, dropping", addr)
		return
	}
	addrNet := peerkey.IPv4ToNetworkOrder(ip)
	portNet := peerkey.PortToNetworkOrder(int(port))
	key := peerkey.FromNetworkOrder(addrNet, portNet)

	sess := l.factory.CreateSession(addrNet, portNet, l.nextEncryptKey(), l)
	sess.SetCommand(session.CommandConnect)
	sess.SetResendWindowSize(l.cfg.PacketWindow())

	l.putArena(sess)
	if err := l.registry.Insert(key, sess.ID); err != nil {
		l.logger.Printf("netcore: rendezvous to %v: %v, dropping new session", key, err)
		l.dropArena(sess.ID)
		l.factory.DestroySession(sess)
		return
	}
	l.writeThread.NewSession(sess)
}

// receiveOne implements spec.md §4.G steps 2-5: wait up to the read
// deadline for one datagram, then classify and process it. There is no
// separate post-iteration sleep; the bounded read is the only wait.
func (l *Loop) receiveOne() {
	buf := l.pool.Get()

	if err := l.socket.SetReadDeadline(time.Now().Add(l.cfg.PollTimeout())); err != nil {
		l.logger.Printf("netcore: SetReadDeadline: %v", err)
	}

	n, addr, err := l.socket.ReadFromUDP(buf.Bytes())
	if err != nil {
		l.pool.Put(buf)
		if isTimeout(err) {
			return
		}
		l.logger.Printf("netcore: socket read: %v", err)
		return
	}

	l.metrics.Received.Add(1)
	l.processDatagram(buf, n, addr)
}

// putArena installs a session in the id-keyed arena.
func (l *Loop) putArena(s *session.Session) {
	l.arenaMu.Lock()
	l.arena[s.ID] = s
	l.arenaMu.Unlock()
}

// dropArena removes a session from the arena without touching the
// registry (used when registry installation itself failed).
func (l *Loop) dropArena(id session.ID) {
	l.arenaMu.Lock()
	delete(l.arena, id)
	l.arenaMu.Unlock()
}

// lookupArena resolves an id to its Session. Always called for an id
// the registry just returned, so a miss here indicates the arena and
// registry have drifted — logged, not fatal (mirrors spec.md §9 item 5).
func (l *Loop) lookupArena(id session.ID) *session.Session {
	l.arenaMu.Lock()
	defer l.arenaMu.Unlock()
	return l.arena[id]
}

// nextEncryptKey hands out a placeholder per-session key. Real key
// negotiation belongs to the session-setup handshake, out of the
// receive core's scope; the core only needs *a* key that's stable for
// the session's lifetime so CompCryptor round-trips.
func (l *Loop) nextEncryptKey() uint32 {
	l.encryptKeySeq++
	return l.encryptKeySeq
}

// RemoveAndDestroySession implements session.Teardown. It recomputes
// the PeerKey from the session's own stored address/port (never trusts
// a caller-supplied key), removes the registry mapping if present, and
// asks the factory to release the session. A miss is logged but not
// fatal: idempotent by construction, since Registry.Remove and the
// arena delete are themselves idempotent no-ops on a second call.
//
// Critical sections here are always short and never call back into
// session/delegate code while holding arenaMu, so two sessions (or the
// same session called from two threads) tearing down concurrently can
// never deadlock against this or against the lock-free registry.
func (l *Loop) RemoveAndDestroySession(id session.ID) {
	l.arenaMu.Lock()
	sess, ok := l.arena[id]
	if ok {
		delete(l.arena, id)
	}
	l.arenaMu.Unlock()

	if !ok {
		l.logger.Printf("netcore: RemoveAndDestroySession: id %d already removed", id)
		return
	}

	key := sess.PeerKey()
	if _, removed := l.registry.Remove(key); !removed {
		l.logger.Printf("netcore: RemoveAndDestroySession: %v was not registered", key)
	}
	l.writeThread.Remove(id)
	l.factory.DestroySession(sess)
}
