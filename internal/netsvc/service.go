// Package netsvc wires the receive core's components together into a
// runnable service: it owns the UDP socket, starts the receive loop on
// its own goroutine, and exposes NewOutgoingConnection/Shutdown to the
// hosting process. Socket ownership, start/stop sequencing, and the
// outbound rendezvous are the "Service" collaborator spec.md references
// but treats as external to the receive core itself.
package netsvc

import (
	"context"
	"log"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/comp"
	"github.com/galaxyemu/netcore/internal/config"
	"github.com/galaxyemu/netcore/internal/netcore"
	"github.com/galaxyemu/netcore/internal/registry"
	"github.com/galaxyemu/netcore/internal/rendezvous"
	"github.com/galaxyemu/netcore/internal/session"
	"github.com/galaxyemu/netcore/internal/writer"
)

// LoggingDelegateFactory builds a Delegate that just logs and counts
// what it receives — a stand-in for the real session state machine
// (reliability window, ack/order/frag reassembly, application delivery),
// which is out of this module's scope per spec.md §1.
type LoggingDelegateFactory struct {
	Logger *log.Logger
}

func (f LoggingDelegateFactory) NewDelegate(id session.ID) session.Delegate {
	return &loggingDelegate{id: id, logger: f.Logger}
}

type loggingDelegate struct {
	id     session.ID
	logger *log.Logger
}

func (d *loggingDelegate) HandleSessionPacket(buf *bufpool.PacketBuffer) {
	if d.logger != nil {
		d.logger.Printf("netsvc: session %d: session packet, %d bytes (compressed=%v)", d.id, buf.Size(), buf.IsCompressed())
	}
}

func (d *loggingDelegate) HandleFastpathPacket(buf *bufpool.PacketBuffer) {
	if d.logger != nil {
		d.logger.Printf("netsvc: session %d: fastpath packet, %d bytes (compressed=%v)", d.id, buf.Size(), buf.IsCompressed())
	}
}

// Service owns the socket and the receive core built on top of it.
type Service struct {
	cfg        config.Config
	socket     *net.UDPConn
	registry   *registry.Registry
	rendezvous *rendezvous.Rendezvous
	factory    *session.Factory
	writer     *writer.Thread
	loop       *netcore.Loop
	logger     *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New opens a UDP socket on cfg.Listen and assembles the receive core.
func New(cfg config.Config, delegateFactory session.DelegateFactory, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.Default()
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, errors.Wrapf(err, "netsvc: resolve %q", cfg.Listen)
	}
	socket, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "netsvc: listen %q", cfg.Listen)
	}

	if delegateFactory == nil {
		delegateFactory = LoggingDelegateFactory{Logger: logger}
	}

	logger.Println("initiating key derivation")
	pskKey := comp.DeriveKey(cfg.Key)
	logger.Println("key derivation done")

	reg := registry.New()
	rdv := rendezvous.New()
	factory := session.NewFactory(delegateFactory, cfg.Crypt, pskKey)
	wt := writer.New(socket, logger)
	loop := netcore.New(socket, cfg, reg, rdv, factory, wt, logger)

	return &Service{
		cfg:        cfg,
		socket:     socket,
		registry:   reg,
		rendezvous: rdv,
		factory:    factory,
		writer:     wt,
		loop:       loop,
		logger:     logger,
	}, nil
}

// Run starts the receive loop on its own goroutine and returns
// immediately. Call Shutdown to stop it.
func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		s.loop.Run(ctx)
	}()
}

// NewOutgoingConnection implements the inbound API of spec.md §6:
// enqueue a request for the receive loop to originate a session to
// address:port on its next iteration. Single-producer, per the
// rendezvous contract.
func (s *Service) NewOutgoingConnection(address string, port uint16) error {
	return s.rendezvous.Request(address, port)
}

// Metrics exposes the receive loop's counters.
func (s *Service) Metrics() *netcore.Metrics {
	return s.loop.Metrics()
}

// Shutdown sets the loop's cancellation, joins its goroutine, then tears
// down the write thread and closes the socket. Per spec.md §5, the loop
// thread must be joined before factories are torn down.
func (s *Service) Shutdown() {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		<-stopped
	}
	s.writer.Close()
	s.socket.Close()
}
