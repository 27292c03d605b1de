// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package writer implements the send-side thread the receive core talks
// to through netcore.WriteThread. The reliability/ack/order logic that
// decides *what* to send is out of scope (spec.md §1's "send-side
// thread" collaborator); this package only owns flushing already-built
// payloads to the wire, one goroutine per session, mirroring the
// teacher's bidirectional-pipe-with-WaitGroup shape in std/copy.go
// adapted from stream copying to datagram enqueue/flush.
package writer

import (
	"log"
	"net"
	"sync"

	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/comp"
	"github.com/galaxyemu/netcore/internal/session"
)

const outboundQueueDepth = 256

// outbound is a per-session outbound queue and its worker goroutine.
type outbound struct {
	ch   chan *bufpool.PacketBuffer
	done chan struct{}
}

// Thread is a concrete WriteThread: one buffered channel and worker
// goroutine per session, each encrypting and flushing to the socket in
// the order packets were enqueued.
type Thread struct {
	socket net.PacketConn
	logger *log.Logger

	mu      sync.Mutex
	streams map[session.ID]*outbound
	wg      sync.WaitGroup
}

// New builds a Thread that writes to socket. socket is not owned by the
// Thread — the caller closes it after Close.
func New(socket net.PacketConn, logger *log.Logger) *Thread {
	if logger == nil {
		logger = log.Default()
	}
	return &Thread{
		socket:  socket,
		logger:  logger,
		streams: make(map[session.ID]*outbound),
	}
}

// NewSession registers a fresh per-session outbound queue and starts its
// flush goroutine. Called by the receive loop only after the session is
// published to the registry — per spec.md §5, that publish happens-before
// this call, so the send side can safely assume the session is already
// discoverable by the time it starts flushing acks for it.
func (t *Thread) NewSession(s *session.Session) {
	ob := &outbound{
		ch:   make(chan *bufpool.PacketBuffer, outboundQueueDepth),
		done: make(chan struct{}),
	}

	t.mu.Lock()
	t.streams[s.ID] = ob
	t.mu.Unlock()

	addr := sessionAddr(s)
	t.wg.Add(1)
	go t.flushLoop(s, ob, addr)
}

// Enqueue hands a payload to be encrypted and flushed for session id. If
// the session has no registered queue (already torn down, or never
// registered), the buffer is dropped silently — the session is gone, so
// there is nowhere for the ack/data to go.
func (t *Thread) Enqueue(id session.ID, buf *bufpool.PacketBuffer) {
	t.mu.Lock()
	ob, ok := t.streams[id]
	t.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ob.ch <- buf:
	case <-ob.done:
	}
}

// Remove stops and forgets a session's outbound queue. Called by the
// receive loop's RemoveAndDestroySession when a session is destroyed.
func (t *Thread) Remove(id session.ID) {
	t.mu.Lock()
	ob, ok := t.streams[id]
	if ok {
		delete(t.streams, id)
	}
	t.mu.Unlock()
	if ok {
		close(ob.done)
	}
}

func (t *Thread) flushLoop(s *session.Session, ob *outbound, addr *net.UDPAddr) {
	defer t.wg.Done()
	for {
		select {
		case buf, ok := <-ob.ch:
			if !ok {
				return
			}
			t.flush(s, buf, addr)
		case <-ob.done:
			return
		}
	}
}

// flush encrypts buf's payload in place and appends the CRC trailer
// before writing to the socket, the output-side mirror of the receive
// core's verify+decrypt pipeline.
func (t *Thread) flush(s *session.Session, buf *bufpool.PacketBuffer, addr *net.UDPAddr) {
	data := buf.Bytes()
	n := buf.Size()
	if n < 2 || n+2 > len(data) {
		t.logger.Printf("writer: session %d: malformed outbound buffer size %d", s.ID, n)
		return
	}
	s.Cryptor.Encrypt(data[2:n], n-2)
	comp.PutTrailer(data, n, s.EncryptKey())
	if _, err := t.socket.WriteTo(data[:n+2], addr); err != nil {
		t.logger.Printf("writer: session %d: write: %v", s.ID, err)
	}
}

// Close stops every outbound queue and waits for their goroutines to exit.
func (t *Thread) Close() {
	t.mu.Lock()
	streams := t.streams
	t.streams = make(map[session.ID]*outbound)
	t.mu.Unlock()

	for _, ob := range streams {
		close(ob.done)
	}
	t.wg.Wait()
}

func sessionAddr(s *session.Session) *net.UDPAddr {
	addrNet := s.Address()
	portNet := s.Port()
	ip := net.IPv4(byte(addrNet), byte(addrNet>>8), byte(addrNet>>16), byte(addrNet>>24))
	port := portNet<<8 | portNet>>8 // network order -> host order
	return &net.UDPAddr{IP: ip, Port: int(port)}
}
