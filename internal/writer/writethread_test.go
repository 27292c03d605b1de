package writer

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/comp"
	"github.com/galaxyemu/netcore/internal/session"
)

// fakeConn is a net.PacketConn that records every WriteTo call instead of
// touching a real socket.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	addrs   []net.Addr
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) { return 0, nil, nil }
func (c *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), p...))
	c.addrs = append(c.addrs, addr)
	return len(p), nil
}
func (c *fakeConn) Close() error                    { return nil }
func (c *fakeConn) LocalAddr() net.Addr             { return &net.UDPAddr{} }
func (c *fakeConn) SetDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func waitForCount(t *testing.T, fn func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for count >= %d, got %d", want, fn())
}

func TestNewSessionEnqueueFlushesEncryptedAndStamped(t *testing.T) {
	conn := &fakeConn{}
	th := New(conn, nil)
	defer th.Close()

	sess := session.New(1, 0x0100007f, 0x1234, 7, "xor", nil, nil, nil)
	th.NewSession(sess)

	pool := bufpool.NewPool(64)
	buf := pool.Get()
	data := buf.Bytes()
	data[0], data[1] = 0x09, 0x00
	copy(data[2:], []byte("payload"))
	buf.SetSize(2 + len("payload"))

	th.Enqueue(sess.ID, buf)

	waitForCount(t, func() int { return len(conn.snapshot()) }, 1)

	written := conn.snapshot()[0]
	if len(written) != 2+len("payload")+2 {
		t.Fatalf("written length = %d, want %d", len(written), 2+len("payload")+2)
	}
	if !comp.VerifyTrailer(written, len(written), sess.EncryptKey()) {
		t.Fatalf("written datagram failed CRC verification")
	}
	sess.Cryptor.Decrypt(written[2:], len(written)-2-2)
	if string(written[2:2+len("payload")]) != "payload" {
		t.Fatalf("decrypted payload = %q, want %q", written[2:2+len("payload")], "payload")
	}
}

func TestEnqueueForUnknownSessionIsDropped(t *testing.T) {
	conn := &fakeConn{}
	th := New(conn, nil)
	defer th.Close()

	pool := bufpool.NewPool(64)
	buf := pool.Get()
	buf.SetSize(4)

	th.Enqueue(99, buf)
	time.Sleep(10 * time.Millisecond)
	if len(conn.snapshot()) != 0 {
		t.Fatalf("expected no write for an unregistered session")
	}
}

func TestRemoveStopsFlushLoop(t *testing.T) {
	conn := &fakeConn{}
	th := New(conn, nil)
	defer th.Close()

	sess := session.New(1, 0, 0, 1, "xor", nil, nil, nil)
	th.NewSession(sess)
	th.Remove(sess.ID)

	pool := bufpool.NewPool(64)
	buf := pool.Get()
	buf.SetSize(4)

	// Enqueue after Remove must not block and must not deliver.
	done := make(chan struct{})
	go func() {
		th.Enqueue(sess.ID, buf)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Enqueue after Remove blocked")
	}
	if len(conn.snapshot()) != 0 {
		t.Fatalf("expected no write after Remove")
	}
}

func TestCloseWaitsForAllFlushLoops(t *testing.T) {
	conn := &fakeConn{}
	th := New(conn, nil)

	for i := session.ID(1); i <= 3; i++ {
		th.NewSession(session.New(i, 0, 0, uint32(i), "xor", nil, nil, nil))
	}
	th.Close()
}
