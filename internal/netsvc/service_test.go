package netsvc

import (
	"net"
	"testing"
	"time"

	"github.com/galaxyemu/netcore/internal/config"
)

// freeAddr picks an ephemeral UDP port on loopback by binding and
// immediately releasing it, then hands the address string to the
// Service under test — the same probe-and-release pattern the teacher's
// own socket tests rely on for a real, unmocked kernel socket.
func freeAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("probe listen: %v", err)
	}
	addr := conn.LocalAddr().String()
	conn.Close()
	return addr
}

func TestNewInvalidListenAddressReturnsWrappedError(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = "not-an-address"
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("expected New to fail for an unresolvable listen address")
	}
}

func TestServiceRunReceivesAndShutdownJoinsCleanly(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = freeAddr(t)
	cfg.MaxMessageSize = 1400

	svc, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.Run()
	defer svc.Shutdown()

	client, err := net.Dial("udp", cfg.Listen)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// A SessionRequest datagram: opcode 0x0001<<8 big-endian, then a
	// payload. The loop doesn't need a well-formed peer to count it as
	// received.
	datagram := []byte{0x01, 0x00, 'h', 'i'}
	if _, err := client.Write(datagram); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Metrics().Received.Load() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected Metrics().Received to increment after a datagram was sent")
}

func TestNewOutgoingConnectionEnqueuesRendezvousRequest(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = freeAddr(t)

	svc, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Shutdown()

	if err := svc.NewOutgoingConnection("192.0.2.5", 4000); err != nil {
		t.Fatalf("NewOutgoingConnection: %v", err)
	}
	// A second request before the loop drains the first (never started
	// here) must be refused by the single-slot rendezvous mailbox.
	if err := svc.NewOutgoingConnection("192.0.2.6", 4001); err == nil {
		t.Fatalf("expected the second concurrent rendezvous request to be refused")
	}
}

func TestShutdownWithoutRunDoesNotPanic(t *testing.T) {
	cfg := config.Default()
	cfg.Listen = freeAddr(t)

	svc, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.Shutdown()
}
