package peerkey

import (
	"net"
	"testing"
)

func TestFromUDPAddrRoundTripsThroughString(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.11").To4(), Port: 53001}
	key := FromUDPAddr(addr)

	want := "192.0.2.11:53001"
	if got := key.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestFromNetworkOrderMatchesFromUDPAddr(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.1").To4(), Port: 44453}
	viaAddr := FromUDPAddr(addr)
	viaParts := FromNetworkOrder(IPv4ToNetworkOrder(addr.IP), PortToNetworkOrder(addr.Port))

	if viaAddr != viaParts {
		t.Fatalf("FromUDPAddr = %v, FromNetworkOrder = %v, want equal", viaAddr, viaParts)
	}
}

func TestDifferentAddressesProduceDifferentKeys(t *testing.T) {
	a := FromUDPAddr(&net.UDPAddr{IP: net.ParseIP("192.0.2.1").To4(), Port: 100})
	b := FromUDPAddr(&net.UDPAddr{IP: net.ParseIP("192.0.2.2").To4(), Port: 100})
	c := FromUDPAddr(&net.UDPAddr{IP: net.ParseIP("192.0.2.1").To4(), Port: 101})

	if a == b || a == c || b == c {
		t.Fatalf("expected distinct keys, got a=%v b=%v c=%v", a, b, c)
	}
}

func TestPortToNetworkOrderByteSwap(t *testing.T) {
	got := PortToNetworkOrder(0x1234)
	want := uint16(0x3412)
	if got != want {
		t.Fatalf("PortToNetworkOrder(0x1234) = 0x%04x, want 0x%04x", got, want)
	}
}

func TestIPv4ToNetworkOrderNonIPv4ReturnsZero(t *testing.T) {
	ip := net.ParseIP("::1")
	if got := IPv4ToNetworkOrder(ip); got != 0 {
		t.Fatalf("IPv4ToNetworkOrder(::1) = %d, want 0", got)
	}
}
