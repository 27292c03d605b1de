// Package peerkey defines the registry lookup key: a 64-bit value
// combining a peer's IPv4 address and UDP port, both kept in network
// byte order end to end. Conversion to host order happens only at
// human-facing boundaries (logging, presentation).
package peerkey

import "net"

// Key is (ipv4_network_order) | (udp_port_network_order << 32).
type Key uint64

// FromNetworkOrder builds a Key directly from an address and port that
// are already in network byte order, as stored on a Session.
func FromNetworkOrder(addrNet uint32, portNet uint16) Key {
	return Key(uint64(addrNet) | uint64(portNet)<<32)
}

// FromUDPAddr builds a Key from a resolved *net.UDPAddr, converting the
// address and port into network byte order.
func FromUDPAddr(addr *net.UDPAddr) Key {
	return FromNetworkOrder(IPv4ToNetworkOrder(addr.IP), PortToNetworkOrder(addr.Port))
}

// IPv4ToNetworkOrder packs a net.IP's IPv4 form into a network-order u32.
func IPv4ToNetworkOrder(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint32(v4[0]) | uint32(v4[1])<<8 | uint32(v4[2])<<16 | uint32(v4[3])<<24
}

// PortToNetworkOrder converts a host-order port into its network-order
// 16-bit representation (byte-swapped, since network order is
// big-endian and a plain int is stored host-endian here).
func PortToNetworkOrder(port int) uint16 {
	p := uint16(port)
	return p<<8 | p>>8
}

// String renders a Key in dotted-quad:port form for logging.
func (k Key) String() string {
	addrNet := uint32(k)
	portNet := uint16(k >> 32)
	ip := net.IPv4(byte(addrNet), byte(addrNet>>8), byte(addrNet>>16), byte(addrNet>>24))
	port := portNet<<8 | portNet>>8
	return ip.String() + ":" + itoa(int(port))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [6]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
