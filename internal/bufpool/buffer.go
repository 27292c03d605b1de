// Package bufpool provides the PacketBuffer type the receive loop reads
// datagrams into, and a sync.Pool-backed recycler for them. Grounded on
// the xmitBuf sync.Pool kcp-go keeps internally for the same reason:
// avoiding a per-datagram allocation on the hot receive path.
package bufpool

// PacketBuffer is an owned byte buffer with a cursor, a logical size,
// and a flag recording whether its contents were produced by the
// decompress step. Capacity is fixed at construction (MaxPayload, which
// differs for server-server vs server-client peers).
type PacketBuffer struct {
	data         []byte
	size         int
	cursor       int
	isCompressed bool
}

func newPacketBuffer(maxPayload int) *PacketBuffer {
	return &PacketBuffer{data: make([]byte, maxPayload)}
}

// Bytes returns the buffer's backing array, sized to its capacity. Use
// Size() for the logical length currently in use.
func (b *PacketBuffer) Bytes() []byte { return b.data }

// Cap returns the buffer's fixed capacity (MaxPayload).
func (b *PacketBuffer) Cap() int { return len(b.data) }

// Size returns the current logical length. Invariant: 0 <= Size() <= Cap().
func (b *PacketBuffer) Size() int { return b.size }

// SetSize sets the logical length. Panics if n is out of [0, Cap()] —
// a programming error in the caller, not a runtime condition.
func (b *PacketBuffer) SetSize(n int) {
	if n < 0 || n > len(b.data) {
		panic("bufpool: size out of range")
	}
	b.size = n
}

// Cursor returns the current read position. Invariant: Cursor() <= Size().
func (b *PacketBuffer) Cursor() int { return b.cursor }

// SetCursor sets the read position.
func (b *PacketBuffer) SetCursor(n int) {
	if n < 0 || n > b.size {
		panic("bufpool: cursor out of range")
	}
	b.cursor = n
}

// IsCompressed reports whether this buffer's contents came out of the
// decompress step.
func (b *PacketBuffer) IsCompressed() bool { return b.isCompressed }

// SetCompressed marks whether this buffer's contents were decompressed.
func (b *PacketBuffer) SetCompressed(v bool) { b.isCompressed = v }

// reset clears size/cursor/compressed flag for reuse. The backing array
// is not zeroed: callers always overwrite data[:size] before reading it,
// and zeroing a multi-KB buffer per checkout would cost more than it's
// worth on this path.
func (b *PacketBuffer) reset() {
	b.size = 0
	b.cursor = 0
	b.isCompressed = false
}
