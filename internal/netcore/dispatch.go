package netcore

import (
	"net"

	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/comp"
	"github.com/galaxyemu/netcore/internal/peerkey"
	"github.com/galaxyemu/netcore/internal/session"
	"github.com/galaxyemu/netcore/internal/wire"
)

// trailerLen is the fixed two-byte CRC trailer every CRC-checked family
// carries.
const trailerLen = 2

// minSessionControlFrame is the smallest datagram a session-control
// family (2-byte opcode + 2-byte CRC trailer, zero-length payload) can
// legally carry. recvLen==3 (spec.md §8's documented boundary) is one
// byte short of this and must never reach Decrypt: decrypting
// data[2:recvLen-2] would compute a negative length.
const minSessionControlFrame = 4

// processDatagram implements spec.md §4.G steps 3-5: bound the datagram
// to MaxMessageSize, drop anything too small to carry opcode+CRC, find
// or create the owning session, classify, and dispatch.
func (l *Loop) processDatagram(buf *bufpool.PacketBuffer, n int, addr *net.UDPAddr) {
	maxMsg := l.cfg.MaxMessageSize
	if maxMsg <= 0 {
		maxMsg = l.cfg.MaxPayload()
	}

	recvLen := n
	if recvLen > maxMsg {
		l.logger.Printf("netcore: datagram from %v is %d bytes, exceeds MaxMessageSize %d; processing %d bytes", addr, recvLen, maxMsg, maxMsg)
		recvLen = maxMsg
	}

	if recvLen <= 2 {
		l.logger.Printf("netcore: datagram from %v is %d bytes, too small, dropping", addr, recvLen)
		l.metrics.incDrop(dropTooSmall)
		l.pool.Put(buf)
		return
	}

	buf.SetSize(recvLen)
	data := buf.Bytes()

	typeLow := data[0]
	t := uint16(data[0])<<8 | uint16(data[1])
	key := peerkey.FromUDPAddr(addr)

	var sess *session.Session
	if id, found := l.registry.Lookup(key); found {
		sess = l.lookupArena(id)
	}

	if sess == nil {
		if wire.IsSessionControl(t) && wire.Opcode(t) == wire.SessionRequest {
			sess = l.createInboundSession(addr, key)
			if sess == nil {
				l.pool.Put(buf)
				return
			}
		} else {
			l.logger.Printf("netcore: session not found for %v, dropping", key)
			l.metrics.incDrop(dropUnknownSession)
			l.pool.Put(buf)
			return
		}
	}

	family := wire.Classify(typeLow, t)
	l.dispatch(family, sess, buf, recvLen)
}

// createInboundSession implements spec.md §4.G step 4's "no session and
// type == SessionRequest" branch.
func (l *Loop) createInboundSession(addr *net.UDPAddr, key peerkey.Key) *session.Session {
	addrNet := peerkey.IPv4ToNetworkOrder(addr.IP)
	portNet := peerkey.PortToNetworkOrder(addr.Port)

	sess := l.factory.CreateSession(addrNet, portNet, l.nextEncryptKey(), l)
	sess.SetResendWindowSize(l.cfg.PacketWindow())

	l.putArena(sess)
	if err := l.registry.Insert(key, sess.ID); err != nil {
		l.logger.Printf("netcore: %v: %v, dropping session request", key, err)
		l.metrics.incDrop(dropDuplicateKey)
		l.dropArena(sess.ID)
		l.factory.DestroySession(sess)
		return nil
	}
	l.writeThread.NewSession(sess)
	return sess
}

// dispatch implements the packet-family decision table of spec.md §4.G.
// Ownership of buf transfers to sess on every delivering branch; the
// caller (receiveOne) has already moved on to its own fresh buffer via
// pool.Get() at the top of the next iteration, and every branch here
// that drops the datagram returns buf to the pool exactly once.
func (l *Loop) dispatch(family wire.Family, sess *session.Session, buf *bufpool.PacketBuffer, recvLen int) {
	data := buf.Bytes()
	key := sess.EncryptKey()

	switch family {
	case wire.FamilyAckOrderPingDisconnect:
		if recvLen < minSessionControlFrame {
			l.malformedFrame(sess, recvLen)
			l.pool.Put(buf)
			return
		}
		if !comp.VerifyTrailer(data, recvLen, key) {
			l.crcMismatch(sess, data, recvLen, false)
			l.pool.Put(buf)
			return
		}
		sess.Cryptor.Decrypt(data[2:], recvLen-2-trailerLen)
		buf.SetSize(recvLen - trailerLen)
		l.deliverSession(sess, buf)

	case wire.FamilyReliable:
		if recvLen < minSessionControlFrame {
			l.malformedFrame(sess, recvLen)
			l.pool.Put(buf)
			return
		}
		if !comp.VerifyTrailer(data, recvLen, key) {
			l.crcMismatch(sess, data, recvLen, true)
			l.pool.Put(buf)
			return
		}
		sess.Cryptor.Decrypt(data[2:], recvLen-2-trailerLen)
		l.deliverReliable(sess, buf, recvLen)

	case wire.FamilySetup:
		// No key established yet: no CRC, no decrypt, deliver raw.
		l.deliverSession(sess, buf)

	case wire.FamilyFastpath:
		if !comp.VerifyTrailer(data, recvLen, key) {
			l.crcMismatch(sess, data, recvLen, false)
			l.pool.Put(buf)
			return
		}
		sess.Cryptor.Decrypt(data[1:], recvLen-1-trailerLen)
		l.deliverFastpath(sess, buf, recvLen)

	default:
		l.logger.Printf("netcore: unknown opcode from %v, dropping", sess.PeerKey())
		l.metrics.incDrop(dropUnknownOpcode)
		l.pool.Put(buf)
	}
}

// deliverReliable implements the SessionReliable row: attempt decompress
// over [2, recvLen-3); a fresh buffer on success, the original (minus
// its trailing comp-flag+CRC) on failure.
func (l *Loop) deliverReliable(sess *session.Session, buf *bufpool.PacketBuffer, recvLen int) {
	data := buf.Bytes()
	compSrcLen := recvLen - 3 - 2 // bytes strictly between the 2-byte opcode and the comp-flag
	if compSrcLen > 0 {
		fresh := l.pool.Get()
		d := comp.Decompress(data[2:2+compSrcLen], compSrcLen, fresh.Bytes()[2:])
		if d > 0 {
			copy(fresh.Bytes()[:2], data[:2])
			fresh.SetSize(int(d) + 2)
			fresh.SetCompressed(true)
			l.metrics.Compressed.Add(1)
			l.pool.Put(buf)
			l.deliverSession(sess, fresh)
			return
		}
		l.pool.Put(fresh)
	}
	buf.SetSize(recvLen - 3)
	l.deliverSession(sess, buf)
}

// deliverFastpath implements the Fastpath row: only attempt decompress
// when the post-decrypt comp-flag byte (at recvLen-3) is 1.
func (l *Loop) deliverFastpath(sess *session.Session, buf *bufpool.PacketBuffer, recvLen int) {
	data := buf.Bytes()
	if data[recvLen-3] == 1 {
		compSrcLen := recvLen - 3 - 1
		if compSrcLen > 0 {
			fresh := l.pool.Get()
			d := comp.Decompress(data[1:1+compSrcLen], compSrcLen, fresh.Bytes()[1:])
			if d > 0 {
				fresh.Bytes()[0] = data[0]
				fresh.SetSize(int(d) + 1)
				fresh.SetCompressed(true)
				l.metrics.Compressed.Add(1)
				l.pool.Put(buf)
				l.deliverFastpathBuf(sess, fresh)
				return
			}
			l.pool.Put(fresh)
		}
	}
	buf.SetSize(recvLen - 3)
	l.deliverFastpathBuf(sess, buf)
}

// deliverSession counts the delivery and hands buf to
// HandleSessionPacket. It does not check out a replacement buffer:
// receiveOne takes a fresh one from the pool via pool.Get() at the start
// of its next iteration (spec.md §4.G step 5).
func (l *Loop) deliverSession(sess *session.Session, buf *bufpool.PacketBuffer) {
	l.metrics.Delivered.Add(1)
	sess.HandleSessionPacket(buf)
}

func (l *Loop) deliverFastpathBuf(sess *session.Session, buf *bufpool.PacketBuffer) {
	l.metrics.Delivered.Add(1)
	sess.HandleFastpathPacket(buf)
}

// malformedFrame drops a session-control-family datagram too short to
// carry its 2-byte opcode plus 2-byte CRC trailer (spec.md §8's
// documented recvLen==3 boundary). This must be checked before any CRC
// verification or decrypt attempt: recvLen-2-trailerLen would otherwise
// go negative and panic inside Cryptor.Decrypt's buf[:n] slice.
func (l *Loop) malformedFrame(sess *session.Session, recvLen int) {
	l.metrics.incDrop(dropMalformedFrame)
	l.logger.Printf("netcore: malformed frame (%d bytes) from %v, dropping", recvLen, sess.PeerKey())
}

// crcMismatch logs a drop for a failed trailer check. For reliable
// packets spec.md §7 asks for an opportunistic diagnostic decrypt (on a
// scratch copy, never the live buffer) so the hex dump is useful without
// affecting state. Callers already guard recvLen >= minSessionControlFrame
// before reaching here; the same guard is repeated defensively so this
// diagnostic path can never compute a negative decrypt length even if a
// future caller stops checking first.
func (l *Loop) crcMismatch(sess *session.Session, data []byte, recvLen int, reliable bool) {
	l.metrics.incDrop(dropCrcMismatch)
	if !reliable || recvLen < minSessionControlFrame {
		l.logger.Printf("netcore: CRC mismatch from %v, dropping", sess.PeerKey())
		return
	}
	scratch := append([]byte(nil), data[:recvLen]...)
	sess.Cryptor.Decrypt(scratch[2:], recvLen-2-trailerLen)
	l.logger.Printf("netcore: CRC mismatch (reliable) from %v, dropping: % x", sess.PeerKey(), scratch)
}
