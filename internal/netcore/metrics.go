package netcore

import (
	"strconv"
	"sync/atomic"
)

// dropReason enumerates why a datagram never reached a session, mirroring
// spec.md §7's error taxonomy.
type dropReason int

const (
	dropTooSmall dropReason = iota
	dropUnknownSession
	dropCrcMismatch
	dropUnknownOpcode
	dropDuplicateKey
	dropMalformedFrame
	dropReasonCount
)

// Metrics holds lock-free counters polled by a background logger (no
// signal triggers a dump), grounded on the teacher's
// std/snmp.go + client/signal.go pattern of a process-wide counter
// struct copied out periodically.
type Metrics struct {
	Received   atomic.Int64
	Delivered  atomic.Int64
	Compressed atomic.Int64
	Drops      [dropReasonCount]atomic.Int64
}

func (m *Metrics) incDrop(reason dropReason) {
	if m == nil {
		return
	}
	m.Drops[reason].Add(1)
}

// Snapshot is a point-in-time copy of Metrics safe to format/log.
type Snapshot struct {
	Received       int64
	Delivered      int64
	Compressed     int64
	TooSmall       int64
	UnknownSession int64
	CrcMismatch    int64
	UnknownOpcode  int64
	DuplicateKey   int64
	MalformedFrame int64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Received:       m.Received.Load(),
		Delivered:      m.Delivered.Load(),
		Compressed:     m.Compressed.Load(),
		TooSmall:       m.Drops[dropTooSmall].Load(),
		UnknownSession: m.Drops[dropUnknownSession].Load(),
		CrcMismatch:    m.Drops[dropCrcMismatch].Load(),
		UnknownOpcode:  m.Drops[dropUnknownOpcode].Load(),
		DuplicateKey:   m.Drops[dropDuplicateKey].Load(),
		MalformedFrame: m.Drops[dropMalformedFrame].Load(),
	}
}

// Header names Snapshot's columns in ToSlice order, for a CSV writer.
func (Snapshot) Header() []string {
	return []string{
		"Received", "Delivered", "Compressed",
		"DropTooSmall", "DropUnknownSession", "DropCrcMismatch", "DropUnknownOpcode", "DropDuplicateKey", "DropMalformedFrame",
	}
}

// ToSlice renders the snapshot as strings, mirroring kcp.Snmp.ToSlice's
// shape so the rest of the teacher's CSV-logging pattern carries over
// unchanged.
func (s Snapshot) ToSlice() []string {
	return []string{
		strconv.FormatInt(s.Received, 10),
		strconv.FormatInt(s.Delivered, 10),
		strconv.FormatInt(s.Compressed, 10),
		strconv.FormatInt(s.TooSmall, 10),
		strconv.FormatInt(s.UnknownSession, 10),
		strconv.FormatInt(s.CrcMismatch, 10),
		strconv.FormatInt(s.UnknownOpcode, 10),
		strconv.FormatInt(s.DuplicateKey, 10),
		strconv.FormatInt(s.MalformedFrame, 10),
	}
}
