package netcore

import (
	"github.com/galaxyemu/netcore/internal/bufpool"
	"github.com/galaxyemu/netcore/internal/session"
)

// WriteThread is the narrow outbound interface the receive loop drives:
// NewSession publishes a just-installed session to the send side (the
// write-thread must treat this call as the acquire edge for everything
// the loop published to the registry beforehand); Enqueue hands it an
// outbound payload to encode, encrypt, and flush; Remove retires the
// session's outbound queue and worker goroutine, the send-side mirror of
// RemoveAndDestroySession, so per-session resources on both sides of the
// core die together.
type WriteThread interface {
	NewSession(s *session.Session)
	Enqueue(id session.ID, buf *bufpool.PacketBuffer)
	Remove(id session.ID)
}

// NopWriteThread discards everything. It satisfies WriteThread for
// callers that only exercise the receive path; nothing in this module
// installs it by default.
type NopWriteThread struct{}

func (NopWriteThread) NewSession(*session.Session)              {}
func (NopWriteThread) Enqueue(session.ID, *bufpool.PacketBuffer) {}
func (NopWriteThread) Remove(session.ID)                        {}
