// Package registry implements the SessionRegistry: a concurrent map
// from PeerKey to session.ID. The spec's source protected an ordinary
// tree map with a reentrant mutex and read it lock-free anyway — an
// unsound combination flagged in spec.md §9. This rewrite follows the
// spec's own redesign guidance and uses a lock-free concurrent map
// instead, the same dependency and pattern the example pack's syncthing
// discovery server uses for its own peer-keyed record store
// (cmd/stdiscosrv/database.go).
package registry

import (
	"errors"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/galaxyemu/netcore/internal/peerkey"
	"github.com/galaxyemu/netcore/internal/session"
)

// ErrDuplicateKey is returned by Insert when the PeerKey is already
// occupied.
var ErrDuplicateKey = errors.New("registry: duplicate key")

// Registry maps PeerKey to session.ID. All operations are safe for
// concurrent use without an external lock: xsync.MapOf guarantees a
// lookup is never torn by a concurrent insert/remove, which is exactly
// what the spec's lock-free read path requires but the original's tree
// map could not guarantee.
type Registry struct {
	m *xsync.MapOf[peerkey.Key, session.ID]
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{m: xsync.NewMapOf[peerkey.Key, session.ID]()}
}

// Lookup returns the installed session id for key, if any.
func (r *Registry) Lookup(key peerkey.Key) (session.ID, bool) {
	return r.m.Load(key)
}

// Insert installs id under key. Fails with ErrDuplicateKey if key is
// already occupied by a different (or the same) id — insertion never
// silently overwrites.
func (r *Registry) Insert(key peerkey.Key, id session.ID) error {
	if _, loaded := r.m.LoadOrStore(key, id); loaded {
		return ErrDuplicateKey
	}
	return nil
}

// Remove removes key if present and returns the id that was installed.
// Idempotent: removing an already-absent key returns (0, false) rather
// than an error, so a session's self-teardown racing a second caller's
// teardown is harmless.
func (r *Registry) Remove(key peerkey.Key) (session.ID, bool) {
	return r.m.LoadAndDelete(key)
}

// Len reports the number of installed sessions. Diagnostic use only —
// the count can be stale the instant it's read under concurrent access.
func (r *Registry) Len() int {
	return r.m.Size()
}
