package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrKindExhausted is returned by Register when all 254 usable IDs of a
	// kind are taken. The identity returned alongside it carries
	// IDExhausted and must not be used.
	ErrKindExhausted = errors.New("all identity values for kind are in use")

	// ErrReservedKind is returned by Register for KindInterrupt, which
	// never names a real task.
	ErrReservedKind = errors.New("kind is reserved")
)

// Registry is the directory of live messaging tasks. It assigns each task a
// unique (kind, id) identity at construction and resolves identities back to
// task instances for senders.
//
// One mutex guards the whole directory: registration can happen from any
// goroutine, and enumeration must not observe a half-applied mutation.
// Uniqueness is point-in-time only; Unregister returns the ID to its kind's
// pool for reuse.
type Registry struct {
	mu      sync.Mutex
	entries map[uint16]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint16]*Task),
	}
}

// Register assigns t the lowest free ID of kind, scanning from 1, and
// enters it into the directory. When every usable ID is taken it returns
// the exhaustion sentinel identity and ErrKindExhausted without creating an
// entry; the caller must treat that as fatal for the task being built.
func (r *Registry) Register(kind uint8, t *Task) (Identity, error) {
	if kind == KindInterrupt {
		return Identity{}, fmt.Errorf("%w: 0x%02x", ErrReservedKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := uint8(1); id < IDExhausted; id++ {
		ident := Identity{Kind: kind, ID: id}
		if _, taken := r.entries[ident.Word()]; taken {
			continue
		}
		t.identity = ident
		r.entries[ident.Word()] = t
		return ident, nil
	}
	return Identity{Kind: kind, ID: IDExhausted}, fmt.Errorf("%w: kind %d", ErrKindExhausted, kind)
}

// Resolve looks an identity up in the directory. A miss is an ordinary
// condition, not an error: a stale identity may refer to a peer that has
// already been closed.
func (r *Registry) Resolve(ident Identity) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entries[ident.Word()]
	return t, ok
}

// ListKind returns every live task of the given kind. The result is a
// snapshot: tasks may be closed concurrently, so callers must not retain it
// across blocking points.
func (r *Registry) ListKind(kind uint8) []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tasks []*Task
	for w, t := range r.entries {
		if uint8(w>>8) == kind {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].identity.Word() < tasks[j].identity.Word()
	})
	return tasks
}

// Unregister removes an identity from the directory, returning its ID to
// the kind's pool. Called at task destruction only.
func (r *Registry) Unregister(ident Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, ident.Word())
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Snapshot returns the directory contents ordered by identity word.
func (r *Registry) Snapshot() []RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RegistryEntry, 0, len(r.entries))
	for _, t := range r.entries {
		out = append(out, RegistryEntry{
			Identity: t.identity,
			Name:     t.name,
			Running:  t.IsRunning(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity.Word() < out[j].Identity.Word()
	})
	return out
}

// Dump writes the directory contents through the given logger, one line per
// task.
func (r *Registry) Dump(l Logger) {
	entries := r.Snapshot()
	l.Info("registry dump", F("tasks", len(entries)))
	for _, e := range entries {
		l.Info("registry entry",
			FIdentity("identity", e.Identity),
			F("name", e.Name),
			F("running", e.Running))
	}
}
