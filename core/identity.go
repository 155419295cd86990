package core

import "fmt"

// Reserved identity values. IDs are assigned per kind starting at 1, so
// IDNone never names a live task. IDExhausted is returned by Register when
// every usable ID of a kind is taken.
const (
	IDNone      uint8 = 0
	IDExhausted uint8 = 255
)

// Reserved kinds. KindDispatcher is used by work dispatchers when they
// register themselves. KindInterrupt is never registrable: it marks
// notifications produced outside any task context.
const (
	KindDispatcher uint8 = 0xFE
	KindInterrupt  uint8 = 0xFF
)

// InterruptSender is the sender identity carried by notifications sent from
// interrupt context. It is a fixed constant, never assigned to a real task,
// and never resolves through a Registry.
var InterruptSender = Identity{Kind: KindInterrupt, ID: IDNone}

// Identity names a messaging-capable task as a (kind, id) pair.
//
// Uniqueness is point-in-time only: when a task is closed its ID returns to
// the kind's pool and a later task of the same kind may receive it again.
// Callers must not treat an Identity as stable across a peer's lifetime.
type Identity struct {
	Kind uint8
	ID   uint8
}

// Word packs the identity into a single 16-bit value (kind in the high
// byte). Two identities are equal exactly when their words are equal.
func (i Identity) Word() uint16 {
	return uint16(i.Kind)<<8 | uint16(i.ID)
}

// IdentityFromWord is the inverse of Word.
func IdentityFromWord(w uint16) Identity {
	return Identity{Kind: uint8(w >> 8), ID: uint8(w)}
}

// IsZero reports whether i is the zero identity. The zero identity never
// names a task; it is used as the "no sender" placeholder.
func (i Identity) IsZero() bool {
	return i.Kind == 0 && i.ID == IDNone
}

func (i Identity) String() string {
	return fmt.Sprintf("%d/%d", i.Kind, i.ID)
}
