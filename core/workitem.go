package core

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// WorkFunc is the unit of work a dispatcher executes. It receives the
// arguments the submitter parked and returns the result payload to route
// back, or nil/empty for notification-only completion. Ownership of the
// returned slice transfers to the dispatcher, which forwards its contents
// and drops the reference; the submitter receives a ring copy.
//
// Work functions run synchronously on the dispatcher's goroutine: one item
// blocks the queue until it returns. They must not wait on the dispatcher
// itself.
type WorkFunc func(args any) []byte

// WorkItem is a requested unit of work: the function, its arguments, where
// the result goes, and the notification value announcing completion.
//
// A zero ReplyTo makes the item fire-and-forget: the dispatcher executes it
// and routes nothing.
type WorkItem struct {
	Fn          WorkFunc
	Args        any
	ReplyTo     Identity
	NotifyValue uint16
}

// ErrNilWorkFunc is returned by Submit for items with no function.
var ErrNilWorkFunc = errors.New("work item has no function")

// ErrBadWorkRecord is returned when a payload consumed from a dispatcher's
// data channel does not decode as a work record.
var ErrBadWorkRecord = errors.New("malformed work record")

// WorkItemWireSize is the exact serialized size of a work record: a
// 16-byte token, the reply identity word, and the notification value.
// A dispatcher rejects any payload whose length differs; a work record is
// never partially interpreted.
const WorkItemWireSize = 16 + 2 + 2

// workPendingValue is the notification value announcing that a work record
// is waiting in a dispatcher's data channel.
const workPendingValue uint16 = 0x0001

// encodeWorkRecord packs the routing half of a work item. The function and
// arguments never cross the channel; they stay parked under the token.
func encodeWorkRecord(token uuid.UUID, replyTo Identity, notifyValue uint16) []byte {
	rec := make([]byte, WorkItemWireSize)
	copy(rec[:16], token[:])
	binary.LittleEndian.PutUint16(rec[16:18], replyTo.Word())
	binary.LittleEndian.PutUint16(rec[18:20], notifyValue)
	return rec
}

// decodeWorkRecord is the inverse of encodeWorkRecord.
func decodeWorkRecord(p []byte) (token uuid.UUID, replyTo Identity, notifyValue uint16, err error) {
	if len(p) != WorkItemWireSize {
		return uuid.UUID{}, Identity{}, 0,
			fmt.Errorf("%w: %d bytes, want %d", ErrBadWorkRecord, len(p), WorkItemWireSize)
	}
	copy(token[:], p[:16])
	replyTo = IdentityFromWord(binary.LittleEndian.Uint16(p[16:18]))
	notifyValue = binary.LittleEndian.Uint16(p[18:20])
	return token, replyTo, notifyValue, nil
}
