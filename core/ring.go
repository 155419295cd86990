package core

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// DefaultRingCapacity is the data channel arena size in bytes used when a
// task is constructed without an explicit capacity.
const DefaultRingCapacity = 128

const (
	// ringHeaderSize is the per-item bookkeeping prefix inside the arena.
	// Capacity planning must account for it; see RingSizeFor.
	ringHeaderSize = 8

	ringAlign = 4
)

var (
	// ErrNoSpace is returned when the arena cannot fit a payload within the
	// send's wait duration.
	ErrNoSpace = errors.New("ring buffer has insufficient space")

	// ErrEmptyPayload is returned for zero-length sends; received items are
	// handed out as live subslices, which an empty item cannot be.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrPayloadTooLarge is returned when a payload can never fit the arena
	// regardless of how long the sender waits.
	ErrPayloadTooLarge = errors.New("payload exceeds ring capacity")

	// ErrUnknownPayload is returned by Release for a slice that is not a
	// held item of this ring (wrong ring, double release, or a copy).
	ErrUnknownPayload = errors.New("payload does not belong to this ring")
)

// RingSizeFor returns the arena capacity needed to hold count items of
// itemSize bytes each, including per-item headers and alignment.
func RingSizeFor(itemSize, count int) int {
	return count * (ringHeaderSize + alignUp(itemSize))
}

func alignUp(n int) int {
	return (n + ringAlign - 1) &^ (ringAlign - 1)
}

const (
	regionItem uint8 = iota
	regionSkip       // trailing arena bytes consumed by a wrap
)

const (
	slotQueued uint8 = iota // committed, not yet received
	slotHeld                // received, awaiting Release
	slotFreed               // released, awaiting reclamation
)

// ringRegion tracks one consumed span of the arena, in ring order.
type ringRegion struct {
	off   int
	size  int // payload bytes (regionItem only)
	span  int // total arena bytes consumed, header and padding included
	kind  uint8
	state uint8
}

// ByteRing is a fixed-capacity byte arena for variable-length items. Items
// are stored contiguously (never split across the wrap), each behind a small
// header, and are handed to the consumer as zero-copy subslices of the
// arena. A received item occupies its span until Release returns it.
//
// The ring carries its own lock: producers are serialized by the owning
// channel's mutex, but the consumer's Receive and Release run concurrently
// with producer sends.
type ByteRing struct {
	mu      sync.Mutex
	buf     []byte
	head    int // next write offset
	tail    int // oldest live offset
	used    int // arena bytes consumed, skip spans included
	regions []ringRegion
	closed  bool

	itemGate  gate // pulsed when an item commits or the ring closes
	spaceGate gate // pulsed when space reclaims or the ring closes
}

// NewByteRing creates a ring with the given arena capacity in bytes.
// A capacity below the minimum usable size falls back to
// DefaultRingCapacity.
func NewByteRing(capacity int) *ByteRing {
	if capacity < ringHeaderSize+ringAlign {
		capacity = DefaultRingCapacity
	}
	return &ByteRing{
		buf:       make([]byte, alignUp(capacity)),
		itemGate:  newGate(),
		spaceGate: newGate(),
	}
}

// Cap returns the arena capacity in bytes.
func (r *ByteRing) Cap() int {
	return len(r.buf)
}

// Send copies p into the arena as one item, blocking up to wait for enough
// contiguous space. A send that cannot commit within wait returns ErrNoSpace
// and leaves the ring untouched; partial bytes are never visible.
func (r *ByteRing) Send(p []byte, wait time.Duration) error {
	if len(p) == 0 {
		return ErrEmptyPayload
	}
	need := ringHeaderSize + alignUp(len(p))
	if need > len(r.buf) {
		return ErrPayloadTooLarge
	}

	timeout, cancel := waitTimeout(wait)
	defer cancel()

	r.mu.Lock()
	for {
		if r.closed {
			r.mu.Unlock()
			return ErrClosed
		}
		if r.tryWriteLocked(p, need) {
			r.itemGate.pulse()
			r.mu.Unlock()
			return nil
		}
		if wait == NoWait {
			r.mu.Unlock()
			return ErrNoSpace
		}

		ready := r.spaceGate.wait()
		r.mu.Unlock()
		select {
		case <-ready:
		case <-timeout:
			return ErrNoSpace
		}
		r.mu.Lock()
	}
}

// Receive returns the oldest committed item as a subslice of the arena,
// blocking up to wait for one. The caller owns the slice until it calls
// Release; writing to it after Release is a use-after-free against later
// senders. After Close, committed items drain normally before ErrClosed.
func (r *ByteRing) Receive(wait time.Duration) ([]byte, error) {
	timeout, cancel := waitTimeout(wait)
	defer cancel()

	r.mu.Lock()
	for {
		for i := range r.regions {
			reg := &r.regions[i]
			if reg.kind == regionItem && reg.state == slotQueued {
				reg.state = slotHeld
				p := r.buf[reg.off+ringHeaderSize : reg.off+ringHeaderSize+reg.size]
				r.mu.Unlock()
				return p, nil
			}
		}
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		if wait == NoWait {
			r.mu.Unlock()
			return nil, ErrTimeout
		}

		ready := r.itemGate.wait()
		r.mu.Unlock()
		select {
		case <-ready:
		case <-timeout:
			return nil, ErrTimeout
		}
		r.mu.Lock()
	}
}

// Release returns a received item's span to the arena. Items may be released
// out of receive order; space reclaims once the oldest spans are all free.
func (r *ByteRing) Release(p []byte) error {
	if len(p) == 0 {
		return ErrUnknownPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.regions {
		reg := &r.regions[i]
		if reg.kind != regionItem || reg.state != slotHeld || reg.size != len(p) {
			continue
		}
		if &r.buf[reg.off+ringHeaderSize] != &p[0] {
			continue
		}
		reg.state = slotFreed
		r.reclaimLocked()
		r.spaceGate.pulse()
		return nil
	}
	return ErrUnknownPayload
}

// Close marks the ring closed and releases every blocked sender and
// receiver. Closing twice is a no-op.
func (r *ByteRing) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.itemGate.pulse()
	r.spaceGate.pulse()
}

// Len returns the number of committed items not yet received.
func (r *ByteRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.regions {
		if r.regions[i].kind == regionItem && r.regions[i].state == slotQueued {
			n++
		}
	}
	return n
}

// Stats returns a point-in-time snapshot for observability.
func (r *ByteRing) Stats() RingStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RingStats{Capacity: len(r.buf), UsedBytes: r.used}
	for i := range r.regions {
		reg := &r.regions[i]
		if reg.kind != regionItem {
			continue
		}
		switch reg.state {
		case slotQueued:
			s.Queued++
		case slotHeld:
			s.Held++
		}
	}
	return s
}

// tryWriteLocked commits p if a contiguous span of need bytes is available,
// wrapping past the arena end when the remainder is too small.
func (r *ByteRing) tryWriteLocked(p []byte, need int) bool {
	if r.used == 0 {
		r.head = 0
		r.tail = 0
	}
	if r.used+need > len(r.buf) {
		return false
	}

	if r.head >= r.tail {
		if len(r.buf)-r.head >= need {
			r.writeItemLocked(p, need)
			return true
		}
		// Tail end too small: the remainder becomes a skip span and the
		// item goes to the front, if the front has room.
		if r.tail >= need {
			r.wrapLocked()
			r.writeItemLocked(p, need)
			return true
		}
		return false
	}

	if r.tail-r.head >= need {
		r.writeItemLocked(p, need)
		return true
	}
	return false
}

func (r *ByteRing) wrapLocked() {
	span := len(r.buf) - r.head
	if span == 0 {
		r.head = 0
		return
	}
	if span >= ringHeaderSize {
		binary.LittleEndian.PutUint32(r.buf[r.head:], 0)
		binary.LittleEndian.PutUint32(r.buf[r.head+4:], uint32(regionSkip))
	}
	r.regions = append(r.regions, ringRegion{
		off:  r.head,
		span: span,
		kind: regionSkip,
	})
	r.used += span
	r.head = 0
}

func (r *ByteRing) writeItemLocked(p []byte, need int) {
	off := r.head
	binary.LittleEndian.PutUint32(r.buf[off:], uint32(len(p)))
	binary.LittleEndian.PutUint32(r.buf[off+4:], uint32(regionItem))
	copy(r.buf[off+ringHeaderSize:], p)

	r.regions = append(r.regions, ringRegion{
		off:   off,
		size:  len(p),
		span:  need,
		kind:  regionItem,
		state: slotQueued,
	})
	r.used += need
	r.head = off + need
	if r.head == len(r.buf) {
		r.head = 0
	}
}

// reclaimLocked advances the tail over freed items and skip spans.
func (r *ByteRing) reclaimLocked() {
	for len(r.regions) > 0 {
		front := r.regions[0]
		if front.kind == regionItem && front.state != slotFreed {
			break
		}
		r.used -= front.span
		r.tail = front.off + front.span
		if r.tail >= len(r.buf) {
			r.tail = 0
		}
		copy(r.regions, r.regions[1:])
		r.regions = r.regions[:len(r.regions)-1]
	}
	if r.used == 0 {
		r.head = 0
		r.tail = 0
	}
}
