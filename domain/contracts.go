// Package domain defines narrow messaging contracts satisfied by the core
// types. Code that only sends notifications or submits work can accept these
// interfaces instead of concrete tasks and dispatchers.
package domain

import (
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// =============================================================================
// Peer: Addressable participants
// =============================================================================

// Peer is anything registered under an identity.
type Peer interface {
	Name() string
	Identity() core.Identity
}

// =============================================================================
// Notification contracts
// =============================================================================

// NotifySender pushes 16-bit notifications toward registered identities.
type NotifySender interface {
	SendNotificationTo(target core.Identity, value uint16, wait time.Duration) error
	SendNotificationToFront(target core.Identity, value uint16, wait time.Duration) error
}

// NotifyReceiver drains the receiver-owned notification queue.
type NotifyReceiver interface {
	ReceiveNotification(wait time.Duration) (core.Notification, error)
}

// =============================================================================
// Data contracts
// =============================================================================

// DataSender commits payloads into a target task's ring buffer.
type DataSender interface {
	SendDataTo(target core.Identity, p []byte, wait time.Duration, withNotification bool, value uint16) error
}

// DataReceiver reads zero-copy payload views and returns them to the ring.
// Every successful ReceiveData must be paired with a ReleaseData.
type DataReceiver interface {
	ReceiveData(wait time.Duration) ([]byte, error)
	ReleaseData(p []byte) error
}

// =============================================================================
// Composite contracts
// =============================================================================

// Mailbox is the full task-side messaging surface.
type Mailbox interface {
	Peer
	NotifySender
	NotifyReceiver
	DataSender
	DataReceiver
}

// WorkSubmitter accepts work items for serialized execution.
type WorkSubmitter interface {
	Peer
	Submit(item core.WorkItem, wait time.Duration) error
	SubmitAfter(item core.WorkItem, delay, wait time.Duration) error
}

// The core types satisfy the contracts.
var (
	_ Mailbox       = (*core.Task)(nil)
	_ WorkSubmitter = (*core.Dispatcher)(nil)
)
