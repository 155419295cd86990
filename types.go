package taskmsg

import (
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the taskmsg package for most use cases.

// Identity is the (kind, id) address of a task
type Identity = core.Identity

// Notification is the small fixed-size signal tasks exchange
type Notification = core.Notification

// Task is the schedulable unit: a dedicated goroutine plus its identity,
// notification queue, and optional data channel
type Task = core.Task

// TaskFunc is the task body, run once on the task's dedicated goroutine
type TaskFunc = core.TaskFunc

// TaskOptions configures a task's channel capacities and seams
type TaskOptions = core.TaskOptions

// Dispatcher executes submitted work items one at a time and routes results
type Dispatcher = core.Dispatcher

// DispatcherConfig configures a work dispatcher
type DispatcherConfig = core.DispatcherConfig

// WorkItem is a requested unit of work
type WorkItem = core.WorkItem

// WorkFunc is the unit of work a dispatcher executes
type WorkFunc = core.WorkFunc

// Registry is the identity directory tasks register in
type Registry = core.Registry

// RegistryEntry is one row of a registry snapshot
type RegistryEntry = core.RegistryEntry

// Logger, Field, Metrics, PanicHandler and DropHandler are the pluggable seams
type (
	Logger       = core.Logger
	Field        = core.Field
	Metrics      = core.Metrics
	PanicHandler = core.PanicHandler
	DropHandler  = core.DropHandler
)

// Stats snapshots
type (
	TaskStats       = core.TaskStats
	DispatcherStats = core.DispatcherStats
	ExecutionRecord = core.ExecutionRecord
	QueueStats      = core.QueueStats
	RingStats       = core.RingStats
)

// QueuePosition selects back or front insertion on the notification queue
type QueuePosition = core.QueuePosition

// Wait sentinels
const (
	NoWait  = core.NoWait
	Forever = core.Forever
)

// Queue positions
const (
	Back  = core.Back
	Front = core.Front
)

// Identity constants
const (
	IDNone         = core.IDNone
	IDExhausted    = core.IDExhausted
	KindDispatcher = core.KindDispatcher
	KindInterrupt  = core.KindInterrupt
)

// Default capacities
const (
	DefaultNotifyCapacity = core.DefaultNotifyCapacity
	DefaultRingCapacity   = core.DefaultRingCapacity
	DefaultWorkQueueDepth = core.DefaultWorkQueueDepth
)

// InterruptSender is the fixed sender identity of interrupt-context
// notifications.
var InterruptSender = core.InterruptSender

// Sentinel errors
var (
	ErrTimeout         = core.ErrTimeout
	ErrClosed          = core.ErrClosed
	ErrNoSpace         = core.ErrNoSpace
	ErrEmptyPayload    = core.ErrEmptyPayload
	ErrPayloadTooLarge = core.ErrPayloadTooLarge
	ErrUnknownPayload  = core.ErrUnknownPayload
	ErrKindExhausted   = core.ErrKindExhausted
	ErrReservedKind    = core.ErrReservedKind
	ErrUnknownTarget   = core.ErrUnknownTarget
	ErrNoDataChannel   = core.ErrNoDataChannel
	ErrNilWorkFunc     = core.ErrNilWorkFunc
	ErrBadWorkRecord   = core.ErrBadWorkRecord
)

// Convenience re-exports
var (
	DefaultTaskOptions      = core.DefaultTaskOptions
	DefaultDispatcherConfig = core.DefaultDispatcherConfig
	IdentityFromWord        = core.IdentityFromWord
	NotificationFromWord    = core.NotificationFromWord
	RingSizeFor             = core.RingSizeFor
	NewRegistry             = core.NewRegistry
	NewDefaultLogger        = core.NewDefaultLogger

	// GetCurrentTask retrieves the task owning the calling goroutine, if any
	GetCurrentTask = core.GetCurrentTask

	// SendNotificationFromInterrupt is the never-blocking notification path
	// for contexts without a task identity
	SendNotificationFromInterrupt = core.SendNotificationFromInterrupt

	// RawBytes is the identity result decoder for SubmitAndCollect
	RawBytes = core.RawBytes

	// SubmitAndWait submits work and blocks until its completion notification
	SubmitAndWait = core.SubmitAndWait
)

// F, FErr and FIdentity build structured log fields
var (
	F         = core.F
	FErr      = core.FErr
	FIdentity = core.FIdentity
)

// SubmitAndCollect submits fn to d on behalf of self, waits for the
// completion notification, and decodes the routed result with dec. Generic
// functions cannot be re-exported as vars, so this thin wrapper forwards to
// core.SubmitAndCollect.
func SubmitAndCollect[T any](d *Dispatcher, self *Task, fn WorkFunc, args any, notifyValue uint16, wait time.Duration, dec func(p []byte) (T, error)) (T, error) {
	return core.SubmitAndCollect(d, self, fn, args, notifyValue, wait, dec)
}
