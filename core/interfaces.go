package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task body or a submitted work function
// panics. The panic is contained to the task's goroutine; the handler
// decides what to do with it (log, report, crash on purpose).
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called with the context of the panicked goroutine.
	//
	// Parameters:
	// - ctx: The context the task was started with
	// - taskName: The name of the task whose goroutine panicked
	// - identity: The task's identity
	// - panicInfo: The panic value recovered from the goroutine
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, taskName string, identity Identity, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, taskName string, identity Identity, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Task %s %s] Panic: %v\nStack trace:\n%s",
		taskName, identity, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting messaging metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.); see observability/prometheus for a ready-made exporter.
//
// Methods should be non-blocking and fast: several of them sit on the send
// and receive paths.
type Metrics interface {
	// RecordNotificationSent records one delivered notification.
	//
	// Parameters:
	// - taskName: The name of the destination task
	// - front: Whether the notification was front-inserted
	RecordNotificationSent(taskName string, front bool)

	// RecordNotificationDropped records a notification that was not
	// delivered (timeout, full queue, unresolved target, closed channel).
	RecordNotificationDropped(taskName string, reason string)

	// RecordDataSent records one payload committed to a task's ring buffer.
	//
	// Parameters:
	// - taskName: The name of the destination task
	// - bytes: The payload size
	RecordDataSent(taskName string, bytes int)

	// RecordDataSendFailure records a data send that failed before commit
	// (mutex timeout, insufficient space, closed channel).
	RecordDataSendFailure(taskName string, reason string)

	// RecordWorkSubmitted records one work item accepted by a dispatcher.
	RecordWorkSubmitted(dispatcherName string)

	// RecordWorkExecuted records one work function invocation.
	//
	// Parameters:
	// - dispatcherName: The name of the dispatcher that ran the item
	// - duration: How long the work function took
	// - ok: False when the work function panicked
	RecordWorkExecuted(dispatcherName string, duration time.Duration, ok bool)

	// RecordWorkRejected records a work item dropped before execution
	// (size mismatch, unknown token, dispatcher shutdown).
	RecordWorkRejected(dispatcherName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordNotificationSent is a no-op.
func (m *NilMetrics) RecordNotificationSent(taskName string, front bool) {
}

// RecordNotificationDropped is a no-op.
func (m *NilMetrics) RecordNotificationDropped(taskName string, reason string) {
}

// RecordDataSent is a no-op.
func (m *NilMetrics) RecordDataSent(taskName string, bytes int) {
}

// RecordDataSendFailure is a no-op.
func (m *NilMetrics) RecordDataSendFailure(taskName string, reason string) {
}

// RecordWorkSubmitted is a no-op.
func (m *NilMetrics) RecordWorkSubmitted(dispatcherName string) {
}

// RecordWorkExecuted is a no-op.
func (m *NilMetrics) RecordWorkExecuted(dispatcherName string, duration time.Duration, ok bool) {
}

// RecordWorkRejected is a no-op.
func (m *NilMetrics) RecordWorkRejected(dispatcherName string, reason string) {
}

// =============================================================================
// DropHandler: Interface for handling dropped messages and work items
// =============================================================================

// DropHandler is called when a message or work item is dropped. This can
// happen when:
// - A work item fails size validation or carries an unknown token
// - A result cannot be routed back to its submitter
// - A dispatcher shuts down with parked work still pending
//
// Implementations should be thread-safe as they may be called concurrently.
type DropHandler interface {
	// HandleDrop is called when something addressed to or produced for a
	// task is discarded.
	//
	// Parameters:
	// - taskName: The name of the task doing the dropping
	// - sender: The identity the dropped item claimed as its origin
	// - reason: Why the item was dropped (e.g., "size mismatch")
	HandleDrop(taskName string, sender Identity, reason string)
}

// DefaultDropHandler provides a basic handler that logs dropped items.
type DefaultDropHandler struct{}

// HandleDrop logs the dropped item.
func (h *DefaultDropHandler) HandleDrop(taskName string, sender Identity, reason string) {
	fmt.Printf("[Task %s] Dropped item from %s: %s\n", taskName, sender, reason)
}
