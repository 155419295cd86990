package core

import "time"

// QueueStats represents runtime observability state for a notification
// queue.
type QueueStats struct {
	Depth    int
	Capacity int
	Dropped  uint64
}

// RingStats represents runtime observability state for a data ring.
type RingStats struct {
	Capacity  int
	UsedBytes int
	Queued    int
	Held      int
}

// TaskStats represents runtime observability state for one task.
type TaskStats struct {
	Name      string
	Identity  Identity
	Running   bool
	Suspended bool
	Notify    QueueStats
	HasData   bool
	Data      RingStats // zero value when the task has no data channel
}

// RegistryEntry is one row of a registry snapshot.
type RegistryEntry struct {
	Identity Identity
	Name     string
	Running  bool
}

// ExecutionRecord captures a completed work item execution event.
type ExecutionRecord struct {
	Token       string
	Submitter   Identity
	NotifyValue uint16
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Panicked    bool
	ResultBytes int
	Routed      bool
}

// DispatcherStats represents runtime observability state for a work
// dispatcher.
type DispatcherStats struct {
	Name          string
	Identity      Identity
	Submitted     uint64
	Executed      uint64
	Rejected      uint64
	Panics        uint64
	RouteFailures uint64
	Pending       int
	Delayed       int
}
