package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultWorkQueueDepth bounds how many submitted items a dispatcher holds
// before Submit blocks or fails.
const DefaultWorkQueueDepth = 3

// DefaultRouteWait bounds how long a dispatcher spends pushing a result back
// toward a slow submitter before dropping it.
const DefaultRouteWait = 100 * time.Millisecond

// DispatcherConfig configures a work dispatcher. Zero-value fields fall back
// to defaults.
type DispatcherConfig struct {
	// Name identifies the dispatcher in logs, metrics and history.
	Name string

	// Kind is the identity kind the dispatcher registers under. Defaults to
	// KindDispatcher.
	Kind uint8

	// QueueDepth bounds the number of in-flight work items. It sizes both
	// the notification queue and the record ring, so depth is enforced at
	// the channel layer rather than by a separate counter. Defaults to
	// DefaultWorkQueueDepth.
	QueueDepth int

	// RouteWait bounds result delivery back to the submitter. A submitter
	// that cannot absorb its result within this budget loses it. Defaults
	// to DefaultRouteWait; pass Forever to never drop.
	RouteWait time.Duration

	// HistoryCapacity bounds the execution history ring. Defaults to 100.
	HistoryCapacity int

	// LockOSThread pins the dispatch goroutine to one OS thread.
	LockOSThread bool

	// Logger, Metrics, PanicHandler and DropHandler default to
	// NewDefaultLogger, NilMetrics, DefaultPanicHandler and
	// DefaultDropHandler.
	Logger       Logger
	Metrics      Metrics
	PanicHandler PanicHandler
	DropHandler  DropHandler
}

// DefaultDispatcherConfig returns the configuration used when callers pass
// the zero value, with the given name.
func DefaultDispatcherConfig(name string) DispatcherConfig {
	return DispatcherConfig{
		Name:            name,
		Kind:            KindDispatcher,
		QueueDepth:      DefaultWorkQueueDepth,
		RouteWait:       DefaultRouteWait,
		HistoryCapacity: defaultHistoryCapacity,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Name == "" {
		c.Name = "dispatcher"
	}
	if c.Kind == 0 {
		c.Kind = KindDispatcher
	}
	if c.QueueDepth < 1 {
		c.QueueDepth = DefaultWorkQueueDepth
	}
	if c.RouteWait == 0 {
		c.RouteWait = DefaultRouteWait
	}
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{}
	}
	if c.DropHandler == nil {
		c.DropHandler = &DefaultDropHandler{}
	}
	return c
}

// Dispatcher executes submitted work functions one at a time on a dedicated
// task. Submission travels through the dispatcher's own channels: the wire
// record goes into its data ring and a work-pending notification into its
// queue, so backpressure, ordering and shutdown all come from the channel
// layer.
//
// The dispatch loop runs a fixed cycle per item:
//
//	WAIT      block on the notification queue for a work-pending notice
//	VALIDATE  pull the record, reject anything that is not exactly
//	          WorkItemWireSize bytes or does not match a parked item
//	EXECUTE   run the work function synchronously, containing panics
//	ROUTE     send the result and a completion notification back to the
//	          submitter, bounded by RouteWait
//
// Work functions run strictly in submission order with no concurrency
// between them. Anything rejected in VALIDATE is logged with the claimed
// sender identity and counted; it never reaches EXECUTE.
type Dispatcher struct {
	cfg  DispatcherConfig
	task *Task

	pending *pendingStore
	history executionHistory
	delayed *delayedSubmitter

	submitted     atomic.Uint64
	executed      atomic.Uint64
	rejected      atomic.Uint64
	panics        atomic.Uint64
	routeFailures atomic.Uint64

	closed atomic.Bool
}

// NewDispatcher registers a dispatcher task in reg and prepares its work
// channels. The dispatcher does not consume work until Start.
func NewDispatcher(reg *Registry, cfg DispatcherConfig) (*Dispatcher, error) {
	cfg = cfg.withDefaults()

	d := &Dispatcher{
		cfg:     cfg,
		pending: newPendingStore(),
		history: newExecutionHistory(cfg.HistoryCapacity),
	}

	task, err := NewTask(reg, cfg.Kind, cfg.Name, d.runLoop, TaskOptions{
		NotifyCapacity: cfg.QueueDepth,
		RingCapacity:   RingSizeFor(WorkItemWireSize, cfg.QueueDepth),
		LockOSThread:   cfg.LockOSThread,
		Logger:         cfg.Logger,
		Metrics:        cfg.Metrics,
		PanicHandler:   cfg.PanicHandler,
	})
	if err != nil {
		return nil, fmt.Errorf("new dispatcher %q: %w", cfg.Name, err)
	}
	d.task = task
	d.delayed = newDelayedSubmitter(d.submitLate)
	return d, nil
}

// Start launches the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	return d.task.Start(ctx)
}

// Name returns the dispatcher's name.
func (d *Dispatcher) Name() string {
	return d.cfg.Name
}

// Identity returns the dispatcher task's registry identity. Peers may send
// notifications to it directly, though anything that is not a work-pending
// notice is ignored.
func (d *Dispatcher) Identity() Identity {
	return d.task.Identity()
}

// Task exposes the underlying task, mainly for stats and registry snapshots.
func (d *Dispatcher) Task() *Task {
	return d.task
}

// =============================================================================
// Submission
// =============================================================================

// Submit parks the work item and pushes its wire record through the
// dispatcher's data channel, blocking up to wait when QueueDepth items are
// already in flight. The record's completion notification reuses the
// submitter-facing protocol, so a successful Submit guarantees the dispatch
// loop will observe exactly one work-pending notice for this item.
//
// A zero item.ReplyTo makes the item fire-and-forget: it executes, but no
// result or completion notification is routed anywhere.
func (d *Dispatcher) Submit(item WorkItem, wait time.Duration) error {
	if item.Fn == nil {
		return ErrNilWorkFunc
	}
	if d.closed.Load() {
		return fmt.Errorf("submit to %q: %w", d.cfg.Name, ErrClosed)
	}

	token := uuid.New()
	d.pending.park(token, &pendingWork{
		fn:          item.Fn,
		args:        item.Args,
		replyTo:     item.ReplyTo,
		notifyValue: item.NotifyValue,
		submittedAt: time.Now(),
	})

	rec := encodeWorkRecord(token, item.ReplyTo, item.NotifyValue)
	if err := d.task.data.send(item.ReplyTo, rec, wait, true, workPendingValue); err != nil {
		d.pending.remove(token)
		d.cfg.Metrics.RecordWorkRejected(d.cfg.Name, dropReason(err))
		return fmt.Errorf("submit to %q: %w", d.cfg.Name, err)
	}

	d.submitted.Add(1)
	d.cfg.Metrics.RecordWorkSubmitted(d.cfg.Name)
	d.cfg.Logger.Debug("work submitted",
		F("dispatcher", d.cfg.Name),
		F("token", token.String()),
		FIdentity("replyTo", item.ReplyTo))
	return nil
}

// SubmitAfter schedules item for submission once delay has elapsed, applying
// wait as the send budget at fire time. Items whose submission fails at fire
// time are logged and dropped; there is no retry.
func (d *Dispatcher) SubmitAfter(item WorkItem, delay, wait time.Duration) error {
	if item.Fn == nil {
		return ErrNilWorkFunc
	}
	if d.closed.Load() {
		return fmt.Errorf("submit to %q: %w", d.cfg.Name, ErrClosed)
	}
	if delay <= 0 {
		return d.Submit(item, wait)
	}
	d.delayed.schedule(item, delay, wait)
	return nil
}

// submitLate is the delayed submitter's fire callback.
func (d *Dispatcher) submitLate(item WorkItem, wait time.Duration) {
	if err := d.Submit(item, wait); err != nil {
		d.cfg.Logger.Warn("delayed work item not submitted",
			F("dispatcher", d.cfg.Name),
			FErr(err))
	}
}

// =============================================================================
// Dispatch loop
// =============================================================================

func (d *Dispatcher) runLoop(ctx context.Context, self *Task) {
	log := d.cfg.Logger
	log.Info("dispatcher started",
		F("name", d.cfg.Name),
		FIdentity("identity", self.Identity()),
		F("depth", d.cfg.QueueDepth))
	defer log.Info("dispatcher stopped", F("name", d.cfg.Name))

	for {
		// WAIT
		n, err := self.ReceiveNotification(Forever)
		if err != nil {
			return
		}
		if n.Value != workPendingValue {
			log.Debug("ignoring unrelated notification",
				F("dispatcher", d.cfg.Name),
				FIdentity("sender", n.Sender),
				F("value", n.Value))
			continue
		}

		// VALIDATE
		p, err := self.ReceiveData(NoWait)
		if err != nil {
			// Every work-pending notice is paired with a committed record,
			// so a miss here means someone forged the notification.
			log.Warn("work notification without record",
				F("dispatcher", d.cfg.Name),
				FIdentity("sender", n.Sender),
				FErr(err))
			d.reject(n.Sender, "missing record")
			continue
		}
		if len(p) != WorkItemWireSize {
			size := len(p)
			_ = self.ReleaseData(p)
			log.Warn("work record size mismatch",
				F("dispatcher", d.cfg.Name),
				F("got", size),
				F("want", WorkItemWireSize),
				FIdentity("sender", n.Sender))
			d.reject(n.Sender, "size mismatch")
			continue
		}
		token, replyTo, notifyValue, err := decodeWorkRecord(p)
		_ = self.ReleaseData(p) // decoded, slot can carry the next record
		if err != nil {
			log.Warn("work record rejected",
				F("dispatcher", d.cfg.Name),
				FIdentity("sender", n.Sender),
				FErr(err))
			d.reject(n.Sender, "malformed record")
			continue
		}
		w, ok := d.pending.take(token)
		if !ok {
			log.Warn("work token not pending",
				F("dispatcher", d.cfg.Name),
				F("token", token.String()),
				FIdentity("sender", n.Sender))
			d.reject(n.Sender, "unknown token")
			continue
		}

		// EXECUTE
		started := time.Now()
		result, panicked := d.execute(ctx, self, w)
		finished := time.Now()
		d.executed.Add(1)
		d.cfg.Metrics.RecordWorkExecuted(d.cfg.Name, finished.Sub(started), !panicked)

		record := ExecutionRecord{
			Token:       token.String(),
			Submitter:   n.Sender,
			NotifyValue: notifyValue,
			StartedAt:   started,
			FinishedAt:  finished,
			Duration:    finished.Sub(started),
			Panicked:    panicked,
			ResultBytes: len(result),
		}

		// ROUTE
		if !panicked {
			record.Routed = d.route(self, replyTo, notifyValue, result)
		}
		d.history.Add(record)
	}
}

// execute runs one work function, containing any panic to this item.
func (d *Dispatcher) execute(ctx context.Context, self *Task, w *pendingWork) (result []byte, panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			panicked = true
			d.panics.Add(1)
			d.cfg.PanicHandler.HandlePanic(ctx, d.cfg.Name, self.Identity(), rec, debug.Stack())
		}
	}()
	return w.fn(w.args), false
}

// route delivers the outcome back to the submitter: result bytes plus a
// completion notification when the work function produced output, the
// notification alone when it returned nothing. Delivery is bounded by
// RouteWait; a submitter that cannot take delivery loses the result, and
// per the ordering protocol a result that never commits sends no
// notification either.
func (d *Dispatcher) route(self *Task, replyTo Identity, value uint16, result []byte) bool {
	if replyTo.IsZero() {
		return false
	}

	var err error
	if len(result) > 0 {
		err = self.SendDataTo(replyTo, result, d.cfg.RouteWait, true, value)
	} else {
		err = self.SendNotificationTo(replyTo, value, d.cfg.RouteWait)
	}
	if err != nil {
		d.routeFailures.Add(1)
		d.cfg.Logger.Warn("work result dropped",
			F("dispatcher", d.cfg.Name),
			FIdentity("target", replyTo),
			F("bytes", len(result)),
			FErr(err))
		d.cfg.DropHandler.HandleDrop(d.cfg.Name, replyTo, "route failure")
		return false
	}
	return true
}

func (d *Dispatcher) reject(sender Identity, reason string) {
	d.rejected.Add(1)
	d.cfg.Metrics.RecordWorkRejected(d.cfg.Name, reason)
	d.cfg.DropHandler.HandleDrop(d.cfg.Name, sender, reason)
}

// =============================================================================
// Shutdown and observability
// =============================================================================

// Close stops accepting work, drops anything still delayed or parked, and
// closes the underlying task. Blocked submitters are released with
// ErrClosed. Closing twice is a no-op.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.delayed.stop()
	d.task.Close()

	if n := d.pending.drain(); n > 0 {
		d.rejected.Add(uint64(n))
		d.cfg.Logger.Warn("dispatcher closed with work pending",
			F("name", d.cfg.Name),
			F("dropped", n))
	}
}

// WaitStopped blocks until the dispatch loop has returned, up to wait.
func (d *Dispatcher) WaitStopped(wait time.Duration) error {
	return d.task.WaitStopped(wait)
}

// Stats returns a point-in-time snapshot of the dispatcher's counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Name:          d.cfg.Name,
		Identity:      d.task.Identity(),
		Submitted:     d.submitted.Load(),
		Executed:      d.executed.Load(),
		Rejected:      d.rejected.Load(),
		Panics:        d.panics.Load(),
		RouteFailures: d.routeFailures.Load(),
		Pending:       d.pending.count(),
		Delayed:       d.delayed.count(),
	}
}

// History returns the most recent executions, newest first, up to limit.
// A limit of 0 or less returns everything retained.
func (d *Dispatcher) History(limit int) []ExecutionRecord {
	return d.history.Recent(limit)
}
