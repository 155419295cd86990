package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mustNewTask builds and registers a task, failing the test on error.
func mustNewTask(t *testing.T, reg *Registry, kind uint8, name string, fn TaskFunc, opts TaskOptions) *Task {
	t.Helper()
	task, err := NewTask(reg, kind, name, fn, opts)
	if err != nil {
		t.Fatalf("NewTask(%q) = %v, want nil", name, err)
	}
	return task
}

// quietOpts keeps task logging out of test output.
func quietOpts() TaskOptions {
	return TaskOptions{Logger: &NoOpLogger{}}
}

// TestTask_StartAndClose verifies the basic lifecycle
// Main test items:
// 1. NewTask registers an identity without running the body
// 2. Start launches the body on its own goroutine
// 3. Close stops the body, and the identity leaves the registry
func TestTask_StartAndClose(t *testing.T) {
	reg := NewRegistry()

	var entered atomic.Bool
	task := mustNewTask(t, reg, 1, "worker", func(ctx context.Context, self *Task) {
		entered.Store(true)
		<-ctx.Done()
	}, quietOpts())

	// Registered but not running
	if task.Identity().IsZero() {
		t.Error("Identity() is zero after NewTask")
	}
	if task.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
	if entered.Load() {
		t.Error("Body entered before Start")
	}

	// Start
	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	time.Sleep(30 * time.Millisecond)
	if !entered.Load() {
		t.Error("Body did not enter after Start")
	}
	if !task.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	// Close
	task.Close()
	if err := task.WaitStopped(time.Second); err != nil {
		t.Fatalf("WaitStopped() = %v, want nil", err)
	}
	if task.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
	if _, ok := reg.Resolve(task.Identity()); ok {
		t.Error("Identity still resolvable after Close")
	}
}

// TestTask_StartTwice verifies double start is refused
func TestTask_StartTwice(t *testing.T) {
	reg := NewRegistry()
	task := mustNewTask(t, reg, 1, "once", func(ctx context.Context, self *Task) {
		<-ctx.Done()
	}, quietOpts())
	defer task.Close()

	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	if err := task.Start(context.Background()); err == nil {
		t.Error("Second Start() = nil, want error")
	}
}

// TestTask_StartAfterClose verifies a closed task cannot restart
func TestTask_StartAfterClose(t *testing.T) {
	reg := NewRegistry()
	task := mustNewTask(t, reg, 1, "gone", func(ctx context.Context, self *Task) {}, quietOpts())

	task.Close()
	if err := task.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}

	// WaitStopped returns immediately for a never-started closed task
	if err := task.WaitStopped(NoWait); err != nil {
		t.Errorf("WaitStopped() = %v, want nil", err)
	}
}

// TestTask_NotificationRoundTrip verifies task-to-task notification delivery
// Given: A receiver task blocked on its queue and a sender task
// When: The sender delivers a notification by task handle and by identity
// Then: The receiver observes the sender's identity and value on both
func TestTask_NotificationRoundTrip(t *testing.T) {
	reg := NewRegistry()

	got := make(chan Notification, 2)
	receiver := mustNewTask(t, reg, 1, "receiver", func(ctx context.Context, self *Task) {
		for {
			n, err := self.ReceiveNotification(Forever)
			if err != nil {
				return
			}
			got <- n
		}
	}, quietOpts())
	defer receiver.Close()

	sendErr := make(chan error, 2)
	sender := mustNewTask(t, reg, 2, "sender", func(ctx context.Context, self *Task) {
		sendErr <- self.SendNotification(receiver, 0x0011, NoWait)
		sendErr <- self.SendNotificationTo(receiver.Identity(), 0x0022, NoWait)
	}, quietOpts())
	defer sender.Close()

	if err := receiver.Start(context.Background()); err != nil {
		t.Fatalf("receiver.Start() = %v, want nil", err)
	}
	if err := sender.Start(context.Background()); err != nil {
		t.Fatalf("sender.Start() = %v, want nil", err)
	}

	for _, wantValue := range []uint16{0x0011, 0x0022} {
		if err := <-sendErr; err != nil {
			t.Fatalf("send = %v, want nil", err)
		}
		select {
		case n := <-got:
			if n.Sender != sender.Identity() {
				t.Errorf("Sender = %v, want %v", n.Sender, sender.Identity())
			}
			if n.Value != wantValue {
				t.Errorf("Value = 0x%04x, want 0x%04x", n.Value, wantValue)
			}
		case <-time.After(time.Second):
			t.Fatal("Notification was not delivered")
		}
	}
}

// TestTask_SendToUnknownIdentity verifies stale identities fail cleanly
func TestTask_SendToUnknownIdentity(t *testing.T) {
	reg := NewRegistry()
	errs := make(chan error, 1)
	sender := mustNewTask(t, reg, 1, "sender", func(ctx context.Context, self *Task) {
		errs <- self.SendNotificationTo(Identity{Kind: 9, ID: 9}, 1, NoWait)
	}, quietOpts())
	defer sender.Close()

	sender.Start(context.Background())
	select {
	case err := <-errs:
		if !errors.Is(err, ErrUnknownTarget) {
			t.Errorf("SendNotificationTo(stale) = %v, want ErrUnknownTarget", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sender body did not run")
	}
}

// TestTask_SuspendResume verifies the cooperative suspend gate
// Given: A task suspended before its body first blocks
// When: Peers send notifications while it is suspended
// Then: The notifications queue up and are processed only after Resume
func TestTask_SuspendResume(t *testing.T) {
	reg := NewRegistry()

	var processed atomic.Int32
	task := mustNewTask(t, reg, 1, "pausable", func(ctx context.Context, self *Task) {
		for {
			if _, err := self.ReceiveNotification(Forever); err != nil {
				return
			}
			processed.Add(1)
		}
	}, quietOpts())
	defer task.Close()

	// Suspend before the body reaches its first receive
	task.Suspend()
	if !task.IsSuspended() {
		t.Fatal("IsSuspended() = false after Suspend")
	}
	task.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	// Sends still land while the owner is parked
	sender := mustNewTask(t, reg, 2, "sender", func(ctx context.Context, self *Task) {
		self.SendNotification(task, 1, NoWait)
		self.SendNotification(task, 2, NoWait)
	}, quietOpts())
	defer sender.Close()
	sender.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	if n := processed.Load(); n != 0 {
		t.Errorf("Processed %d notifications while suspended, want 0", n)
	}
	if depth := task.Stats().Notify.Depth; depth != 2 {
		t.Errorf("Queue depth while suspended = %d, want 2", depth)
	}

	// Resume releases the backlog
	task.Resume()
	deadline := time.Now().Add(time.Second)
	for processed.Load() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := processed.Load(); n != 2 {
		t.Errorf("Processed after Resume = %d, want 2", n)
	}

	// Suspending and resuming twice is safe
	task.Suspend()
	task.Suspend()
	task.Resume()
	task.Resume()
}

// TestTask_SleepInterruptedByClose verifies Sleep unblocks on shutdown
func TestTask_SleepInterruptedByClose(t *testing.T) {
	reg := NewRegistry()

	slept := make(chan bool, 1)
	task := mustNewTask(t, reg, 1, "sleeper", func(ctx context.Context, self *Task) {
		slept <- self.Sleep(10 * time.Second)
	}, quietOpts())

	task.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	task.Close()

	select {
	case full := <-slept:
		if full {
			t.Error("Sleep() = true after Close, want false")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Sleep returned %v after Close, want prompt", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after Close")
	}
}

// TestTask_CloseReleasesBlockedReceiver verifies shutdown releases the owner
func TestTask_CloseReleasesBlockedReceiver(t *testing.T) {
	reg := NewRegistry()

	recvErr := make(chan error, 1)
	task := mustNewTask(t, reg, 1, "blocked", func(ctx context.Context, self *Task) {
		_, err := self.ReceiveNotification(Forever)
		recvErr <- err
	}, quietOpts())

	task.Start(context.Background())
	time.Sleep(30 * time.Millisecond)

	task.Close()
	select {
	case err := <-recvErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Blocked ReceiveNotification after Close = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Blocked receiver was not released by Close")
	}

	// Closing twice is safe
	task.Close()
}

// TestTask_InterruptNotification verifies the interrupt-context send path
// Given: A task blocked on its notification queue
// When: SendNotificationFromInterrupt delivers to it
// Then: Delivery succeeds, the woke flag is set, and the sender is InterruptSender
func TestTask_InterruptNotification(t *testing.T) {
	reg := NewRegistry()

	got := make(chan Notification, 1)
	task := mustNewTask(t, reg, 1, "isr-target", func(ctx context.Context, self *Task) {
		n, err := self.ReceiveNotification(Forever)
		if err == nil {
			got <- n
		}
	}, quietOpts())
	defer task.Close()

	task.Start(context.Background())
	time.Sleep(50 * time.Millisecond) // let the body block

	delivered, woke := SendNotificationFromInterrupt(task, 0x00AB)
	if !delivered {
		t.Fatal("SendNotificationFromInterrupt delivered = false, want true")
	}
	if !woke {
		t.Error("SendNotificationFromInterrupt woke = false, want true for a blocked receiver")
	}

	select {
	case n := <-got:
		if n.Sender != InterruptSender {
			t.Errorf("Sender = %v, want InterruptSender %v", n.Sender, InterruptSender)
		}
		if n.Value != 0x00AB {
			t.Errorf("Value = 0x%04x, want 0x00AB", n.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("Interrupt notification was not delivered")
	}

	// Nil target is a refused delivery, not a crash
	if d, w := SendNotificationFromInterrupt(nil, 1); d || w {
		t.Errorf("SendNotificationFromInterrupt(nil) = (%v, %v), want (false, false)", d, w)
	}
}

// TestTask_PanicContained verifies a panicking body hits the handler
func TestTask_PanicContained(t *testing.T) {
	reg := NewRegistry()
	handler := NewTestPanicHandler()

	task := mustNewTask(t, reg, 1, "crasher", func(ctx context.Context, self *Task) {
		panic("boom")
	}, TaskOptions{Logger: &NoOpLogger{}, PanicHandler: handler})
	defer task.Close()

	task.Start(context.Background())
	if err := task.WaitStopped(time.Second); err != nil {
		t.Fatalf("WaitStopped() = %v, want nil", err)
	}

	calls := handler.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("Panic handler calls = %d, want 1", len(calls))
	}
	if calls[0].TaskName != "crasher" {
		t.Errorf("Panic task name = %q, want %q", calls[0].TaskName, "crasher")
	}
	if calls[0].PanicInfo != "boom" {
		t.Errorf("Panic info = %v, want %q", calls[0].PanicInfo, "boom")
	}
	if task.IsRunning() {
		t.Error("IsRunning() = true after panic")
	}
}

// TestTask_NoDataChannel verifies the data-less task configuration
func TestTask_NoDataChannel(t *testing.T) {
	reg := NewRegistry()

	lean := mustNewTask(t, reg, 1, "lean", func(ctx context.Context, self *Task) {
		<-ctx.Done()
	}, TaskOptions{Logger: &NoOpLogger{}, NoDataChannel: true})
	defer lean.Close()

	if _, err := lean.ReceiveData(NoWait); !errors.Is(err, ErrNoDataChannel) {
		t.Errorf("ReceiveData() = %v, want ErrNoDataChannel", err)
	}
	if err := lean.ReleaseData([]byte("x")); !errors.Is(err, ErrNoDataChannel) {
		t.Errorf("ReleaseData() = %v, want ErrNoDataChannel", err)
	}
	if lean.Stats().HasData {
		t.Error("Stats().HasData = true, want false")
	}

	// A peer sending data to it fails with the same error
	errs := make(chan error, 1)
	peer := mustNewTask(t, reg, 2, "peer", func(ctx context.Context, self *Task) {
		errs <- self.SendData(lean, []byte("payload"), NoWait, true, 1)
	}, quietOpts())
	defer peer.Close()
	peer.Start(context.Background())

	select {
	case err := <-errs:
		if !errors.Is(err, ErrNoDataChannel) {
			t.Errorf("SendData(no-channel target) = %v, want ErrNoDataChannel", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Peer body did not run")
	}
}

// TestTask_GetCurrentTask verifies context carries the owning task
func TestTask_GetCurrentTask(t *testing.T) {
	reg := NewRegistry()

	match := make(chan bool, 1)
	task := mustNewTask(t, reg, 1, "ctx-aware", func(ctx context.Context, self *Task) {
		match <- GetCurrentTask(ctx) == self
	}, quietOpts())
	defer task.Close()

	task.Start(context.Background())
	select {
	case ok := <-match:
		if !ok {
			t.Error("GetCurrentTask(ctx) != self inside the body")
		}
	case <-time.After(time.Second):
		t.Fatal("Body did not run")
	}

	if GetCurrentTask(context.Background()) != nil {
		t.Error("GetCurrentTask(background) != nil")
	}
}

// TestTask_WaitStoppedTimeout verifies the bounded stop wait
func TestTask_WaitStoppedTimeout(t *testing.T) {
	reg := NewRegistry()
	task := mustNewTask(t, reg, 1, "longrunner", func(ctx context.Context, self *Task) {
		<-ctx.Done()
	}, quietOpts())
	defer task.Close()

	task.Start(context.Background())
	if err := task.WaitStopped(30 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("WaitStopped(30ms) on a running task = %v, want ErrTimeout", err)
	}
}
