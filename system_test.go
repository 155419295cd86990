package taskmsg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

func quietSystemConfig(name string) SystemConfig {
	cfg := DefaultSystemConfig(name)
	cfg.Logger = &core.NoOpLogger{}
	return cfg
}

// TestSystem_NewTaskInjectsDefaults verifies default injection
// Given: A system with custom channel defaults
// When: Tasks are created with zero-value and with explicit options
// Then: Zero-value fields take the system defaults, explicit ones survive
func TestSystem_NewTaskInjectsDefaults(t *testing.T) {
	// Arrange
	cfg := quietSystemConfig("custom")
	cfg.NotifyCapacity = 4
	cfg.RingCapacity = 64
	s := NewSystem(cfg)
	defer s.Close()

	idle := func(ctx context.Context, self *core.Task) { <-ctx.Done() }

	// Act
	defaulted, err := s.NewTask(1, "defaulted", idle, core.TaskOptions{})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	explicit, err := s.NewTask(1, "explicit", idle, core.TaskOptions{
		NotifyCapacity: 2,
		RingCapacity:   32,
	})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}

	// Assert
	if got := defaulted.Stats().Notify.Capacity; got != 4 {
		t.Errorf("Defaulted notify capacity = %d, want 4", got)
	}
	if got := defaulted.Stats().Data.Capacity; got != 64 {
		t.Errorf("Defaulted ring capacity = %d, want 64", got)
	}
	if got := explicit.Stats().Notify.Capacity; got != 2 {
		t.Errorf("Explicit notify capacity = %d, want 2", got)
	}
	if got := explicit.Stats().Data.Capacity; got != 32 {
		t.Errorf("Explicit ring capacity = %d, want 32", got)
	}

	stats := s.Stats()
	if stats.Tasks != 2 || stats.Registered != 2 {
		t.Errorf("System stats = %+v, want 2 tasks and 2 registered", stats)
	}
}

// TestSystem_NewDispatcherRuns verifies end-to-end work through a system
// Given: A system-built dispatcher
// When: Work is submitted
// Then: It executes, and the dispatcher carries the dispatcher kind
func TestSystem_NewDispatcherRuns(t *testing.T) {
	// Arrange
	s := NewSystem(quietSystemConfig("sys"))
	defer s.Close()

	d, err := s.NewDispatcher(core.DispatcherConfig{Name: "worker"})
	if err != nil {
		t.Fatalf("NewDispatcher() = %v, want nil", err)
	}
	if got := d.Identity().Kind; got != core.KindDispatcher {
		t.Errorf("Dispatcher kind = 0x%02x, want 0x%02x", got, core.KindDispatcher)
	}
	d.Start(context.Background())

	// Act
	ran := make(chan struct{}, 1)
	err = d.Submit(core.WorkItem{Fn: func(args any) []byte {
		ran <- struct{}{}
		return nil
	}}, core.Forever)
	if err != nil {
		t.Fatalf("Submit() = %v, want nil", err)
	}

	// Assert
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Work did not execute")
	}
	if got := s.Stats().Dispatchers; got != 1 {
		t.Errorf("Dispatchers = %d, want 1", got)
	}
}

// TestSystem_CloseClosesEverything verifies teardown
// Main test items:
//  1. Close stops every tracked task and dispatcher
//  2. The registry is empty afterwards
//  3. Creation after Close fails with ErrClosed; Close twice is a no-op
func TestSystem_CloseClosesEverything(t *testing.T) {
	// Arrange
	s := NewSystem(quietSystemConfig("sys"))

	idle := func(ctx context.Context, self *core.Task) {
		for {
			if _, err := self.ReceiveNotification(core.Forever); err != nil {
				return
			}
		}
	}
	t1, err := s.NewTask(1, "one", idle, core.TaskOptions{})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	t2, err := s.NewTask(1, "two", idle, core.TaskOptions{})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	d, err := s.NewDispatcher(core.DispatcherConfig{Name: "worker"})
	if err != nil {
		t.Fatalf("NewDispatcher() = %v, want nil", err)
	}
	t1.Start(context.Background())
	t2.Start(context.Background())
	d.Start(context.Background())

	// Act
	s.Close()
	s.Close()

	// Assert
	for _, task := range []*core.Task{t1, t2} {
		if err := task.WaitStopped(time.Second); err != nil {
			t.Errorf("Task %q did not stop: %v", task.Name(), err)
		}
	}
	if err := d.WaitStopped(time.Second); err != nil {
		t.Errorf("Dispatcher did not stop: %v", err)
	}
	if got := s.Registry().Len(); got != 0 {
		t.Errorf("Registry size after Close = %d, want 0", got)
	}
	if !s.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := s.NewTask(1, "late", idle, core.TaskOptions{}); !errors.Is(err, core.ErrClosed) {
		t.Errorf("NewTask after Close = %v, want ErrClosed", err)
	}
	if _, err := s.NewDispatcher(core.DispatcherConfig{Name: "late"}); !errors.Is(err, core.ErrClosed) {
		t.Errorf("NewDispatcher after Close = %v, want ErrClosed", err)
	}
}

// TestSystem_CloseGraceful verifies the bounded shutdown
// Given: One cooperative task and one that ignores cancellation for a while
// When: CloseGraceful runs with a short budget
// Then: The cooperative case returns nil, the stubborn one ErrTimeout
func TestSystem_CloseGraceful(t *testing.T) {
	// Arrange - cooperative
	s := NewSystem(quietSystemConfig("polite"))
	task, err := s.NewTask(1, "cooperative", func(ctx context.Context, self *core.Task) {
		<-ctx.Done()
	}, core.TaskOptions{})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	task.Start(context.Background())

	// Act + Assert
	if err := s.CloseGraceful(time.Second); err != nil {
		t.Errorf("CloseGraceful(cooperative) = %v, want nil", err)
	}

	// Arrange - stubborn: plain sleep ignores Close until it wakes
	s2 := NewSystem(quietSystemConfig("stubborn"))
	slow, err := s2.NewTask(1, "slow", func(ctx context.Context, self *core.Task) {
		time.Sleep(300 * time.Millisecond)
	}, core.TaskOptions{})
	if err != nil {
		t.Fatalf("NewTask() = %v, want nil", err)
	}
	slow.Start(context.Background())

	// Act + Assert
	if err := s2.CloseGraceful(30 * time.Millisecond); !errors.Is(err, core.ErrTimeout) {
		t.Errorf("CloseGraceful(stubborn) = %v, want ErrTimeout", err)
	}

	// Let the goroutine drain before the test binary moves on
	slow.WaitStopped(time.Second)
}
