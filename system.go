package taskmsg

import (
	"fmt"
	"sync"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// SystemConfig carries the defaults a System injects into every task and
// dispatcher it creates. Zero-value fields fall back to the core defaults.
type SystemConfig struct {
	// Name identifies the system in logs.
	Name string

	// NotifyCapacity and RingCapacity are the per-task channel defaults.
	NotifyCapacity int
	RingCapacity   int

	// QueueDepth, RouteWait and HistoryCapacity are the dispatcher defaults.
	QueueDepth      int
	RouteWait       time.Duration
	HistoryCapacity int

	// Log configures the logging adapter for deployments that build their
	// logger from configuration; see LoadConfig. It is carried, not applied:
	// construct the adapter and set Logger.
	Log LogConfig

	// Logger, Metrics, PanicHandler and DropHandler are shared by everything
	// the system creates, unless overridden per task or dispatcher.
	Logger       core.Logger
	Metrics      core.Metrics
	PanicHandler core.PanicHandler
	DropHandler  core.DropHandler
}

// DefaultSystemConfig returns the configuration used when callers pass the
// zero value, with the given name.
func DefaultSystemConfig(name string) SystemConfig {
	return SystemConfig{
		Name:            name,
		NotifyCapacity:  core.DefaultNotifyCapacity,
		RingCapacity:    core.DefaultRingCapacity,
		QueueDepth:      core.DefaultWorkQueueDepth,
		RouteWait:       core.DefaultRouteWait,
		HistoryCapacity: 100,
	}
}

func (c SystemConfig) withDefaults() SystemConfig {
	if c.Name == "" {
		c.Name = "taskmsg"
	}
	if c.NotifyCapacity < 1 {
		c.NotifyCapacity = core.DefaultNotifyCapacity
	}
	if c.RingCapacity < 1 {
		c.RingCapacity = core.DefaultRingCapacity
	}
	if c.QueueDepth < 1 {
		c.QueueDepth = core.DefaultWorkQueueDepth
	}
	if c.RouteWait == 0 {
		c.RouteWait = core.DefaultRouteWait
	}
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = 100
	}
	if c.Logger == nil {
		c.Logger = core.NewDefaultLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &core.NilMetrics{}
	}
	if c.PanicHandler == nil {
		c.PanicHandler = &core.DefaultPanicHandler{}
	}
	if c.DropHandler == nil {
		c.DropHandler = &core.DefaultDropHandler{}
	}
	return c
}

// System bundles one identity registry with shared defaults, and tracks what
// it creates so one Close tears the whole arrangement down. Tasks and
// dispatchers built elsewhere against Registry() are not tracked; their
// lifecycle stays with their creator.
type System struct {
	cfg      SystemConfig
	registry *core.Registry

	mu          sync.Mutex
	tasks       []*core.Task
	dispatchers []*core.Dispatcher
	closed      bool
}

// SystemStats is a point-in-time snapshot of a system.
type SystemStats struct {
	Name        string
	Tasks       int
	Dispatchers int
	Registered  int
}

// NewSystem creates a system with its own registry.
func NewSystem(cfg SystemConfig) *System {
	return &System{
		cfg:      cfg.withDefaults(),
		registry: core.NewRegistry(),
	}
}

// Name returns the system's name.
func (s *System) Name() string {
	return s.cfg.Name
}

// Registry exposes the system's identity directory.
func (s *System) Registry() *core.Registry {
	return s.registry
}

// NewTask creates a task in the system's registry, filling unset option
// fields from the system defaults. The task is tracked and closed by the
// system's Close.
func (s *System) NewTask(kind uint8, name string, fn core.TaskFunc, opts core.TaskOptions) (*core.Task, error) {
	if opts.NotifyCapacity < 1 {
		opts.NotifyCapacity = s.cfg.NotifyCapacity
	}
	if opts.RingCapacity < 1 && !opts.NoDataChannel {
		opts.RingCapacity = s.cfg.RingCapacity
	}
	if opts.Logger == nil {
		opts.Logger = s.cfg.Logger
	}
	if opts.Metrics == nil {
		opts.Metrics = s.cfg.Metrics
	}
	if opts.PanicHandler == nil {
		opts.PanicHandler = s.cfg.PanicHandler
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("system %q: %w", s.cfg.Name, core.ErrClosed)
	}
	s.mu.Unlock()

	task, err := core.NewTask(s.registry, kind, name, fn, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return task, nil
}

// NewDispatcher creates a work dispatcher in the system's registry, filling
// unset config fields from the system defaults. The dispatcher is tracked
// and closed by the system's Close.
func (s *System) NewDispatcher(cfg core.DispatcherConfig) (*core.Dispatcher, error) {
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = s.cfg.QueueDepth
	}
	if cfg.RouteWait == 0 {
		cfg.RouteWait = s.cfg.RouteWait
	}
	if cfg.HistoryCapacity < 1 {
		cfg.HistoryCapacity = s.cfg.HistoryCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = s.cfg.Logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = s.cfg.Metrics
	}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = s.cfg.PanicHandler
	}
	if cfg.DropHandler == nil {
		cfg.DropHandler = s.cfg.DropHandler
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("system %q: %w", s.cfg.Name, core.ErrClosed)
	}
	s.mu.Unlock()

	d, err := core.NewDispatcher(s.registry, cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dispatchers = append(s.dispatchers, d)
	s.mu.Unlock()
	return d, nil
}

// Close stops everything the system created: dispatchers first, since they
// route into tasks, then the tasks. Closing twice is a no-op.
func (s *System) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dispatchers := s.dispatchers
	tasks := s.tasks
	s.dispatchers = nil
	s.tasks = nil
	s.mu.Unlock()

	for _, d := range dispatchers {
		d.Close()
	}
	for _, t := range tasks {
		t.Close()
	}
}

// CloseGraceful closes the system and waits for every stopped goroutine to
// return, up to timeout across the whole shutdown. It returns ErrTimeout
// when the budget runs out with goroutines still winding down.
func (s *System) CloseGraceful(timeout time.Duration) error {
	s.mu.Lock()
	dispatchers := append([]*core.Dispatcher(nil), s.dispatchers...)
	tasks := append([]*core.Task(nil), s.tasks...)
	s.mu.Unlock()

	s.Close()

	// A negative timeout keeps the module's Forever convention. For bounded
	// budgets, an exhausted deadline must clamp to NoWait rather than fall
	// through into the negative Forever sentinel.
	deadline := time.Now().Add(timeout)
	remaining := func() time.Duration {
		if timeout < 0 {
			return core.Forever
		}
		r := time.Until(deadline)
		if r < 0 {
			return core.NoWait
		}
		return r
	}

	for _, d := range dispatchers {
		if err := d.WaitStopped(remaining()); err != nil {
			return fmt.Errorf("system %q: dispatcher %q did not stop: %w", s.cfg.Name, d.Name(), err)
		}
	}
	for _, t := range tasks {
		if err := t.WaitStopped(remaining()); err != nil {
			return fmt.Errorf("system %q: task %q did not stop: %w", s.cfg.Name, t.Name(), err)
		}
	}
	return nil
}

// IsClosed reports whether Close has run.
func (s *System) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stats returns a snapshot of the system's size.
func (s *System) Stats() SystemStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SystemStats{
		Name:        s.cfg.Name,
		Tasks:       len(s.tasks),
		Dispatchers: len(s.dispatchers),
		Registered:  s.registry.Len(),
	}
}
