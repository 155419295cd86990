package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/SamiFAHIM/go-taskmsg/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// TaskSnapshotProvider provides current task stats snapshots.
// *core.Task satisfies this.
type TaskSnapshotProvider interface {
	Stats() core.TaskStats
}

// DispatcherSnapshotProvider provides current dispatcher stats snapshots.
// *core.Dispatcher satisfies this.
type DispatcherSnapshotProvider interface {
	Stats() core.DispatcherStats
}

// RegistrySizeProvider provides the current registry population.
// *core.Registry satisfies this.
type RegistrySizeProvider interface {
	Len() int
}

// SnapshotPoller periodically exports task/dispatcher/registry Stats()
// snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	tasksMu sync.RWMutex
	tasks   map[string]TaskSnapshotProvider

	dispatchersMu sync.RWMutex
	dispatchers   map[string]DispatcherSnapshotProvider

	registriesMu sync.RWMutex
	registries   map[string]RegistrySizeProvider

	taskNotifyDepth   *prom.GaugeVec
	taskNotifyDropped *prom.GaugeVec
	taskDataQueued    *prom.GaugeVec
	taskDataUsed      *prom.GaugeVec
	taskDataHeld      *prom.GaugeVec
	taskRunning       *prom.GaugeVec
	taskSuspended     *prom.GaugeVec

	dispatcherPending       *prom.GaugeVec
	dispatcherDelayed       *prom.GaugeVec
	dispatcherExecuted      *prom.GaugeVec
	dispatcherRejected      *prom.GaugeVec
	dispatcherPanics        *prom.GaugeVec
	dispatcherRouteFailures *prom.GaugeVec

	registryTasks *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	taskNotifyDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_notify_depth",
		Help:      "Notifications waiting in the task's queue.",
	}, []string{"task"})
	taskNotifyDropped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_notify_dropped",
		Help:      "Notification drop count snapshot.",
	}, []string{"task"})
	taskDataQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_data_queued",
		Help:      "Payloads waiting in the task's data channel.",
	}, []string{"task"})
	taskDataUsed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_data_used_bytes",
		Help:      "Bytes occupied in the task's ring buffer.",
	}, []string{"task"})
	taskDataHeld := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_data_held",
		Help:      "Payloads received but not yet released.",
	}, []string{"task"})
	taskRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_running",
		Help:      "Task running state (1=running, 0=stopped).",
	}, []string{"task"})
	taskSuspended := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "task_suspended",
		Help:      "Task suspended state (1=suspended, 0=active).",
	}, []string{"task"})

	dispatcherPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_pending",
		Help:      "Work items parked and awaiting execution.",
	}, []string{"dispatcher"})
	dispatcherDelayed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_delayed",
		Help:      "Work items scheduled for a future submit.",
	}, []string{"dispatcher"})
	dispatcherExecuted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_executed",
		Help:      "Executed work count snapshot.",
	}, []string{"dispatcher"})
	dispatcherRejected := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_rejected",
		Help:      "Rejected work count snapshot.",
	}, []string{"dispatcher"})
	dispatcherPanics := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_panics",
		Help:      "Work panic count snapshot.",
	}, []string{"dispatcher"})
	dispatcherRouteFailures := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "dispatcher_route_failures",
		Help:      "Result routing failure count snapshot.",
	}, []string{"dispatcher"})

	registryTasks := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskmsg",
		Name:      "registry_tasks",
		Help:      "Identities currently registered.",
	}, []string{"registry"})

	var err error
	if taskNotifyDepth, err = registerCollector(reg, taskNotifyDepth); err != nil {
		return nil, err
	}
	if taskNotifyDropped, err = registerCollector(reg, taskNotifyDropped); err != nil {
		return nil, err
	}
	if taskDataQueued, err = registerCollector(reg, taskDataQueued); err != nil {
		return nil, err
	}
	if taskDataUsed, err = registerCollector(reg, taskDataUsed); err != nil {
		return nil, err
	}
	if taskDataHeld, err = registerCollector(reg, taskDataHeld); err != nil {
		return nil, err
	}
	if taskRunning, err = registerCollector(reg, taskRunning); err != nil {
		return nil, err
	}
	if taskSuspended, err = registerCollector(reg, taskSuspended); err != nil {
		return nil, err
	}
	if dispatcherPending, err = registerCollector(reg, dispatcherPending); err != nil {
		return nil, err
	}
	if dispatcherDelayed, err = registerCollector(reg, dispatcherDelayed); err != nil {
		return nil, err
	}
	if dispatcherExecuted, err = registerCollector(reg, dispatcherExecuted); err != nil {
		return nil, err
	}
	if dispatcherRejected, err = registerCollector(reg, dispatcherRejected); err != nil {
		return nil, err
	}
	if dispatcherPanics, err = registerCollector(reg, dispatcherPanics); err != nil {
		return nil, err
	}
	if dispatcherRouteFailures, err = registerCollector(reg, dispatcherRouteFailures); err != nil {
		return nil, err
	}
	if registryTasks, err = registerCollector(reg, registryTasks); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:                interval,
		tasks:                   make(map[string]TaskSnapshotProvider),
		dispatchers:             make(map[string]DispatcherSnapshotProvider),
		registries:              make(map[string]RegistrySizeProvider),
		taskNotifyDepth:         taskNotifyDepth,
		taskNotifyDropped:       taskNotifyDropped,
		taskDataQueued:          taskDataQueued,
		taskDataUsed:            taskDataUsed,
		taskDataHeld:            taskDataHeld,
		taskRunning:             taskRunning,
		taskSuspended:           taskSuspended,
		dispatcherPending:       dispatcherPending,
		dispatcherDelayed:       dispatcherDelayed,
		dispatcherExecuted:      dispatcherExecuted,
		dispatcherRejected:      dispatcherRejected,
		dispatcherPanics:        dispatcherPanics,
		dispatcherRouteFailures: dispatcherRouteFailures,
		registryTasks:           registryTasks,
	}, nil
}

// AddTask adds or replaces a task snapshot provider by name.
func (p *SnapshotPoller) AddTask(name string, provider TaskSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "task")
	p.tasksMu.Lock()
	p.tasks[name] = provider
	p.tasksMu.Unlock()
}

// AddDispatcher adds or replaces a dispatcher snapshot provider by name.
func (p *SnapshotPoller) AddDispatcher(name string, provider DispatcherSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "dispatcher")
	p.dispatchersMu.Lock()
	p.dispatchers[name] = provider
	p.dispatchersMu.Unlock()
}

// AddRegistry adds or replaces a registry size provider by name.
func (p *SnapshotPoller) AddRegistry(name string, provider RegistrySizeProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "registry")
	p.registriesMu.Lock()
	p.registries[name] = provider
	p.registriesMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.tasksMu.RLock()
	for name, provider := range p.tasks {
		stats := provider.Stats()
		p.taskNotifyDepth.WithLabelValues(name).Set(float64(stats.Notify.Depth))
		p.taskNotifyDropped.WithLabelValues(name).Set(float64(stats.Notify.Dropped))
		if stats.HasData {
			p.taskDataQueued.WithLabelValues(name).Set(float64(stats.Data.Queued))
			p.taskDataUsed.WithLabelValues(name).Set(float64(stats.Data.UsedBytes))
			p.taskDataHeld.WithLabelValues(name).Set(float64(stats.Data.Held))
		}
		if stats.Running {
			p.taskRunning.WithLabelValues(name).Set(1)
		} else {
			p.taskRunning.WithLabelValues(name).Set(0)
		}
		if stats.Suspended {
			p.taskSuspended.WithLabelValues(name).Set(1)
		} else {
			p.taskSuspended.WithLabelValues(name).Set(0)
		}
	}
	p.tasksMu.RUnlock()

	p.dispatchersMu.RLock()
	for name, provider := range p.dispatchers {
		stats := provider.Stats()
		p.dispatcherPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.dispatcherDelayed.WithLabelValues(name).Set(float64(stats.Delayed))
		p.dispatcherExecuted.WithLabelValues(name).Set(float64(stats.Executed))
		p.dispatcherRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.dispatcherPanics.WithLabelValues(name).Set(float64(stats.Panics))
		p.dispatcherRouteFailures.WithLabelValues(name).Set(float64(stats.RouteFailures))
	}
	p.dispatchersMu.RUnlock()

	p.registriesMu.RLock()
	for name, provider := range p.registries {
		p.registryTasks.WithLabelValues(name).Set(float64(provider.Len()))
	}
	p.registriesMu.RUnlock()
}
