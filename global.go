package taskmsg

import (
	"sync"

	"github.com/SamiFAHIM/go-taskmsg/core"
)

// =============================================================================
// Global System Helper (Singleton)
// =============================================================================

var (
	globalSystem *System
	globalMu     sync.Mutex
)

// InitGlobalSystem initializes the process-wide system with cfg. Calling it
// again while a global system exists is a no-op that returns the existing
// one, mirroring the one-directory-per-process model.
func InitGlobalSystem(cfg SystemConfig) *System {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalSystem != nil {
		return globalSystem
	}
	globalSystem = NewSystem(cfg)
	return globalSystem
}

// GetGlobalSystem returns the process-wide system, creating one with
// defaults on first use.
func GetGlobalSystem() *System {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalSystem == nil {
		globalSystem = NewSystem(DefaultSystemConfig("global"))
	}
	return globalSystem
}

// ShutdownGlobalSystem closes the global system and clears the slot so a
// later Init or Get starts fresh.
func ShutdownGlobalSystem() {
	globalMu.Lock()
	s := globalSystem
	globalSystem = nil
	globalMu.Unlock()

	if s != nil {
		s.Close()
	}
}

// NewTask creates a task on the global system. This is the recommended way
// to get a task when one registry per process is enough.
func NewTask(kind uint8, name string, fn core.TaskFunc, opts core.TaskOptions) (*core.Task, error) {
	return GetGlobalSystem().NewTask(kind, name, fn, opts)
}

// NewDispatcher creates a work dispatcher on the global system.
func NewDispatcher(cfg core.DispatcherConfig) (*core.Dispatcher, error) {
	return GetGlobalSystem().NewDispatcher(cfg)
}
