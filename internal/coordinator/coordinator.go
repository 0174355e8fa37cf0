// Package coordinator schedules a compiled flow.ProcessFlow across a
// worker pool, enforcing dependency semantics, partial-failure
// propagation, selective re-runs, and a persisted status record.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/runstatus"
	"github.com/stc-project/stc/internal/statusrecord"
	"github.com/stc-project/stc/internal/stepproc"
)

// Config configures a Coordinator at construction time.
type Config struct {
	Flow        *flow.ProcessFlow
	LogDir      string
	Workers     int // default: runtime.NumCPU()
	HaltOnError bool
	Processor   *stepproc.Processor // default: stepproc.New(stepproc.Config{})
	Record      *statusrecord.Store
}

type completionEvent struct {
	name   string
	status runstatus.Status
}

// Coordinator is the scheduler. All mutations to status happen on its
// single run loop goroutine; public accessors take c.mu to read a
// consistent snapshot.
type Coordinator struct {
	flow      *flow.ProcessFlow
	logDir    string
	workers   int
	processor *stepproc.Processor
	record    *statusrecord.Store

	mu            sync.RWMutex
	status        map[string]runstatus.Status
	outsideActive map[string]bool
	haltOnError   bool

	listenersMu sync.Mutex
	listeners   []stepproc.Listener

	sem    chan struct{}
	events chan completionEvent

	runCtx    context.Context
	cancelRun context.CancelFunc
	abortOnce sync.Once
	aborting  bool

	startTime time.Time
	endTime   time.Time

	doneCh chan struct{}
	done   bool
}

// New constructs a Coordinator. Every step starts WAITING.
func New(cfg Config) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkerCount()
	}
	processor := cfg.Processor
	if processor == nil {
		processor = stepproc.New(stepproc.Config{})
	}
	record := cfg.Record
	if record == nil {
		record = statusrecord.New(cfg.LogDir + "/status.jsonl")
	}

	c := &Coordinator{
		flow:          cfg.Flow,
		logDir:        cfg.LogDir,
		workers:       workers,
		processor:     processor,
		record:        record,
		status:        map[string]runstatus.Status{},
		outsideActive: map[string]bool{},
		haltOnError:   cfg.HaltOnError,
		sem:           make(chan struct{}, workers),
		events:        make(chan completionEvent, workers),
		doneCh:        make(chan struct{}),
	}
	c.resetLocked(nil)
	return c
}

// SetHaltOnError toggles whether a FAILED step skips all remaining
// WAITING steps immediately.
func (c *Coordinator) SetHaltOnError(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltOnError = v
}

// AddListener registers l to receive onStart/onOutput/onCompletion for
// every step dispatched from this point on.
func (c *Coordinator) AddListener(l stepproc.Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters l.
func (c *Coordinator) RemoveListener(l stepproc.Listener) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for i, existing := range c.listeners {
		if existing == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) snapshotListeners() stepproc.Listeners {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	return append(stepproc.Listeners(nil), c.listeners...)
}

// GetStatus resolves the current status of a step or group.
func (c *Coordinator) GetStatus(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveStatus(name).String()
}

// GetSteps returns every node name known to the flow, in declaration
// order.
func (c *Coordinator) GetSteps() []string {
	return c.flow.Steps()
}

// GetRecords replays the persisted status record.
func (c *Coordinator) GetRecords() ([]statusrecord.Event, error) {
	return c.record.Records()
}

// Duration reports elapsed time since Start, or the total run time once
// WaitFor has returned.
func (c *Coordinator) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.startTime.IsZero() {
		return 0
	}
	if c.done {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

func defaultWorkerCount() int {
	n := 1
	if v := cpuCount(); v > 0 {
		n = v
	}
	return n
}
