package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/runstatus"
	"github.com/stc-project/stc/internal/statusrecord"
)

// Start begins scheduling dispatchable steps and returns immediately.
// Call WaitFor to block until the run completes.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.startTime = time.Now()
	c.done = false
	c.aborting = false
	c.doneCh = make(chan struct{})
	c.abortOnce = sync.Once{}
	c.mu.Unlock()

	c.runCtx, c.cancelRun = context.WithCancel(ctx)
	go c.runLoop()
}

// Abort requests that scheduling stop: no new step is dispatched, every
// running child is sent SIGTERM (escalating to SIGKILL after its grace
// period, via stepproc's context cancellation), and every step still
// WAITING transitions to SKIPPED.
func (c *Coordinator) Abort() {
	c.abortOnce.Do(func() {
		c.mu.Lock()
		c.aborting = true
		c.mu.Unlock()
		if c.cancelRun != nil {
			c.cancelRun()
		}
	})
}

// WaitFor blocks until every step is terminal and returns the exit code:
// 0 if every non-skipped step succeeded, 1 otherwise (including abort).
func (c *Coordinator) WaitFor() int {
	<-c.doneCh
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.computeExitCodeLocked()
}

func (c *Coordinator) runLoop() {
	c.mu.Lock()
	c.scanAndDispatchLocked()
	complete := c.isCompleteLocked()
	c.mu.Unlock()
	if complete {
		c.finish()
		return
	}

	for {
		select {
		case ev := <-c.events:
			c.mu.Lock()
			c.status[ev.name] = ev.status
			c.appendRecordLocked(ev.name, ev.status)
			if ev.status == runstatus.Failed && c.haltOnError {
				c.skipAllWaitingLocked()
			}
			c.scanAndDispatchLocked()
			done := c.isCompleteLocked()
			c.mu.Unlock()
			if done {
				c.finish()
				return
			}
		case <-c.runCtx.Done():
			c.drainAbort()
			c.finish()
			return
		}
	}
}

// drainAbort marks every WAITING step SKIPPED and waits for already
// dispatched workers (signaled to terminate via runCtx cancellation) to
// report their completion. It also covers abort arriving via external
// context cancellation (e.g. a SIGINT-driven shutdown), not just a call
// to Abort, so computeExitCodeLocked reports it either way.
func (c *Coordinator) drainAbort() {
	c.mu.Lock()
	c.aborting = true
	c.skipAllWaitingLocked()
	inFlight := 0
	for _, name := range c.flow.Steps() {
		node := c.flow.Node(name)
		if node.Kind == flow.KindStep && c.status[name] == runstatus.InProgress {
			inFlight++
		}
	}
	c.mu.Unlock()

	for inFlight > 0 {
		ev := <-c.events
		c.mu.Lock()
		c.status[ev.name] = ev.status
		c.appendRecordLocked(ev.name, ev.status)
		c.mu.Unlock()
		inFlight--
	}
}

func (c *Coordinator) skipAllWaitingLocked() {
	for _, name := range c.flow.Steps() {
		node := c.flow.Node(name)
		if node.Kind != flow.KindStep {
			continue
		}
		if c.status[name] == runstatus.Waiting {
			c.status[name] = runstatus.Skipped
			c.appendRecordLocked(name, runstatus.Skipped)
		}
	}
}

// scanAndDispatchLocked must be called with c.mu held. It repeatedly
// sweeps every step in topological order, skipping doomed steps and
// submitting dispatchable ones to the worker pool, until a full sweep
// makes no further progress.
func (c *Coordinator) scanAndDispatchLocked() {
	if c.aborting {
		return
	}
	for {
		changed := false
		for _, name := range c.flow.TopoOrder() {
			node := c.flow.Node(name)
			if node.Kind != flow.KindStep {
				continue
			}
			if c.status[name] != runstatus.Waiting {
				continue
			}
			if c.isDoomed(node) {
				c.status[name] = runstatus.Skipped
				c.appendRecordLocked(name, runstatus.Skipped)
				changed = true
				continue
			}
			if c.isDispatchable(node) {
				if c.tryAcquireWorker() {
					c.status[name] = runstatus.InProgress
					c.appendRecordLocked(name, runstatus.InProgress)
					c.launch(node)
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// isDoomed reports whether any hard prerequisite of node is terminal
// without having succeeded. A prerequisite several hops up a hard-edge
// chain from an actual failure settles as SKIPPED, not FAILED, so the
// doom check must follow any non-SUCCEEDED terminal status, not just
// FAILED itself, or the cascade stalls partway down the chain. A
// prerequisite SKIPPED only because a range run excluded it from the
// active subgraph is not doomed, mirroring isDispatchable's exception.
func (c *Coordinator) isDoomed(node *flow.Node) bool {
	for _, e := range c.flow.Prerequisites(node.Name) {
		if e.Soft {
			continue
		}
		st := c.resolveStatus(e.To)
		if !st.Terminal() || st == runstatus.Succeeded {
			continue
		}
		if st == runstatus.Skipped && c.outsideActive[e.To] {
			continue
		}
		return true
	}
	return false
}

// isDispatchable reports whether every prerequisite of node is
// satisfied: a soft edge needs any terminal status; a hard edge needs
// SUCCEEDED, or SKIPPED because the prerequisite fell outside the active
// subgraph of a range run.
func (c *Coordinator) isDispatchable(node *flow.Node) bool {
	for _, e := range c.flow.Prerequisites(node.Name) {
		st := c.resolveStatus(e.To)
		if e.Soft {
			if !st.Terminal() {
				return false
			}
			continue
		}
		if st == runstatus.Succeeded {
			continue
		}
		if st == runstatus.Skipped && c.outsideActive[e.To] {
			continue
		}
		return false
	}
	return true
}

func (c *Coordinator) tryAcquireWorker() bool {
	select {
	case c.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Coordinator) launch(node *flow.Node) {
	listener := c.snapshotListeners()
	ctx := c.runCtx
	go func() {
		status := c.processor.Run(ctx, node, c.logDir, listener)
		// Free the worker slot before reporting completion, so the rescan
		// triggered by this event can dispatch into it.
		<-c.sem
		c.events <- completionEvent{name: node.Name, status: status}
	}()
}

func (c *Coordinator) isCompleteLocked() bool {
	for _, name := range c.flow.Steps() {
		node := c.flow.Node(name)
		if node.Kind != flow.KindStep {
			continue
		}
		if !c.status[name].Terminal() {
			return false
		}
	}
	return true
}

func (c *Coordinator) computeExitCodeLocked() int {
	if c.aborting {
		return 1
	}
	for _, name := range c.flow.Steps() {
		node := c.flow.Node(name)
		if node.Kind != flow.KindStep {
			continue
		}
		if c.status[name] == runstatus.Failed {
			return 1
		}
	}
	return 0
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	c.done = true
	c.endTime = time.Now()
	c.mu.Unlock()
	close(c.doneCh)
}

func (c *Coordinator) appendRecordLocked(name string, st runstatus.Status) {
	node := c.flow.Node(name)
	command := ""
	description := ""
	if node != nil {
		command = node.Command
		description = node.Description
	}
	// The record append is I/O and does not need c.mu; it is only ever
	// called while c.mu is already held by the single run-loop goroutine,
	// so no further synchronization is required here.
	_ = c.record.Append(statusrecord.Event{
		TimeEpochMS: time.Now().UnixMilli(),
		StepName:    name,
		Status:      st.String(),
		Command:     command,
		Description: description,
	})
}
