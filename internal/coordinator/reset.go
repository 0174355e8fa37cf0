package coordinator

import (
	"time"

	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/runstatus"
)

// Reset sets every step to WAITING and truncates the status record. It
// must not be called while a run is in progress.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(nil)
	return c.record.Reset()
}

// ResetRange computes the active subgraph between fromPatterns and
// toPatterns and prepares a partial re-run: active members go to
// WAITING, everything else goes to SKIPPED (and is remembered as
// "skipped because outside the active subgraph", which lets a hard
// dependent downstream of it still dispatch).
func (c *Coordinator) ResetRange(fromPatterns, toPatterns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := map[string]bool{}
	for _, name := range c.flow.Subgraph(fromPatterns, toPatterns) {
		active[name] = true
	}
	c.resetLocked(active)
	return c.record.Reset()
}

// resetLocked must be called with c.mu held. A nil active set means
// "everything is active" (a full run).
func (c *Coordinator) resetLocked(active map[string]bool) {
	c.status = map[string]runstatus.Status{}
	c.outsideActive = map[string]bool{}
	for _, name := range c.flow.Steps() {
		node := c.flow.Node(name)
		if node.Kind != flow.KindStep {
			continue
		}
		if active != nil && !active[name] {
			c.status[name] = runstatus.Skipped
			c.outsideActive[name] = true
			continue
		}
		c.status[name] = runstatus.Waiting
	}
	c.done = false
	c.startTime = time.Time{}
	c.endTime = time.Time{}
}
