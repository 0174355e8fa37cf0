package coordinator

import (
	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/runstatus"
)

// resolveStatus returns a step's tracked status, or a group's status
// derived from its members. Must be called with c.mu held (for read or
// write).
func (c *Coordinator) resolveStatus(name string) runstatus.Status {
	node := c.flow.Node(name)
	if node == nil {
		return runstatus.Waiting
	}
	if node.Kind == flow.KindGroup {
		return c.derivedGroupStatus(node)
	}
	return c.status[name]
}

// derivedGroupStatus computes a group's status from its direct children,
// recursing through nested groups: IN_PROGRESS once any member has
// started, terminal (worst of FAILED > SKIPPED > SUCCEEDED) once every
// member is terminal, WAITING otherwise. An empty group is vacuously
// SUCCEEDED.
func (c *Coordinator) derivedGroupStatus(node *flow.Node) runstatus.Status {
	if len(node.Children) == 0 {
		return runstatus.Succeeded
	}

	allTerminal := true
	anyStarted := false
	worst := runstatus.Succeeded

	for _, child := range node.Children {
		st := c.resolveStatus(child)
		if !st.Terminal() {
			allTerminal = false
		}
		if st.Terminal() || st == runstatus.InProgress {
			anyStarted = true
		}
		if st.Terminal() {
			worst = runstatus.Worst(worst, st)
		}
	}

	switch {
	case allTerminal:
		return worst
	case anyStarted:
		return runstatus.InProgress
	default:
		return runstatus.Waiting
	}
}
