package engine

import (
	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// applyFanOut is reconcile's response to an outcomeFanOut report: the
// forking path is marked completed at the fan-out node —
// it will not advance further by itself — and one child ExecPath is
// created per branch label, all positioned at their target node and ready
// to run next round. A JoinExpectation is registered so a later
// outcomeJoinArrived knows how many children it is waiting for.
//
// Marking the parent completed here is provisional, not final: the join
// closing (applyJoinArrival) overwrites this same map entry and revives
// it at the join's next node. The journey validator guarantees every
// fan-out converges on exactly one join, so a forked path is never
// permanently stuck "completed" short of "end".
func (e *Engine) applyFanOut(c *wfcase.Case, out workerOutcome) {
	c.Lock()
	defer c.Unlock()

	parentName := out.pathName
	joinNode, hasJoin := c.Journey.JoinFor(out.fanoutNode)

	if p, ok := c.ExecPaths[parentName]; ok {
		p.Status = wfcase.PathCompleted
		p.Step = out.fanoutNode
	}

	for _, label := range out.labels {
		childName := wfcase.ChildPathName(parentName, label, e.cfg.PathSeparator)
		c.ExecPaths[childName] = &wfcase.ExecPath{
			Name:   childName,
			Status: wfcase.PathStarted,
			Step:   out.targets[label],
		}
	}

	if hasJoin {
		key := (&wfcase.JoinExpectation{ParentPath: parentName, JoinNode: joinNode}).Key()
		c.JoinExpectations[key] = &wfcase.JoinExpectation{
			ParentPath:    parentName,
			JoinNode:      joinNode,
			ExpectedArity: len(out.labels),
			Collected:     map[string]bool{},
		}
	}
}

// applyJoinArrival is reconcile's response to an outcomeJoinArrived
// report: the arriving child path is marked completed at
// the join node and counted against its JoinExpectation. When the last
// sibling arrives, every collected child is retired from c.ExecPaths —
// they are fully absorbed into the join, not a remaining part of case
// state — the expectation is consumed, and the parent path is
// reintroduced at the join's next node, ready to run next round.
//
// Retiring the children only once the join closes (rather than leaving
// them parked at the join node forever) is what lets the completion
// rule — every remaining path at "end" — ever become true for a journey
// that ever forked: a child left sitting at the join node permanently
// would block completion detection indefinitely.
func (e *Engine) applyJoinArrival(c *wfcase.Case, out workerOutcome) {
	c.Lock()
	defer c.Unlock()

	child, ok := c.ExecPaths[out.pathName]
	if !ok {
		return
	}
	child.Status = wfcase.PathCompleted
	child.Step = out.joinNode

	parentName, ok := wfcase.ParentPathName(out.pathName, e.cfg.PathSeparator)
	if !ok {
		return
	}
	key := (&wfcase.JoinExpectation{ParentPath: parentName, JoinNode: out.joinNode}).Key()
	je, ok := c.JoinExpectations[key]
	if !ok {
		e.log.Error("join arrival with no matching expectation", "case", c.CaseID, "path", out.pathName, "join", out.joinNode)
		return
	}
	je.Collected[out.pathName] = true
	if len(je.Collected) < je.ExpectedArity {
		return
	}

	delete(c.JoinExpectations, key)
	joinNodeVal, ok := c.Journey.Nodes[out.joinNode].(*journey.Join)
	if !ok {
		e.log.Error("join node resolved to non-join type", "case", c.CaseID, "join", out.joinNode)
		return
	}
	for childName := range je.Collected {
		delete(c.ExecPaths, childName)
	}
	c.ExecPaths[parentName] = &wfcase.ExecPath{
		Name:   parentName,
		Status: wfcase.PathStarted,
		Step:   joinNodeVal.Next,
	}
}
