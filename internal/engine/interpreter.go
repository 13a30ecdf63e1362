package engine

import (
	"context"
	"sort"

	"github.com/yungbote/journeyengine/internal/audit"
	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// StartCase creates a fresh case positioned on journeyName's first node
// and drives it to its next stable state, pended or complete.
// journeyName must already be registered via RegisterJourney.
func (e *Engine) StartCase(ctx context.Context, caseID, journeyName string, initialVariables map[string]string, milestones []wfcase.Milestone) (*wfcase.Snapshot, error) {
	exit, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	unlock := e.locks.Lock(caseID)
	defer unlock()

	existing, err := e.loadSnapshot(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, wrapf(ErrCaseAlreadyExists, "case %q already has a snapshot", caseID)
	}
	j, err := e.journeyFor(journeyName)
	if err != nil {
		return nil, err
	}

	c := wfcase.NewCase(caseID, j, initialVariables, milestones)
	if err := e.persistJourneyMarker(ctx, caseID, journeyName); err != nil {
		return nil, err
	}
	if err := e.persistSnapshotOrFail(ctx, c); err != nil {
		return nil, err
	}
	e.emitEvent(EventProcessStart, caseID, wfcase.RootPathName, "", "", false)
	e.notifyCaseStart(ctx, c)

	return e.driveAndFinish(ctx, c)
}

// ResumeCase reconstructs a case from its last snapshot and drives it
// forward from wherever every pended path left off.
func (e *Engine) ResumeCase(ctx context.Context, caseID string) (*wfcase.Snapshot, error) {
	exit, err := e.enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	unlock := e.locks.Lock(caseID)
	defer unlock()

	snap, err := e.loadSnapshot(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, wrapf(ErrCaseNotFound, "no snapshot for case %q", caseID)
	}
	if snap.IsComplete {
		return nil, wrapf(ErrCaseAlreadyComplete, "case %q is already complete", caseID)
	}
	j, err := e.journeyFor(snap.JourneyName)
	if err != nil {
		return nil, err
	}
	c, err := wfcase.FromSnapshot(snap, j)
	if err != nil {
		return nil, wrapf(ErrPersistFailed, "reconstruct case %q: %v", caseID, err)
	}

	e.emitEvent(EventProcessResume, caseID, c.PendExecPath, "", "", false)
	e.resumePendedPaths(ctx, c)

	return e.driveAndFinish(ctx, c)
}

// resumePendedPaths flips every pended path back to runnable,
// special-casing Pause: a Pause node has no component to re-invoke, so
// resuming one advances straight to node.Next instead of handing it to
// the drive loop a second time. Every other pend kind — including
// OK_PEND_EOR, whose step was already advanced by the worker before it
// pended — is simply unparked at whatever step currently names;
// OK_PEND_EOR's not-re-invoked property falls out of that unchanged,
// since the worker moved step forward before recording the pend.
func (e *Engine) resumePendedPaths(ctx context.Context, c *wfcase.Case) {
	c.Lock()
	var leftBaskets []string
	for _, p := range c.ExecPaths {
		if !p.IsPended() {
			continue
		}
		if node, ok := c.Journey.Nodes[p.Step]; ok {
			if pause, isPause := node.(*journey.Pause); isPause {
				p.Step = pause.Next
			}
		}
		leftBaskets = append(leftBaskets, p.PendWorkBasket)
		p.PrevPendWorkBasket = p.PendWorkBasket
		p.PendWorkBasket = ""
		p.PendError = nil
		p.UnitResponseType = ""
		p.Status = wfcase.PathStarted
	}
	c.Unlock()

	for _, basket := range leftBaskets {
		e.notifyBasketLeave(ctx, c, basket)
	}
}

// ChangeWorkBasket re-parents the single pended path's work basket
// without advancing it. It runs under the same case-level lock as
// StartCase/ResumeCase and never invokes user code.
func (e *Engine) ChangeWorkBasket(ctx context.Context, caseID, newBasket string) error {
	exit, err := e.enter()
	if err != nil {
		return err
	}
	defer exit()

	unlock := e.locks.Lock(caseID)
	defer unlock()

	snap, err := e.loadSnapshot(ctx, caseID)
	if err != nil {
		return err
	}
	if snap == nil {
		return wrapf(ErrCaseNotFound, "no snapshot for case %q", caseID)
	}
	if snap.IsComplete {
		return wrapf(ErrCaseAlreadyComplete, "case %q is already complete", caseID)
	}
	j, err := e.journeyFor(snap.JourneyName)
	if err != nil {
		return err
	}
	c, err := wfcase.FromSnapshot(snap, j)
	if err != nil {
		return wrapf(ErrPersistFailed, "reconstruct case %q: %v", caseID, err)
	}

	pendedPath, ok := c.Pended()
	if !ok {
		return wrapf(ErrInvariantViolation, "case %q is not pended", caseID)
	}
	pendedCount := 0
	c.RLock()
	for _, p := range c.ExecPaths {
		if p.IsPended() {
			pendedCount++
		}
	}
	c.RUnlock()
	if pendedCount != 1 {
		return wrapf(ErrInvariantViolation, "case %q is pended on %d paths; admin change requires exactly one", caseID, pendedCount)
	}

	c.Lock()
	p := c.ExecPaths[pendedPath]
	oldBasket := p.PendWorkBasket
	if oldBasket == newBasket {
		c.Unlock()
		return nil
	}
	p.TbcSlaWorkBasket = newBasket
	c.Unlock()

	e.notifyBasketLeave(ctx, c, oldBasket)
	e.notifyBasketEnter(ctx, c, newBasket)

	// Commit the swap only after the SLA calls have been issued; the
	// to-be-committed basket bookends the window in which a crash would
	// leave the SLA view ahead of the durable one.
	c.Lock()
	p.PrevPendWorkBasket = oldBasket
	p.PendWorkBasket = newBasket
	p.TbcSlaWorkBasket = ""
	c.Unlock()

	return e.persistSnapshotOrFail(ctx, c)
}

// driveAndFinish runs the drive loop to its next stable state, persists
// the final snapshot, and emits ON_PROCESS_PEND or ON_PROCESS_COMPLETE.
func (e *Engine) driveAndFinish(ctx context.Context, c *wfcase.Case) (*wfcase.Snapshot, error) {
	if err := e.drive(ctx, c); err != nil {
		return nil, err
	}

	if c.AllCompleted() {
		c.Lock()
		c.IsComplete = true
		c.Unlock()
		if err := e.persistSnapshotOrFail(ctx, c); err != nil {
			return nil, err
		}
		e.notifyCaseComplete(ctx, c)
		if e.cfg.WriteAuditLog {
			if err := audit.DropCounter(ctx, e.repo, e.cfg.PathSeparator, c.CaseID); err != nil {
				e.log.Warn("drop audit counter failed", "case", c.CaseID, "error", err)
			}
		}
		e.emitEvent(EventProcessComplete, c.CaseID, "", "", "", false)
		return c.ToSnapshot(), nil
	}

	if pathName, ok := c.Pended(); ok {
		c.RLock()
		p := c.ExecPaths[pathName]
		isSame := p.PendWorkBasket == p.PrevPendWorkBasket
		basket := p.PendWorkBasket
		component := c.PendComponent()
		c.RUnlock()

		c.Lock()
		c.PendExecPath = pathName
		c.Unlock()

		e.notifyBasketEnter(ctx, c, basket)
		if err := e.persistSnapshotOrFail(ctx, c); err != nil {
			return nil, err
		}
		e.emitEvent(EventProcessPend, c.CaseID, pathName, component, basket, isSame)
		return c.ToSnapshot(), nil
	}

	// A drive loop exiting with no pend and no completion is
	// unreachable from a well-formed journey (every path either
	// proceeds, pends, forks, or joins); treated as an invariant
	// violation rather than silently returning.
	return nil, wrapf(ErrInvariantViolation, "case %q: drive loop exited with no pend and no completion", c.CaseID)
}

// drive runs the drive loop: submit every runnable path's worker, join
// on the round, then reconcile in lexicographic path-name order —
// tickets strictly before fan-out and join reconciliation, so a slow
// sibling finishing concurrently with a ticket raise does not survive.
func (e *Engine) drive(ctx context.Context, c *wfcase.Case) error {
	for c.Runnable() {
		names := runnableNames(c)
		c.Lock()
		for _, n := range names {
			c.ExecPaths[n].Status = wfcase.PathRunning
		}
		c.Unlock()

		outcomes := make([]workerOutcome, len(names))
		jobs := make([]func(), len(names))
		for i, n := range names {
			i, n := i, n
			jobs[i] = func() {
				c.RLock()
				path := c.ExecPaths[n]
				c.RUnlock()
				outcomes[i] = e.runExecutionPath(ctx, c, path)
			}
		}
		errs := e.pool.RunAll(ctx, e.cfg.IdleTimeout, jobs)

		// Reconcile whatever outcomes did come back before surfacing a
		// saturation error: a job that never got a pool slot leaves its
		// outcome zero-valued (empty pathName), which reconcile's
		// per-kind appliers silently ignore, but every job that did
		// complete still needs its result applied rather than discarded.
		e.reconcile(c, outcomes)
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// runnableNames returns the lexicographically sorted set of path names
// eligible to run this round; the fixed order keeps reconcile
// deterministic.
func runnableNames(c *wfcase.Case) []string {
	c.RLock()
	defer c.RUnlock()
	var out []string
	for name, p := range c.ExecPaths {
		if p.Status != wfcase.PathCompleted && !p.IsPended() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// reconcile applies one round's outcomes, any ticket strictly first.
// A ticket collapses the round: once one is applied, every other
// outcome this round refers to a path the ticket has already cancelled,
// so they are skipped rather than re-animating a path the ticket just
// retired.
func (e *Engine) reconcile(c *wfcase.Case, outcomes []workerOutcome) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].pathName < outcomes[j].pathName })

	for _, out := range outcomes {
		if out.kind == outcomeTicket {
			e.applyTicket(c, out)
			return
		}
	}

	for _, out := range outcomes {
		switch out.kind {
		case outcomeJoinArrived:
			e.applyJoinArrival(c, out)
		case outcomeFanOut:
			e.applyFanOut(c, out)
		case outcomeEnded:
			e.applyEnded(c, out)
		case outcomePended:
			e.applyPended(c, out)
		}
	}
}

// applyEnded marks a path that ran off the end of the journey completed
// at "end".
func (e *Engine) applyEnded(c *wfcase.Case, out workerOutcome) {
	c.Lock()
	defer c.Unlock()
	p, ok := c.ExecPaths[out.pathName]
	if !ok {
		return
	}
	p.Status = wfcase.PathCompleted
	p.Step = journey.EndNode
	c.LastUnitExecuted = out.pathName
}

// applyPended parks a path that pended this round. The worker already
// wrote step/unitResponseType/pendWorkBasket/pendError directly (setPend,
// worker.go); reconcile's job is only to move it out of "running" so
// Runnable()/Pended() see it as parked rather than mid-flight.
func (e *Engine) applyPended(c *wfcase.Case, out workerOutcome) {
	c.Lock()
	defer c.Unlock()
	p, ok := c.ExecPaths[out.pathName]
	if !ok {
		return
	}
	p.Status = wfcase.PathStarted
	if out.componentName != "" {
		c.LastUnitExecuted = out.finalStep + "/" + out.componentName
	} else {
		c.LastUnitExecuted = out.finalStep
	}
	c.SetPendComponent(out.componentName)
}
