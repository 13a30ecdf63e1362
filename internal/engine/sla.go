package engine

import (
	"context"
	"encoding/json"

	"github.com/yungbote/journeyengine/internal/wfcase"
)

// caseStartMilestones returns the JSON-encoded subset of milestones set up
// at case start.
func caseStartMilestones(c *wfcase.Case) []byte {
	var out []wfcase.Milestone
	for _, m := range c.Milestones {
		if m.SetupOn == wfcase.SetupOnCaseStart {
			out = append(out, m)
		}
	}
	return encodeMilestones(out)
}

// basketMilestones returns the JSON-encoded subset set up on entry to
// workBasket.
func basketMilestones(c *wfcase.Case, workBasket string) []byte {
	var out []wfcase.Milestone
	for _, m := range c.Milestones {
		if m.SetupOn == wfcase.SetupOnWorkBasketEntry && m.WorkBasketName == workBasket {
			out = append(out, m)
		}
	}
	return encodeMilestones(out)
}

func encodeMilestones(ms []wfcase.Milestone) []byte {
	if len(ms) == 0 {
		return nil
	}
	b, _ := json.Marshal(ms)
	return b
}

// notifyCaseStart emits the case-level SLA enqueue right after StartCase
// creates the case.
func (e *Engine) notifyCaseStart(ctx context.Context, c *wfcase.Case) {
	if ms := caseStartMilestones(c); ms != nil {
		if err := e.sla.Enqueue(ctx, c.CaseID, ms); err != nil {
			e.log.Warn("sla case-start enqueue failed", "case", c.CaseID, "error", err)
		}
	}
}

// notifyBasketEnter emits a basket enqueue when a path transitions into a
// non-empty pendWorkBasket. Idempotent composition is the
// collaborator's job, not the engine's.
func (e *Engine) notifyBasketEnter(ctx context.Context, c *wfcase.Case, workBasket string) {
	if workBasket == "" {
		return
	}
	if ms := basketMilestones(c, workBasket); ms != nil {
		if err := e.sla.Enqueue(ctx, c.CaseID, ms); err != nil {
			e.log.Warn("sla basket enqueue failed", "case", c.CaseID, "basket", workBasket, "error", err)
		}
	}
}

// notifyBasketLeave emits a basket dequeue when a path leaves a pend
// basket, on resume or on an admin change.
func (e *Engine) notifyBasketLeave(ctx context.Context, c *wfcase.Case, workBasket string) {
	if workBasket == "" {
		return
	}
	if err := e.sla.Dequeue(ctx, c.CaseID, workBasket); err != nil {
		e.log.Warn("sla basket dequeue failed", "case", c.CaseID, "basket", workBasket, "error", err)
	}
}

// notifyCaseComplete emits dequeue-all on case completion.
func (e *Engine) notifyCaseComplete(ctx context.Context, c *wfcase.Case) {
	if err := e.sla.DequeueAll(ctx, c.CaseID); err != nil {
		e.log.Warn("sla dequeue-all failed", "case", c.CaseID, "error", err)
	}
}
