package engine

import (
	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// applyTicket is reconcile's response to an outcomeTicket report.
// It runs before applyFanOut/applyJoinArrival in one round (interpreter.go
// enforces the ordering): a ticket collapses the case's entire parallel
// structure, so any fan-out or join reported in the same round as a ticket
// is moot the instant the ticket lands.
//
// Every other path in the case — siblings, their join expectations, the
// whole fan-out tree — is discarded. The raising path is reseated at the
// ticket's target node and, if the target is itself a terminal pend point
// reached via an accompanying response, it pends there rather than
// running: the target node has not executed yet, so it is not
// re-invoked — it simply has not run.
func (e *Engine) applyTicket(c *wfcase.Case, out workerOutcome) {
	c.Lock()
	defer c.Unlock()

	c.Ticket = out.ticketName
	c.BumpGeneration()
	c.JoinExpectations = map[string]*wfcase.JoinExpectation{}

	for name, p := range c.ExecPaths {
		if name == out.pathName {
			continue
		}
		p.Status = wfcase.PathCompleted
		p.Step = journey.EndNode
	}

	raising, ok := c.ExecPaths[out.pathName]
	if !ok {
		raising = &wfcase.ExecPath{Name: out.pathName}
		c.ExecPaths[out.pathName] = raising
	}
	raising.Step = out.ticketTarget
	raising.Status = wfcase.PathStarted

	switch out.responseType {
	case wfcase.OKPend, wfcase.OKPendEOR, wfcase.ErrorPend:
		raising.UnitResponseType = out.responseType
		raising.PrevPendWorkBasket = raising.PendWorkBasket
		raising.PendWorkBasket = out.workBasket
		raising.PendError = out.pendError
		c.SetPendComponent(out.componentName)
	default:
		raising.UnitResponseType = ""
		raising.PendWorkBasket = ""
		raising.PendError = nil
	}
}
