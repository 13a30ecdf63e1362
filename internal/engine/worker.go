package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// runExecutionPath is the Execution Path Worker: given a path
// positioned on node Step, it advances through Task/SRoute/Persist nodes
// in a tight loop on the calling pool goroutine until the path ends,
// pends, reaches a parallel fan-out, or reaches a join — the four
// stopping conditions the contract names. Every step in between is
// invisible to the rest of the case: only the returned workerOutcome
// crosses back into shared state, applied by the drive loop's reconcile
// phase after every worker in the round has returned.
//
// The only state this function mutates directly is path itself (under
// c.Lock, so a concurrent snapshot read via c.RLock in ToSnapshot never
// observes a torn write) — never c.ExecPaths, c.JoinExpectations, or
// c.Ticket, all of which are reconcile's job.
func (e *Engine) runExecutionPath(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath) (res workerOutcome) {
	defer func() {
		if r := recover(); r != nil {
			res = e.userErrorOutcome(c, path, "", fmt.Errorf("panic: %v", r))
		}
	}()
	name := path.Name
	for {
		step := e.readStep(c, path)
		if step == journey.EndNode {
			return workerOutcome{pathName: name, kind: outcomeEnded, finalStep: journey.EndNode}
		}
		node, ok := c.Journey.Nodes[step]
		if !ok {
			return e.invariantOutcome(c, path, fmt.Errorf("execution path %q: step %q does not resolve to a node", name, step))
		}

		switch n := node.(type) {
		case *journey.Task:
			out, stop := e.dispatchTask(ctx, c, path, n)
			if stop {
				return out
			}

		case *journey.SRoute:
			out, stop := e.dispatchSRoute(ctx, c, path, n)
			if stop {
				return out
			}

		case *journey.Persist:
			e.advanceStep(c, path, n.Next)
			e.forceSnapshot(ctx, c)

		case *journey.Pause:
			e.setPend(c, path, wfcase.OKPend, pauseWorkBasket, nil)
			e.maybeSnapshot(ctx, c)
			return workerOutcome{
				pathName: name, kind: outcomePended, finalStep: step,
				responseType: wfcase.OKPend, workBasket: pauseWorkBasket,
			}

		case *journey.PRoute:
			out, stop := e.dispatchPRoute(ctx, c, path, n)
			if stop {
				return out
			}

		case *journey.PRouteDynamic:
			out, stop := e.dispatchPRouteDynamic(ctx, c, path, n)
			if stop {
				return out
			}

		case *journey.Join:
			return workerOutcome{pathName: name, kind: outcomeJoinArrived, joinNode: n.Name}

		default:
			return e.invariantOutcome(c, path, fmt.Errorf("execution path %q: unrecognized node type %T at %q", name, n, step))
		}
	}
}

func (e *Engine) readStep(c *wfcase.Case, path *wfcase.ExecPath) string {
	c.RLock()
	defer c.RUnlock()
	return path.Step
}

func (e *Engine) advanceStep(c *wfcase.Case, path *wfcase.ExecPath, next string) {
	c.Lock()
	defer c.Unlock()
	path.Step = next
	path.UnitResponseType = wfcase.OKProceed
}

func (e *Engine) setPend(c *wfcase.Case, path *wfcase.ExecPath, rt wfcase.ResponseType, workBasket string, errInfo *wfcase.ErrorInfo) {
	c.Lock()
	defer c.Unlock()
	path.UnitResponseType = rt
	// PrevPendWorkBasket keeps the last basket the path was actually
	// parked in; a resume clears PendWorkBasket, so an empty current
	// basket must not erase the history a re-pend-at-same-basket check
	// depends on.
	if path.PendWorkBasket != "" {
		path.PrevPendWorkBasket = path.PendWorkBasket
	}
	path.PendWorkBasket = workBasket
	path.PendError = errInfo
}

// invariantOutcome parks a path whose dispatch hit an engine invariant
// violation (unknown node, malformed response shape) at the error basket.
// The pend is written onto the path itself, not just reported: a pended
// outcome whose path carried no pend state would be picked up as runnable
// again next round and spin on the same violation forever.
func (e *Engine) invariantOutcome(c *wfcase.Case, path *wfcase.ExecPath, err error) workerOutcome {
	e.log.Error("invariant violation in execution path worker", "path", path.Name, "error", err)
	info := &wfcase.ErrorInfo{Code: ErrInvariantViolation.Code, Message: err.Error(), Retryable: false}
	e.setPend(c, path, wfcase.ErrorPend, e.cfg.ErrorWorkbasket, info)
	return workerOutcome{
		pathName: path.Name, kind: outcomePended, finalStep: path.Step,
		responseType: wfcase.ErrorPend,
		workBasket:   e.cfg.ErrorWorkbasket,
		pendError:    info,
	}
}

func (e *Engine) stepContext(c *wfcase.Case, path *wfcase.ExecPath, nodeName, componentName, userData string, kind NodeKind) StepContext {
	return StepContext{
		CaseID:        c.CaseID,
		PathName:      path.Name,
		NodeName:      nodeName,
		ComponentName: componentName,
		NodeType:      kind,
		UserData:      userData,
		Variables:     variablesView{vars: c.Variables},
	}
}

// ticketOutcome turns any non-empty ticket carried on a response into a
// stopping outcome. An unknown ticket name becomes an ERROR_PEND rather
// than a ticket outcome. A ticket accompanied by a pend still reseats
// the path at the target; the target node has not executed yet, so it
// is not re-invoked on resume — it simply has not run.
func (e *Engine) ticketOutcome(c *wfcase.Case, path *wfcase.ExecPath, ticketName string, accompanyingPend wfcase.ResponseType, workBasket string, pendErr *wfcase.ErrorInfo) (workerOutcome, bool) {
	if ticketName == "" {
		return workerOutcome{}, false
	}
	target, ok := c.Journey.Tickets[ticketName]
	if !ok {
		e.setPend(c, path, wfcase.ErrorPend, e.cfg.ErrorWorkbasket, &wfcase.ErrorInfo{
			Code: ErrUnknownTicket.Code, Message: fmt.Sprintf("unknown ticket %q", ticketName), Retryable: false,
		})
		return workerOutcome{
			pathName: path.Name, kind: outcomePended, finalStep: path.Step,
			responseType: wfcase.ErrorPend, workBasket: e.cfg.ErrorWorkbasket,
			pendError: &wfcase.ErrorInfo{Code: ErrUnknownTicket.Code, Message: fmt.Sprintf("unknown ticket %q", ticketName)},
		}, true
	}
	return workerOutcome{
		pathName: path.Name, kind: outcomeTicket,
		ticketName: ticketName, ticketTarget: target,
		responseType: accompanyingPend, workBasket: workBasket, pendError: pendErr,
	}, true
}

func (e *Engine) dispatchTask(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, n *journey.Task) (workerOutcome, bool) {
	sc := e.stepContext(c, path, n.Name, n.Component, n.UserData, KindTask)
	e.emitEvent(EventStepEntry, c.CaseID, path.Name, n.Component, "", false)

	task, err := e.factory.Task(ctx, sc)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	resp, err := e.watchedTask(ctx, c, path, n.Component, task)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	e.emitEvent(EventStepExit, c.CaseID, path.Name, n.Component, "", false)

	if out, stop := e.ticketOutcome(c, path, resp.Ticket, resp.Type, resp.WorkBasket, resp.Error); stop {
		out.componentName = n.Component
		return out, true
	}

	switch resp.Type {
	case wfcase.OKProceed:
		e.advanceStep(c, path, n.Next)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{}, false
	case wfcase.OKPend:
		e.setPend(c, path, wfcase.OKPend, resp.WorkBasket, resp.Error)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{pathName: path.Name, kind: outcomePended, finalStep: n.Name, responseType: wfcase.OKPend, workBasket: resp.WorkBasket, pendError: resp.Error, componentName: n.Component}, true
	case wfcase.OKPendEOR:
		e.advanceStep(c, path, n.Next)
		e.setPend(c, path, wfcase.OKPendEOR, resp.WorkBasket, resp.Error)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{pathName: path.Name, kind: outcomePended, finalStep: n.Next, responseType: wfcase.OKPendEOR, workBasket: resp.WorkBasket, pendError: resp.Error, componentName: n.Component}, true
	case wfcase.ErrorPend:
		e.setPend(c, path, wfcase.ErrorPend, orDefault(resp.WorkBasket, e.cfg.ErrorWorkbasket), resp.Error)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{pathName: path.Name, kind: outcomePended, finalStep: n.Name, responseType: wfcase.ErrorPend, workBasket: orDefault(resp.WorkBasket, e.cfg.ErrorWorkbasket), pendError: resp.Error, componentName: n.Component}, true
	default:
		return e.invariantOutcome(c, path, fmt.Errorf("task %q: unknown response type %q", n.Name, resp.Type)), true
	}
}

// routePendOutcome handles the pend-shaped route responses shared by all
// three route kinds — a RouteResponse carries type and workBasket like
// a TaskResponse does. A non-nil Error or an ERROR_PEND type parks
// the path at the response's basket, or at the error basket when the
// response names none; OK_PEND parks it at the response's basket. A proceed (or empty) type falls through to branch handling.
// OK_PEND_EOR is a task-only response; a route returning it is malformed.
func (e *Engine) routePendOutcome(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, nodeName, componentName string, resp wfcase.RouteResponse) (workerOutcome, bool) {
	switch {
	case resp.Error != nil || resp.Type == wfcase.ErrorPend:
		basket := orDefault(resp.WorkBasket, e.cfg.ErrorWorkbasket)
		e.setPend(c, path, wfcase.ErrorPend, basket, resp.Error)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{pathName: path.Name, kind: outcomePended, finalStep: nodeName, responseType: wfcase.ErrorPend, workBasket: basket, pendError: resp.Error, componentName: componentName}, true
	case resp.Type == wfcase.OKPend:
		e.setPend(c, path, wfcase.OKPend, resp.WorkBasket, nil)
		e.maybeSnapshot(ctx, c)
		return workerOutcome{pathName: path.Name, kind: outcomePended, finalStep: nodeName, responseType: wfcase.OKPend, workBasket: resp.WorkBasket, componentName: componentName}, true
	case resp.Type == wfcase.OKPendEOR:
		return e.invariantOutcome(c, path, fmt.Errorf("route %q: %s is not a route response type", nodeName, wfcase.OKPendEOR)), true
	default:
		return workerOutcome{}, false
	}
}

func (e *Engine) dispatchSRoute(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, n *journey.SRoute) (workerOutcome, bool) {
	sc := e.stepContext(c, path, n.Name, n.Component, n.UserData, KindSRoute)
	route, err := e.factory.Route(ctx, sc)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	resp, err := e.watchedRoute(ctx, c, path, n.Component, route)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	if out, stop := e.ticketOutcome(c, path, resp.Ticket, resp.Type, resp.WorkBasket, resp.Error); stop {
		out.componentName = n.Component
		return out, true
	}
	if out, stop := e.routePendOutcome(ctx, c, path, n.Name, n.Component, resp); stop {
		return out, true
	}
	if len(resp.Branches) != 1 {
		return e.invariantOutcome(c, path, fmt.Errorf("sroute %q: expected exactly one branch label, got %d", n.Name, len(resp.Branches))), true
	}
	label := resp.Branches[0]
	target, ok := n.Branches[label]
	if !ok {
		return e.invariantOutcome(c, path, fmt.Errorf("sroute %q: branch label %q is not defined", n.Name, label)), true
	}
	e.advanceStep(c, path, target)
	e.maybeSnapshot(ctx, c)
	return workerOutcome{}, false
}

func (e *Engine) dispatchPRoute(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, n *journey.PRoute) (workerOutcome, bool) {
	sc := e.stepContext(c, path, n.Name, n.Component, n.UserData, KindPRoute)
	route, err := e.factory.Route(ctx, sc)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	resp, err := e.watchedRoute(ctx, c, path, n.Component, route)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	if out, stop := e.ticketOutcome(c, path, resp.Ticket, resp.Type, resp.WorkBasket, resp.Error); stop {
		out.componentName = n.Component
		return out, true
	}
	if out, stop := e.routePendOutcome(ctx, c, path, n.Name, n.Component, resp); stop {
		return out, true
	}

	if len(resp.Branches) == 0 {
		// Empty branches advance straight to the join's next if one
		// exists; otherwise the path completes.
		if joinName, ok := c.Journey.JoinFor(n.Name); ok {
			if join, ok := c.Journey.Nodes[joinName].(*journey.Join); ok {
				e.advanceStep(c, path, join.Next)
				e.maybeSnapshot(ctx, c)
				return workerOutcome{}, false
			}
		}
		return workerOutcome{pathName: path.Name, kind: outcomeEnded, finalStep: journey.EndNode}, true
	}

	targets := make(map[string]string, len(resp.Branches))
	for _, label := range resp.Branches {
		if strings.IndexByte(label, e.cfg.PathSeparator) >= 0 {
			return e.invariantOutcome(c, path, fmt.Errorf("proute %q: branch label %q contains the reserved path separator %q", n.Name, label, e.cfg.PathSeparator)), true
		}
		target, ok := n.Branches[label]
		if !ok {
			return e.invariantOutcome(c, path, fmt.Errorf("proute %q: branch label %q is not defined", n.Name, label)), true
		}
		targets[label] = target
	}
	return workerOutcome{pathName: path.Name, kind: outcomeFanOut, fanoutNode: n.Name, componentName: n.Component, labels: resp.Branches, targets: targets}, true
}

func (e *Engine) dispatchPRouteDynamic(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, n *journey.PRouteDynamic) (workerOutcome, bool) {
	sc := e.stepContext(c, path, n.Name, n.Component, n.UserData, KindPRouteDynamic)
	route, err := e.factory.Route(ctx, sc)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	resp, err := e.watchedRoute(ctx, c, path, n.Component, route)
	if err != nil {
		return e.userErrorOutcome(c, path, n.Component, err), true
	}
	if out, stop := e.ticketOutcome(c, path, resp.Ticket, resp.Type, resp.WorkBasket, resp.Error); stop {
		out.componentName = n.Component
		return out, true
	}
	if out, stop := e.routePendOutcome(ctx, c, path, n.Name, n.Component, resp); stop {
		return out, true
	}

	if len(resp.Branches) == 0 {
		if joinName, ok := c.Journey.JoinFor(n.Name); ok {
			if join, ok := c.Journey.Nodes[joinName].(*journey.Join); ok {
				e.advanceStep(c, path, join.Next)
				e.maybeSnapshot(ctx, c)
				return workerOutcome{}, false
			}
		}
		return workerOutcome{pathName: path.Name, kind: outcomeEnded, finalStep: journey.EndNode}, true
	}

	// Every label becomes a child path converging on n.Next regardless of
	// the journey definition's branch set (there is none for a dynamic
	// route) — a single-label response collapses to the same observable
	// behavior as a sequential advance, since a join of arity 1 is
	// satisfied the instant its one child arrives.
	targets := make(map[string]string, len(resp.Branches))
	for _, label := range resp.Branches {
		if strings.IndexByte(label, e.cfg.PathSeparator) >= 0 {
			return e.invariantOutcome(c, path, fmt.Errorf("proute_dynamic %q: branch label %q contains the reserved path separator %q", n.Name, label, e.cfg.PathSeparator)), true
		}
		targets[label] = n.Next
	}
	return workerOutcome{pathName: path.Name, kind: outcomeFanOut, fanoutNode: n.Name, componentName: n.Component, labels: resp.Branches, targets: targets}, true
}

// userErrorOutcome wraps a thrown InvokableTask/InvokableRoute error (or a
// component-factory resolution error) into ERROR_PEND at the configured
// error basket: user-step failures are never
// propagated to the host.
func (e *Engine) userErrorOutcome(c *wfcase.Case, path *wfcase.ExecPath, componentName string, err error) workerOutcome {
	e.log.Warn("user step threw", "case", c.CaseID, "path", path.Name, "component", componentName, "error", err)
	info := &wfcase.ErrorInfo{Code: ErrUserStepThrew.Code, Message: err.Error(), Retryable: false}
	e.setPend(c, path, wfcase.ErrorPend, e.cfg.ErrorWorkbasket, info)
	return workerOutcome{
		pathName: path.Name, kind: outcomePended, finalStep: path.Step,
		responseType: wfcase.ErrorPend, workBasket: e.cfg.ErrorWorkbasket,
		pendError: info, componentName: componentName,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
