package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/journeyengine/internal/wfcase"
)

// watchedTask/watchedRoute run a user invocation on its own goroutine and
// log a warning if it has not returned within cfg.WorkerStaleAfter,
// repeating every interval until it does. A long-running unit is
// flagged, never killed — the engine has no way to interrupt
// uncooperative user code. WorkerStaleAfter == 0 disables the watch and
// the call runs with no extra goroutine at all.
func (e *Engine) watchedTask(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, componentName string, task InvokableTask) (wfcase.TaskResponse, error) {
	if e.cfg.WorkerStaleAfter <= 0 {
		return task.ExecuteStep(ctx)
	}
	type result struct {
		resp wfcase.TaskResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		resp, err := task.ExecuteStep(ctx)
		done <- result{resp, err}
	}()
	return waitWithStaleLog(e, c, path, componentName, done, func(r result) (wfcase.TaskResponse, error) { return r.resp, r.err })
}

func (e *Engine) watchedRoute(ctx context.Context, c *wfcase.Case, path *wfcase.ExecPath, componentName string, route InvokableRoute) (wfcase.RouteResponse, error) {
	if e.cfg.WorkerStaleAfter <= 0 {
		return route.ExecuteRoute(ctx)
	}
	type result struct {
		resp wfcase.RouteResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		resp, err := route.ExecuteRoute(ctx)
		done <- result{resp, err}
	}()
	return waitWithStaleLog(e, c, path, componentName, done, func(r result) (wfcase.RouteResponse, error) { return r.resp, r.err })
}

// waitWithStaleLog blocks on done, logging once per WorkerStaleAfter
// interval elapsed without a result. It never gives up waiting: the
// calling pool goroutine is tied up for as long as the user code runs,
// exactly as an un-watched call would be.
func waitWithStaleLog[R any, T any](e *Engine, c *wfcase.Case, path *wfcase.ExecPath, componentName string, done chan R, unwrap func(R) (T, error)) (T, error) {
	timer := time.NewTimer(e.cfg.WorkerStaleAfter)
	defer timer.Stop()
	for {
		select {
		case r := <-done:
			return unwrap(r)
		case <-timer.C:
			e.log.Warn("execution path worker exceeded stale threshold",
				"case", c.CaseID, "path", path.Name, "component", componentName,
				"staleAfter", e.cfg.WorkerStaleAfter)
			timer.Reset(e.cfg.WorkerStaleAfter)
		}
	}
}
