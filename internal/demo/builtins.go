package demo

import (
	"context"
	"strconv"

	"github.com/yungbote/journeyengine/internal/engine"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// registerBuiltins wires a handful of components a demo journey file can
// reference by name without the host writing any Go, enough to exercise
// every node kind from cmd/journeyctl.
func registerBuiltins(f *ComponentFactory) {
	_ = f.RegisterTask("echo", echoTask)
	_ = f.RegisterTask("approve", approveTask)
	_ = f.RegisterRoute("split_even_odd", splitEvenOddRoute)
	_ = f.RegisterRoute("fan_n", fanNRoute)
}

// echoTask always proceeds; it exists so a journey file can exercise a
// plain Task node with zero external side effects.
func echoTask(ctx context.Context, sc engine.StepContext) (wfcase.TaskResponse, error) {
	return wfcase.TaskResponse{Type: wfcase.OKProceed}, nil
}

// approveTask pends into a work basket named by the node's UserData (or
// "workflow_review" if empty), demonstrating the OK_PEND path an external
// actor later resumes via ChangeWorkBasket/ResumeCase.
func approveTask(ctx context.Context, sc engine.StepContext) (wfcase.TaskResponse, error) {
	basket := sc.UserData
	if basket == "" {
		basket = "workflow_review"
	}
	return wfcase.TaskResponse{Type: wfcase.OKPend, WorkBasket: basket}, nil
}

// splitEvenOddRoute is a P_ROUTE component: its branch set is fixed by the
// journey file, so this only needs to report which of "even"/"odd" to
// take based on a "n" variable, demonstrating static fan-out.
func splitEvenOddRoute(ctx context.Context, sc engine.StepContext) (wfcase.RouteResponse, error) {
	n, _ := strconv.Atoi(firstOr(sc.Variables, "n", "0"))
	if n%2 == 0 {
		return wfcase.RouteResponse{Branches: []string{"even"}}, nil
	}
	return wfcase.RouteResponse{Branches: []string{"odd"}}, nil
}

// fanNRoute is a P_ROUTE_DYNAMIC component: it reports one branch per
// unit named "branch_0".."branch_(n-1)", n taken from a "fanout" variable,
// demonstrating a fan-out whose arity isn't known until runtime.
func fanNRoute(ctx context.Context, sc engine.StepContext) (wfcase.RouteResponse, error) {
	n, _ := strconv.Atoi(firstOr(sc.Variables, "fanout", "1"))
	if n < 1 {
		n = 1
	}
	branches := make([]string, n)
	for i := 0; i < n; i++ {
		branches[i] = "branch_" + strconv.Itoa(i)
	}
	return wfcase.RouteResponse{Branches: branches}, nil
}

func firstOr(v engine.VariablesView, name, def string) string {
	if val, ok := v.Get(name); ok {
		return val
	}
	return def
}
