package engine

import (
	"context"

	"github.com/yungbote/journeyengine/internal/wfcase"
)

// NodeKind tells a ComponentFactory which capability to hand back.
type NodeKind string

const (
	KindTask          NodeKind = "task"
	KindSRoute        NodeKind = "sroute"
	KindPRoute        NodeKind = "proute"
	KindPRouteDynamic NodeKind = "proute_dynamic"
)

// VariablesView is a read-only view of a case's variables handed to user
// code; it never exposes the map backing it so user code cannot mutate
// engine state directly.
type VariablesView interface {
	Get(name string) (string, bool)
	All() map[string]string
}

type variablesView struct {
	vars map[string]*wfcase.Variable
}

func (v variablesView) Get(name string) (string, bool) {
	val, ok := v.vars[name]
	if !ok {
		return "", false
	}
	return val.Value, true
}

func (v variablesView) All() map[string]string {
	out := make(map[string]string, len(v.vars))
	for k, val := range v.vars {
		out[k] = val.Value
	}
	return out
}

// StepContext is what the component factory receives when asked to build
// an invokable task or route.
type StepContext struct {
	CaseID        string
	PathName      string
	NodeName      string
	ComponentName string
	NodeType      NodeKind
	UserData      string
	Variables     VariablesView
}

// InvokableTask is a user-supplied Task implementation. An error return
// represents the user code throwing; the engine wraps it into ERROR_PEND
// rather than propagating it to the host.
type InvokableTask interface {
	ExecuteStep(ctx context.Context) (wfcase.TaskResponse, error)
}

// InvokableRoute is a user-supplied SRoute/PRoute/PRouteDynamic
// implementation.
type InvokableRoute interface {
	ExecuteRoute(ctx context.Context) (wfcase.RouteResponse, error)
}

// ComponentFactory is the host-supplied factory that resolves a node to
// its invokable implementation. Pause, Persist, and Join never call it.
type ComponentFactory interface {
	Task(ctx context.Context, sc StepContext) (InvokableTask, error)
	Route(ctx context.Context, sc StepContext) (InvokableRoute, error)
}
