// Package demo provides a small ComponentFactory implementation for
// cmd/journeyctl: one map from a component name to a handler,
// registration forbids duplicates, and lookup is the only way code gets
// bound to a name.
package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/journeyengine/internal/engine"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// TaskFunc and RouteFunc let a journey author bind behavior to a
// component name without declaring a named type per component.
type TaskFunc func(ctx context.Context, sc engine.StepContext) (wfcase.TaskResponse, error)
type RouteFunc func(ctx context.Context, sc engine.StepContext) (wfcase.RouteResponse, error)

// ComponentFactory is a concurrency-safe componentName -> implementation
// registry implementing engine.ComponentFactory.
type ComponentFactory struct {
	mu     sync.RWMutex
	tasks  map[string]TaskFunc
	routes map[string]RouteFunc
}

// NewComponentFactory returns a factory pre-seeded with this package's
// built-in components (see builtins.go).
func NewComponentFactory() *ComponentFactory {
	f := &ComponentFactory{tasks: map[string]TaskFunc{}, routes: map[string]RouteFunc{}}
	registerBuiltins(f)
	return f
}

// RegisterTask binds name to fn. Re-registering the same name is a
// wiring error: ambiguity about which implementation a journey file
// meant is worse than failing fast at startup.
func (f *ComponentFactory) RegisterTask(name string, fn TaskFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("demo: task registration requires a name and function")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tasks[name]; exists {
		return fmt.Errorf("demo: task %q already registered", name)
	}
	f.tasks[name] = fn
	return nil
}

func (f *ComponentFactory) RegisterRoute(name string, fn RouteFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("demo: route registration requires a name and function")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.routes[name]; exists {
		return fmt.Errorf("demo: route %q already registered", name)
	}
	f.routes[name] = fn
	return nil
}

func (f *ComponentFactory) Task(ctx context.Context, sc engine.StepContext) (engine.InvokableTask, error) {
	f.mu.RLock()
	fn, ok := f.tasks[sc.ComponentName]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("demo: no task registered for component %q", sc.ComponentName)
	}
	return taskAdapter{fn: fn, sc: sc}, nil
}

func (f *ComponentFactory) Route(ctx context.Context, sc engine.StepContext) (engine.InvokableRoute, error) {
	f.mu.RLock()
	fn, ok := f.routes[sc.ComponentName]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("demo: no route registered for component %q", sc.ComponentName)
	}
	return routeAdapter{fn: fn, sc: sc}, nil
}

type taskAdapter struct {
	fn TaskFunc
	sc engine.StepContext
}

func (a taskAdapter) ExecuteStep(ctx context.Context) (wfcase.TaskResponse, error) {
	return a.fn(ctx, a.sc)
}

type routeAdapter struct {
	fn RouteFunc
	sc engine.StepContext
}

func (a routeAdapter) ExecuteRoute(ctx context.Context) (wfcase.RouteResponse, error) {
	return a.fn(ctx, a.sc)
}

var _ engine.ComponentFactory = (*ComponentFactory)(nil)
