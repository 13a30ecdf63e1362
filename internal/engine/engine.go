// Package engine implements the case interpreter, the execution path
// workers, parallel fan-out/join handling, ticket pre-emption, and
// snapshot/recovery as one cohesive runtime. SLA notification and
// work-basket admin live here too, since ChangeWorkBasket must run
// under the same case-level lock as StartCase/ResumeCase.
//
// Nothing in this package is a process-wide singleton: a host builds a
// Config value and passes it to New, which returns an *Engine handle
// carrying its own worker pool, its own per-case lock table, and the
// collaborators the host supplied.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/journeyengine/internal/journey"
	"github.com/yungbote/journeyengine/internal/platform/logger"
)

// Engine is the constructed runtime handle a host holds for its lifetime.
type Engine struct {
	cfg     Config
	repo    Repository
	factory ComponentFactory
	sla     SLACollaborator
	events  EventHandler
	log     *logger.Logger

	pool  *pool
	locks *caseLocks

	journeysMu sync.RWMutex
	journeys   map[string]*journey.Journey

	closedMu sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New constructs an Engine. factory and repo are required; sla, events,
// and log default to no-ops/a development logger so a host can omit them
// in tests.
func New(cfg Config, repo Repository, factory ComponentFactory, sla SLACollaborator, events EventHandler, log *logger.Logger) (*Engine, error) {
	if repo == nil {
		return nil, wrapf(ErrInvariantViolation, "engine: repo is required")
	}
	if factory == nil {
		return nil, wrapf(ErrInvariantViolation, "engine: component factory is required")
	}
	if sla == nil {
		sla = noopSLA{}
	}
	if events == nil {
		events = NoopEventHandler{}
	}
	if log == nil {
		l, err := logger.New("development")
		if err != nil {
			return nil, err
		}
		log = l
	}
	// Fill unset fields from the defaults individually: MaxThreads 0 is a
	// meaningful setting (inline execution) and must survive.
	def := DefaultConfig()
	if cfg.PathSeparator == 0 {
		cfg.PathSeparator = def.PathSeparator
	}
	if cfg.ErrorWorkbasket == "" {
		cfg.ErrorWorkbasket = def.ErrorWorkbasket
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	return &Engine{
		cfg:      cfg,
		repo:     repo,
		factory:  factory,
		sla:      sla,
		events:   events,
		log:      log.With("component", "Engine"),
		pool:     newPool(cfg.MaxThreads),
		locks:    newCaseLocks(),
		journeys: map[string]*journey.Journey{},
	}, nil
}

// RegisterJourney makes j resolvable by name for ResumeCase. A snapshot
// only stores the journey's name; rehydration means looking the name
// back up here, since the journey's component bindings live in the host
// process, not in the repository.
func (e *Engine) RegisterJourney(j *journey.Journey) {
	e.journeysMu.Lock()
	defer e.journeysMu.Unlock()
	e.journeys[j.Name] = j
}

func (e *Engine) lookupJourney(name string) (*journey.Journey, bool) {
	e.journeysMu.RLock()
	defer e.journeysMu.RUnlock()
	j, ok := e.journeys[name]
	return j, ok
}

// journeyFor resolves a registered, validated journey or reports
// DefinitionInvalid: an unvalidated graph has no computed join map and
// must never reach the drive loop.
func (e *Engine) journeyFor(name string) (*journey.Journey, error) {
	j, ok := e.lookupJourney(name)
	if !ok {
		return nil, wrapf(ErrDefinitionInvalid, "journey %q is not registered", name)
	}
	if !j.Validated() {
		return nil, wrapf(ErrDefinitionInvalid, "journey %q has not passed validation", name)
	}
	return j, nil
}

func (e *Engine) emitEvent(evt Event, caseID, pathName, componentName, workBasket string, isPendAtSameStep bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event handler panicked", "event", evt, "case", caseID, "panic", r)
		}
	}()
	e.events.HandleEvent(evt, caseID, pathName, componentName, workBasket, isPendAtSameStep)
}

// Close stops the engine from accepting new StartCase/ResumeCase/
// ChangeWorkBasket calls and waits up to IdleTimeout for calls already
// in flight to finish. A case still mid-flight when the grace period
// elapses is simply abandoned in memory: its last snapshot is already
// durable (every pend/complete/persist-node write is forced regardless
// of WriteProcessInfoAfterEachStep), so it is recovered normally by a
// ResumeCase the next time the host starts an engine.
func (e *Engine) Close() error {
	e.closedMu.Lock()
	e.closed = true
	e.closedMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(e.cfg.IdleTimeout):
		return wrapf(ErrExecutorSaturated, "engine: case operation(s) still in flight after %s", e.cfg.IdleTimeout)
	}
}

// enter records one in-flight case-level operation (StartCase/ResumeCase/
// ChangeWorkBasket), rejecting new work once Close has been called.
func (e *Engine) enter() (func(), error) {
	e.closedMu.Lock()
	if e.closed {
		e.closedMu.Unlock()
		return nil, wrapf(ErrInvariantViolation, "engine: closed")
	}
	e.inflight.Add(1)
	e.closedMu.Unlock()
	return e.inflight.Done, nil
}

// noopSLA is used when a host doesn't supply an SLA collaborator (e.g. in
// tests that don't care about milestone timers).
type noopSLA struct{}

func (noopSLA) Enqueue(context.Context, string, []byte) error   { return nil }
func (noopSLA) Dequeue(context.Context, string, string) error   { return nil }
func (noopSLA) DequeueAll(context.Context, string) error        { return nil }
