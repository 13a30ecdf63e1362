// Package wfcase holds the mutable per-case state the engine drives:
// the Case itself, its Execution Paths, milestones, and the snapshot
// document shape the engine persists. None of these types know how to
// run a journey; internal/engine owns that behavior, and the split
// keeps everything here plain serializable state.
package wfcase

import (
	"sync"

	"github.com/yungbote/journeyengine/internal/journey"
)

// ResponseType is the outcome of a Task or route invocation.
type ResponseType string

const (
	// OKProceed continues to the node's next.
	OKProceed ResponseType = "OK_PROCEED"
	// OKPend parks the path at the response's work basket; the step is
	// re-invoked on resume.
	OKPend ResponseType = "OK_PEND"
	// OKPendEOR parks the path after advancing past the step, so the
	// step is never re-invoked on resume. The snapshot is written after
	// the step's side effects ran: a crash inside that window re-runs
	// the step, so an OK_PEND_EOR step must be idempotent. That
	// obligation is the component author's, not the engine's.
	OKPendEOR ResponseType = "OK_PEND_EOR"
	// ErrorPend parks the path at an error basket with a populated
	// pendError.
	ErrorPend ResponseType = "ERROR_PEND"
)

// ErrorInfo records a pend caused by user-code failure or an engine-kind
// error wrapped into ERROR_PEND.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// TaskResponse is what an invokable task's ExecuteStep returns.
type TaskResponse struct {
	Type       ResponseType `json:"type"`
	Ticket     string       `json:"ticket,omitempty"`
	WorkBasket string       `json:"workBasket,omitempty"`
	Error      *ErrorInfo   `json:"error,omitempty"`
}

// RouteResponse is what an invokable route's ExecuteRoute returns. Type
// is optional for routes: empty means OK_PROCEED (select/fan the returned
// branches); OK_PEND and ERROR_PEND park the path at WorkBasket before
// any branch is taken. A non-nil Error is wrapped into ERROR_PEND the
// same way a thrown Task exception is.
type RouteResponse struct {
	Type       ResponseType `json:"type,omitempty"`
	Branches   []string     `json:"branches,omitempty"`
	Ticket     string       `json:"ticket,omitempty"`
	WorkBasket string       `json:"workBasket,omitempty"`
	Error      *ErrorInfo   `json:"error,omitempty"`
}

// PathStatus is an Execution Path's lifecycle state.
type PathStatus string

const (
	PathStarted   PathStatus = "started"
	PathRunning   PathStatus = "running"
	PathCompleted PathStatus = "completed"
)

// ExecPath is one concurrent strand of advancement. Name is hierarchical;
// the parent of "P-L" is "P" (strip the last separator-delimited segment),
// so the tree is never stored as a pointer graph.
type ExecPath struct {
	Name                string       `json:"name"`
	Status              PathStatus   `json:"status"`
	Step                string       `json:"step"`
	PendWorkBasket      string       `json:"pendWorkBasket,omitempty"`
	PrevPendWorkBasket  string       `json:"prevPendWorkBasket,omitempty"`
	TbcSlaWorkBasket    string       `json:"tbcSlaWorkBasket,omitempty"`
	PendError           *ErrorInfo   `json:"pendError,omitempty"`
	UnitResponseType    ResponseType `json:"unitResponseType,omitempty"`
	Ticket              string       `json:"ticket,omitempty"`
}

// IsPended reports whether this path is parked awaiting external
// action.
func (p *ExecPath) IsPended() bool {
	switch p.UnitResponseType {
	case OKPend, OKPendEOR, ErrorPend:
		return p.Status != PathCompleted
	default:
		return false
	}
}

// FutureMilestone describes a recurrence of a milestone.
type FutureMilestone struct {
	Offset string `json:"offset"`
	Repeat int    `json:"repeat"`
}

// MilestoneSetupOn and MilestoneType enumerate the milestone trigger
// and scope kinds.
type MilestoneSetupOn string
type MilestoneType string

const (
	SetupOnCaseStart       MilestoneSetupOn = "case_start"
	SetupOnWorkBasketEntry MilestoneSetupOn = "work_basket_entry"

	MilestoneCaseLevel  MilestoneType = "case_level"
	MilestoneWorkBasket MilestoneType = "work_basket"
)

// Milestone is a scheduled SLA event associated with case start or basket
// entry. The runtime never mutates these after StartCase; it only reads
// them when deciding what to enqueue.
type Milestone struct {
	Name             string            `json:"name"`
	SetupOn          MilestoneSetupOn  `json:"setupOn"`
	Type             MilestoneType     `json:"type"`
	WorkBasketName   string            `json:"workBasketName,omitempty"`
	Age              string            `json:"age,omitempty"`
	AbsoluteAt       string            `json:"absoluteAt,omitempty"`
	ClockStarts      string            `json:"clockStarts"`
	ActionCode       string            `json:"actionCode"`
	UserData         string            `json:"userData,omitempty"`
	FutureMilestones []FutureMilestone `json:"futureMilestones,omitempty"`
}

// Variable is one instance of a journey variable inside a running case.
type Variable struct {
	Name  string           `json:"name"`
	Type  journey.VarType  `json:"type"`
	Value string           `json:"stringValue"`
}

// JoinExpectation is a counting latch keyed by (ParentPath, JoinNode).
type JoinExpectation struct {
	ParentPath    string          `json:"parentPath"`
	JoinNode      string          `json:"joinNode"`
	ExpectedArity int             `json:"expectedArity"`
	Collected     map[string]bool `json:"collected"`
}

// Key uniquely identifies a join expectation within a case.
func (je *JoinExpectation) Key() string { return je.ParentPath + "|" + je.JoinNode }

// Case is the mutable, exclusively-owned instance of a running Journey.
type Case struct {
	CaseID           string                      `json:"caseId"`
	Journey          *journey.Journey            `json:"-"`
	JourneyName      string                      `json:"journeyName"`
	Variables        map[string]*Variable        `json:"-"`
	VariableOrder    []string                    `json:"-"`
	ExecPaths        map[string]*ExecPath        `json:"-"`
	PendExecPath     string                      `json:"pendExecPath,omitempty"`
	Ticket           string                      `json:"ticket,omitempty"`
	LastUnitExecuted string                      `json:"lastUnitExecuted,omitempty"`
	IsComplete       bool                        `json:"isComplete"`
	Milestones       []Milestone                 `json:"milestones,omitempty"`
	JoinExpectations map[string]*JoinExpectation `json:"-"`

	// generation is bumped on every ticket raise and carried in the
	// snapshot. No worker result is checked against it: the outcomes of
	// the round in which a ticket lands are dropped by the engine's
	// reconcile step instead.
	generation int

	// pendComponent is the componentName of whichever path most recently
	// caused a pend, held transiently (never persisted) purely so the
	// drive loop can pass it through to ON_PROCESS_PEND's payload without
	// overloading lastUnitExecuted's audit-string format.
	pendComponent string

	// mu guards every field above that a running Execution Path Worker
	// can touch concurrently with a mid-round snapshot write: a worker
	// holds it only for the instant it mutates its own path, and
	// ToSnapshot takes a read lock so a concurrent snapshot never
	// observes a torn write.
	mu sync.RWMutex
}

// Lock, Unlock, RLock, RUnlock expose the case's internal mutex directly
// to internal/engine, which is the only other package allowed to mutate
// a Case's fields. Keeping the mutex on Case itself (rather than beside
// it) means a Case can never be copied into an inconsistent, unlocked
// twin.
func (c *Case) Lock()    { c.mu.Lock() }
func (c *Case) Unlock()  { c.mu.Unlock() }
func (c *Case) RLock()   { c.mu.RLock() }
func (c *Case) RUnlock() { c.mu.RUnlock() }

// Generation returns the case's current cancellation generation.
func (c *Case) Generation() int { return c.generation }

// PendComponent and SetPendComponent carry the componentName of the most
// recent pend for event emission; see pendComponent's field comment.
func (c *Case) PendComponent() string          { return c.pendComponent }
func (c *Case) SetPendComponent(name string)   { c.pendComponent = name }

// BumpGeneration advances the generation counter and returns the new
// value.
func (c *Case) BumpGeneration() int {
	c.generation++
	return c.generation
}

// RootPathName is the name of the always-present root execution path.
const RootPathName = "."

// NewCase constructs a fresh case positioned at journey's first node.
func NewCase(caseID string, j *journey.Journey, vars map[string]string, milestones []Milestone) *Case {
	c := &Case{
		CaseID:           caseID,
		Journey:          j,
		JourneyName:      j.Name,
		Variables:        map[string]*Variable{},
		ExecPaths:        map[string]*ExecPath{},
		Milestones:       milestones,
		JoinExpectations: map[string]*JoinExpectation{},
	}
	for _, vd := range j.Variables {
		val := vd.Default
		if v, ok := vars[vd.Name]; ok {
			val = v
		}
		c.Variables[vd.Name] = &Variable{Name: vd.Name, Type: vd.Type, Value: val}
		c.VariableOrder = append(c.VariableOrder, vd.Name)
	}
	var start string
	if len(j.NodeOrder) > 0 {
		start = j.NodeOrder[0]
	}
	c.ExecPaths[RootPathName] = &ExecPath{Name: RootPathName, Status: PathStarted, Step: start}
	return c
}

// Runnable reports whether the case still has work to do: at least one
// path is neither completed nor pended.
func (c *Case) Runnable() bool {
	for _, p := range c.ExecPaths {
		if p.Status != PathCompleted && !p.IsPended() {
			return true
		}
	}
	return false
}

// AllCompleted reports whether every path has reached "end" with
// status completed — the case-completion rule.
func (c *Case) AllCompleted() bool {
	for _, p := range c.ExecPaths {
		if p.Status != PathCompleted || p.Step != journey.EndNode {
			return false
		}
	}
	return len(c.ExecPaths) > 0
}

// Pended reports whether the case is pended: at least one path is
// pended and no path is currently "running".
func (c *Case) Pended() (pendedPath string, ok bool) {
	for _, p := range c.ExecPaths {
		if p.Status == PathRunning {
			return "", false
		}
	}
	for name, p := range c.ExecPaths {
		if p.IsPended() {
			return name, true
		}
	}
	return "", false
}

// ParentPathName derives a child's parent by stripping its last
// separator-delimited segment. Root has no parent.
func ParentPathName(childName string, sep byte) (string, bool) {
	if childName == RootPathName {
		return "", false
	}
	for i := len(childName) - 1; i >= 0; i-- {
		if childName[i] == sep {
			return childName[:i], true
		}
	}
	return "", false
}

// ChildPathName builds the hierarchical name for a fan-out child.
func ChildPathName(parent, label string, sep byte) string {
	return parent + string(sep) + label
}
