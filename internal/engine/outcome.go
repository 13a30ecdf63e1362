package engine

import "github.com/yungbote/journeyengine/internal/wfcase"

// outcomeKind tags what an Execution Path Worker invocation produced.
// The worker itself never mutates Case-level state (the execPaths map,
// join expectations, the active ticket); it reports an outcome and the
// drive loop's single-threaded reconcile step applies it. This is
// what makes concurrent sibling-path workers safe without a lock around
// the whole case: every worker mutates only the ExecPath it was handed
// (under Case.Lock, see worker.go), and every cross-path mutation
// (fan-out, join, ticket) happens after the pool join barrier.
type outcomeKind int

const (
	outcomeEnded outcomeKind = iota
	outcomePended
	outcomeFanOut
	outcomeJoinArrived
	outcomeTicket
)

// workerOutcome is the Execution Path Worker's report back to the drive
// loop for exactly one path.
type workerOutcome struct {
	pathName string
	kind     outcomeKind

	// finalStep is the node name the path should sit at once reconcile
	// applies this outcome (meaningless for outcomeFanOut, whose parent
	// path is being retired rather than repositioned).
	finalStep     string
	responseType  wfcase.ResponseType
	workBasket    string
	pendError     *wfcase.ErrorInfo
	componentName string

	// fan-out fields
	fanoutNode string // the PRoute/PRouteDynamic node name that forked
	labels     []string
	targets    map[string]string // label -> child start node

	// join fields
	joinNode string

	// ticket fields: ticketName is validated against the journey's ticket
	// map by the worker (UnknownTicket becomes an ERROR_PEND outcome
	// instead), so reconcile can trust ticketTarget.
	ticketName   string
	ticketTarget string
}
