package journey

import "testing"

func mustAdd(t *testing.T, j *Journey, n Node) {
	t.Helper()
	if err := j.AddNode(n); err != nil {
		t.Fatalf("AddNode(%v): %v", n, err)
	}
}

func TestValidateRejectsEmptyJourney(t *testing.T) {
	j := New("empty")
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for journey with no nodes")
	}
}

func TestAddNodeRejectsEndName(t *testing.T) {
	j := New("j")
	if err := j.AddNode(&Task{Name: EndNode, Next: EndNode}); err == nil {
		t.Fatalf("expected error registering a node named %q", EndNode)
	}
}

func TestAddNodeRejectsDuplicateName(t *testing.T) {
	j := New("j")
	mustAdd(t, j, &Task{Name: "a", Next: EndNode})
	if err := j.AddNode(&Task{Name: "a", Next: EndNode}); err == nil {
		t.Fatalf("expected error for duplicate node name")
	}
}

func TestValidateRejectsDanglingNext(t *testing.T) {
	j := New("j")
	mustAdd(t, j, &Task{Name: "a", Next: "nowhere"})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for dangling next target")
	}
}

func TestValidateRejectsDanglingBranch(t *testing.T) {
	j := New("j")
	mustAdd(t, j, &SRoute{Name: "r", Branches: map[string]string{"x": "nowhere"}})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for dangling branch target")
	}
}

func TestValidateRejectsSRouteWithNoBranches(t *testing.T) {
	j := New("j")
	mustAdd(t, j, &SRoute{Name: "r", Branches: map[string]string{}})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for sroute with zero branches")
	}
}

func TestValidateAcceptsLinearJourney(t *testing.T) {
	j := New("linear")
	mustAdd(t, j, &Task{Name: "a", Component: "echo", Next: "b"})
	mustAdd(t, j, &Task{Name: "b", Component: "echo", Next: EndNode})
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownTicketTarget(t *testing.T) {
	j := New("j")
	mustAdd(t, j, &Task{Name: "a", Next: EndNode})
	j.Tickets["t1"] = "nowhere"
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for ticket targeting unknown node")
	}
}

// TestValidateConvergencePRouteSameJoin builds a fork whose two branches
// both walk (through a Task each) to the same Join node, which must pass.
func TestValidateConvergencePRouteSameJoin(t *testing.T) {
	j := New("fork")
	mustAdd(t, j, &PRoute{Name: "fork", Component: "split", Branches: map[string]string{
		"even": "evenTask", "odd": "oddTask",
	}})
	mustAdd(t, j, &Task{Name: "evenTask", Component: "echo", Next: "join1"})
	mustAdd(t, j, &Task{Name: "oddTask", Component: "echo", Next: "join1"})
	mustAdd(t, j, &Join{Name: "join1", Next: EndNode})
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := j.JoinFor("fork"); !ok || got != "join1" {
		t.Fatalf("JoinFor(fork) = %q, %v, want join1, true", got, ok)
	}
}

// TestValidateConvergenceRejectsDivergentJoins builds a fork whose branches
// reach two different Join nodes, which must be rejected: all branches
// of one fan-out must converge on one identical join.
func TestValidateConvergenceRejectsDivergentJoins(t *testing.T) {
	j := New("fork")
	mustAdd(t, j, &PRoute{Name: "fork", Component: "split", Branches: map[string]string{
		"a": "taskA", "b": "taskB",
	}})
	mustAdd(t, j, &Task{Name: "taskA", Component: "echo", Next: "joinA"})
	mustAdd(t, j, &Task{Name: "taskB", Component: "echo", Next: "joinB"})
	mustAdd(t, j, &Join{Name: "joinA", Next: EndNode})
	mustAdd(t, j, &Join{Name: "joinB", Next: EndNode})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for branches converging on different joins")
	}
}

// TestValidateConvergenceRejectsEndBeforeJoin covers a branch that runs off
// the end of the journey instead of reaching a join.
func TestValidateConvergenceRejectsEndBeforeJoin(t *testing.T) {
	j := New("fork")
	mustAdd(t, j, &PRoute{Name: "fork", Component: "split", Branches: map[string]string{
		"a": "taskA", "b": "taskB",
	}})
	mustAdd(t, j, &Task{Name: "taskA", Component: "echo", Next: "join1"})
	mustAdd(t, j, &Task{Name: "taskB", Component: "echo", Next: EndNode})
	mustAdd(t, j, &Join{Name: "join1", Next: EndNode})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for branch reaching end without a join")
	}
}

// TestValidateConvergenceRejectsCrossingAnotherRoute covers a branch that
// passes through a second route before reaching a join, which the
// convergence rule forbids.
func TestValidateConvergenceRejectsCrossingAnotherRoute(t *testing.T) {
	j := New("fork")
	mustAdd(t, j, &PRoute{Name: "fork", Component: "split", Branches: map[string]string{
		"a": "taskA", "b": "inner",
	}})
	mustAdd(t, j, &Task{Name: "taskA", Component: "echo", Next: "join1"})
	mustAdd(t, j, &SRoute{Name: "inner", Component: "choose", Branches: map[string]string{"x": "join1"}})
	mustAdd(t, j, &Join{Name: "join1", Next: EndNode})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for a branch crossing another route before its join")
	}
}

// TestValidateConvergenceRejectsCycle covers a branch whose next-chain
// cycles back on itself without ever reaching a join.
func TestValidateConvergenceRejectsCycle(t *testing.T) {
	j := New("fork")
	mustAdd(t, j, &PRoute{Name: "fork", Component: "split", Branches: map[string]string{
		"a": "taskA", "b": "join1",
	}})
	mustAdd(t, j, &Task{Name: "taskA", Component: "echo", Next: "taskB"})
	mustAdd(t, j, &Task{Name: "taskB", Component: "echo", Next: "taskA"})
	mustAdd(t, j, &Join{Name: "join1", Next: EndNode})
	if err := j.Validate(); err == nil {
		t.Fatalf("expected error for a cyclic branch that never reaches a join")
	}
}

func TestValidatePRouteDynamicConverges(t *testing.T) {
	j := New("fanN")
	mustAdd(t, j, &PRouteDynamic{Name: "fanout", Component: "fan_n", Next: "child"})
	mustAdd(t, j, &Task{Name: "child", Component: "echo", Next: "join1"})
	mustAdd(t, j, &Join{Name: "join1", Next: EndNode})
	if err := j.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := j.JoinFor("fanout"); !ok || got != "join1" {
		t.Fatalf("JoinFor(fanout) = %q, %v, want join1, true", got, ok)
	}
}
