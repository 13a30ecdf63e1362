package wfcase

import (
	"testing"

	"github.com/yungbote/journeyengine/internal/journey"
)

func newTestJourney(t *testing.T) *journey.Journey {
	t.Helper()
	j := journey.New("linear")
	if err := j.AddNode(&journey.Task{Name: "a", Component: "echo", Next: "b"}); err != nil {
		t.Fatalf("AddNode a: %v", err)
	}
	if err := j.AddNode(&journey.Task{Name: "b", Component: "echo", Next: journey.EndNode}); err != nil {
		t.Fatalf("AddNode b: %v", err)
	}
	j.Variables = append(j.Variables, journey.VariableDef{Name: "n", Type: journey.VarInteger, Default: "0"})
	if err := j.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return j
}

func TestNewCasePositionsRootAtFirstNode(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, nil, nil)
	root, ok := c.ExecPaths[RootPathName]
	if !ok {
		t.Fatalf("expected a root path named %q", RootPathName)
	}
	if root.Step != "a" {
		t.Fatalf("expected root to start at %q, got %q", "a", root.Step)
	}
	if root.Status != PathStarted {
		t.Fatalf("expected root status %q, got %q", PathStarted, root.Status)
	}
}

func TestNewCaseVariableDefaultsAndOverrides(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, map[string]string{"n": "5"}, nil)
	if c.Variables["n"].Value != "5" {
		t.Fatalf("expected override to take effect, got %q", c.Variables["n"].Value)
	}

	c2 := NewCase("case-2", j, nil, nil)
	if c2.Variables["n"].Value != "0" {
		t.Fatalf("expected default value, got %q", c2.Variables["n"].Value)
	}
}

func TestRunnableAndAllCompleted(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, nil, nil)
	if !c.Runnable() {
		t.Fatalf("expected a fresh case to be runnable")
	}
	if c.AllCompleted() {
		t.Fatalf("expected a fresh case to not be complete")
	}

	c.ExecPaths[RootPathName].Status = PathCompleted
	c.ExecPaths[RootPathName].Step = journey.EndNode
	if c.Runnable() {
		t.Fatalf("expected no runnable paths once the only path is completed at end")
	}
	if !c.AllCompleted() {
		t.Fatalf("expected completion once every path is completed at end")
	}
}

func TestIsPendedRequiresNonCompletedStatus(t *testing.T) {
	p := &ExecPath{UnitResponseType: OKPend, Status: PathStarted}
	if !p.IsPended() {
		t.Fatalf("expected OK_PEND + started to be pended")
	}
	p.Status = PathCompleted
	if p.IsPended() {
		t.Fatalf("expected a completed path to never be pended regardless of response type")
	}
}

func TestPendedRequiresNoRunningPaths(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, nil, nil)
	c.ExecPaths[RootPathName].UnitResponseType = OKPend
	c.ExecPaths[RootPathName].Status = PathStarted
	c.ExecPaths["child"] = &ExecPath{Name: "child", Status: PathRunning}

	if _, ok := c.Pended(); ok {
		t.Fatalf("expected Pended() to report false while any path is still running")
	}

	delete(c.ExecPaths, "child")
	name, ok := c.Pended()
	if !ok || name != RootPathName {
		t.Fatalf("expected Pended() to report (%q, true), got (%q, %v)", RootPathName, name, ok)
	}
}

func TestParentAndChildPathNames(t *testing.T) {
	if _, ok := ParentPathName(RootPathName, '-'); ok {
		t.Fatalf("root path should have no parent")
	}
	child := ChildPathName(RootPathName, "even", '-')
	if child != ".-even" {
		t.Fatalf("got child name %q", child)
	}
	parent, ok := ParentPathName(child, '-')
	if !ok || parent != RootPathName {
		t.Fatalf("expected parent %q, got %q, %v", RootPathName, parent, ok)
	}

	grandchild := ChildPathName(child, "0", '-')
	parent2, ok := ParentPathName(grandchild, '-')
	if !ok || parent2 != child {
		t.Fatalf("expected parent %q, got %q, %v", child, parent2, ok)
	}
}

func TestGenerationBump(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, nil, nil)
	if c.Generation() != 0 {
		t.Fatalf("expected generation 0 on a fresh case")
	}
	if got := c.BumpGeneration(); got != 1 {
		t.Fatalf("expected BumpGeneration to return 1, got %d", got)
	}
	if c.Generation() != 1 {
		t.Fatalf("expected generation to persist at 1")
	}
}
