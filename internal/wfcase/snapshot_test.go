package wfcase

import (
	"testing"

	"github.com/yungbote/journeyengine/internal/journey"
)

func TestSnapshotRoundTrip(t *testing.T) {
	j := newTestJourney(t)
	c := NewCase("case-1", j, map[string]string{"n": "7"}, []Milestone{
		{Name: "m1", SetupOn: SetupOnCaseStart, Type: MilestoneCaseLevel, ClockStarts: "now", ActionCode: "notify"},
	})
	c.ExecPaths["child"] = &ExecPath{Name: "child", Status: PathStarted, Step: "a"}
	c.JoinExpectations["parent|join1"] = &JoinExpectation{
		ParentPath: "parent", JoinNode: "join1", ExpectedArity: 2, Collected: map[string]bool{"child": true},
	}
	c.Ticket = "cancel"
	c.LastUnitExecuted = "a/echo"
	c.BumpGeneration()

	snap := c.ToSnapshot()
	doc, err := snap.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeSnapshot(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	c2, err := FromSnapshot(decoded, j)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}

	if c2.CaseID != c.CaseID || c2.JourneyName != c.JourneyName {
		t.Fatalf("case identity did not round-trip: %+v", c2)
	}
	if c2.Variables["n"].Value != "7" {
		t.Fatalf("expected variable n=7 to round-trip, got %q", c2.Variables["n"].Value)
	}
	if len(c2.ExecPaths) != 2 {
		t.Fatalf("expected 2 exec paths to round-trip, got %d", len(c2.ExecPaths))
	}
	if c2.Ticket != "cancel" {
		t.Fatalf("expected ticket to round-trip, got %q", c2.Ticket)
	}
	if c2.Generation() != 1 {
		t.Fatalf("expected generation to round-trip, got %d", c2.Generation())
	}
	je, ok := c2.JoinExpectations["parent|join1"]
	if !ok {
		t.Fatalf("expected join expectation to round-trip")
	}
	if je.ExpectedArity != 2 || !je.Collected["child"] {
		t.Fatalf("join expectation fields did not round-trip: %+v", je)
	}
}

func TestFromSnapshotReclassifiesRunningAsStarted(t *testing.T) {
	j := newTestJourney(t)
	snap := &Snapshot{
		CaseID:      "case-1",
		JourneyName: j.Name,
		ExecPaths: []ExecPath{
			{Name: RootPathName, Status: PathRunning, Step: "a"},
		},
	}
	c, err := FromSnapshot(snap, j)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if c.ExecPaths[RootPathName].Status != PathStarted {
		t.Fatalf("expected a running path at crash time to reclassify as started, got %q", c.ExecPaths[RootPathName].Status)
	}
}

func TestFromSnapshotRejectsNoExecPaths(t *testing.T) {
	j := newTestJourney(t)
	snap := &Snapshot{CaseID: "case-1", JourneyName: j.Name}
	if _, err := FromSnapshot(snap, j); err == nil {
		t.Fatalf("expected error for a snapshot with no exec paths")
	}
}

func TestFromSnapshotRejectsNil(t *testing.T) {
	if _, err := FromSnapshot(nil, journey.New("x")); err == nil {
		t.Fatalf("expected error for nil snapshot")
	}
}
