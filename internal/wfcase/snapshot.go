package wfcase

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yungbote/journeyengine/internal/journey"
)

// Snapshot is the document the engine persists under
// workflow_process_info+SEP+caseId. It captures every Case field needed
// to rehydrate; the journey itself is not stored: only its name is
// written, separately, under workflow_journey+SEP+caseId, and the
// journey is rehydrated by name at ResumeCase time.
type Snapshot struct {
	CaseID           string             `json:"caseId"`
	JourneyName      string             `json:"journeyName"`
	Variables        []Variable         `json:"variables"`
	ExecPaths        []ExecPath         `json:"execPaths"`
	PendExecPath     string             `json:"pendExecPath,omitempty"`
	Ticket           string             `json:"ticket,omitempty"`
	LastUnitExecuted string             `json:"lastUnitExecuted,omitempty"`
	IsComplete       bool               `json:"isComplete"`
	Milestones       []Milestone        `json:"milestones,omitempty"`
	JoinExpectations []JoinExpectation  `json:"joinExpectations,omitempty"`
	Generation       int                `json:"generation"`
}

// ToSnapshot flattens a live Case into its persisted document shape. It
// takes a read lock so a concurrently-running Execution Path Worker
// mutating its own path does not race with the read.
func (c *Case) ToSnapshot() *Snapshot {
	c.RLock()
	defer c.RUnlock()
	s := &Snapshot{
		CaseID:           c.CaseID,
		JourneyName:      c.JourneyName,
		PendExecPath:     c.PendExecPath,
		Ticket:           c.Ticket,
		LastUnitExecuted: c.LastUnitExecuted,
		IsComplete:       c.IsComplete,
		Milestones:       c.Milestones,
		Generation:       c.generation,
	}
	for _, name := range c.VariableOrder {
		s.Variables = append(s.Variables, *c.Variables[name])
	}
	for _, name := range pathNamesSorted(c.ExecPaths) {
		s.ExecPaths = append(s.ExecPaths, *c.ExecPaths[name])
	}
	for _, key := range joinKeysSorted(c.JoinExpectations) {
		s.JoinExpectations = append(s.JoinExpectations, *c.JoinExpectations[key])
	}
	return s
}

// FromSnapshot reconstructs a live Case from a persisted document and its
// (already loaded) journey. Any path left "running" at crash time is
// re-classified "started" so it is re-executed on resume.
func FromSnapshot(s *Snapshot, j *journey.Journey) (*Case, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	c := &Case{
		CaseID:           s.CaseID,
		Journey:          j,
		JourneyName:      s.JourneyName,
		Variables:        map[string]*Variable{},
		ExecPaths:        map[string]*ExecPath{},
		PendExecPath:     s.PendExecPath,
		Ticket:           s.Ticket,
		LastUnitExecuted: s.LastUnitExecuted,
		IsComplete:       s.IsComplete,
		Milestones:       s.Milestones,
		JoinExpectations: map[string]*JoinExpectation{},
		generation:       s.Generation,
	}
	for i := range s.Variables {
		v := s.Variables[i]
		c.Variables[v.Name] = &v
		c.VariableOrder = append(c.VariableOrder, v.Name)
	}
	for i := range s.ExecPaths {
		p := s.ExecPaths[i]
		if p.Status == PathRunning {
			p.Status = PathStarted
		}
		c.ExecPaths[p.Name] = &p
	}
	for i := range s.JoinExpectations {
		je := s.JoinExpectations[i]
		if je.Collected == nil {
			je.Collected = map[string]bool{}
		}
		c.JoinExpectations[je.Key()] = &je
	}
	if len(c.ExecPaths) == 0 {
		return nil, fmt.Errorf("snapshot for case %q has no execution paths", s.CaseID)
	}
	return c, nil
}

// Encode/Decode marshal the snapshot as JSON — the repository's
// documents are opaque bytes.
func (s *Snapshot) Encode() ([]byte, error) { return json.Marshal(s) }

func DecodeSnapshot(raw []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

func pathNamesSorted(m map[string]*ExecPath) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinKeysSorted(m map[string]*JoinExpectation) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
