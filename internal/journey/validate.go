package journey

import "fmt"

// Validate enforces the load-time rules: node names unique (guaranteed by
// AddNode already), no node named "end", every next/branch target resolves
// to a known node or to "end", branch labels unique within a route (map
// keys are already unique), and every parallel fan-out's branches converge
// on one identical Join node. Callers get DefinitionInvalid by wrapping this
// error; Validate itself returns a plain error so this package stays
// independent of the engine's error-kind vocabulary.
func (j *Journey) Validate() error {
	if len(j.Nodes) == 0 {
		return fmt.Errorf("journey %q has no nodes", j.Name)
	}
	for name, n := range j.Nodes {
		if err := j.validateTargets(name, n); err != nil {
			return err
		}
	}
	for name, target := range j.Tickets {
		if target != EndNode {
			if _, ok := j.Nodes[target]; !ok {
				return fmt.Errorf("ticket %q targets unknown node %q", name, target)
			}
		}
	}
	j.joinFor = map[string]string{}
	for name, n := range j.Nodes {
		switch t := n.(type) {
		case *PRoute:
			if err := j.validateConvergence(name, t.Branches); err != nil {
				return err
			}
		case *PRouteDynamic:
			if err := j.validateConvergence(name, map[string]string{"*": t.Next}); err != nil {
				return err
			}
		}
	}
	j.validated = true
	return nil
}

func (j *Journey) resolves(target string) bool {
	if target == EndNode {
		return true
	}
	_, ok := j.Nodes[target]
	return ok
}

func (j *Journey) validateTargets(name string, n Node) error {
	switch t := n.(type) {
	case *Task:
		if !j.resolves(t.Next) {
			return fmt.Errorf("task %q: next %q does not resolve", name, t.Next)
		}
	case *Pause:
		if !j.resolves(t.Next) {
			return fmt.Errorf("pause %q: next %q does not resolve", name, t.Next)
		}
	case *Persist:
		if !j.resolves(t.Next) {
			return fmt.Errorf("persist %q: next %q does not resolve", name, t.Next)
		}
	case *Join:
		if !j.resolves(t.Next) {
			return fmt.Errorf("join %q: next %q does not resolve", name, t.Next)
		}
	case *SRoute:
		if len(t.Branches) == 0 {
			return fmt.Errorf("sroute %q: must define at least one branch", name)
		}
		for label, target := range t.Branches {
			if !j.resolves(target) {
				return fmt.Errorf("sroute %q: branch %q target %q does not resolve", name, label, target)
			}
		}
	case *PRoute:
		if len(t.Branches) == 0 {
			return fmt.Errorf("proute %q: must define at least one branch", name)
		}
		for label, target := range t.Branches {
			if !j.resolves(target) {
				return fmt.Errorf("proute %q: branch %q target %q does not resolve", name, label, target)
			}
		}
	case *PRouteDynamic:
		if !j.resolves(t.Next) {
			return fmt.Errorf("proute_dynamic %q: next %q does not resolve", name, t.Next)
		}
	default:
		return fmt.Errorf("node %q: unrecognized node type %T", name, n)
	}
	return nil
}

// validateConvergence walks forward from each branch target, following only
// single-exit node kinds (Task, Pause, Persist), until it reaches a Join.
// All branches of one fan-out must land on the identical Join node; a
// branch that reaches "end" or another route before a join fails
// validation: an unconverged fan-out is rejected rather than left
// undefined.
func (j *Journey) validateConvergence(fanoutName string, branches map[string]string) error {
	var joinNode string
	for label, target := range branches {
		found, err := j.walkToJoin(fanoutName, target)
		if err != nil {
			return fmt.Errorf("fan-out %q branch %q: %w", fanoutName, label, err)
		}
		if joinNode == "" {
			joinNode = found
		} else if joinNode != found {
			return fmt.Errorf("fan-out %q: branches converge on different joins (%q vs %q)", fanoutName, joinNode, found)
		}
	}
	j.joinFor[fanoutName] = joinNode
	return nil
}

func (j *Journey) walkToJoin(fanoutName, start string) (string, error) {
	seen := map[string]bool{}
	cur := start
	for {
		if cur == EndNode {
			return "", fmt.Errorf("reaches %q without a join", EndNode)
		}
		if seen[cur] {
			return "", fmt.Errorf("cycle detected at %q before reaching a join", cur)
		}
		seen[cur] = true
		n, ok := j.Nodes[cur]
		if !ok {
			return "", fmt.Errorf("unknown node %q", cur)
		}
		switch t := n.(type) {
		case *Join:
			return t.Name, nil
		case *Task:
			cur = t.Next
		case *Pause:
			cur = t.Next
		case *Persist:
			cur = t.Next
		default:
			return "", fmt.Errorf("passes through %q (%T) before a join; convergence must not cross another route", cur, n)
		}
	}
}
