package journey

import "testing"

func TestLoadJSONLinear(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "linear",
			"process_variables": [{"name": "n", "type": "integer", "value": "0"}],
			"flow": [
				{"type": "TASK", "name": "a", "component": "echo", "next": "b"},
				{"type": "TASK", "name": "b", "component": "echo", "next": "end"}
			]
		}
	}`)
	j, err := LoadJSON(raw)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if j.Name != "linear" {
		t.Fatalf("got name %q", j.Name)
	}
	if len(j.Variables) != 1 || j.Variables[0].Name != "n" || j.Variables[0].Type != VarInteger {
		t.Fatalf("unexpected variables: %+v", j.Variables)
	}
	if _, ok := j.Nodes["a"]; !ok {
		t.Fatalf("expected node %q", "a")
	}
}

func TestLoadJSONRejectsMissingName(t *testing.T) {
	raw := []byte(`{"journey": {"flow": [{"type": "TASK", "name": "a", "next": "end"}]}}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for journey with no name")
	}
}

func TestLoadJSONRejectsUnknownNodeType(t *testing.T) {
	raw := []byte(`{"journey": {"name": "j", "flow": [{"type": "BOGUS", "name": "a"}]}}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for unknown flow node type")
	}
}

func TestLoadJSONRejectsUnknownVarType(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "j",
			"process_variables": [{"name": "n", "type": "float", "value": "0"}],
			"flow": [{"type": "TASK", "name": "a", "component": "echo", "next": "end"}]
		}
	}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for unknown variable type")
	}
}

func TestLoadJSONRejectsPRouteWithNext(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "j",
			"flow": [
				{"type": "P_ROUTE", "name": "fork", "component": "split", "next": "should-not-be-here",
				 "branches": [{"name": "a", "next": "end"}]}
			]
		}
	}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for P_ROUTE declaring next")
	}
}

func TestLoadJSONRejectsPRouteDynamicWithBranches(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "j",
			"flow": [
				{"type": "P_ROUTE_DYNAMIC", "name": "fanout", "component": "fan_n", "next": "end",
				 "branches": [{"name": "a", "next": "end"}]}
			]
		}
	}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for P_ROUTE_DYNAMIC declaring branches")
	}
}

func TestLoadJSONRejectsDuplicateBranchLabel(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "j",
			"flow": [
				{"type": "S_ROUTE", "name": "r", "component": "choose",
				 "branches": [{"name": "a", "next": "end"}, {"name": "a", "next": "end"}]}
			]
		}
	}`)
	if _, err := LoadJSON(raw); err == nil {
		t.Fatalf("expected error for duplicate branch label within a route")
	}
}

func TestLoadJSONFullShape(t *testing.T) {
	raw := []byte(`{
		"journey": {
			"name": "fanout-journey",
			"tickets": [{"name": "cancel", "step": "end"}],
			"flow": [
				{"type": "P_ROUTE", "name": "fork", "component": "split_even_odd",
				 "branches": [{"name": "even", "next": "evenTask"}, {"name": "odd", "next": "oddTask"}]},
				{"type": "TASK", "name": "evenTask", "component": "echo", "next": "join1"},
				{"type": "TASK", "name": "oddTask", "component": "echo", "next": "join1"},
				{"type": "P_JOIN", "name": "join1", "next": "end"}
			]
		}
	}`)
	j, err := LoadJSON(raw)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if target, ok := j.Tickets["cancel"]; !ok || target != EndNode {
		t.Fatalf("expected ticket cancel -> end, got %q, %v", target, ok)
	}
	if joinNode, ok := j.JoinFor("fork"); !ok || joinNode != "join1" {
		t.Fatalf("expected fork to converge on join1, got %q, %v", joinNode, ok)
	}
}
