package journey

import (
	"encoding/json"
	"fmt"
)

// The journey JSON document shape: root `$.journey` with name,
// process_variables[], tickets[], and flow[].

type jsonDoc struct {
	Journey jsonJourney `json:"journey"`
}

type jsonJourney struct {
	Name             string          `json:"name"`
	ProcessVariables []jsonVariable  `json:"process_variables"`
	Tickets          []jsonTicket    `json:"tickets"`
	Flow             []jsonFlowNode  `json:"flow"`
}

type jsonVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type jsonTicket struct {
	Name string `json:"name"`
	Step string `json:"step"`
}

type jsonBranch struct {
	Name string `json:"name"`
	Next string `json:"next"`
}

type jsonFlowNode struct {
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	Component string       `json:"component,omitempty"`
	UserData  string       `json:"user_data,omitempty"`
	Next      string       `json:"next,omitempty"`
	Branches  []jsonBranch `json:"branches,omitempty"`
}

// LoadJSON parses and validates a journey definition document. On any
// structural problem it returns a plain error. The engine does not call
// it: it takes an already-built Journey through RegisterJourney.
func LoadJSON(raw []byte) (*Journey, error) {
	var doc jsonDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse journey json: %w", err)
	}
	jd := doc.Journey
	if jd.Name == "" {
		return nil, fmt.Errorf("journey name is required")
	}

	j := New(jd.Name)

	for _, v := range jd.ProcessVariables {
		vt, err := parseVarType(v.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		j.Variables = append(j.Variables, VariableDef{Name: v.Name, Type: vt, Default: v.Value})
	}

	for _, t := range jd.Tickets {
		if t.Name == "" || t.Step == "" {
			return nil, fmt.Errorf("ticket entry missing name or step")
		}
		j.Tickets[t.Name] = t.Step
	}

	for _, fn := range jd.Flow {
		n, err := buildNode(fn)
		if err != nil {
			return nil, err
		}
		if err := j.AddNode(n); err != nil {
			return nil, err
		}
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func parseVarType(s string) (VarType, error) {
	switch VarType(s) {
	case VarString, VarLong, VarInteger, VarBoolean:
		return VarType(s), nil
	default:
		return "", fmt.Errorf("unknown variable type %q", s)
	}
}

func buildNode(fn jsonFlowNode) (Node, error) {
	if fn.Name == "" {
		return nil, fmt.Errorf("flow node missing name")
	}
	switch fn.Type {
	case "TASK":
		return &Task{Name: fn.Name, Component: fn.Component, Next: fn.Next, UserData: fn.UserData}, nil
	case "PAUSE":
		return &Pause{Name: fn.Name, Next: fn.Next}, nil
	case "PERSIST":
		return &Persist{Name: fn.Name, Next: fn.Next}, nil
	case "S_ROUTE":
		branches, err := branchMap(fn.Name, fn.Branches)
		if err != nil {
			return nil, err
		}
		return &SRoute{Name: fn.Name, Component: fn.Component, UserData: fn.UserData, Branches: branches}, nil
	case "P_ROUTE":
		if fn.Next != "" {
			return nil, fmt.Errorf("p_route %q: must not define next", fn.Name)
		}
		branches, err := branchMap(fn.Name, fn.Branches)
		if err != nil {
			return nil, err
		}
		return &PRoute{Name: fn.Name, Component: fn.Component, UserData: fn.UserData, Branches: branches}, nil
	case "P_ROUTE_DYNAMIC":
		if len(fn.Branches) > 0 {
			return nil, fmt.Errorf("p_route_dynamic %q: must not define branches", fn.Name)
		}
		return &PRouteDynamic{Name: fn.Name, Component: fn.Component, UserData: fn.UserData, Next: fn.Next}, nil
	case "P_JOIN":
		return &Join{Name: fn.Name, Next: fn.Next}, nil
	default:
		return nil, fmt.Errorf("flow node %q: unknown type %q", fn.Name, fn.Type)
	}
}

func branchMap(routeName string, bs []jsonBranch) (map[string]string, error) {
	out := make(map[string]string, len(bs))
	for _, b := range bs {
		if _, dup := out[b.Name]; dup {
			return nil, fmt.Errorf("route %q: duplicate branch label %q", routeName, b.Name)
		}
		out[b.Name] = b.Next
	}
	return out, nil
}
