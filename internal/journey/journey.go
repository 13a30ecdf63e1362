// Package journey holds the immutable workflow definition: nodes, variables,
// and tickets. A Journey is validated once at load and then shared read-only
// across every case and path that runs it (no synchronization needed).
package journey

import "fmt"

// EndNode is the reserved sentinel that terminates a path; it is never a
// real node name.
const EndNode = "end"

// VarType is the scalar type of a process variable.
type VarType string

const (
	VarString  VarType = "string"
	VarLong    VarType = "long"
	VarInteger VarType = "integer"
	VarBoolean VarType = "boolean"
)

// VariableDef is one workflow-scoped variable declaration.
type VariableDef struct {
	Name    string
	Type    VarType
	Default string
}

// Node is the discriminated union over the seven node kinds. The interface
// is sealed with an unexported method so only this package's node types can
// satisfy it; dispatch happens via a type switch, never an enum field.
type Node interface {
	NodeName() string
	isNode()
}

type Task struct {
	Name      string
	Component string
	Next      string
	UserData  string
}

func (n *Task) NodeName() string { return n.Name }
func (*Task) isNode()            {}

// Pause is a human hand-off: it pends at the reserved basket
// "workflow_pause" and advances to Next on resume.
type Pause struct {
	Name string
	Next string
}

func (n *Pause) NodeName() string { return n.Name }
func (*Pause) isNode()            {}

// Persist forces a snapshot write with no user callout and no pend event.
type Persist struct {
	Name string
	Next string
}

func (n *Persist) NodeName() string { return n.Name }
func (*Persist) isNode()            {}

// SRoute is a sequential choice: exactly one branch label is selected.
type SRoute struct {
	Name      string
	Component string
	UserData  string
	Branches  map[string]string // label -> next node name
}

func (n *SRoute) NodeName() string { return n.Name }
func (*SRoute) isNode()            {}

// PRoute is a static parallel fan-out: every label the route returns
// becomes a child path. The Go type has no Next field at all, so
// "PRoute must not define next" is enforced by the compiler rather than
// by a runtime check.
type PRoute struct {
	Name      string
	Component string
	UserData  string
	Branches  map[string]string
}

func (n *PRoute) NodeName() string { return n.Name }
func (*PRoute) isNode()            {}

// PRouteDynamic is a runtime-sized parallel fan-out: every returned label
// becomes a child path, all converging on Next. Symmetrically to PRoute,
// the type has no Branches field.
type PRouteDynamic struct {
	Name      string
	Component string
	UserData  string
	Next      string
}

func (n *PRouteDynamic) NodeName() string { return n.Name }
func (*PRouteDynamic) isNode()            {}

type Join struct {
	Name string
	Next string
}

func (n *Join) NodeName() string { return n.Name }
func (*Join) isNode()            {}

// Ticket maps a ticket name to the node a raising path is reseated at.
type Ticket struct {
	Name       string
	TargetNode string
}

// Journey is the immutable workflow definition.
type Journey struct {
	Name      string
	Nodes     map[string]Node
	NodeOrder []string // preserves load order for deterministic iteration
	Variables []VariableDef
	Tickets   map[string]string // ticketName -> targetNodeName

	// joinFor maps a fan-out node's name to the join node its branches
	// converge on. Computed once at Validate() so the fan-out controller
	// never has to walk the graph at runtime.
	joinFor map[string]string

	// validated flips on a successful Validate and back off on any
	// AddNode, so a consumer can tell a checked graph from a raw one
	// without re-walking it (Validate mutates joinFor and must not run
	// concurrently with readers).
	validated bool
}

// New builds an empty Journey; callers append nodes via AddNode then call
// Validate before use.
func New(name string) *Journey {
	return &Journey{
		Name:    name,
		Nodes:   map[string]Node{},
		Tickets: map[string]string{},
		joinFor: map[string]string{},
	}
}

// AddNode registers a node. It does not validate; call Validate once the
// full graph is assembled.
func (j *Journey) AddNode(n Node) error {
	name := n.NodeName()
	if name == "" {
		return fmt.Errorf("node has empty name")
	}
	if name == EndNode {
		return fmt.Errorf("node name %q is reserved", EndNode)
	}
	if _, exists := j.Nodes[name]; exists {
		return fmt.Errorf("duplicate node name %q", name)
	}
	j.Nodes[name] = n
	j.NodeOrder = append(j.NodeOrder, name)
	j.validated = false
	return nil
}

// Validated reports whether the graph has passed Validate since it last
// changed.
func (j *Journey) Validated() bool { return j.validated }

// JoinFor returns the join node a fan-out node's branches converge on, as
// computed during Validate.
func (j *Journey) JoinFor(fanoutNode string) (string, bool) {
	n, ok := j.joinFor[fanoutNode]
	return n, ok
}
