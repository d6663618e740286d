package workflow

import "errors"

// ErrNoRootNode is returned when no node can serve as the tree root.
var ErrNoRootNode = errors.New("no workflow root node found")

// ErrTreeTooLarge is returned when expanding the workflow would exceed the
// parser's tree size limit.
var ErrTreeTooLarge = errors.New("fault tree too large")

// Export is a workflow as exported by n8n.
type Export struct {
	Nodes       []RawNode                 `json:"nodes"`
	Connections map[string]RawConnections `json:"connections"`
}

// RawNode is one node entry of an export.
type RawNode struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Position   []float64              `json:"position,omitempty"`
}

// RawConnections holds the output ports of one source node. Each port is an
// ordered list of downstream references.
type RawConnections struct {
	Main [][]ConnectionRef `json:"main"`
}

// ConnectionRef points at a downstream node by id or by name.
type ConnectionRef struct {
	Node  string `json:"node"`
	Type  string `json:"type,omitempty"`
	Index int    `json:"index"`
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is an ingested workflow node.
type Node struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Position   *Position              `json:"position,omitempty"`
}

// GateType is the boolean operator of a logic gate.
type GateType string

const (
	GateAND GateType = "AND"
	GateOR  GateType = "OR"
	GateNOT GateType = "NOT"
)

// GateState is the evaluated output of a gate.
type GateState string

const (
	StateTrue    GateState = "true"
	StateFalse   GateState = "false"
	StateUnknown GateState = "unknown"
)

// NodeKind distinguishes plain fault nodes from gates in the tree.
type NodeKind string

const (
	KindFaultNode NodeKind = "fault_node"
	KindLogicGate NodeKind = "logic_gate"
)

// LogicGate is derived from a condition-bearing workflow node.
type LogicGate struct {
	ID          string    `json:"id"`
	Type        NodeKind  `json:"type"`
	GateType    GateType  `json:"gate_type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Condition   string    `json:"condition"`
	State       GateState `json:"state"`
	InputNodes  []string  `json:"input_nodes"`
	OutputNodes []string  `json:"output_nodes"`
	Position    *Position `json:"position,omitempty"`

	nodeID string
}

// NodeID returns the id of the workflow node the gate was derived from.
func (g *LogicGate) NodeID() string { return g.nodeID }

// TreeNode is one node of the fault tree. Gate fields are only set for
// KindLogicGate nodes.
type TreeNode struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        NodeKind    `json:"type"`
	Description string      `json:"description,omitempty"`
	Position    *Position   `json:"position,omitempty"`
	GateType    GateType    `json:"gate_type,omitempty"`
	State       GateState   `json:"state,omitempty"`
	Condition   string      `json:"condition,omitempty"`
	Children    []*TreeNode `json:"children,omitempty"`
}

// ParsedWorkflow is the result of one parse.
type ParsedWorkflow struct {
	Nodes       []Node              `json:"nodes"`
	Connections map[string][]string `json:"connections"`
	LogicGates  []*LogicGate        `json:"logic_gates"`
	FaultTree   *TreeNode           `json:"fault_tree"`
}

// ParamSource resolves parameter references in gate conditions.
type ParamSource interface {
	Lookup(name string) (float64, bool)
}

// Values is a ParamSource backed by a map.
type Values map[string]float64

// Lookup implements ParamSource.
func (v Values) Lookup(name string) (float64, bool) {
	f, ok := v[name]
	return f, ok
}

// Clone returns a deep copy of the subtree rooted at t.
func (t *TreeNode) Clone() *TreeNode {
	if t == nil {
		return nil
	}
	out := *t
	if t.Children != nil {
		out.Children = make([]*TreeNode, len(t.Children))
		for i, c := range t.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// CloneGates copies gates so that later evaluations do not change the copy.
// Input and output id slices are shared; they never change after a parse.
func CloneGates(gates []*LogicGate) []*LogicGate {
	out := make([]*LogicGate, len(gates))
	for i, g := range gates {
		c := *g
		out[i] = &c
	}
	return out
}
