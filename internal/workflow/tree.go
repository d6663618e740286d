package workflow

import (
	"fmt"

	"github.com/moolen/faultlens/internal/logging"
)

// ancestry is an immutable linked list of the node ids on the path from the
// root. Each work item extends its parent's chain without copying.
type ancestry struct {
	id     string
	parent *ancestry
}

func (a *ancestry) contains(id string) bool {
	for ; a != nil; a = a.parent {
		if a.id == id {
			return true
		}
	}
	return false
}

// buildEntry is one pending node expansion.
type buildEntry struct {
	nodeID    string
	slot      **TreeNode
	ancestors *ancestry
}

// buildTree expands the graph depth-first from root. A node that already
// appears among its own ancestors becomes a childless stub, which breaks
// cycles while keeping the back-reference visible. Targets that are not
// known nodes are dropped. A node reachable over several paths is expanded
// once per path; expansion stops with ErrTreeTooLarge once more than
// p.maxTreeNodes nodes were emitted.
func (p *Parser) buildTree(root *Node) (*TreeNode, error) {
	var tree *TreeNode
	stack := []buildEntry{{nodeID: root.ID, slot: &tree}}
	emitted := 0

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		emitted++
		if emitted > p.maxTreeNodes {
			return nil, fmt.Errorf("%w: more than %d nodes", ErrTreeTooLarge, p.maxTreeNodes)
		}

		n := p.nodes[entry.nodeID]
		if entry.ancestors.contains(n.ID) {
			*entry.slot = &TreeNode{ID: n.ID, Name: n.Name, Type: KindFaultNode}
			continue
		}

		tn := &TreeNode{
			ID:          n.ID,
			Name:        displayName(n),
			Type:        KindFaultNode,
			Description: nodeDescription(n.Type),
			Position:    n.Position,
		}
		if g, ok := p.gateByNode[n.ID]; ok {
			tn.Type = KindLogicGate
			tn.GateType = g.GateType
			tn.State = g.State
			tn.Condition = g.Condition
		}
		*entry.slot = tn

		var children []string
		for _, target := range p.connections[n.ID] {
			if _, ok := p.nodes[target]; ok {
				children = append(children, target)
			}
		}
		if len(children) == 0 {
			continue
		}

		tn.Children = make([]*TreeNode, len(children))
		chain := &ancestry{id: n.ID, parent: entry.ancestors}
		// Push in reverse so the first child is expanded first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, buildEntry{
				nodeID:    children[i],
				slot:      &tn.Children[i],
				ancestors: chain,
			})
		}
	}
	return tree, nil
}

// EvaluateLogicGates sets the state of every gate from params and mirrors
// the states onto the current tree. Each gate is evaluated on its own;
// outputs of one gate never feed another. A condition that cannot be
// evaluated leaves the gate unknown.
func (p *Parser) EvaluateLogicGates(params ParamSource) []*LogicGate {
	for _, g := range p.gates {
		g.State = p.evaluateGate(g, params)
	}
	p.syncTreeStates()
	return p.gates
}

func (p *Parser) evaluateGate(g *LogicGate, params ParamSource) GateState {
	if g.Condition == "" {
		return StateUnknown
	}

	cond, ok := p.conditions[g.ID]
	if !ok {
		parsed, err := ParseCondition(g.Condition)
		if err != nil {
			p.logger.WarnWithFields("gate condition not evaluable",
				logging.Field("gate", g.ID),
				logging.Field("condition", g.Condition),
				logging.Field("error", err.Error()))
		}
		// Cache failures too so the warning is logged once per parse.
		p.conditions[g.ID] = parsed
		cond = parsed
	}
	if cond == nil {
		return StateUnknown
	}

	result, err := cond.Eval(params)
	if err != nil {
		p.logger.WarnWithFields("gate evaluation failed",
			logging.Field("gate", g.ID),
			logging.Field("condition", g.Condition),
			logging.Field("error", err.Error()))
		return StateUnknown
	}
	if g.GateType == GateNOT {
		result = !result
	}
	if result {
		return StateTrue
	}
	return StateFalse
}

func (p *Parser) syncTreeStates() {
	if p.tree == nil {
		return
	}
	stack := []*TreeNode{p.tree}
	for len(stack) > 0 {
		tn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if tn.Type == KindLogicGate {
			if g, ok := p.gateByNode[tn.ID]; ok {
				tn.State = g.State
			}
		}
		stack = append(stack, tn.Children...)
	}
}
