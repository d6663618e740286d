package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/moolen/faultlens/internal/logging"
)

// Parser compiles an n8n workflow into a fault tree with logic gates.
//
// A Parser holds the state of its last parse and is not safe for concurrent
// use; callers must serialize ParseWorkflow, EvaluateLogicGates and
// GetDiagnosisPath on one instance.
type Parser struct {
	nodes       map[string]*Node
	order       []string
	byName      map[string]string
	connections map[string][]string
	inputs      map[string][]string
	gates       []*LogicGate
	gateByNode  map[string]*LogicGate
	conditions  map[string]*Condition
	tree        *TreeNode

	maxTreeNodes int
	logger       *logging.Logger
}

// DefaultMaxTreeNodes bounds the size of a built fault tree. Shared
// descendants are expanded once per path, so a tree can be much larger
// than its workflow.
const DefaultMaxTreeNodes = 10000

// Option configures a Parser.
type Option func(*Parser)

// WithMaxTreeNodes sets the tree size limit. Values below 1 keep the
// default.
func WithMaxTreeNodes(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxTreeNodes = n
		}
	}
}

// NewParser creates an empty parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxTreeNodes: DefaultMaxTreeNodes,
		logger:       logging.GetLogger("workflow.parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clear()
	return p
}

// ParseJSON decodes an export and parses it.
func (p *Parser) ParseJSON(data []byte) (*ParsedWorkflow, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return p.ParseWorkflow(export)
}

// ParseWorkflow discards any previous state and compiles export. It fails
// with ErrNoRootNode when the workflow has no node without an incoming edge
// and with ErrTreeTooLarge when the tree exceeds the size limit. A failed
// parse leaves the parser empty.
func (p *Parser) ParseWorkflow(export Export) (*ParsedWorkflow, error) {
	p.clear()
	p.ingestNodes(export.Nodes)
	p.ingestConnections(export.Connections)
	p.generateLogicGates()

	root, err := p.findRoot()
	if err != nil {
		p.clear()
		return nil, fmt.Errorf("build fault tree: %w", err)
	}
	tree, err := p.buildTree(root)
	if err != nil {
		p.clear()
		return nil, fmt.Errorf("build fault tree: %w", err)
	}
	p.tree = tree

	p.logger.DebugWithFields("workflow parsed",
		logging.Field("nodes", len(p.order)),
		logging.Field("gates", len(p.gates)),
		logging.Field("root", root.ID))

	return p.result(), nil
}

// Tree returns the fault tree of the last successful parse, or nil.
func (p *Parser) Tree() *TreeNode { return p.tree }

// LogicGates returns the gates of the last parse.
func (p *Parser) LogicGates() []*LogicGate { return p.gates }

func (p *Parser) result() *ParsedWorkflow {
	nodes := make([]Node, 0, len(p.order))
	for _, id := range p.order {
		nodes = append(nodes, *p.nodes[id])
	}
	conns := make(map[string][]string, len(p.connections))
	for src, targets := range p.connections {
		conns[src] = append([]string(nil), targets...)
	}
	return &ParsedWorkflow{
		Nodes:       nodes,
		Connections: conns,
		LogicGates:  p.gates,
		FaultTree:   p.tree,
	}
}

func (p *Parser) clear() {
	p.nodes = map[string]*Node{}
	p.order = nil
	p.byName = map[string]string{}
	p.connections = map[string][]string{}
	p.inputs = map[string][]string{}
	p.gates = nil
	p.gateByNode = map[string]*LogicGate{}
	p.conditions = map[string]*Condition{}
	p.tree = nil
}

func (p *Parser) ingestNodes(raw []RawNode) {
	for _, rn := range raw {
		n := &Node{
			ID:         rn.ID,
			Name:       rn.Name,
			Type:       rn.Type,
			Parameters: rn.Parameters,
		}
		if len(rn.Position) >= 2 {
			n.Position = &Position{X: rn.Position[0], Y: rn.Position[1]}
		}
		if _, seen := p.nodes[rn.ID]; !seen {
			p.order = append(p.order, rn.ID)
		}
		p.nodes[rn.ID] = n
		if _, taken := p.byName[rn.Name]; !taken && rn.Name != "" {
			p.byName[rn.Name] = rn.ID
		}
	}
}

// resolve maps a connection reference to a node id. n8n references nodes by
// name; hand-written exports often use ids. Unknown references are kept.
func (p *Parser) resolve(ref string) string {
	if _, ok := p.nodes[ref]; ok {
		return ref
	}
	if id, ok := p.byName[ref]; ok {
		return id
	}
	return ref
}

func (p *Parser) ingestConnections(raw map[string]RawConnections) {
	for key, rc := range raw {
		if rc.Main == nil {
			continue
		}
		src := p.resolve(key)
		targets := p.connections[src]
		if targets == nil {
			targets = []string{}
		}
		for _, group := range rc.Main {
			for _, ref := range group {
				if ref.Node == "" {
					continue
				}
				targets = append(targets, p.resolve(ref.Node))
			}
		}
		p.connections[src] = targets
	}

	// Reverse index. Sources are visited in node order; sources that are not
	// nodes themselves come last, sorted, so results do not depend on map
	// iteration.
	sources := make([]string, 0, len(p.connections))
	for _, id := range p.order {
		if _, ok := p.connections[id]; ok {
			sources = append(sources, id)
		}
	}
	var dangling []string
	for src := range p.connections {
		if _, ok := p.nodes[src]; !ok {
			dangling = append(dangling, src)
		}
	}
	sort.Strings(dangling)
	sources = append(sources, dangling...)

	for _, src := range sources {
		seen := map[string]bool{}
		for _, target := range p.connections[src] {
			if seen[target] {
				continue
			}
			seen[target] = true
			p.inputs[target] = append(p.inputs[target], src)
		}
	}
}

func (p *Parser) findRoot() (*Node, error) {
	var candidates []*Node
	for _, id := range p.order {
		if len(p.inputs[id]) == 0 {
			candidates = append(candidates, p.nodes[id])
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoRootNode
	}
	for _, n := range candidates {
		if isTrigger(n.Type) {
			return n, nil
		}
	}
	return candidates[0], nil
}

func isTrigger(nodeType string) bool {
	return strings.Contains(nodeType, "webhook") || strings.Contains(nodeType, "manualTrigger")
}

// typeKind returns the last dotted segment, e.g. "if" for n8n-nodes-base.if.
func typeKind(nodeType string) string {
	if i := strings.LastIndexByte(nodeType, '.'); i >= 0 {
		return nodeType[i+1:]
	}
	return nodeType
}

func isBranchType(nodeType string) bool {
	switch typeKind(nodeType) {
	case "if", "switch":
		return true
	}
	return false
}

func nodeDescription(nodeType string) string {
	kind := typeKind(nodeType)
	switch {
	case strings.Contains(nodeType, "webhook"):
		return "数据输入入口"
	case strings.Contains(nodeType, "manualTrigger"):
		return "手动触发器"
	case kind == "if":
		return "条件判断节点"
	case kind == "switch":
		return "分支选择节点"
	case kind == "code" || kind == "function":
		return "代码执行节点"
	}
	return "处理节点"
}
