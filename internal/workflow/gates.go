package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	ifMarker      = "If："
	whetherMarker = "是否"
)

var (
	whetherPattern = regexp.MustCompile(`是否(.+?)[？?。.]*$`)
	ordinalPrefix  = regexp.MustCompile(`^\d+\.\s*`)
)

// operatorSymbols maps n8n filter operations to comparison symbols.
// Unlisted operations pass through unchanged.
var operatorSymbols = map[string]string{
	"equals":       "==",
	"notEquals":    "!=",
	"larger":       ">",
	"largerEqual":  ">=",
	"smaller":      "<",
	"smallerEqual": "<=",
	"contains":     "contains",
	"notContains":  "notContains",
}

func operatorSymbol(op string) string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return op
}

func (p *Parser) generateLogicGates() {
	for _, id := range p.order {
		n := p.nodes[id]
		if !isConditionNode(n) {
			continue
		}
		g := p.newGate(n)
		p.gates = append(p.gates, g)
		p.gateByNode[id] = g
	}
}

func isConditionNode(n *Node) bool {
	return isBranchType(n.Type) ||
		strings.Contains(n.Name, ifMarker) ||
		strings.Contains(n.Name, whetherMarker) ||
		n.Parameters["conditions"] != nil
}

func (p *Parser) newGate(n *Node) *LogicGate {
	gateType := GateOR
	var condition string

	if strings.Contains(n.Name, whetherMarker) {
		condition = conditionFromName(n.Name)
	}
	if gt, expr, ok := structuredCondition(n.Parameters); ok {
		gateType = gt
		condition = expr
	}

	outputs := append([]string{}, p.connections[n.ID]...)
	inputs := append([]string{}, p.inputs[n.ID]...)

	return &LogicGate{
		ID:          "gate_" + n.ID,
		Type:        KindLogicGate,
		GateType:    gateType,
		Name:        cleanGateName(n.Name),
		Description: "逻辑判断: " + condition,
		Condition:   condition,
		State:       StateUnknown,
		InputNodes:  inputs,
		OutputNodes: outputs,
		Position:    n.Position,
		nodeID:      n.ID,
	}
}

func conditionFromName(name string) string {
	if m := whetherPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// structuredCondition reads both filter layouts n8n has shipped:
//
//	v2: {"conditions": {"combinator": "and", "conditions": [{"leftValue", "rightValue", "operator": {"operation"}}]}}
//	v1: {"conditions": {"number": [{"value1", "operation", "value2"}]}, "combineOperation": "all"}
func structuredCondition(params map[string]interface{}) (GateType, string, bool) {
	conds, ok := params["conditions"].(map[string]interface{})
	if !ok {
		return "", "", false
	}

	if list, ok := conds["conditions"].([]interface{}); ok {
		gateType := GateOR
		if c, _ := conds["combinator"].(string); c == "and" {
			gateType = GateAND
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			c, _ := item.(map[string]interface{})
			op := "equals"
			if o, ok := c["operator"].(map[string]interface{}); ok {
				if s, ok := o["operation"].(string); ok && s != "" {
					op = s
				}
			}
			parts = append(parts, fmt.Sprintf("%s %s %s",
				formatValue(c["leftValue"]), operatorSymbol(op), formatValue(c["rightValue"])))
		}
		return gateType, strings.Join(parts, " AND "), true
	}

	var parts []string
	for _, kind := range []string{"number", "string", "boolean", "dateTime"} {
		list, _ := conds[kind].([]interface{})
		for _, item := range list {
			c, _ := item.(map[string]interface{})
			op, _ := c["operation"].(string)
			if op == "" {
				op = "equals"
			}
			parts = append(parts, fmt.Sprintf("%s %s %s",
				formatValue(c["value1"]), operatorSymbol(op), formatValue(c["value2"])))
		}
	}
	if len(parts) == 0 {
		return "", "", false
	}
	gateType := GateAND
	if c, _ := params["combineOperation"].(string); c == "any" {
		gateType = GateOR
	}
	return gateType, strings.Join(parts, " AND "), true
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func cleanGateName(name string) string {
	name = strings.TrimPrefix(name, ifMarker)
	return strings.TrimSuffix(name, "？")
}

func displayName(n *Node) string {
	name := ordinalPrefix.ReplaceAllString(cleanGateName(n.Name), "")
	if name != "" {
		return name
	}
	id := n.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "节点_" + id
}
