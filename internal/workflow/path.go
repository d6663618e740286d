package workflow

import (
	"bytes"
	"encoding/json"
	"strings"
)

// GetDiagnosisPath returns the node ids leading to the node that mentions
// conclusion, root first. Terminal nodes are searched before inner nodes; a
// node matches when its name or its serialized parameters contain the text.
// No match yields an empty path.
func (p *Parser) GetDiagnosisPath(conclusion string) []string {
	if conclusion == "" {
		return []string{}
	}
	target := p.findConclusionNode(conclusion)
	if target == "" {
		return []string{}
	}

	var path []string
	visited := map[string]bool{}
	stack := []string{target}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		path = append(path, id)

		inputs := p.inputs[id]
		for i := len(inputs) - 1; i >= 0; i-- {
			if !visited[inputs[i]] {
				stack = append(stack, inputs[i])
			}
		}
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (p *Parser) findConclusionNode(conclusion string) string {
	var inner []string
	for _, id := range p.order {
		if len(p.connections[id]) > 0 {
			inner = append(inner, id)
			continue
		}
		if p.nodeMentions(id, conclusion) {
			return id
		}
	}
	for _, id := range inner {
		if p.nodeMentions(id, conclusion) {
			return id
		}
	}
	return ""
}

func (p *Parser) nodeMentions(id, text string) bool {
	n := p.nodes[id]
	if strings.Contains(n.Name, text) {
		return true
	}
	if len(n.Parameters) == 0 {
		return false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n.Parameters); err != nil {
		return false
	}
	return strings.Contains(buf.String(), text)
}
