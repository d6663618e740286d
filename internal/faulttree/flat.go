// Package faulttree reads fault trees from tab-separated tables and from the
// embedded preset catalog.
package faulttree

import (
	"fmt"
	"strings"
)

const (
	maxLevel              = 4
	recommendationColumn  = 6
	defaultRecommendation = "请参考相关技术规范进行处理"
	headerMarker          = "一级节点"
)

// Node is one node of a flat-file fault tree. Only level-4 leaves carry a
// description and recommendation.
type Node struct {
	ID             string  `json:"id" yaml:"id"`
	Name           string  `json:"name" yaml:"name"`
	Level          int     `json:"level" yaml:"level"`
	Parent         string  `json:"parent,omitempty" yaml:"parent,omitempty"`
	Description    string  `json:"description,omitempty" yaml:"description,omitempty"`
	Recommendation string  `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	Children       []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree is the result of ParseFlat. Nodes lists every node in creation order;
// Roots holds the level-1 nodes.
type Tree struct {
	Nodes []*Node `json:"nodes"`
	Roots []*Node `json:"roots"`
}

// pathKey identifies a node by the names on its path from level 1, so that
// equal names under different parents stay distinct.
type pathKey [maxLevel]string

// ParseFlat parses rows of the form
//
//	level1 \t level2 \t level3 \t level4 \t _ \t _ \t recommendation
//
// Blank lines are skipped, as is a first row naming the columns. A row
// contributes a node for each leading non-empty level that is not already
// present. Node ids are "L<level>-<row>" where row counts non-blank lines.
func ParseFlat(content string) *Tree {
	t := &Tree{Nodes: []*Node{}, Roots: []*Node{}}
	byKey := map[pathKey]*Node{}

	row := -1
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		row++
		if row == 0 && strings.Contains(line, headerMarker) {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			continue
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		var key pathKey
		var parent *Node
		for level := 1; level <= maxLevel; level++ {
			name := column(cols, level-1)
			if name == "" {
				break
			}
			key[level-1] = name

			n, ok := byKey[key]
			if !ok {
				n = &Node{
					ID:    fmt.Sprintf("L%d-%d", level, row),
					Name:  name,
					Level: level,
				}
				if parent != nil {
					n.Parent = parent.ID
					parent.Children = append(parent.Children, n)
				} else {
					t.Roots = append(t.Roots, n)
				}
				if level == maxLevel {
					n.Description = name
					n.Recommendation = column(cols, recommendationColumn)
					if n.Recommendation == "" {
						n.Recommendation = defaultRecommendation
					}
				}
				byKey[key] = n
				t.Nodes = append(t.Nodes, n)
			}
			parent = n
		}
	}
	return t
}

func column(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return ""
}

// Search returns the nodes whose name, description or recommendation
// contains keyword, ignoring case. A blank keyword matches nothing.
func Search(nodes []*Node, keyword string) []*Node {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}
	var out []*Node
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Name), keyword) ||
			strings.Contains(strings.ToLower(n.Description), keyword) ||
			strings.Contains(strings.ToLower(n.Recommendation), keyword) {
			out = append(out, n)
		}
	}
	return out
}

// HighlightPath returns the ids from a root to the first leaf whose name or
// description contains conclusion. No match yields an empty path.
func HighlightPath(nodes []*Node, conclusion string) []string {
	if conclusion == "" {
		return []string{}
	}
	byID := make(map[string]*Node, len(nodes))
	var target *Node
	for _, n := range nodes {
		byID[n.ID] = n
		if target == nil && n.Level == maxLevel &&
			(strings.Contains(n.Name, conclusion) || strings.Contains(n.Description, conclusion)) {
			target = n
		}
	}
	if target == nil {
		return []string{}
	}

	var path []string
	for n := target; n != nil; n = byID[n.Parent] {
		path = append(path, n.ID)
		if n.Parent == "" || len(path) > maxLevel {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
