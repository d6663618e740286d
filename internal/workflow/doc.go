// Package workflow compiles n8n workflow exports into fault trees.
//
// Condition-bearing nodes (if/switch nodes, nodes named "是否…" or "If：…",
// nodes with structured filter parameters) become logic gates. The rest of
// the graph is expanded depth-first from a trigger node into a tree; back
// edges become childless stubs. Gates can then be evaluated against gas
// parameters, and a conclusion can be traced back to the root.
package workflow
