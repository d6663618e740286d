package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/workflow"
)

type workflowParseOptions struct {
	paramsFile   string
	conclusion   string
	output       string
	maxTreeNodes int
}

// workflowView is the machine-readable output of workflow parse.
type workflowView struct {
	LogicGates []*workflow.LogicGate `json:"logic_gates"`
	FaultTree  *workflow.TreeNode    `json:"fault_tree"`
	Conclusion string                `json:"conclusion,omitempty"`
	Path       []string              `json:"path,omitempty"`
}

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Work with n8n diagnosis workflows",
	}
	cmd.AddCommand(newWorkflowParseCmd())
	return cmd
}

func newWorkflowParseCmd() *cobra.Command {
	opts := &workflowParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Compile a workflow export into a logic-gate fault tree",
		Long: `Parse an n8n workflow export, print the resulting fault tree and its logic
gates. With --params the gates are evaluated against the given values; with
--conclusion the path from the root to that conclusion is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowParse(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.paramsFile, "params", "", "JSON or YAML file with parameter values for gate evaluation")
	cmd.Flags().StringVar(&opts.conclusion, "conclusion", "", "Conclusion node name to trace back to the root")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or yaml")
	cmd.Flags().IntVar(&opts.maxTreeNodes, "max-tree-nodes", workflow.DefaultMaxTreeNodes, "Maximum number of nodes in the expanded fault tree")
	return cmd
}

func runWorkflowParse(w io.Writer, path string, opts *workflowParseOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	parser := workflow.NewParser(workflow.WithMaxTreeNodes(opts.maxTreeNodes))
	if _, err := parser.ParseJSON(data); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if opts.paramsFile != "" {
		values, err := loadValues(opts.paramsFile)
		if err != nil {
			return err
		}
		parser.EvaluateLogicGates(values)
	}

	view := workflowView{
		LogicGates: parser.LogicGates(),
		FaultTree:  parser.Tree(),
	}
	if opts.conclusion != "" {
		view.Conclusion = opts.conclusion
		view.Path = parser.GetDiagnosisPath(opts.conclusion)
	}

	return writeOutput(w, opts.output, view, func(w io.Writer) error {
		printWorkflow(w, view)
		return nil
	})
}

// loadValues keeps the numeric entries of a parameter file. Numeric strings
// count as numbers.
func loadValues(path string) (workflow.Values, error) {
	raw := map[string]interface{}{}
	if err := readDocument(path, &raw); err != nil {
		return nil, err
	}
	values := workflow.Values{}
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			values[k] = n
		case int:
			values[k] = float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				values[k] = f
			}
		}
	}
	return values, nil
}

func printWorkflow(w io.Writer, view workflowView) {
	onPath := make(map[string]bool, len(view.Path))
	for _, id := range view.Path {
		onPath[id] = true
	}

	fmt.Fprintln(w, titleStyle.Render("Fault tree"))
	if view.FaultTree != nil {
		renderTreeNode(w, view.FaultTree, "", true, true, onPath)
	}

	if len(view.LogicGates) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Logic gates (%d)", len(view.LogicGates))))
		for _, g := range view.LogicGates {
			fmt.Fprintf(w, "  %s %s %s\n", stateLabel(g.State), g.GateType, g.Name)
			if g.Condition != "" {
				fmt.Fprintf(w, "      %s\n", labelStyle.Render(g.Condition))
			}
		}
	}

	if view.Conclusion != "" {
		fmt.Fprintln(w)
		if len(view.Path) == 0 {
			field(w, "Path", fmt.Sprintf("no node named %q", view.Conclusion))
			return
		}
		names := nodeNames(view.FaultTree)
		steps := make([]string, len(view.Path))
		for i, id := range view.Path {
			steps[i] = id
			if name, ok := names[id]; ok {
				steps[i] = name
			}
		}
		field(w, "Path", highlightStyle.Render(strings.Join(steps, " → ")))
	}
}

// nodeNames maps tree node ids to display names.
func nodeNames(root *workflow.TreeNode) map[string]string {
	names := map[string]string{}
	if root == nil {
		return names
	}
	stack := []*workflow.TreeNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := names[n.ID]; !seen {
			names[n.ID] = n.Name
		}
		stack = append(stack, n.Children...)
	}
	return names
}

func renderTreeNode(w io.Writer, n *workflow.TreeNode, prefix string, last, root bool, onPath map[string]bool) {
	label := n.Name
	if n.Type == workflow.KindLogicGate {
		label = fmt.Sprintf("[%s] %s %s", n.GateType, n.Name, stateLabel(n.State))
	}
	if onPath[n.ID] {
		label = highlightStyle.Render(label)
	}

	childPrefix := prefix
	if root {
		fmt.Fprintln(w, label)
	} else {
		branch := "├── "
		if last {
			branch = "└── "
		}
		fmt.Fprintln(w, prefix+treeBranchStyle.Render(branch)+label)
		if last {
			childPrefix += "    "
		} else {
			childPrefix += treeBranchStyle.Render("│") + "   "
		}
	}

	for i, c := range n.Children {
		renderTreeNode(w, c, childPrefix, i == len(n.Children)-1, false, onPath)
	}
}

func stateLabel(s workflow.GateState) string {
	switch s {
	case workflow.StateTrue:
		return gateTrueStyle.Render("●true")
	case workflow.StateFalse:
		return gateFalseStyle.Render("○false")
	default:
		return gateUnknownStyle.Render("?unknown")
	}
}
