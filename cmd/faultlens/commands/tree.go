package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/faulttree"
)

type treeParseOptions struct {
	search     string
	conclusion string
	output     string
}

// flatTreeView is the machine-readable output of tree parse.
type flatTreeView struct {
	Roots     []*faulttree.Node `json:"roots"`
	Matches   []*faulttree.Node `json:"matches,omitempty"`
	Highlight []string          `json:"highlight,omitempty"`
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Work with flat fault-tree files and preset trees",
	}
	cmd.AddCommand(newTreeParseCmd())
	cmd.AddCommand(newTreePresetCmd())
	return cmd
}

func newTreeParseCmd() *cobra.Command {
	opts := &treeParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a tab-separated four-level fault tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeParse(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.search, "search", "", "List nodes matching this keyword")
	cmd.Flags().StringVar(&opts.conclusion, "conclusion", "", "Highlight the path to the leaf matching this conclusion")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func runTreeParse(w io.Writer, path string, opts *treeParseOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	tree := faulttree.ParseFlat(string(data))
	view := flatTreeView{Roots: tree.Roots}
	if opts.search != "" {
		view.Matches = faulttree.Search(tree.Nodes, opts.search)
	}
	if opts.conclusion != "" {
		view.Highlight = faulttree.HighlightPath(tree.Nodes, opts.conclusion)
	}

	return writeOutput(w, opts.output, view, func(w io.Writer) error {
		highlighted := make(map[string]bool, len(view.Highlight))
		for _, id := range view.Highlight {
			highlighted[id] = true
		}
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Fault tree (%d nodes)", len(tree.Nodes))))
		for i, r := range view.Roots {
			renderFlatNode(w, r, "", i == len(view.Roots)-1, highlighted)
		}
		if opts.search != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Matches for %q (%d)", opts.search, len(view.Matches))))
			for _, n := range view.Matches {
				fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(n.ID), n.Name)
			}
		}
		if opts.conclusion != "" && len(view.Highlight) == 0 {
			fmt.Fprintln(w)
			field(w, "Path", fmt.Sprintf("no leaf matches %q", opts.conclusion))
		}
		return nil
	})
}

func renderFlatNode(w io.Writer, n *faulttree.Node, prefix string, last bool, highlighted map[string]bool) {
	branch, next := "├── ", treeBranchStyle.Render("│")+"   "
	if last {
		branch, next = "└── ", "    "
	}
	label := n.Name
	if highlighted[n.ID] {
		label = highlightStyle.Render(label)
	}
	fmt.Fprintln(w, prefix+treeBranchStyle.Render(branch)+label)
	if n.Recommendation != "" && highlighted[n.ID] {
		fmt.Fprintln(w, prefix+next+labelStyle.Render("建议: "+n.Recommendation))
	}
	for i, c := range n.Children {
		renderFlatNode(w, c, prefix+next, i == len(n.Children)-1, highlighted)
	}
}

func newTreePresetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preset [MODEL]",
		Short: "Print the preset fault tree of a diagnosis model",
		Long:  "Print the preset fault tree of a diagnosis model, or list the models with a preset when MODEL is omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			catalog, err := faulttree.LoadCatalog()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				ids := catalog.ModelIDs()
				return writeOutput(w, output, ids, func(w io.Writer) error {
					for _, id := range ids {
						fmt.Fprintln(w, id)
					}
					return nil
				})
			}

			preset, err := catalog.TreeByModel(args[0])
			if err != nil {
				return err
			}
			return writeOutput(w, output, preset, func(w io.Writer) error {
				fmt.Fprintln(w, titleStyle.Render(preset.Title))
				if preset.Tree != nil {
					renderCatalogNode(w, preset.Tree, "", true)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func renderCatalogNode(w io.Writer, n *faulttree.CatalogNode, prefix string, last bool) {
	branch, next := "├── ", treeBranchStyle.Render("│")+"   "
	if last {
		branch, next = "└── ", "    "
	}
	fmt.Fprintln(w, prefix+treeBranchStyle.Render(branch)+n.Name)
	for i, c := range n.Children {
		renderCatalogNode(w, c, prefix+next, i == len(n.Children)-1)
	}
}
