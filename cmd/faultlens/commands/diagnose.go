package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/config"
	"github.com/moolen/faultlens/internal/dga"
)

type diagnoseOptions struct {
	paramsFile string
	model      string
	configPath string
	output     string
	preset     bool
}

func newDiagnoseCmd() *cobra.Command {
	opts := &diagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose one set of DGA measurements",
		Long: `Run the three-ratio, DPM and PRPD analyzers on one measurement file and
print the fused diagnosis. With --model only the named rule model runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.paramsFile, "params", "", "Path to a JSON or YAML measurement file")
	cmd.Flags().BoolVar(&opts.preset, "preset", false, "Use the built-in reference sample instead of --params")
	cmd.Flags().StringVar(&opts.model, "model", "", "Run a single diagnosis model (gas_analysis, pd_analysis)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file with thresholds and weights (optional)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("params", "preset")

	cmd.AddCommand(newDiagnoseBatchCmd())
	return cmd
}

type batchOptions struct {
	file       string
	configPath string
	output     string
}

func newDiagnoseBatchCmd() *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Diagnose a list of measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnoseBatch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to a JSON or YAML list of measurements (required)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file with thresholds, weights and batch concurrency (optional)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or yaml")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// loadSettings returns the file config, or the defaults without a path.
func loadSettings(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runDiagnose(w io.Writer, opts *diagnoseOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	if opts.paramsFile == "" && !opts.preset {
		return fmt.Errorf("one of --params or --preset is required")
	}
	cfg, err := loadSettings(opts.configPath)
	if err != nil {
		return err
	}

	params := dga.PresetParams()
	if !opts.preset {
		params = dga.Params{}
		if err := readDocument(opts.paramsFile, &params); err != nil {
			return err
		}
	}
	if err := dga.CheckLimits(params); err != nil {
		return err
	}

	if opts.model != "" {
		finding, err := dga.DiagnoseModel(opts.model, params, cfg.Diagnosis.Thresholds)
		if err != nil {
			return err
		}
		return writeOutput(w, opts.output, finding, func(w io.Writer) error {
			printFinding(w, finding)
			return nil
		})
	}

	engine := dga.NewEngine(cfg.Engine(), cfg.Batch.Concurrency)
	result := engine.Diagnose(params)
	return writeOutput(w, opts.output, result, func(w io.Writer) error {
		printResult(w, result)
		return nil
	})
}

func runDiagnoseBatch(cmd *cobra.Command, opts *batchOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	cfg, err := loadSettings(opts.configPath)
	if err != nil {
		return err
	}

	var params []dga.Params
	if err := readDocument(opts.file, &params); err != nil {
		return err
	}
	for i, p := range params {
		if err := dga.CheckLimits(p); err != nil {
			return fmt.Errorf("params[%d]: %w", i, err)
		}
	}

	engine := dga.NewEngine(cfg.Engine(), cfg.Batch.Concurrency)
	results, err := engine.DiagnoseBatch(cmd.Context(), params)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.output, results, func(w io.Writer) error {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printResult(w, r)
		}
		return nil
	})
}

func printResult(w io.Writer, r dga.Result) {
	title := r.FaultType
	if r.TransformerID != "" {
		title = r.TransformerID + ": " + title
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	field(w, "Severity", fmt.Sprintf("%s (%d)", r.Severity, r.SeverityLevel))
	field(w, "Confidence", fmt.Sprintf("%.2f", r.Confidence))
	if r.PrimaryMethod != "" {
		field(w, "Primary method", r.PrimaryMethod)
	}
	if r.ThreeRatioCode != "" {
		field(w, "Three-ratio code", r.ThreeRatioCode)
	}
	field(w, "Diagnosis", r.Diagnosis)
	field(w, "Recommendation", r.Recommendation)
	if len(r.Path) > 0 {
		field(w, "Path", strings.Join(r.Path, " → "))
	}
	if r.Consistency != nil && !r.Consistency.Consistent {
		fmt.Fprintln(w, highlightStyle.Render("Methods disagree: "+strings.Join(r.Consistency.Conflicts, "; ")))
	}
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %s %s (%.2f)\n", labelStyle.Render(string(f.Method)+":"), f.FaultType, f.Confidence)
	}
}

func printFinding(w io.Writer, f dga.Finding) {
	fmt.Fprintln(w, titleStyle.Render(f.FaultType))
	field(w, "Method", f.Method)
	if f.Category != "" {
		field(w, "Category", f.Category)
	}
	field(w, "Confidence", fmt.Sprintf("%.2f", f.Confidence))
	field(w, "Diagnosis", f.Diagnosis)
	field(w, "Recommendation", f.Recommendation)
	if len(f.Path) > 0 {
		field(w, "Path", strings.Join(f.Path, " → "))
	}
}
