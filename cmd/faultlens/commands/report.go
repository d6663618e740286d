package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/report"
)

// reportView is report.Parsed plus its one-line summary.
type reportView struct {
	report.Parsed
	Summary string `json:"summary"`
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with free-text diagnosis reports",
	}
	cmd.AddCommand(newReportParseCmd())
	return cmd
}

func newReportParseCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Extract severity, fault type and recommendations from a report",
		Long:  "Extract severity, fault type and recommendations from a report. Use - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			parsed := report.Parse(string(data))
			view := reportView{Parsed: parsed, Summary: report.Summary(parsed)}
			return writeOutput(cmd.OutOrStdout(), output, view, func(w io.Writer) error {
				printReport(w, view)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func printReport(w io.Writer, v reportView) {
	if !v.ParsedSuccess {
		fmt.Fprintln(w, highlightStyle.Render("No structured fields found"))
		return
	}
	fmt.Fprintln(w, titleStyle.Render(v.Summary))
	if v.Severity != "" {
		field(w, "Severity", fmt.Sprintf("%s (%d)", v.Severity, v.SeverityLevel))
	}
	if v.FaultType != "" {
		field(w, "Fault type", v.FaultType)
	}
	if v.MainDiagnosis != "" {
		field(w, "Diagnosis", v.MainDiagnosis)
	}
	if v.Metrics.DeviceID != "" {
		field(w, "Device", v.Metrics.DeviceID)
	}
	if v.Metrics.DiagnosisTime != "" {
		field(w, "Diagnosed at", v.Metrics.DiagnosisTime)
	}
	for i, r := range v.Recommendations {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r)
	}
}
