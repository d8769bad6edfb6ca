package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/siance/internal/classify"
	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/pipeline"
)

var (
	outJSON     string
	outMD       string
	modelPath   string
	withContent bool
	timeout     time.Duration
)

// segmentCmd represents the segment command
var segmentCmd = &cobra.Command{
	Use:   "segment <letter.txt|->",
	Short: "Locate the zones and demands of one letter",
	Long: `Segment cleans one letter and reports its zones (synthesis, corrective
demands, information demands, observations) and its demand blocks.

Example:
  siance segment lettre.txt
  siance segment lettre.txt --json report.json --md report.md
  cat lettre.txt | siance segment -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0], "", false)
	},
}

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict <letter.txt|->",
	Short: "Segment one letter and predict the topics of its demands",
	Long: `Predict segments one letter, embeds its sentences with the configured
embedding provider and classifies them with a trained topic model.

Example:
  siance predict lettre.txt --model model.json
  SIANCE_EMBEDDING_PROVIDER=ollama SIANCE_EMBEDDING_MODEL=bge-m3 siance predict lettre.txt --model model.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args[0], modelPath, true)
	},
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(predictCmd)

	for _, c := range []*cobra.Command{segmentCmd, predictCmd} {
		c.Flags().StringVar(&outJSON, "json", "-", "output JSON path (- for stdout)")
		c.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
		c.Flags().BoolVar(&withContent, "with-content", false, "include demand text in the report")
		c.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	}
	predictCmd.Flags().StringVar(&modelPath, "model", "", "trained topic model (JSON)")
}

func runAnalyze(cmd *cobra.Command, path, modelFile string, requireModel bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if !requireModel {
		a.cfg.Classification.ModelPath = ""
	} else if modelFile == "" && a.cfg.Classification.ModelPath == "" {
		return fmt.Errorf("a topic model is required (--model or classification.model_path)")
	}
	if withContent {
		a.cfg.Output.WithContent = true
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	letter, err := readLetter(path)
	if err != nil {
		return err
	}

	proc, m, err := a.newProcessor(ctx, modelFile, nil)
	if err != nil {
		return err
	}

	report := proc.ProcessLetter(ctx, letter)
	if a.cfg.Output.Verbose {
		printSummary(cmd, report, m)
	}
	return emitReport(cmd, renderer(m), report, letter.Text)
}

// emitReport writes the JSON report to --json (stdout for -) and the
// Markdown outline to --md when given
func emitReport(cmd *cobra.Command, r *pipeline.Renderer, report *model.Report, text string) error {
	if outJSON == "-" || outJSON == "" {
		if err := r.WriteJSON(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	} else if err := r.RenderJSON(report, outJSON); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}

	if outMD != "" {
		if err := r.RenderMarkdown(report, pipeline.BuildOutline(report, text), outMD); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, report *model.Report, m *classify.Model) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "✓ %d zones\n", len(report.Zones))
	fmt.Fprintf(w, "✓ %d demand blocks\n", len(report.Demands))
	if m != nil {
		fmt.Fprintf(w, "✓ %d sentence predictions with model %s\n", len(report.Predictions), m.Name)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "✗ %s: %s\n", f.Kind, f.Message)
	}
	fmt.Fprintln(w)
}
