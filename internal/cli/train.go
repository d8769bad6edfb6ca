package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ppiankov/siance/internal/classify"
	"github.com/ppiankov/siance/internal/model"
)

var (
	labelsPath   string
	modelOut     string
	modelName    string
	architecture string
	estimator    string
	topN         int
	reportOut    string
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train <samples.jsonl>",
	Short: "Fit a hierarchical topic model",
	Long: `Train fits a hierarchical topic model on labeled sentences.

Each line of the samples file is {"vector":[...],"label":12} or
{"text":"...","label":12}; text samples are embedded with the configured
embedding provider. The labels file is the YAML taxonomy:

  labels:
    - id: 12
      category: Radioprotection
      subcategory: Zonage
      is_transverse: false

Example:
  siance train samples.jsonl --labels labels.yaml --out model.json
  siance train samples.jsonl --labels labels.yaml --architecture dual --estimator centroid`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <model.json> <samples.jsonl>",
	Short: "Measure a topic model on held-out samples",
	Long: `Evaluate predicts the held-out samples and reports accuracy plus
per-label precision, recall and F1.

Example:
  siance evaluate model.json test.jsonl
  siance evaluate model.json test.jsonl --report metrics.json`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)

	trainCmd.Flags().StringVar(&labelsPath, "labels", "", "labels taxonomy (YAML; default: classification.labels_path)")
	trainCmd.Flags().StringVar(&modelOut, "out", "model.json", "output model path")
	trainCmd.Flags().StringVar(&modelName, "name", "", "model name (default: <date>_model)")
	trainCmd.Flags().StringVar(&architecture, "architecture", classify.ArchitectureSingle, "single or dual")
	trainCmd.Flags().StringVar(&estimator, "estimator", "", "softmax or centroid (default: classification.estimator)")
	trainCmd.Flags().IntVar(&topN, "top-n", 0, "safety net width (default: classification.top_n)")

	evaluateCmd.Flags().StringVar(&reportOut, "report", "", "write the evaluation report as JSON")
	evaluateCmd.Flags().IntVar(&topN, "top-n", 0, "safety net width (default: the model's)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if labelsPath == "" {
		labelsPath = a.cfg.Classification.LabelsPath
	}
	if labelsPath == "" {
		return fmt.Errorf("a labels file is required (--labels or classification.labels_path)")
	}
	labels, err := classify.LoadLabels(labelsPath)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}

	samples, err := classify.ReadSamplesFile(args[0])
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	if err := a.embedSamples(cmd.Context(), samples); err != nil {
		return err
	}

	opts := classify.TrainOptions{
		Name:         modelName,
		Architecture: architecture,
		TopN:         a.cfg.Classification.TopN,
		Estimator:    estimatorOptions(a.cfg.Classification),
	}
	if topN > 0 {
		opts.TopN = topN
	}
	if estimator != "" {
		opts.Estimator.Kind = estimator
	}

	m, err := classify.Train(samples, labels, opts, a.log)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := classify.SaveModel(modelOut, m); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "✓ Trained %s (%s, %s) on %d samples\n", m.Name, m.Architecture, opts.Estimator.Kind, len(samples))
	fmt.Fprintf(w, "✓ Saved model: %s\n", modelOut)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	m, err := classify.LoadModel(args[0], a.log)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if topN > 0 {
		m.SetTopN(topN)
	}

	samples, err := classify.ReadSamplesFile(args[1])
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	if err := a.embedSamples(cmd.Context(), samples); err != nil {
		return err
	}

	vectors := make([][]float64, len(samples))
	truth := make([][]int, len(samples))
	for i, s := range samples {
		vectors[i] = s.Vector
		truth[i] = []int{s.Label}
	}
	predicted, unresolved, err := m.Predict(vectors)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	report := classify.Evaluate(truth, predicted)

	if reportOut != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(reportOut, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	printEvaluation(cmd, m, report, unresolved)
	return nil
}

// embedSamples fills the vector of every text sample
func (a *app) embedSamples(ctx context.Context, samples []classify.Sample) error {
	var texts []string
	var idx []int
	for i, s := range samples {
		if len(s.Vector) == 0 {
			texts = append(texts, s.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	embedder, err := a.newEmbedder(ctx)
	if err != nil {
		return err
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed samples: %w", err)
	}
	for k, i := range idx {
		samples[i].Vector = vectors[k]
	}
	return nil
}

func estimatorOptions(cfg model.ClassificationConfig) classify.Options {
	opts := classify.DefaultOptions()
	if cfg.Estimator != "" {
		opts.Kind = cfg.Estimator
	}
	if cfg.Epochs > 0 {
		opts.Epochs = cfg.Epochs
	}
	if cfg.LearningRate > 0 {
		opts.LearningRate = cfg.LearningRate
	}
	if cfg.L2 > 0 {
		opts.L2 = cfg.L2
	}
	return opts
}

func printEvaluation(cmd *cobra.Command, m *classify.Model, report classify.EvaluationReport, unresolved int) {
	out := cmd.OutOrStdout()
	labels := m.LabelSet()

	fmt.Fprintf(out, "%s\n  Evaluation of %s\n%s\n\n", rule, m.Name, rule)
	fmt.Fprintf(out, "  Samples:     %d\n", report.Samples)
	fmt.Fprintf(out, "  Accuracy:    %.3f\n", report.Accuracy)
	fmt.Fprintf(out, "  Precision:   %.3f\n", report.Precision)
	fmt.Fprintf(out, "  Recall:      %.3f\n", report.Recall)
	fmt.Fprintf(out, "  Unresolved:  %d\n\n", unresolved)

	ids := make([]int, 0, len(report.PerLabel))
	for id := range report.PerLabel {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Fprintf(out, "  %-6s %-40s %9s %9s %9s %8s\n", "id", "label", "precision", "recall", "f1", "support")
	for _, id := range ids {
		lm := report.PerLabel[id]
		name := fmt.Sprintf("#%d", id)
		if l, ok := labels[id]; ok {
			name = l.Name()
		}
		if r := []rune(name); len(r) > 40 {
			name = string(r[:39]) + "…"
		}
		fmt.Fprintf(out, "  %-6d %-40s %9.3f %9.3f %9.3f %8d\n", id, name, lm.Precision, lm.Recall, lm.F1, lm.Support)
	}
	fmt.Fprintln(out)
}
