package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/worker"
)

const sampleLetter = "Lyon, le 12 mars 2021\n\nCODEP-LYO-2021-012345\n\n" +
	"Synthèse de l'inspection\n\n" +
	"L'inspection du 12 mars a porté sur la radioprotection des travailleurs du service.\n\n" +
	"A. Demandes d'actions correctives\n\n" +
	"Les contrôles techniques de radioprotection ne sont pas réalisés selon la périodicité.\n\n" +
	"Je vous demande de réaliser les contrôles techniques de radioprotection sans délai.\n\n" +
	"B. Demandes de compléments d'information\n\n" +
	"Je vous demande de me transmettre le plan de prévention signé par les entreprises.\n\n" +
	"C. Observations\n\n" +
	"C.1 Les locaux sont propres.\n\n" +
	"Vous voudrez bien me faire part de vos observations.\n"

const sampleLabels = `labels:
  - id: 1
    category: Radioprotection
    subcategory: Contrôles techniques
  - id: 2
    category: Radioprotection
    subcategory: Zonage
  - id: 3
    category: Documents
    subcategory: Plan de prévention
    is_transverse: true
  - id: 4
    category: Documents
    subcategory: Registres
    is_transverse: true
`

// execute runs the root command in an isolated home with a fresh viper
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	viper.Reset()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SIANCE_LOG_LEVEL", "error")
	t.Setenv("SIANCE_CACHE_DIR", filepath.Join(home, "cache"))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "siance "+Version+"\n", out)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SIANCE_CONCURRENCY_WORKERS", "9")
	t.Setenv("SIANCE_CONCURRENCY_LETTER_TIMEOUT", "45s")
	t.Setenv("SIANCE_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Concurrency.Workers)
	assert.Equal(t, "45s", cfg.Concurrency.LetterTimeout.String())
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, model.DefaultConfig().Fetch.UserAgent, cfg.Fetch.UserAgent)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "segmentation:\n  n_previous_blocks: 0\nclassification:\n  top_n: 3\n"+
		"rate_limiting:\n  services:\n    openai:\n      requests_per_second: 2\n      burst_size: 1\n")
	cfgFile = path
	defer func() { cfgFile = "" }()

	viper.Reset()
	t.Setenv("HOME", dir)
	initConfig()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Segmentation.NPreviousBlocks)
	assert.Equal(t, 3, cfg.Classification.TopN)
	assert.Equal(t, 8, cfg.Segmentation.ParagraphMinLength, "unset keys keep their default")
	assert.Equal(t, model.ServiceRate{RequestsPerSecond: 2, BurstSize: 1}, cfg.RateLimiting.Services["openai"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".siance", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Siance Configuration File")
	assert.Contains(t, string(data), "n_previous_blocks: 1")

	assert.Error(t, writeDefaultConfig(path), "existing file is not overwritten")
}

func TestSegmentCommand(t *testing.T) {
	dir := t.TempDir()
	letter := writeFile(t, dir, "INSSN-LYO-2021-0001.txt", sampleLetter)
	mdPath := filepath.Join(dir, "out.md")

	out, _, err := execute(t, "segment", letter, "--json", "-", "--md", mdPath)
	require.NoError(t, err)

	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "INSSN-LYO-2021-0001", report.LetterID)
	assert.Equal(t, "CODEP-LYO-2021-012345", report.Codep)
	assert.Len(t, report.Zones, 4)
	assert.Len(t, report.Demands, 2)
	assert.Empty(t, report.Predictions)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "CODEP-LYO-2021-012345")
}

func TestSegmentCommand_InvalidSegmentationConfig(t *testing.T) {
	letter := writeFile(t, t.TempDir(), "l.txt", sampleLetter)
	t.Setenv("SIANCE_SEGMENTATION_N_PREVIOUS_BLOCKS", "-1")

	_, _, err := execute(t, "segment", letter, "--json", "-")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "n_previous_blocks")
}

func TestPredictCommand_RequiresModel(t *testing.T) {
	letter := writeFile(t, t.TempDir(), "l.txt", sampleLetter)
	modelPath = ""
	_, _, err := execute(t, "predict", letter, "--json", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestTrainEvaluatePredict(t *testing.T) {
	dir := t.TempDir()
	labels := writeFile(t, dir, "labels.yaml", sampleLabels)

	var lines []string
	texts := map[int][]string{
		1: {"contrôles techniques de radioprotection", "contrôle technique des appareils", "contrôles périodiques des sources"},
		2: {"zonage radiologique des locaux", "délimitation des zones contrôlées", "signalisation du zonage"},
		3: {"plan de prévention signé", "plan de prévention avec les entreprises extérieures", "plan de prévention mis à jour"},
		4: {"registre des contrôles", "registre des sources", "tenue du registre"},
	}
	for label, ts := range texts {
		for _, text := range ts {
			line, err := json.Marshal(map[string]interface{}{"text": text, "label": label})
			require.NoError(t, err)
			lines = append(lines, string(line))
		}
	}
	samples := writeFile(t, dir, "samples.jsonl", strings.Join(lines, "\n")+"\n")
	modelFile := filepath.Join(dir, "model.json")

	t.Setenv("SIANCE_EMBEDDING_PROVIDER", "hashing")

	_, stderr, err := execute(t, "train", samples, "--labels", labels, "--out", modelFile,
		"--estimator", "centroid", "--name", "test_model", "--top-n", "2")
	require.NoError(t, err, stderr)
	assert.FileExists(t, modelFile)

	reportFile := filepath.Join(dir, "eval.json")
	out, _, err := execute(t, "evaluate", modelFile, samples, "--report", reportFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluation of test_model")
	assert.Contains(t, out, "Plan de prévention")
	assert.FileExists(t, reportFile)

	letter := writeFile(t, dir, "lettre.txt", sampleLetter)
	out, _, err = execute(t, "predict", letter, "--model", modelFile, "--json", "-")
	require.NoError(t, err)

	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "test_model", report.ModelName)
	assert.NotEmpty(t, report.Predictions)
	assert.False(t, report.Failed(model.FailureEmbedding))
	assert.False(t, report.Failed(model.FailureClassificationException))
}

func TestBatchCommand(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "reports")
	for i := 1; i <= 3; i++ {
		writeFile(t, in, fmt.Sprintf("lettre-%d.txt", i), sampleLetter)
	}
	modelPath = ""

	_, stderr, err := execute(t, "batch", in, "--output-dir", out, "--concurrency", "2")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Batch Complete")

	for i := 1; i <= 3; i++ {
		assert.FileExists(t, filepath.Join(out, fmt.Sprintf("lettre-%d.json", i)))
		assert.FileExists(t, filepath.Join(out, fmt.Sprintf("lettre-%d.md", i)))
	}

	data, err := os.ReadFile(filepath.Join(out, "summary.json"))
	require.NoError(t, err)
	var summary worker.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, 3, summary.Letters)
	assert.Equal(t, 6, summary.Demands)
	assert.Equal(t, 0, summary.Errors)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INSSN-LYO-2021-0001", "INSSN-LYO-2021-0001"},
		{"a/b:c", "a_b_c"},
		{"lettre de suivi", "lettre-de-suivi"},
		{"", "letter"},
		{"..", "letter"},
		{strings.Repeat("é", 120), strings.Repeat("é", 100)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
