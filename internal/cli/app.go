package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/siance/internal/cache"
	"github.com/ppiankov/siance/internal/classify"
	"github.com/ppiankov/siance/internal/embed"
	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/pipeline"
	"github.com/ppiankov/siance/internal/worker"
)

// app holds what every command needs: the effective config, the logger and
// the shared rate limiter
type app struct {
	cfg     *model.Config
	log     logging.Logger
	limiter *worker.Limiter
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     log,
		limiter: worker.NewLimiterFromConfig(cfg.RateLimiting),
	}, nil
}

// loadModel reads the topic model at path, or the configured one.
// No path at all means segmentation only.
func (a *app) loadModel(path string) (*classify.Model, error) {
	if path == "" {
		path = a.cfg.Classification.ModelPath
	}
	if path == "" {
		return nil, nil
	}
	m, err := classify.LoadModel(path, a.log)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if a.cfg.Classification.TopN > 0 {
		m.SetTopN(a.cfg.Classification.TopN)
	}
	return m, nil
}

// newEmbedder builds the configured provider behind the cache, the rate
// limiter and the retry policy
func (a *app) newEmbedder(ctx context.Context) (*embed.Cached, error) {
	provider, err := embed.NewProvider(embed.ConfigFromModel(a.cfg))
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: set embedding.provider (openai, ollama, hashing)", embed.ErrProviderUnavailable)
	}
	if !provider.IsAvailable(ctx) {
		a.log.Warn("embedding provider not reachable", logging.String("provider", provider.Name()))
	}

	opts := embed.Options{
		BatchSize:  a.cfg.Embedding.BatchSize,
		MaxRetries: a.cfg.Embedding.MaxRetries,
		TTL:        a.cfg.Cache.DiskTTL,
	}
	return embed.NewCached(provider, cache.New(a.cfg.Cache), a.limiter, opts, a.log), nil
}

// newProcessor wires a letter processor. With a model it also embeds and
// classifies sentences.
func (a *app) newProcessor(ctx context.Context, modelPath string, observer pipeline.Observer) (*pipeline.Processor, *classify.Model, error) {
	m, err := a.loadModel(modelPath)
	if err != nil {
		return nil, nil, err
	}

	opts := pipeline.Options{Observer: observer, Log: a.log}
	if m != nil {
		embedder, err := a.newEmbedder(ctx)
		if err != nil {
			return nil, nil, err
		}
		opts.Embedder = embedder
		opts.Classifier = m
		opts.ModelName = m.Name
	}
	return pipeline.NewProcessor(a.cfg, opts), m, nil
}

// renderer returns a report renderer knowing the label names of m
func renderer(m *classify.Model) *pipeline.Renderer {
	if m == nil {
		return pipeline.NewRenderer(nil)
	}
	return pipeline.NewRenderer(m.LabelSet())
}

// writeReports writes <dir>/<id>.json and, when withMarkdown, <dir>/<id>.md
func writeReports(r *pipeline.Renderer, report *model.Report, text, dir string, withMarkdown bool) error {
	base := filepath.Join(dir, sanitizeFilename(report.LetterID))
	if err := r.RenderJSON(report, base+".json"); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if withMarkdown {
		if err := r.RenderMarkdown(report, pipeline.BuildOutline(report, text), base+".md"); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
	}
	return nil
}

// readLetter loads a letter file, or stdin for "-"
func readLetter(path string) (model.Letter, error) {
	if path != "-" {
		return worker.ReadLetterFile(path)
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return model.Letter{}, fmt.Errorf("read stdin: %w", err)
	}
	return model.Letter{
		ID:   "stdin",
		Text: pipeline.CleanText(pipeline.RestoreLineBreaks(string(raw))),
	}, nil
}

// sanitizeFilename makes a letter id safe to use as a file name
func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))

	if s == "" || s == "." || s == ".." {
		s = "letter"
	}
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}
