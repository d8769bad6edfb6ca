// Package pipeline turns one letter into a report: clean, segment, extract
// demands, classify sentences, group predictions by demand, facet topics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/siance/internal/embed"
	"github.com/ppiankov/siance/internal/group"
	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
	"github.com/ppiankov/siance/internal/segment"
	"github.com/ppiankov/siance/internal/sentence"
)

// Embedder turns sentences into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Classifier predicts label ids for sentence vectors. *classify.Model
// satisfies it.
type Classifier interface {
	Predict(x [][]float64) ([][]int, int, error)
	DecisionScore(label int) *float64
	LabelSet() model.LabelSet
}

// Observer is told about every finished report
type Observer interface {
	ObserveReport(r *model.Report, elapsed time.Duration)
}

// Options wires the optional collaborators of a Processor. Without a
// Classifier the processor stops after demand extraction.
type Options struct {
	Embedder   Embedder
	Classifier Classifier
	ModelName  string
	Splitter   sentence.Segmenter
	Observer   Observer
	Log        logging.Logger
}

// Processor analyses letters. It is safe for concurrent use.
type Processor struct {
	analyzer    *segment.Analyzer
	splitter    sentence.Segmenter
	embedder    Embedder
	classifier  Classifier
	labels      model.LabelSet
	modelName   string
	minSentence int
	threshold   float64
	withContent bool
	observer    Observer
	log         logging.Logger
	now         func() time.Time
}

// NewProcessor creates a processor from the configuration
func NewProcessor(cfg *model.Config, opts Options) *Processor {
	log := logging.OrNop(opts.Log).Named("pipeline")

	splitter := opts.Splitter
	if splitter == nil {
		splitter = sentence.NewSplitter()
	}
	minSentence := cfg.Classification.MinSentenceLength
	if minSentence <= 0 {
		minSentence = sentence.MinLengthForPrediction
	}
	threshold := cfg.Classification.DecisionThreshold
	if threshold <= 0 {
		threshold = group.DefaultThreshold
	}

	p := &Processor{
		analyzer:    segment.NewAnalyzer(cfg.Segmentation, log),
		splitter:    splitter,
		embedder:    opts.Embedder,
		classifier:  opts.Classifier,
		modelName:   opts.ModelName,
		minSentence: minSentence,
		threshold:   threshold,
		withContent: cfg.Output.WithContent,
		observer:    opts.Observer,
		log:         log,
		now:         time.Now,
	}
	if p.classifier != nil {
		p.labels = p.classifier.LabelSet()
	}
	return p
}

// ProcessLetter analyses one cleaned letter. Failures are recorded on the
// report and logged; they are never returned.
func (p *Processor) ProcessLetter(ctx context.Context, letter model.Letter) *model.Report {
	started := p.now()
	log := p.log.With(logging.LetterID(letter.ID))

	report := &model.Report{
		LetterID:    letter.ID,
		Name:        letter.Name,
		ProcessedAt: started.UTC(),
		Characters:  segment.RuneLen(letter.Text),
		Zones:       []model.Zone{},
		Demands:     []model.DemandSpan{},
	}

	md := ExtractMetadata(letter.Text, started)
	report.Codep, report.Inspection, report.SentAt = md.Codep, md.Inspection, md.SentAt

	result, err := p.analyzer.Analyze(letter.Text)
	switch {
	case errors.Is(err, segment.ErrFormatUnrecognized):
		log.Warn("letter format unrecognized", logging.Err(err))
		report.Failures = append(report.Failures, model.Failure{
			Kind:    model.FailureFormatUnrecognized,
			Message: err.Error(),
		})
	case err != nil:
		log.Error("demand extraction failed", logging.Err(err))
		report.Failures = append(report.Failures, model.Failure{
			Kind:    model.FailureDemandExtraction,
			Message: err.Error(),
		})
		if result.Zones != nil {
			report.Zones = result.Zones
		}
	default:
		report.Zones = result.Zones
		report.Demands = result.Demands
	}

	if p.classifier != nil {
		p.classify(ctx, letter.Text, report, log)
	}

	log.Debug("letter processed",
		logging.Int("zones", len(report.Zones)),
		logging.Int("demands", len(report.Demands)),
		logging.Int("predictions", len(report.Predictions)),
		logging.Duration("elapsed", p.now().Sub(started)),
	)
	// an abandoned letter is counted by whoever abandoned it
	if p.observer != nil && ctx.Err() == nil {
		p.observer.ObserveReport(report, p.now().Sub(started))
	}
	return report
}

func (p *Processor) classify(ctx context.Context, text string, report *model.Report, log logging.Logger) {
	report.ModelName = p.modelName

	start, end := predictionRange(report.Zones, report.Characters)
	sentences := sentence.Predictable(p.splitter.Split(text, start, end), p.minSentence)
	if len(sentences) > 0 {
		preds, failure := p.predict(ctx, sentences)
		if failure != nil {
			log.Error("sentence classification failed",
				logging.String("kind", string(failure.Kind)),
				logging.String("error", failure.Message),
			)
			report.Failures = append(report.Failures, *failure)
		} else {
			report.Predictions = preds.predictions
			report.Unresolved = preds.unresolved
			if preds.unresolved > 0 {
				log.Warn("classification unresolved", logging.Int("sentences", preds.unresolved))
				report.Failures = append(report.Failures, model.Failure{
					Kind:    model.FailureClassificationUnresolved,
					Message: fmt.Sprintf("%d decisions fell in a category without bottom estimator", preds.unresolved),
				})
			}
		}
	}

	content := ""
	if p.withContent {
		content = text
	}
	groups := group.Assign(report.Demands, report.Predictions)
	report.DemandPredictions = make([]model.DemandPrediction, len(groups))
	for i, g := range groups {
		report.DemandPredictions[i] = g.DemandPrediction()
	}
	report.DemandsA, report.DemandsB = group.SplitByType(group.Facets(groups, p.labels, p.threshold, content))
}

type predictions struct {
	predictions []model.SentencePrediction
	unresolved  int
}

// predict turns estimator errors and panics into a failure
func (p *Processor) predict(ctx context.Context, sentences []sentence.Sentence) (out predictions, failure *model.Failure) {
	if p.embedder == nil {
		return out, &model.Failure{Kind: model.FailureEmbedding, Message: embed.ErrProviderUnavailable.Error()}
	}

	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		kind := model.FailureEmbedding
		if errors.Is(err, context.DeadlineExceeded) {
			kind = model.FailureTimeout
		}
		return out, &model.Failure{Kind: kind, Message: err.Error()}
	}

	defer func() {
		if r := recover(); r != nil {
			out = predictions{}
			failure = &model.Failure{Kind: model.FailureClassificationException, Message: fmt.Sprint(r)}
		}
	}()
	labels, unresolved, err := p.classifier.Predict(vectors)
	if err != nil {
		return predictions{}, &model.Failure{Kind: model.FailureClassificationException, Message: err.Error()}
	}

	out.unresolved = unresolved
	out.predictions = []model.SentencePrediction{}
	for i, s := range sentences {
		if i >= len(labels) {
			break
		}
		for _, label := range labels[i] {
			sp := model.SentencePrediction{
				Start:         s.Start,
				End:           s.End,
				LabelID:       label,
				DecisionScore: p.classifier.DecisionScore(label),
			}
			if p.withContent {
				sp.Sentence = s.Text
			}
			out.predictions = append(out.predictions, sp)
		}
	}
	return out, nil
}

// predictionRange spans from the first zone start to the last zone end, or
// the whole letter when there is no zone
func predictionRange(zones []model.Zone, length int) (int, int) {
	if len(zones) == 0 {
		return 0, length
	}
	start, end := zones[0].Start, zones[0].End
	for _, z := range zones[1:] {
		start = min(start, z.Start)
		end = max(end, z.End)
	}
	return start, end
}
