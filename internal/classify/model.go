package classify

import (
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

// Model architectures
const (
	// ArchitectureSingle uses one hierarchical classifier over every label
	ArchitectureSingle = "single"
	// ArchitectureDual pairs a classifier over technical labels with one over
	// transverse labels, so a sentence may get one label of each kind
	ArchitectureDual = "dual"
)

// Model is a fitted topic model: its classifiers, label set and the
// decision-score table used to qualify predictions
type Model struct {
	Name         string
	Architecture string
	CreatedAt    time.Time
	Labels       []model.Label
	Scores       map[int]*float64 // training-set precision per label, nil if never predicted

	classifiers []*HierarchicalClassifier
}

// TrainOptions configure Train
type TrainOptions struct {
	Name         string
	Architecture string
	TopN         int
	Estimator    Options
}

// Sample is one labeled training vector
type Sample struct {
	Vector []float64 `json:"vector,omitempty"`
	Text   string    `json:"text,omitempty"`
	Label  int       `json:"label"`
}

// Train fits a model on samples and fills its decision-score table from
// the per-label precision on the training set
func Train(samples []Sample, labels []model.Label, opts TrainOptions, log logging.Logger) (*Model, error) {
	log = logging.OrNop(log).Named("train")
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	h, err := NewHierarchy(labels)
	if err != nil {
		return nil, err
	}
	if opts.Architecture == "" {
		opts.Architecture = ArchitectureSingle
	}
	if opts.Name == "" {
		opts.Name = time.Now().UTC().Format("2006-01-02") + "_model"
	}

	m := &Model{
		Name:         opts.Name,
		Architecture: opts.Architecture,
		CreatedAt:    time.Now().UTC(),
		Labels:       labels,
	}
	set := model.NewLabelSet(labels)

	switch opts.Architecture {
	case ArchitectureSingle:
		c := NewHierarchicalClassifier(h, opts.TopN, opts.Estimator, log)
		if err := fitOn(c, samples, func(int) bool { return true }); err != nil {
			return nil, err
		}
		m.classifiers = []*HierarchicalClassifier{c}

	case ArchitectureDual:
		isTransverse := func(label int) bool { return set[label].IsTransverse }
		isTechnical := func(label int) bool { return !set[label].IsTransverse }
		for _, keep := range []func(int) bool{isTechnical, isTransverse} {
			c := NewHierarchicalClassifier(h.Subset(keep), opts.TopN, opts.Estimator, log)
			if err := fitOn(c, samples, keep); err != nil {
				return nil, err
			}
			if c.Fitted() {
				m.classifiers = append(m.classifiers, c)
			}
		}
		if len(m.classifiers) == 0 {
			return nil, ErrNoSamples
		}

	default:
		return nil, fmt.Errorf("unknown architecture: %s", opts.Architecture)
	}

	vectors, truth := split(samples)
	predicted, _, err := m.Predict(vectors)
	if err != nil {
		return nil, fmt.Errorf("score training set: %w", err)
	}
	report := Evaluate(truth, predicted)
	m.Scores = make(map[int]*float64, len(labels))
	for _, l := range labels {
		if metrics, ok := report.PerLabel[l.ID]; ok && metrics.Predicted > 0 {
			p := metrics.Precision
			m.Scores[l.ID] = &p
		} else {
			m.Scores[l.ID] = nil
		}
	}

	log.Info("model trained",
		logging.String("name", m.Name),
		logging.String("architecture", m.Architecture),
		logging.Int("samples", len(samples)),
		logging.Float64("precision", report.Precision),
		logging.Float64("recall", report.Recall))
	return m, nil
}

// fitOn fits c on the samples whose label is kept; no kept sample leaves c unfitted
func fitOn(c *HierarchicalClassifier, samples []Sample, keep func(int) bool) error {
	var x [][]float64
	var y []int
	for _, s := range samples {
		if keep(s.Label) {
			x = append(x, s.Vector)
			y = append(y, s.Label)
		}
	}
	if len(x) == 0 {
		return nil
	}
	return c.Fit(x, y)
}

func split(samples []Sample) ([][]float64, [][]int) {
	x := make([][]float64, len(samples))
	y := make([][]int, len(samples))
	for i, s := range samples {
		x[i] = s.Vector
		y[i] = []int{s.Label}
	}
	return x, y
}

// Classifiers returns the fitted hierarchical classifiers of the model
func (m *Model) Classifiers() []*HierarchicalClassifier { return m.classifiers }

// SetTopN changes the safety net width of every classifier
func (m *Model) SetTopN(n int) {
	for _, c := range m.classifiers {
		c.SetTopN(n)
	}
}

// SetLogger replaces the logger of a loaded model
func (m *Model) SetLogger(log logging.Logger) {
	for _, c := range m.classifiers {
		c.log = logging.OrNop(log).Named("hierarchical")
	}
}

// Predict returns the labels of every vector, one per classifier, skipping
// unresolved samples. The second result counts unresolved decisions.
func (m *Model) Predict(x [][]float64) ([][]int, int, error) {
	if len(m.classifiers) == 0 {
		return nil, 0, ErrNotFitted
	}
	out := make([][]int, len(x))
	unresolved := 0
	for _, c := range m.classifiers {
		labels, err := c.Predict(x)
		if err != nil {
			return nil, 0, err
		}
		for i, label := range labels {
			if label == Unresolved {
				unresolved++
				continue
			}
			out[i] = append(out[i], label)
		}
	}
	for _, labels := range out {
		sort.Ints(labels)
	}
	return out, unresolved, nil
}

// DecisionScore returns the score of a label, nil when unknown
func (m *Model) DecisionScore(label int) *float64 {
	if s, ok := m.Scores[label]; ok && s != nil {
		v := *s
		return &v
	}
	return nil
}

// LabelSet indexes the model labels by id
func (m *Model) LabelSet() model.LabelSet {
	return model.NewLabelSet(m.Labels)
}
