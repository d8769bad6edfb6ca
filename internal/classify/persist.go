package classify

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

// FormatVersion is bumped when the saved model layout changes
const FormatVersion = 1

type estimatorJSON struct {
	Kind  string          `json:"kind"`
	State json.RawMessage `json:"state"`
}

type classifierJSON struct {
	Hierarchy map[int]string           `json:"hierarchy"`
	TopN      int                      `json:"top_n"`
	Options   Options                  `json:"options"`
	Top       estimatorJSON            `json:"top"`
	Bottom    map[string]estimatorJSON `json:"bottom"`
}

type modelJSON struct {
	Version      int              `json:"version"`
	Name         string           `json:"name"`
	Architecture string           `json:"architecture"`
	CreatedAt    time.Time        `json:"created_at"`
	Labels       []model.Label    `json:"labels"`
	Scores       map[int]*float64 `json:"scores"`
	Classifiers  []classifierJSON `json:"classifiers"`
}

func encodeEstimator[C cmp.Ordered](e Estimator[C]) (estimatorJSON, error) {
	var kind string
	switch e.(type) {
	case *Softmax[C]:
		kind = KindSoftmax
	case *Centroid[C]:
		kind = KindCentroid
	default:
		return estimatorJSON{}, fmt.Errorf("cannot save estimator %T", e)
	}
	state, err := json.Marshal(e)
	if err != nil {
		return estimatorJSON{}, err
	}
	return estimatorJSON{Kind: kind, State: state}, nil
}

// shaped estimators report the vector size their fitted arrays agree on
type shaped interface {
	dimension() (int, error)
}

func rowsDimension(rows [][]float64) (int, error) {
	dim := len(rows[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty rows", ErrMalformedModel)
	}
	for i, row := range rows {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformedModel, i, len(row), dim)
		}
	}
	return dim, nil
}

func decodeEstimator[C cmp.Ordered](j estimatorJSON) (Estimator[C], int, error) {
	var e Estimator[C]
	switch j.Kind {
	case KindSoftmax:
		e = &Softmax[C]{}
	case KindCentroid:
		e = &Centroid[C]{}
	default:
		return nil, 0, fmt.Errorf("unknown estimator kind: %s", j.Kind)
	}
	if err := json.Unmarshal(j.State, e); err != nil {
		return nil, 0, fmt.Errorf("decode %s estimator: %w", j.Kind, err)
	}
	if len(e.Classes()) == 0 {
		return nil, 0, fmt.Errorf("%s estimator: %w", j.Kind, ErrNotFitted)
	}
	dim, err := e.(shaped).dimension()
	if err != nil {
		return nil, 0, fmt.Errorf("%s estimator: %w", j.Kind, err)
	}
	return e, dim, nil
}

func encodeClassifier(c *HierarchicalClassifier) (classifierJSON, error) {
	if c.top == nil {
		return classifierJSON{}, ErrNotFitted
	}
	top, err := encodeEstimator(c.top)
	if err != nil {
		return classifierJSON{}, err
	}
	out := classifierJSON{
		Hierarchy: c.hierarchy,
		TopN:      c.topN,
		Options:   c.opts,
		Top:       top,
		Bottom:    make(map[string]estimatorJSON, len(c.bottom)),
	}
	for category, est := range c.bottom {
		enc, err := encodeEstimator(est)
		if err != nil {
			return classifierJSON{}, err
		}
		out.Bottom[category] = enc
	}
	return out, nil
}

func decodeClassifier(j classifierJSON, log logging.Logger) (*HierarchicalClassifier, error) {
	c := NewHierarchicalClassifier(Hierarchy(j.Hierarchy), j.TopN, j.Options, log)
	top, dim, err := decodeEstimator[string](j.Top)
	if err != nil {
		return nil, fmt.Errorf("top level: %w", err)
	}
	c.top = top
	for category, enc := range j.Bottom {
		est, bottomDim, err := decodeEstimator[int](enc)
		if err != nil {
			return nil, fmt.Errorf("bottom level %q: %w", category, err)
		}
		if bottomDim != dim {
			return nil, fmt.Errorf("bottom level %q: %w: dimension %d, top level %d", category, ErrMalformedModel, bottomDim, dim)
		}
		c.bottom[category] = est
	}
	return c, nil
}

// WriteModel encodes m as JSON
func WriteModel(w io.Writer, m *Model) error {
	out := modelJSON{
		Version:      FormatVersion,
		Name:         m.Name,
		Architecture: m.Architecture,
		CreatedAt:    m.CreatedAt,
		Labels:       m.Labels,
		Scores:       m.Scores,
	}
	for _, c := range m.classifiers {
		enc, err := encodeClassifier(c)
		if err != nil {
			return err
		}
		out.Classifiers = append(out.Classifiers, enc)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ReadModel decodes a model written by WriteModel
func ReadModel(r io.Reader, log logging.Logger) (*Model, error) {
	var in modelJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if in.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported model version %d", in.Version)
	}
	if len(in.Classifiers) == 0 {
		return nil, fmt.Errorf("model %q: %w", in.Name, ErrNotFitted)
	}

	m := &Model{
		Name:         in.Name,
		Architecture: in.Architecture,
		CreatedAt:    in.CreatedAt,
		Labels:       in.Labels,
		Scores:       in.Scores,
	}
	for i, cj := range in.Classifiers {
		c, err := decodeClassifier(cj, log)
		if err != nil {
			return nil, fmt.Errorf("classifier %d: %w", i, err)
		}
		m.classifiers = append(m.classifiers, c)
	}
	return m, nil
}

// SaveModel writes m to path, creating parent directories
func SaveModel(path string, m *Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WriteModel(f, m); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadModel reads a model saved with SaveModel
func LoadModel(path string, log logging.Logger) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadModel(f, log)
}
