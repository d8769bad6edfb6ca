package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppiankov/siance/internal/segment"
)

// DefaultHashingDimensions is the vector size of the hashing provider
const DefaultHashingDimensions = 512

// HashingProvider embeds offline with signed feature hashing of folded word
// unigrams and bigrams. Vectors are L2-normalized. It needs no service and
// is deterministic, which makes it usable for training on a laptop and in
// tests; quality is far below a neural model.
type HashingProvider struct {
	dims int
}

// NewHashingProvider creates a hashing provider; dims <= 0 uses the default
func NewHashingProvider(dims int) *HashingProvider {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingProvider{dims: dims}
}

// Name returns the provider name
func (p *HashingProvider) Name() string { return "hashing" }

// Model encodes the dimension so vectors of different sizes never share a key
func (p *HashingProvider) Model() string {
	return "hashing-" + strconv.Itoa(p.dims)
}

// IsAvailable is always true
func (p *HashingProvider) IsAvailable(context.Context) bool { return true }

// Embed hashes each text independently
func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashingProvider) vector(text string) []float64 {
	vec := make([]float64, p.dims)
	tokens := strings.FieldsFunc(segment.Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		p.add(vec, tok)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (p *HashingProvider) add(vec []float64, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1
	}
	vec[sum%uint64(p.dims)] += sign
}
