// Package vectorizer learns a capped term vocabulary with smoothed IDF
// weights and maps symptom text onto TF-IDF feature vectors.
package vectorizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

const (
	NormL2   = "l2"
	NormNone = "none"
)

// Options configures vocabulary construction and weighting.
type Options struct {
	// MaxFeatures caps the vocabulary at the most frequent terms. Zero means
	// no cap.
	MaxFeatures int               `json:"max_features"`
	Tokenizer   tokenizer.Options `json:"tokenizer"`
	Norm        string            `json:"norm"`
	SmoothIDF   bool              `json:"smooth_idf"`
}

func DefaultOptions() Options {
	return Options{
		MaxFeatures: 5000,
		Tokenizer:   tokenizer.DefaultOptions(),
		Norm:        NormL2,
		SmoothIDF:   true,
	}
}

// State is the persisted form of a fitted vectorizer. Terms[i] is the term
// at feature index i.
type State struct {
	Options Options   `json:"options"`
	Terms   []string  `json:"terms"`
	IDF     []float64 `json:"idf"`
	NumDocs int       `json:"num_docs"`
}

// Vectorizer is immutable once fitted and safe for concurrent Transform
// calls.
type Vectorizer struct {
	opts    Options
	tok     *tokenizer.Tokenizer
	index   map[string]int
	terms   []string
	idf     []float64
	numDocs int
}

func New(opts Options) (*Vectorizer, error) {
	if opts.MaxFeatures < 0 {
		return nil, fmt.Errorf("%w: max features must not be negative", apperrors.ErrConfiguration)
	}
	switch opts.Norm {
	case "":
		opts.Norm = NormL2
	case NormL2, NormNone:
	default:
		return nil, fmt.Errorf("%w: unknown norm %q", apperrors.ErrConfiguration, opts.Norm)
	}
	tok, err := tokenizer.New(opts.Tokenizer)
	if err != nil {
		return nil, err
	}
	opts.Tokenizer = tok.Options()
	return &Vectorizer{opts: opts, tok: tok}, nil
}

type termStats struct {
	total     int
	docFreq   int
	firstSeen int
}

// Fit builds the vocabulary and IDF table from texts. It keeps the
// MaxFeatures terms with the highest total corpus frequency, earlier-seen
// terms winning ties, and assigns indices in lexicographic term order.
func (v *Vectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: cannot fit vectorizer on an empty corpus", apperrors.ErrConfiguration)
	}
	stats := make(map[string]*termStats)
	order := make([]string, 0)
	for _, text := range texts {
		seenInDoc := make(map[string]struct{})
		for _, term := range v.tok.Terms(text) {
			st, ok := stats[term]
			if !ok {
				st = &termStats{firstSeen: len(order)}
				stats[term] = st
				order = append(order, term)
			}
			st.total++
			if _, dup := seenInDoc[term]; !dup {
				seenInDoc[term] = struct{}{}
				st.docFreq++
			}
		}
	}
	if len(order) == 0 {
		return fmt.Errorf("%w: empty vocabulary; corpus contains only stop words or no words", apperrors.ErrConfiguration)
	}

	kept := order
	if v.opts.MaxFeatures > 0 && len(order) > v.opts.MaxFeatures {
		ranked := make([]string, len(order))
		copy(ranked, order)
		sort.SliceStable(ranked, func(i, j int) bool {
			return stats[ranked[i]].total > stats[ranked[j]].total
		})
		kept = ranked[:v.opts.MaxFeatures]
	}
	terms := make([]string, len(kept))
	copy(terms, kept)
	sort.Strings(terms)

	n := len(texts)
	index := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		index[term] = i
		idf[i] = computeIDF(n, stats[term].docFreq, v.opts.SmoothIDF)
	}

	v.terms = terms
	v.index = index
	v.idf = idf
	v.numDocs = n
	return nil
}

// Transform maps text onto the fitted vocabulary. Unknown terms are ignored;
// text with no known term yields the zero vector.
func (v *Vectorizer) Transform(text string) (Vector, error) {
	if !v.Fitted() {
		return Vector{}, fmt.Errorf("%w: vectorizer", apperrors.ErrNotFitted)
	}
	counts := make(map[int]int)
	for _, term := range v.tok.Terms(text) {
		if i, ok := v.index[term]; ok {
			counts[i]++
		}
	}
	out := Vector{Dim: len(v.terms)}
	if len(counts) == 0 {
		return out, nil
	}
	out.Indices = make([]int, 0, len(counts))
	for i := range counts {
		out.Indices = append(out.Indices, i)
	}
	sort.Ints(out.Indices)
	out.Values = make([]float64, len(out.Indices))
	for k, i := range out.Indices {
		out.Values[k] = float64(counts[i]) * v.idf[i]
	}
	if v.opts.Norm == NormL2 {
		if norm := out.Norm(); norm > 0 {
			for k := range out.Values {
				out.Values[k] /= norm
			}
		}
	}
	return out, nil
}

// TransformAll transforms each text in order.
func (v *Vectorizer) TransformAll(texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		vec, err := v.Transform(text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (v *Vectorizer) FitTransform(texts []string) ([]Vector, error) {
	if err := v.Fit(texts); err != nil {
		return nil, err
	}
	return v.TransformAll(texts)
}

func (v *Vectorizer) Fitted() bool {
	return v.terms != nil
}

// Size is the vocabulary size, zero before Fit.
func (v *Vectorizer) Size() int {
	return len(v.terms)
}

// Vocabulary returns a copy of the term to index mapping.
func (v *Vectorizer) Vocabulary() map[string]int {
	out := make(map[string]int, len(v.index))
	for term, i := range v.index {
		out[term] = i
	}
	return out
}

func (v *Vectorizer) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

func (v *Vectorizer) IDF() []float64 {
	out := make([]float64, len(v.idf))
	copy(out, v.idf)
	return out
}

func (v *Vectorizer) Options() Options {
	return v.opts
}

func (v *Vectorizer) State() (State, error) {
	if !v.Fitted() {
		return State{}, fmt.Errorf("%w: vectorizer", apperrors.ErrNotFitted)
	}
	return State{
		Options: v.opts,
		Terms:   v.Terms(),
		IDF:     v.IDF(),
		NumDocs: v.numDocs,
	}, nil
}

// FromState rebuilds a fitted vectorizer. It rejects states whose terms are
// not unique and sorted or whose IDF table does not line up.
func FromState(s State) (*Vectorizer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	v, err := New(s.Options)
	if err != nil {
		return nil, err
	}
	v.terms = make([]string, len(s.Terms))
	copy(v.terms, s.Terms)
	v.idf = make([]float64, len(s.IDF))
	copy(v.idf, s.IDF)
	v.index = make(map[string]int, len(s.Terms))
	for i, term := range s.Terms {
		v.index[term] = i
	}
	v.numDocs = s.NumDocs
	return v, nil
}

// Validate checks the internal consistency of a persisted state, including
// that its options would build a vectorizer.
func (s State) Validate() error {
	if _, err := New(s.Options); err != nil {
		return fmt.Errorf("%w: options: %v", apperrors.ErrArtifactCorrupt, err)
	}
	if len(s.Terms) == 0 {
		return fmt.Errorf("%w: empty vocabulary", apperrors.ErrArtifactCorrupt)
	}
	if len(s.IDF) != len(s.Terms) {
		return fmt.Errorf("%w: %d idf weights for %d terms", apperrors.ErrArtifactCorrupt, len(s.IDF), len(s.Terms))
	}
	for i, term := range s.Terms {
		if term == "" {
			return fmt.Errorf("%w: empty term at index %d", apperrors.ErrArtifactCorrupt, i)
		}
		if i > 0 && s.Terms[i-1] >= term {
			return fmt.Errorf("%w: terms not strictly sorted at index %d", apperrors.ErrArtifactCorrupt, i)
		}
		if w := s.IDF[i]; math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return fmt.Errorf("%w: invalid idf %v for %q", apperrors.ErrArtifactCorrupt, w, term)
		}
	}
	return nil
}

func computeIDF(numDocs, docFreq int, smooth bool) float64 {
	if smooth {
		return math.Log(float64(1+numDocs)/float64(1+docFreq)) + 1
	}
	return math.Log(float64(numDocs)/float64(docFreq)) + 1
}
