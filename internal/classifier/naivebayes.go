// Package classifier implements a multinomial Naive Bayes classifier over
// sparse TF-IDF vectors with Laplace/Lidstone smoothing.
package classifier

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/features/vectorizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

const DefaultAlpha = 0.1

// Ranked is one class with its posterior probability.
type Ranked struct {
	Label       string  `json:"disease"`
	Probability float64 `json:"confidence"`
}

// Prediction is the top-k view of the posterior distribution. Primary is
// always Top[0].
type Prediction struct {
	Primary    string   `json:"primary_prediction"`
	Confidence float64  `json:"confidence_score"`
	Top        []Ranked `json:"top_predictions"`
}

// State is the persisted form of a fitted classifier.
type State struct {
	Alpha          float64     `json:"alpha"`
	Classes        []string    `json:"classes"`
	ClassCounts    []int       `json:"class_counts"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// NaiveBayes is immutable once fitted and safe for concurrent scoring.
type NaiveBayes struct {
	alpha          float64
	classes        []string
	classCounts    []int
	classLogPrior  []float64
	featureLogProb [][]float64
	dim            int
}

func NewNaiveBayes(alpha float64) (*NaiveBayes, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: alpha must be positive, got %v", apperrors.ErrConfiguration, alpha)
	}
	return &NaiveBayes{alpha: alpha}, nil
}

// Fit estimates class priors and per-class feature log-likelihoods. Classes
// are ordered lexicographically.
func (nb *NaiveBayes) Fit(vectors []vectorizer.Vector, labels []string) error {
	if len(vectors) == 0 {
		return fmt.Errorf("%w: cannot fit classifier on zero examples", apperrors.ErrConfiguration)
	}
	if len(vectors) != len(labels) {
		return fmt.Errorf("%w: %d vectors but %d labels", apperrors.ErrConfiguration, len(vectors), len(labels))
	}
	dim := vectors[0].Dim
	if dim <= 0 {
		return fmt.Errorf("%w: feature dimension must be positive", apperrors.ErrConfiguration)
	}
	for i, v := range vectors {
		if v.Dim != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d", apperrors.ErrDimensionMismatch, i, v.Dim, dim)
		}
		for _, w := range v.Values {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return fmt.Errorf("%w: vector %d has invalid weight %v", apperrors.ErrConfiguration, i, w)
			}
		}
	}

	classes := distinct(labels)
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	counts := make([]int, len(classes))
	featureCount := make([][]float64, len(classes))
	for c := range featureCount {
		featureCount[c] = make([]float64, dim)
	}
	for i, v := range vectors {
		c := classIdx[labels[i]]
		counts[c]++
		for k, f := range v.Indices {
			featureCount[c][f] += v.Values[k]
		}
	}

	total := float64(len(vectors))
	logPrior := make([]float64, len(classes))
	logProb := make([][]float64, len(classes))
	for c := range classes {
		logPrior[c] = math.Log(float64(counts[c]) / total)
		var classTotal float64
		for _, x := range featureCount[c] {
			classTotal += x
		}
		denom := math.Log(nb.alpha*float64(dim) + classTotal)
		row := make([]float64, dim)
		for f, x := range featureCount[c] {
			row[f] = math.Log(nb.alpha+x) - denom
		}
		logProb[c] = row
	}

	nb.classes = classes
	nb.classCounts = counts
	nb.classLogPrior = logPrior
	nb.featureLogProb = logProb
	nb.dim = dim
	return nil
}

func (nb *NaiveBayes) Fitted() bool {
	return nb.classes != nil
}

// Classes returns the class labels in the order used for every score slice.
func (nb *NaiveBayes) Classes() []string {
	out := make([]string, len(nb.classes))
	copy(out, nb.classes)
	return out
}

func (nb *NaiveBayes) Dim() int {
	return nb.dim
}

func (nb *NaiveBayes) Alpha() float64 {
	return nb.alpha
}

// LogPosterior returns the unnormalised joint log-likelihood per class.
func (nb *NaiveBayes) LogPosterior(v vectorizer.Vector) ([]float64, error) {
	if !nb.Fitted() {
		return nil, fmt.Errorf("%w: classifier", apperrors.ErrNotFitted)
	}
	if v.Dim != nb.dim {
		return nil, fmt.Errorf("%w: vector has dimension %d, model expects %d", apperrors.ErrDimensionMismatch, v.Dim, nb.dim)
	}
	out := make([]float64, len(nb.classes))
	for c := range nb.classes {
		score := nb.classLogPrior[c]
		row := nb.featureLogProb[c]
		for k, f := range v.Indices {
			score += v.Values[k] * row[f]
		}
		out[c] = score
	}
	return out, nil
}

// Score returns posterior probabilities aligned with Classes. They sum to 1.
func (nb *NaiveBayes) Score(v vectorizer.Vector) ([]float64, error) {
	logPost, err := nb.LogPosterior(v)
	if err != nil {
		return nil, err
	}
	return softmax(logPost), nil
}

// Predict returns the most probable class; ties go to the earlier class.
func (nb *NaiveBayes) Predict(v vectorizer.Vector) (string, error) {
	logPost, err := nb.LogPosterior(v)
	if err != nil {
		return "", err
	}
	best := 0
	for c := 1; c < len(logPost); c++ {
		if logPost[c] > logPost[best] {
			best = c
		}
	}
	return nb.classes[best], nil
}

// PredictWithConfidence ranks classes by posterior and keeps the first k.
// When k exceeds the number of classes, or is not positive, every class is
// returned.
func (nb *NaiveBayes) PredictWithConfidence(v vectorizer.Vector, k int) (Prediction, error) {
	probs, err := nb.Score(v)
	if err != nil {
		return Prediction{}, err
	}
	ranked := Rank(nb.classes, probs)
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return Prediction{
		Primary:    ranked[0].Label,
		Confidence: ranked[0].Probability,
		Top:        ranked,
	}, nil
}

// Rank pairs classes with probabilities sorted by probability descending.
// Equal probabilities keep class order.
func Rank(classes []string, probs []float64) []Ranked {
	ranked := make([]Ranked, len(classes))
	for i, c := range classes {
		ranked[i] = Ranked{Label: c, Probability: probs[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	return ranked
}

func (nb *NaiveBayes) State() (State, error) {
	if !nb.Fitted() {
		return State{}, fmt.Errorf("%w: classifier", apperrors.ErrNotFitted)
	}
	rows := make([][]float64, len(nb.featureLogProb))
	for c, row := range nb.featureLogProb {
		rows[c] = append([]float64(nil), row...)
	}
	return State{
		Alpha:          nb.alpha,
		Classes:        nb.Classes(),
		ClassCounts:    append([]int(nil), nb.classCounts...),
		ClassLogPrior:  append([]float64(nil), nb.classLogPrior...),
		FeatureLogProb: rows,
	}, nil
}

// FromState rebuilds a fitted classifier after checking that s is internally
// consistent.
func FromState(s State) (*NaiveBayes, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	nb := &NaiveBayes{
		alpha:         s.Alpha,
		classes:       append([]string(nil), s.Classes...),
		classCounts:   append([]int(nil), s.ClassCounts...),
		classLogPrior: append([]float64(nil), s.ClassLogPrior...),
		dim:           len(s.FeatureLogProb[0]),
	}
	nb.featureLogProb = make([][]float64, len(s.FeatureLogProb))
	for c, row := range s.FeatureLogProb {
		nb.featureLogProb[c] = append([]float64(nil), row...)
	}
	return nb, nil
}

func (s State) Validate() error {
	if !(s.Alpha > 0) {
		return fmt.Errorf("%w: alpha %v", apperrors.ErrArtifactCorrupt, s.Alpha)
	}
	n := len(s.Classes)
	if n == 0 {
		return fmt.Errorf("%w: no classes", apperrors.ErrArtifactCorrupt)
	}
	if len(s.ClassLogPrior) != n || len(s.FeatureLogProb) != n {
		return fmt.Errorf("%w: %d classes but %d priors and %d likelihood rows",
			apperrors.ErrArtifactCorrupt, n, len(s.ClassLogPrior), len(s.FeatureLogProb))
	}
	if s.ClassCounts != nil && len(s.ClassCounts) != n {
		return fmt.Errorf("%w: %d class counts for %d classes", apperrors.ErrArtifactCorrupt, len(s.ClassCounts), n)
	}
	for i := 1; i < n; i++ {
		if s.Classes[i-1] >= s.Classes[i] {
			return fmt.Errorf("%w: classes not strictly sorted at %d", apperrors.ErrArtifactCorrupt, i)
		}
	}
	dim := len(s.FeatureLogProb[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty likelihood row", apperrors.ErrArtifactCorrupt)
	}
	for c := 0; c < n; c++ {
		if !finite(s.ClassLogPrior[c]) {
			return fmt.Errorf("%w: non-finite prior for %q", apperrors.ErrArtifactCorrupt, s.Classes[c])
		}
		if len(s.FeatureLogProb[c]) != dim {
			return fmt.Errorf("%w: likelihood row %d has width %d, expected %d",
				apperrors.ErrArtifactCorrupt, c, len(s.FeatureLogProb[c]), dim)
		}
		for _, x := range s.FeatureLogProb[c] {
			if !finite(x) {
				return fmt.Errorf("%w: non-finite likelihood for %q", apperrors.ErrArtifactCorrupt, s.Classes[c])
			}
		}
	}
	return nil
}

func distinct(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, x := range logits {
		if x > maxLogit {
			maxLogit = x
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, x := range logits {
		out[i] = math.Exp(x - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
