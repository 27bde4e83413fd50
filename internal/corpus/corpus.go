// Package corpus loads labeled symptom/disease examples for training.
package corpus

import (
	"context"
	"sort"
)

// Example is one labeled training row.
type Example struct {
	Symptoms string `json:"symptoms"`
	Disease  string `json:"disease"`
}

// Corpus is an ordered set of examples plus how many input rows were
// skipped while reading.
type Corpus struct {
	Source   string
	Examples []Example
	Skipped  int
}

// Source produces a corpus. Implementations return examples in a stable
// order so that training is reproducible.
type Source interface {
	Load(ctx context.Context) (*Corpus, error)
	Name() string
}

func (c *Corpus) Len() int {
	return len(c.Examples)
}

func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Examples))
	for i, ex := range c.Examples {
		out[i] = ex.Symptoms
	}
	return out
}

func (c *Corpus) Labels() []string {
	out := make([]string, len(c.Examples))
	for i, ex := range c.Examples {
		out[i] = ex.Disease
	}
	return out
}

// Distribution counts examples per disease.
func (c *Corpus) Distribution() map[string]int {
	out := make(map[string]int)
	for _, ex := range c.Examples {
		out[ex.Disease]++
	}
	return out
}

// Diseases returns the distinct labels in lexicographic order.
func (c *Corpus) Diseases() []string {
	dist := c.Distribution()
	out := make([]string, 0, len(dist))
	for d := range dist {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Static is an in-memory Source.
type Static struct {
	Label    string
	Examples []Example
}

func (s Static) Load(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	examples := make([]Example, len(s.Examples))
	copy(examples, s.Examples)
	return &Corpus{Source: s.Name(), Examples: examples}, nil
}

func (s Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}
