// Package tokenizer turns free symptom text into the terms the vectorizer
// counts. It folds accents, lower-cases input, splits on non-letter
// boundaries, removes English stop-words and emits word n-grams.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// Options fixes every tokenization knob. It is persisted with the model so
// inference tokenizes exactly like training did.
type Options struct {
	NgramMin       int  `json:"ngram_min"`
	NgramMax       int  `json:"ngram_max"`
	StopWords      bool `json:"stop_words"`
	StripAccents   bool `json:"strip_accents"`
	MinTokenLength int  `json:"min_token_length"`
}

// DefaultOptions returns unigrams+bigrams with English stop-words removed.
func DefaultOptions() Options {
	return Options{
		NgramMin:       1,
		NgramMax:       2,
		StopWords:      true,
		StripAccents:   true,
		MinTokenLength: 2,
	}
}

// Tokenizer is stateless after construction and safe for concurrent use.
type Tokenizer struct {
	opts Options
}

func New(opts Options) (*Tokenizer, error) {
	if opts.NgramMin < 1 || opts.NgramMax < opts.NgramMin {
		return nil, fmt.Errorf("%w: invalid n-gram range [%d, %d]", apperrors.ErrConfiguration, opts.NgramMin, opts.NgramMax)
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = 2
	}
	return &Tokenizer{opts: opts}, nil
}

func (t *Tokenizer) Options() Options {
	return t.opts
}

// Words returns the normalised words of text in order, stop-words and short
// tokens removed.
func (t *Tokenizer) Words(text string) []string {
	if t.opts.StripAccents {
		text = foldAccents(text)
	}
	text = strings.ToLower(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	words := make([]string, 0, len(fields))
	for _, word := range fields {
		if utf8.RuneCountInString(word) < t.opts.MinTokenLength {
			continue
		}
		if t.opts.StopWords {
			if _, isStop := stopWords[word]; isStop {
				continue
			}
		}
		words = append(words, word)
	}
	return words
}

// Terms returns every n-gram of the filtered words for n in
// [NgramMin, NgramMax], shorter n-grams first. N-grams are joined by a
// single space.
func (t *Tokenizer) Terms(text string) []string {
	words := t.Words(text)
	if len(words) == 0 {
		return nil
	}
	if t.opts.NgramMin == 1 && t.opts.NgramMax == 1 {
		return words
	}
	terms := make([]string, 0, len(words)*(t.opts.NgramMax-t.opts.NgramMin+1))
	for n := t.opts.NgramMin; n <= t.opts.NgramMax; n++ {
		if n == 1 {
			terms = append(terms, words...)
			continue
		}
		for i := 0; i+n <= len(words); i++ {
			terms = append(terms, strings.Join(words[i:i+n], " "))
		}
	}
	return terms
}

// IsStopWord reports whether word (already lower-cased) is in the English
// stop-word list.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

func foldAccents(text string) string {
	// transform chains keep state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}
