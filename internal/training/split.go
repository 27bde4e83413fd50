package training

import (
	"fmt"
	"math"
	"math/rand"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// Split shuffles indices 0..n-1 with seed and returns disjoint train and test
// index sets. The test set holds ceil(ratio*n) items; both sets are
// non-empty. The same (n, ratio, seed) always yields the same split.
func Split(n int, ratio float64, seed int64) (train, test []int, err error) {
	if !(ratio > 0 && ratio < 1) {
		return nil, nil, fmt.Errorf("%w: test ratio must be in (0, 1), got %v", apperrors.ErrConfiguration, ratio)
	}
	testSize := int(math.Ceil(ratio * float64(n)))
	trainSize := n - testSize
	if testSize < 1 || trainSize < 1 {
		return nil, nil, fmt.Errorf("%w: %d examples cannot be split with test ratio %v",
			apperrors.ErrConfiguration, n, ratio)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[testSize:], perm[:testSize], nil
}
