package vectorizer

import "math"

// Vector is a sparse feature vector. Indices are strictly increasing and
// every index is below Dim.
type Vector struct {
	Dim     int       `json:"dim"`
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Zero returns the empty vector of the given dimension.
func Zero(dim int) Vector {
	return Vector{Dim: dim}
}

// Dense builds a sparse vector from a dense slice, dropping zero entries.
func Dense(values []float64) Vector {
	v := Vector{Dim: len(values)}
	for i, x := range values {
		if x != 0 {
			v.Indices = append(v.Indices, i)
			v.Values = append(v.Values, x)
		}
	}
	return v
}

// IsZero reports whether the vector has no non-zero weight.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// NNZ is the number of stored entries.
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// At returns the weight at index i.
func (v Vector) At(i int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == i:
			return v.Values[mid]
		case v.Indices[mid] < i:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

func (v Vector) ToDense() []float64 {
	out := make([]float64, v.Dim)
	for k, i := range v.Indices {
		out[i] = v.Values[k]
	}
	return out
}

// Norm is the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Sum is the total of all weights.
func (v Vector) Sum() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x
	}
	return sum
}
