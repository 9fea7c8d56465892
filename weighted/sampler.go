package weighted

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

var (
	// ErrEmpty indicates a sampler was requested over zero entries.
	ErrEmpty = errors.New("weighted: source must not be empty")
	// ErrInvalidWeight indicates a weight that is not a positive finite number.
	ErrInvalidWeight = errors.New("weighted: weights must be positive finite values")
)

// Entry pairs a value with its selection weight.
type Entry[T any] struct {
	Value  T
	Weight float64
}

// Sampler picks one value from a fixed multiset with probability
// proportional to its weight. It is immutable and safe for concurrent use.
type Sampler[T any] struct {
	values []T
	bounds []float64
	total  float64
}

// New builds a sampler over entries. Duplicate values are kept as separate slots.
func New[T any](entries []Entry[T]) (*Sampler[T], error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	values := make([]T, len(entries))
	bounds := make([]float64, len(entries))
	var sum float64
	for i, e := range entries {
		if !validWeight(e.Weight) {
			return nil, fmt.Errorf("entry %d: weight %v: %w", i, e.Weight, ErrInvalidWeight)
		}
		values[i] = e.Value
		bounds[i] = sum
		sum += e.Weight
		if math.IsInf(sum, 0) {
			return nil, fmt.Errorf("entry %d: total weight overflows: %w", i, ErrInvalidWeight)
		}
	}

	return &Sampler[T]{
		values: values,
		bounds: bounds,
		total:  sum,
	}, nil
}

// FromSource builds a sampler by extracting a value and a weight from every
// element of src.
func FromSource[S, T any](src []S, value func(S) T, weight func(S) float64) (*Sampler[T], error) {
	entries := make([]Entry[T], 0, len(src))
	for _, s := range src {
		entries = append(entries, Entry[T]{Value: value(s), Weight: weight(s)})
	}
	return New(entries)
}

// Pick returns a random value, honouring the weights.
func (s *Sampler[T]) Pick() T {
	return s.pickAt(rand.Float64() * s.total)
}

// pickAt returns the value whose half-open interval [bounds[i], bounds[i+1])
// contains r. r is expected in [0, total).
func (s *Sampler[T]) pickAt(r float64) T {
	idx := sort.Search(len(s.bounds), func(i int) bool {
		return s.bounds[i] > r
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return s.values[idx]
}

// Entries returns a copy of every stored value, duplicates included.
func (s *Sampler[T]) Entries() []T {
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of weight slots.
func (s *Sampler[T]) Len() int {
	return len(s.values)
}

// Total returns the sum of all weights.
func (s *Sampler[T]) Total() float64 {
	return s.total
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
