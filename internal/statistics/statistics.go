// Package statistics summarises a sample of eval scores.
package statistics

import (
	"math"
	"sort"
)

// Outcome classifies one scored guess
type Outcome int

const (
	Miss    Outcome = iota // Named a villager
	Hit                    // Named the wolf
	Abstain                // Named nobody at the table
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "abstain"
	}
}

// Summary accumulates scores. The zero value is ready to use.
type Summary struct {
	N        int
	Sum      float64
	SumSq    float64 // Sum of squares for variance calculation
	Values   []float64
	Hits     int
	Misses   int
	Abstains int
}

// Add records one score and its outcome
func (s *Summary) Add(score float64, outcome Outcome) {
	s.N++
	s.Sum += score
	s.SumSq += score * score
	s.Values = append(s.Values, score)

	switch outcome {
	case Hit:
		s.Hits++
	case Miss:
		s.Misses++
	default:
		s.Abstains++
	}
}

// Mean returns the average score
func (s *Summary) Mean() float64 {
	if s.N == 0 {
		return 0
	}
	return s.Sum / float64(s.N)
}

// Variance returns the sample variance
func (s *Summary) Variance() float64 {
	if s.N < 2 {
		return 0
	}
	mean := s.Mean()
	v := (s.SumSq - float64(s.N)*mean*mean) / float64(s.N-1)
	// rounding can push a constant sample slightly below zero
	return math.Max(v, 0)
}

// StdDev returns the sample standard deviation
func (s *Summary) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Summary) StdError() float64 {
	if s.N == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.N))
}

// ConfidenceInterval95 returns the normal 95% interval for the mean,
// clamped to the score range [0, 1]
func (s *Summary) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return math.Max(mean-margin, 0), math.Min(mean+margin, 1)
}

// HitRate is the share of guesses that named the wolf
func (s *Summary) HitRate() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.N)
}

// Median returns the middle score
func (s *Summary) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the linearly interpolated score at p (0.0 to 1.0)
func (s *Summary) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
