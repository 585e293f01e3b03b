package grading

import (
	"errors"
	"fmt"
	"math"
)

// Threshold maps every similarity strictly above LowerBound to Fraction of
// the max score, unless an earlier (higher) threshold already matched.
type Threshold struct {
	LowerBound float64
	Fraction   float64
}

// ThresholdTable translates a continuous similarity into a score fraction.
// Bounds are strictly descending and fractions never increase as the bound
// decreases. Anything at or below the lowest bound scores 0.
type ThresholdTable []Threshold

// DefaultThresholds is the one table used for every similarity-based score.
var DefaultThresholds = ThresholdTable{
	{LowerBound: 0.8, Fraction: 1.0},
	{LowerBound: 0.6, Fraction: 0.7},
	{LowerBound: 0.4, Fraction: 0.4},
}

// Validate checks the ordering invariants of the table.
func (t ThresholdTable) Validate() error {
	if len(t) == 0 {
		return errors.New("threshold table is empty")
	}
	for i, th := range t {
		if th.LowerBound < 0 || th.LowerBound >= 1 {
			return fmt.Errorf("threshold %d: lower bound %v outside [0, 1)", i, th.LowerBound)
		}
		if th.Fraction < 0 || th.Fraction > 1 {
			return fmt.Errorf("threshold %d: fraction %v outside [0, 1]", i, th.Fraction)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if th.LowerBound >= prev.LowerBound {
			return fmt.Errorf("threshold %d: bound %v not below %v", i, th.LowerBound, prev.LowerBound)
		}
		if th.Fraction > prev.Fraction {
			return fmt.Errorf("threshold %d: fraction %v above %v", i, th.Fraction, prev.Fraction)
		}
	}
	return nil
}

// Fraction returns the score fraction for sim.
func (t ThresholdTable) Fraction(sim float64) float64 {
	if math.IsNaN(sim) {
		return 0
	}
	for _, th := range t {
		if sim > th.LowerBound {
			return th.Fraction
		}
	}
	return 0
}

// Score returns Fraction(sim) * maxScore rounded to the nearest integer.
func (t ThresholdTable) Score(sim float64, maxScore int) int {
	v := math.Round(t.Fraction(sim) * float64(maxScore))
	// float64(maxScore) can round up past MaxInt; converting that back is undefined.
	if v >= float64(maxScore) {
		return maxScore
	}
	return clampScore(int(v), maxScore)
}
