// Package grading scores free-text answers against a reference answer.
//
// Every strategy returns a Result whose score lies in [0, MaxScore]. The
// engine never fails a submission because a grader or an upstream service
// misbehaved; the only rejected input is a non-positive MaxScore.
package grading

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the grading strategy for a question.
type Mode string

const (
	ModeExact    Mode = "exact"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeManual   Mode = "manual"
	ModeNumeric  Mode = "numeric"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeExact, ModeKeyword, ModeSemantic, ModeManual, ModeNumeric}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode converts user input such as "Keyword" into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown grading mode %q", s)
	}
	return m, nil
}

// Origin tells which rule produced a score.
type Origin string

const (
	OriginDeterministic Origin = "deterministic"
	OriginAIJudge       Origin = "ai_judge"
	OriginEmbedding     Origin = "embedding"
	OriginManual        Origin = "manual"
)

// ErrInvalidMaxScore rejects a request whose MaxScore is not positive.
var ErrInvalidMaxScore = errors.New("max score must be greater than zero")

// Request is a single grading call.
type Request struct {
	StudentAnswer  string
	ExpectedAnswer string
	MaxScore       int
	Mode           Mode

	// Optional context handed to the AI judge only.
	Question string
	Rubric   string
}

// Result is the outcome of grading one answer.
type Result struct {
	Score       int    `json:"score"`
	MaxScore    int    `json:"max_score"`
	Explanation string `json:"explanation"`
	Origin      Origin `json:"origin"`
}

// Percentage returns Score as a percentage of MaxScore.
func (r Result) Percentage() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.MaxScore) * 100
}

// Band buckets a result for display.
type Band string

const (
	BandHigh   Band = "high"   // >= 80%
	BandMedium Band = "medium" // >= 60%
	BandLow    Band = "low"
)

func (r Result) Band() Band {
	switch p := r.Percentage(); {
	case p >= 80:
		return BandHigh
	case p >= 60:
		return BandMedium
	default:
		return BandLow
	}
}

func (r Result) String() string {
	return fmt.Sprintf("%d/%d (%.1f%%) %s", r.Score, r.MaxScore, r.Percentage(), r.Explanation)
}

func clampScore(score, maxScore int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
