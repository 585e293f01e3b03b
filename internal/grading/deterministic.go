package grading

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/remaimber-it/autograde/internal/textnorm"
)

// GradeExact awards maxScore iff the normalized answers are identical.
// There is no partial credit.
func GradeExact(student, expected string, maxScore int) Result {
	res := Result{MaxScore: maxScore, Origin: OriginDeterministic, Explanation: "incorrect"}
	if textnorm.Normalize(student) == textnorm.Normalize(expected) {
		res.Score = maxScore
		res.Explanation = "exact match"
	}
	return res
}

// GradeKeyword awards floor(matched/total * maxScore), where the keywords are
// the tokens of the normalized expected answer and a keyword matches when it
// is a substring of the normalized student answer. Substring matching means
// "cat" is found inside "category".
func GradeKeyword(student, expected string, maxScore int) Result {
	res := Result{MaxScore: maxScore, Origin: OriginDeterministic}

	keywords := textnorm.Keywords(expected)
	if len(keywords) == 0 {
		res.Explanation = "no keywords to match"
		return res
	}

	sa := textnorm.Normalize(student)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(sa, kw) {
			matched++
		}
	}

	res.Score = floorFraction(maxScore, matched, len(keywords))
	res.Explanation = fmt.Sprintf("matched %d/%d keywords", matched, len(keywords))
	return res
}

// floorFraction returns floor(n*num/den) for 0 <= num <= den without forming
// the product n*num, which overflows for very large n.
func floorFraction(n, num, den int) int {
	return n/den*num + n%den*num/den
}

var numberPattern = regexp.MustCompile(`-?\d+\.?\d*`)

const (
	numericFullTolerance    = 0.02
	numericPartialTolerance = 0.10
	numericPartialFraction  = 0.7
)

// GradeNumeric compares the first number in the student answer with the
// expected number. Within 2% relative error earns full credit, within 10%
// earns 70%.
func GradeNumeric(student, expected string, maxScore int) Result {
	res := Result{MaxScore: maxScore, Origin: OriginDeterministic}

	want, ok := parseNumber(expected)
	if !ok {
		res.Explanation = "expected answer is not a number"
		return res
	}
	got, ok := parseNumber(student)
	if !ok {
		res.Explanation = "no numeric value found"
		return res
	}

	diff := math.Abs(got - want)
	if diff < 1e-9 {
		res.Score = maxScore
		res.Explanation = fmt.Sprintf("exact: %g", got)
		return res
	}

	denom := math.Abs(want)
	if denom == 0 {
		denom = 1
	}
	errPct := diff / denom

	switch {
	case errPct <= numericFullTolerance:
		res.Score = maxScore
		res.Explanation = fmt.Sprintf("within 2%% tolerance: %g", got)
	case errPct <= numericPartialTolerance:
		res.Score = clampScore(int(math.Round(float64(maxScore)*numericPartialFraction)), maxScore)
		res.Explanation = fmt.Sprintf("close (error %.1f%%): %g", errPct*100, got)
	default:
		res.Explanation = fmt.Sprintf("wrong: %g, expected %g", got, want)
	}
	return res
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return v, true
	}
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(m, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func gradeManual(maxScore int) Result {
	return Result{MaxScore: maxScore, Origin: OriginManual, Explanation: "manual grading needed"}
}
