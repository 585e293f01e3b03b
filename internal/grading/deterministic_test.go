package grading_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/remaimber-it/autograde/internal/grading"
)

func TestGradeExact(t *testing.T) {
	tests := []struct {
		name     string
		student  string
		expected string
		want     int
		explain  string
	}{
		{"identical", "Paris", "Paris", 5, "exact match"},
		{"case insensitive", "Paris", "paris", 5, "exact match"},
		{"punctuation ignored", "  paris. ", "Paris!", 5, "exact match"},
		{"different answer", "Paris", "London", 0, "incorrect"},
		{"no partial credit", "the mitochondria", "mitochondria", 0, "incorrect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grading.GradeExact(tt.student, tt.expected, 5)
			assert.Equal(t, tt.want, res.Score)
			assert.Equal(t, tt.explain, res.Explanation)
			assert.Equal(t, grading.OriginDeterministic, res.Origin)
		})
	}
}

func TestGradeKeyword(t *testing.T) {
	t.Run("Should floor partial overlap", func(t *testing.T) {
		res := grading.GradeKeyword("light glucose", "sunlight light glucose", 10)
		assert.Equal(t, 6, res.Score)
		assert.Equal(t, "matched 2/3 keywords", res.Explanation)
	})

	t.Run("Should award full score when all keywords appear", func(t *testing.T) {
		res := grading.GradeKeyword("Plants use sunlight, water and CO2.", "sunlight water co2", 9)
		assert.Equal(t, 9, res.Score)
		assert.Equal(t, "matched 3/3 keywords", res.Explanation)
	})

	t.Run("Should score zero without keywords", func(t *testing.T) {
		res := grading.GradeKeyword("anything", "???", 10)
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, "no keywords to match", res.Explanation)
	})

	t.Run("Should count duplicate keywords separately", func(t *testing.T) {
		res := grading.GradeKeyword("cell", "cell cell wall", 9)
		assert.Equal(t, 6, res.Score)
		assert.Equal(t, "matched 2/3 keywords", res.Explanation)
	})

	// Substring containment credits "cat" inside "category". This is a known
	// precision trade-off and the test pins the current behavior.
	t.Run("Should match keywords as substrings", func(t *testing.T) {
		res := grading.GradeKeyword("a category of animals", "cat", 4)
		assert.Equal(t, 4, res.Score)
		assert.Equal(t, "matched 1/1 keywords", res.Explanation)
	})

	t.Run("Should not overflow for huge max scores", func(t *testing.T) {
		res := grading.GradeKeyword("light glucose", "light glucose", math.MaxInt)
		assert.Equal(t, math.MaxInt, res.Score)

		res = grading.GradeKeyword("light", "light glucose", 1<<62)
		assert.Equal(t, 1<<61, res.Score)

		res = grading.GradeKeyword("light glucose", "sunlight light glucose", math.MaxInt)
		assert.Equal(t, math.MaxInt/3*2, res.Score)
	})

	t.Run("Should score zero for an empty student answer", func(t *testing.T) {
		res := grading.GradeKeyword("", "osmosis", 4)
		assert.Equal(t, 0, res.Score)
		assert.Equal(t, "matched 0/1 keywords", res.Explanation)
	})
}

func TestGradeNumeric(t *testing.T) {
	tests := []struct {
		name     string
		student  string
		expected string
		want     int
	}{
		{"exact", "42", "42", 10},
		{"number inside text", "the answer is 9.81 m/s2", "9.81", 10},
		{"within two percent", "101", "100", 10},
		{"within ten percent", "95", "100", 7},
		{"outside tolerance", "80", "100", 0},
		{"negative values", "-3.0", "-3", 10},
		{"zero expected uses absolute error", "0.01", "0", 10},
		{"no number in answer", "about forty", "40", 0},
		{"expected not a number", "40", "forty", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := grading.GradeNumeric(tt.student, tt.expected, 10)
			assert.Equal(t, tt.want, res.Score, res.Explanation)
		})
	}
}

func TestResult_Band(t *testing.T) {
	assert.Equal(t, grading.BandHigh, grading.Result{Score: 8, MaxScore: 10}.Band())
	assert.Equal(t, grading.BandMedium, grading.Result{Score: 6, MaxScore: 10}.Band())
	assert.Equal(t, grading.BandLow, grading.Result{Score: 5, MaxScore: 10}.Band())
	assert.Equal(t, grading.BandLow, grading.Result{}.Band())
	assert.InDelta(t, 75.0, grading.Result{Score: 3, MaxScore: 4}.Percentage(), 1e-9)
}

func TestParseMode(t *testing.T) {
	m, err := grading.ParseMode(" Keyword ")
	assert.NoError(t, err)
	assert.Equal(t, grading.ModeKeyword, m)

	_, err = grading.ParseMode("essay")
	assert.Error(t, err)
}
