package grading_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/llm"
)

func TestParseJudgeResponse(t *testing.T) {
	t.Run("Should parse plain JSON", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": 7, "feedback": "Good, misses chlorophyll."}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 7, resp.Score)
		assert.Equal(t, "Good, misses chlorophyll.", resp.Feedback)
	})

	t.Run("Should strip code fences", func(t *testing.T) {
		raw := "```json\n{\"score\": 4, \"feedback\": \"ok\"}\n```"
		resp, err := grading.ParseJudgeResponse(raw, 5)
		require.NoError(t, err)
		assert.Equal(t, 4, resp.Score)
	})

	t.Run("Should extract an object embedded in prose", func(t *testing.T) {
		raw := `Sure! Here is the grade: {"score": 3, "feedback": "partial"} Hope this helps.`
		resp, err := grading.ParseJudgeResponse(raw, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Score)
		assert.Equal(t, "partial", resp.Feedback)
	})

	t.Run("Should clamp scores above max", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": 15, "feedback": "x"}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, resp.Score)
	})

	t.Run("Should clamp negative scores", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": -3, "feedback": "x"}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Score)
	})

	t.Run("Should truncate fractional scores", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": 6.9, "feedback": "x"}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 6, resp.Score)
	})

	t.Run("Should accept numeric strings", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": " 8 ", "feedback": "x"}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 8, resp.Score)
	})

	t.Run("Should default and trim feedback", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"score": 2}`, 10)
		require.NoError(t, err)
		assert.Equal(t, "Answer graded by AI", resp.Feedback)

		resp, err = grading.ParseJudgeResponse(`{"score": 2, "feedback": "  nice  "}`, 10)
		require.NoError(t, err)
		assert.Equal(t, "nice", resp.Feedback)
	})

	t.Run("Should treat a missing score as zero", func(t *testing.T) {
		resp, err := grading.ParseJudgeResponse(`{"feedback": "no idea"}`, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.Score)
	})

	malformed := map[string]string{
		"no braces":         "I think it deserves 7 points",
		"broken json":       `{"score": 7, "feedback": }`,
		"reversed braces":   `} nothing {`,
		"non numeric score": `{"score": "seven", "feedback": "x"}`,
		"array score":       `{"score": [7], "feedback": "x"}`,
		"empty":             "",
	}
	for name, raw := range malformed {
		t.Run("Should reject "+name, func(t *testing.T) {
			resp, err := grading.ParseJudgeResponse(raw, 10)
			assert.Error(t, err)
			assert.Nil(t, resp)
		})
	}
}

func TestBuildJudgePrompt(t *testing.T) {
	prompt := grading.BuildJudgePrompt(grading.Request{
		StudentAnswer:  "plants make food from light",
		ExpectedAnswer: "photosynthesis converts light energy into chemical energy",
		MaxScore:       10,
		Mode:           grading.ModeSemantic,
		Question:       "What is photosynthesis?",
		Rubric:         "Mention energy conversion.",
	})

	assert.Contains(t, prompt, "EXPECTED ANSWER: photosynthesis converts light energy into chemical energy")
	assert.Contains(t, prompt, "STUDENT ANSWER: plants make food from light")
	assert.Contains(t, prompt, "QUESTION: What is photosynthesis?")
	assert.Contains(t, prompt, "MAX SCORE: 10")
	assert.Contains(t, prompt, "QUESTION TYPE: semantic")
	assert.Contains(t, prompt, "Mention energy conversion.")
	assert.Contains(t, prompt, `{"score": <number>, "feedback": "<feedback under 30 words>"}`)
	for _, anchor := range []string{"- 10 points", "- 7 points", "- 5 points", "- 3 points", "- 0 points"} {
		assert.Contains(t, prompt, anchor)
	}
}

func TestBuildJudgePrompt_OmitsEmptyContext(t *testing.T) {
	prompt := grading.BuildJudgePrompt(grading.Request{StudentAnswer: "a", ExpectedAnswer: "b", MaxScore: 4})
	assert.NotContains(t, prompt, "QUESTION:")
	assert.NotContains(t, prompt, "grading rules")
}

func TestJudge_Grade(t *testing.T) {
	req := grading.Request{StudentAnswer: "a", ExpectedAnswer: "b", MaxScore: 10, Mode: grading.ModeSemantic}

	t.Run("Should use the fixed sampling options", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"score": 5, "feedback": "half"}`}
		resp, err := grading.NewJudge(gen, time.Second).Grade(t.Context(), req)
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Score)

		opts := gen.lastOpts.Load().(llm.Options)
		assert.Equal(t, grading.JudgeOptions, opts)
		assert.InDelta(t, 0.2, opts.Temperature, 1e-6)
		assert.Equal(t, 100, opts.MaxTokens)
		assert.InDelta(t, 0.8, opts.TopP, 1e-6)
	})

	t.Run("Should report generator failures", func(t *testing.T) {
		_, err := grading.NewJudge(&fakeGenerator{err: errBackend}, time.Second).Grade(t.Context(), req)

		var jerr *grading.JudgeError
		require.True(t, errors.As(err, &jerr))
		assert.Equal(t, grading.JudgeReasonGenerate, jerr.Reason)
		assert.ErrorIs(t, err, errBackend)
	})

	t.Run("Should report timeouts", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"score": 5}`, delay: time.Second}
		_, err := grading.NewJudge(gen, 10*time.Millisecond).Grade(t.Context(), req)

		var jerr *grading.JudgeError
		require.True(t, errors.As(err, &jerr))
		assert.Equal(t, grading.JudgeReasonTimeout, jerr.Reason)
	})

	t.Run("Should report parse failures", func(t *testing.T) {
		_, err := grading.NewJudge(&fakeGenerator{reply: "seven out of ten"}, time.Second).Grade(t.Context(), req)

		var jerr *grading.JudgeError
		require.True(t, errors.As(err, &jerr))
		assert.Equal(t, grading.JudgeReasonParse, jerr.Reason)
	})

	t.Run("Should not call an unavailable generator", func(t *testing.T) {
		gen := &offlineGenerator{}
		j := grading.NewJudge(gen, time.Second)
		assert.False(t, j.Available())

		_, err := j.Grade(t.Context(), req)
		assert.Error(t, err)
		assert.Equal(t, int32(0), gen.calls.Load())
	})
}
