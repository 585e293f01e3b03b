package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/remaimber-it/autograde/internal/llm"
)

// DefaultJudgeTimeout bounds one AI judge call, retries included.
const DefaultJudgeTimeout = 20 * time.Second

const defaultFeedback = "Answer graded by AI"

// JudgeOptions are the sampling parameters sent to the judge. Low temperature
// and a small token budget keep the answer terse and close to the JSON shape.
var JudgeOptions = llm.Options{Temperature: 0.2, MaxTokens: 100, TopP: 0.8}

// JudgeResponse is the parsed, clamped verdict of the AI judge.
type JudgeResponse struct {
	Score    int
	Feedback string
}

// Reasons a judge call produced no usable verdict.
const (
	JudgeReasonTimeout     = "timeout"
	JudgeReasonUnavailable = "unavailable"
	JudgeReasonGenerate    = "generate"
	JudgeReasonParse       = "parse"
)

// JudgeError is returned when the judge yields no verdict. The engine treats
// every JudgeError the same way: fall through to the next grader.
type JudgeError struct {
	Reason  string
	Wrapped error
}

func (e *JudgeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("ai judge %s: %v", e.Reason, e.Wrapped)
	}
	return "ai judge " + e.Reason
}

func (e *JudgeError) Unwrap() error {
	return e.Wrapped
}

// Judge asks an external language model to grade an answer holistically.
type Judge struct {
	gen     llm.Generator
	timeout time.Duration
}

// NewJudge wraps gen. A timeout <= 0 uses DefaultJudgeTimeout.
func NewJudge(gen llm.Generator, timeout time.Duration) *Judge {
	if timeout <= 0 {
		timeout = DefaultJudgeTimeout
	}
	return &Judge{gen: gen, timeout: timeout}
}

// Available reports whether the judge has a backend to call. Generators that
// know their own health can report it through an Available method.
func (j *Judge) Available() bool {
	if j == nil || j.gen == nil {
		return false
	}
	if a, ok := j.gen.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// Grade returns the judge's verdict, or a *JudgeError when there is none.
func (j *Judge) Grade(ctx context.Context, req Request) (*JudgeResponse, error) {
	if !j.Available() {
		return nil, &JudgeError{Reason: JudgeReasonUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	raw, err := j.gen.Generate(ctx, BuildJudgePrompt(req), JudgeOptions)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &JudgeError{Reason: JudgeReasonTimeout, Wrapped: err}
		}
		return nil, &JudgeError{Reason: JudgeReasonGenerate, Wrapped: err}
	}

	resp, err := ParseJudgeResponse(raw, req.MaxScore)
	if err != nil {
		return nil, &JudgeError{Reason: JudgeReasonParse, Wrapped: err}
	}
	return resp, nil
}

// BuildJudgePrompt renders the grading instructions. The anchors at 100, 70,
// 50, 30 and 0 percent give the model a fixed scale to land on.
func BuildJudgePrompt(req Request) string {
	maxScore := req.MaxScore
	mode := req.Mode
	if mode == "" {
		mode = ModeSemantic
	}

	var b strings.Builder
	b.WriteString("You are an expert exam grader. Score this student answer fairly and provide constructive feedback.\n\n")
	if q := strings.TrimSpace(req.Question); q != "" {
		fmt.Fprintf(&b, "QUESTION: %s\n", q)
	}
	fmt.Fprintf(&b, "EXPECTED ANSWER: %s\n", req.ExpectedAnswer)
	fmt.Fprintf(&b, "STUDENT ANSWER: %s\n", req.StudentAnswer)
	fmt.Fprintf(&b, "MAX SCORE: %d\n", maxScore)
	fmt.Fprintf(&b, "QUESTION TYPE: %s\n\n", mode)
	b.WriteString("Your task: Grade the student's answer and provide brief feedback.\n\n")
	b.WriteString("RESPOND WITH ONLY THIS JSON FORMAT (no markdown, no code blocks, no extra text):\n")
	b.WriteString(`{"score": <number>, "feedback": "<feedback under 30 words>"}` + "\n\n")

	if r := strings.TrimSpace(req.Rubric); r != "" {
		fmt.Fprintf(&b, "Teacher's grading rules:\n%s\n\n", r)
	}

	b.WriteString("Scoring Rules:\n")
	fmt.Fprintf(&b, "- %d points: Perfect answer, matches expected meaning exactly\n", maxScore)
	fmt.Fprintf(&b, "- %d points: Good answer, minor gaps or extra info\n", anchor(maxScore, 0.7))
	fmt.Fprintf(&b, "- %d points: Acceptable, missing some key points\n", anchor(maxScore, 0.5))
	fmt.Fprintf(&b, "- %d points: Partial understanding, major gaps\n", anchor(maxScore, 0.3))
	b.WriteString("- 0 points: Wrong or irrelevant answer")
	return b.String()
}

func anchor(maxScore int, fraction float64) int {
	return int(float64(maxScore) * fraction)
}

// ParseJudgeResponse extracts {"score", "feedback"} from untrusted model
// output. Code fences are stripped and only the text between the first '{'
// and the last '}' is decoded. The score is truncated to an integer and
// clamped into [0, maxScore].
func ParseJudgeResponse(raw string, maxScore int) (*JudgeResponse, error) {
	text := stripCodeFences(raw)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	score, err := coerceScore(payload["score"], maxScore)
	if err != nil {
		return nil, err
	}
	return &JudgeResponse{Score: score, Feedback: coerceFeedback(payload["feedback"])}, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// coerceScore accepts a JSON number or a numeric string. A missing score
// counts as 0.
func coerceScore(v any, maxScore int) (int, error) {
	var f float64
	switch s := v.(type) {
	case nil:
		return 0, nil
	case float64:
		f = s
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("score %q is not an integer", s)
		}
		return clampScore(n, maxScore), nil
	default:
		return 0, fmt.Errorf("score has unsupported type %T", v)
	}

	f = math.Trunc(f)
	if f <= 0 {
		return 0, nil
	}
	if f >= float64(maxScore) {
		return maxScore, nil
	}
	return int(f), nil
}

func coerceFeedback(v any) string {
	var s string
	switch fb := v.(type) {
	case nil:
		return defaultFeedback
	case string:
		s = fb
	default:
		s = fmt.Sprint(fb)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultFeedback
	}
	return s
}
