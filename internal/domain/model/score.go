package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const neutralScore = 50

// Score is a communication assessment of one user utterance, each field in [0,100].
type Score struct {
	Emotion int `json:"emotionScore"`
	Fluency int `json:"fluencyScore"`
	Wording int `json:"wordingScore"`
}

func DefaultScore() Score {
	return Score{Emotion: neutralScore, Fluency: neutralScore, Wording: neutralScore}
}

// ParseScore reads a scorer reply. Fields that are missing or not numeric fall back
// to 50; the error is only set when the reply is not a JSON object at all.
func ParseScore(raw string) (Score, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(stripFences(raw)), &fields); err != nil {
		return DefaultScore(), fmt.Errorf("decode score: %w", err)
	}
	if fields == nil {
		return DefaultScore(), fmt.Errorf("decode score: not an object")
	}
	return Score{
		Emotion: scoreField(fields["emotionScore"]),
		Fluency: scoreField(fields["fluencyScore"]),
		Wording: scoreField(fields["wordingScore"]),
	}, nil
}

func scoreField(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return neutralScore
		}
		f = p
	default:
		return neutralScore
	}
	if math.IsNaN(f) {
		return neutralScore
	}
	return ClampScore(int(math.Round(math.Max(-1, math.Min(101, f)))))
}

func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Outcome is the result of a best-effort call: either the real value, or a
// fallback value together with the cause that forced it.
type Outcome[T any] struct {
	Value T
	Cause error
}

func Ok[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

func Degraded[T any](fallback T, cause error) Outcome[T] {
	if cause == nil {
		cause = fmt.Errorf("degraded")
	}
	return Outcome[T]{Value: fallback, Cause: cause}
}

func (o Outcome[T]) IsDegraded() bool { return o.Cause != nil }
