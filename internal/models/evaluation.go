package models

import (
	"encoding/json"
	"strconv"
)

// Evaluation is the quiz evaluation payload returned by the AI service. Its
// schema belongs to that service, so it is kept as decoded JSON and only
// the fields shown to the teacher are read through accessors. Unknown
// fields survive a re-encode untouched.
type Evaluation map[string]interface{}

// OverallScore is the summary block of an evaluation.
type OverallScore struct {
	MarksScored   float64 `json:"total_marks_scored"`
	MarksPossible float64 `json:"total_marks_possible"`
	Feedback      string  `json:"feedback"`
}

// QuestionResult is one entry of the per-question breakdown.
type QuestionResult struct {
	Number        int     `json:"number"`
	IsCorrect     bool    `json:"is_correct"`
	MarksScored   float64 `json:"marks_scored"`
	MarksPossible float64 `json:"total_marks"`
	Feedback      string  `json:"feedback"`
}

// Overall reads overall_feedback. ok is false when the block is missing.
func (e Evaluation) Overall() (OverallScore, bool) {
	block, ok := e["overall_feedback"].(map[string]interface{})
	if !ok {
		return OverallScore{}, false
	}
	return OverallScore{
		MarksScored:   number(block["total_marks_scored"]),
		MarksPossible: number(block["total_marks_possible"]),
		Feedback:      text(block["feedback"]),
	}, true
}

// Questions reads the results list. Entries that are not objects are skipped.
func (e Evaluation) Questions() []QuestionResult {
	items, _ := e["results"].([]interface{})
	out := make([]QuestionResult, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		correct, _ := m["is_correct"].(bool)
		out = append(out, QuestionResult{
			Number:        i + 1,
			IsCorrect:     correct,
			MarksScored:   number(m["marks_scored"]),
			MarksPossible: number(m["total_marks"]),
			Feedback:      text(m["feedback"]),
		})
	}
	return out
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

func text(v interface{}) string {
	s, _ := v.(string)
	return s
}
