// Package ai recovers structured section results from free-text model output.
//
// Models wrap JSON in markdown fences, leave trailing commas, or embed raw
// control characters. Extraction is a best-effort text pipeline: strip fences,
// narrow to the outermost braces, parse, repair, reparse. Each stage is pure
// so it can be tested independently.
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/pkg/textx"
)

var (
	fenceRe        = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingComma  = regexp.MustCompile(`,(\s*[}\]])`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
)

// ExtractSection parses a re-graded section out of raw model text.
// Returns domain.ErrParse when no JSON object can be recovered.
func ExtractSection(raw string) (domain.Section, error) {
	candidate, fenced := stripFences(raw)
	if !fenced {
		candidate = narrowBraces(candidate)
	}

	obj, err := parseObject(candidate)
	if err != nil {
		obj, err = parseObject(repairJSON(candidate))
	}
	if err != nil {
		return domain.Section{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return coerceSection(obj), nil
}

// stripFences extracts the interior of the first fenced code block, reporting
// whether a fence was present.
func stripFences(s string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(s), false
}

// narrowBraces cuts the candidate down to the substring between the first '{'
// and the last '}'. Leaves the input untouched when no brace pair exists.
func narrowBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

// repairJSON applies the best-effort fix pass: trailing commas before closing
// brackets, stray control characters, and literal newlines inside the object.
func repairJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = controlCharsRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func parseObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// coerceSection maps a loosely-typed object onto a Section. Missing or
// mistyped numeric fields become zero; string fields are sanitized.
func coerceSection(obj map[string]any) domain.Section {
	sec := domain.Section{
		Section:         int(num(obj["section"])),
		Name:            str(obj["section_name"]),
		Type:            str(obj["section_type"]),
		QuestionsGraded: int(num(obj["questions_graded"])),
		SectionMax:      num(obj["section_max"]),
	}
	if v, ok := obj["attempt_required"]; ok && v != nil {
		n := int(num(v))
		sec.AttemptRequired = &n
	}
	if v, ok := obj["section_total"]; ok {
		if f, isNum := v.(float64); isNum {
			sec.SectionTotal = &f
		}
	}
	if qs, ok := obj["questions"].([]any); ok {
		sec.Questions = make([]domain.Question, 0, len(qs))
		for _, raw := range qs {
			q, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			sec.Questions = append(sec.Questions, coerceQuestion(q))
		}
	}
	return sec
}

func coerceQuestion(obj map[string]any) domain.Question {
	q := domain.Question{
		Number:        int(num(obj["question_number"])),
		Text:          str(obj["question_text"]),
		Type:          strings.ToLower(str(obj["question_type"])),
		StudentAnswer: str(obj["student_answer"]),
		CorrectAnswer: str(obj["correct_answer"]),
		MarksObtained: num(obj["marks_obtained"]),
		MaxMarks:      num(obj["max_marks"]),
		Feedback:      str(obj["feedback"]),
	}
	if v, ok := obj["is_correct"].(bool); ok {
		q.IsCorrect = &v
	}
	if v, ok := obj["is_extra"].(bool); ok {
		q.IsExtra = v
	}
	return q
}

func num(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}

func str(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return textx.SanitizeText(s)
}
