package ai_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sheet-reeval/internal/adapter/ai"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

const sectionJSON = `{
  "section": 2,
  "section_name": "Grammar",
  "section_type": "objective",
  "attempt_required": 2,
  "questions_graded": 3,
  "questions": [
    {"question_number": 1, "question_type": "MCQ", "student_answer": "b", "correct_answer": "b", "is_correct": true, "marks_obtained": 10, "max_marks": 10, "feedback": "Correct."},
    {"question_number": 2, "question_type": "short", "student_answer": "ran", "correct_answer": "run", "is_correct": false, "marks_obtained": 7, "max_marks": 10, "feedback": "Partially correct."},
    {"question_number": 3, "question_type": "short", "marks_obtained": 0, "max_marks": 10, "is_extra": true, "feedback": "Not counted."}
  ],
  "section_total": 17,
  "section_max": 30
}`

func TestExtractSection_Variants(t *testing.T) {
	t.Parallel()
	fenced := "Here is the result:\n```json\n" + sectionJSON + "\n```\nDone."
	unfenced := "The re-graded section follows. " + sectionJSON
	trailing := "```\n" + sectionJSON[:len(sectionJSON)-1] + ",}\n```"

	want, err := ai.ExtractSection(sectionJSON)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"fenced":         fenced,
		"unfenced":       unfenced,
		"trailing comma": trailing,
	} {
		got, err := ai.ExtractSection(raw)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	require.Equal(t, 2, want.Section)
	require.Equal(t, "Grammar", want.Name)
	require.NotNil(t, want.AttemptRequired)
	assert.Equal(t, 2, *want.AttemptRequired)
	require.NotNil(t, want.SectionTotal)
	assert.Equal(t, 17.0, *want.SectionTotal)
	require.Len(t, want.Questions, 3)
	assert.True(t, want.Questions[2].IsExtra)
	assert.Equal(t, "mcq", want.Questions[0].Type)
	require.NotNil(t, want.Questions[0].IsCorrect)
	assert.True(t, *want.Questions[0].IsCorrect)
}

func TestExtractSection_EmbeddedNewlineInString(t *testing.T) {
	t.Parallel()
	raw := "{\"section\": 1, \"section_max\": 10, \"questions\": [{\"question_number\": 1, \"feedback\": \"line one\nline two\", \"marks_obtained\": 5, \"max_marks\": 10}]}"
	got, err := ai.ExtractSection(raw)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, "line one line two", got.Questions[0].Feedback)
}

func TestExtractSection_Malformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"I could not grade this sheet.",
		"```json\nnot json at all\n```",
		"{ definitely broken ",
		"",
	} {
		_, err := ai.ExtractSection(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, errors.Is(err, domain.ErrParse), "raw=%q", raw)
	}
}

func TestExtractSection_CoercesMissingFields(t *testing.T) {
	t.Parallel()
	got, err := ai.ExtractSection(`{"section": 1, "questions": [{"question_number": 1, "marks_obtained": "seven"}], "section_max": 10}`)
	require.NoError(t, err)
	require.Len(t, got.Questions, 1)
	assert.Equal(t, 0.0, got.Questions[0].MarksObtained)
	assert.Nil(t, got.SectionTotal)
	assert.Equal(t, 0.0, got.Total())
}
