package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// ExtraQuestionFeedback is the fixed feedback text for questions beyond the
// attempt limit. The model is instructed to emit it verbatim.
const ExtraQuestionFeedback = "Not counted: exceeds the number of questions required to attempt."

// StrictnessText describes a strictness level for the model instruction.
func StrictnessText(level float64) string {
	switch {
	case level <= 30:
		return "lenient"
	case level <= 60:
		return "moderate"
	default:
		return "strict"
	}
}

// BuildSectionPrompt serializes a section and its resolved grading
// configuration into the model instruction. Deterministic for identical inputs.
func BuildSectionPrompt(section domain.Section, cfg Config) (string, error) {
	sectionJSON, err := json.MarshalIndent(section, "", "  ")
	if err != nil {
		return "", fmt.Errorf("op=prompt.marshal_section: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are re-evaluating one section of a handwritten exam answer sheet from the attached scan.\n\n")
	fmt.Fprintf(&b, "Grading configuration:\n")
	fmt.Fprintf(&b, "- Content weightage: %g%%, Language weightage: %g%%\n", cfg.ContentWeightage, cfg.LanguageWeightage)
	fmt.Fprintf(&b, "- Maximum marks for the whole sheet: %g\n", cfg.MaxMarks)
	fmt.Fprintf(&b, "- Grading strictness: %s (%g/100)\n", StrictnessText(cfg.StrictnessLevel), cfg.StrictnessLevel)
	if inst := strings.TrimSpace(cfg.GradingInstructions); inst != "" {
		fmt.Fprintf(&b, "\nAdditional grading instructions:\n%s\n", inst)
	}

	fmt.Fprintf(&b, "\nSection to re-grade:\n%s\n", sectionJSON)

	b.WriteString(`
Rubric rules (apply exactly):
1. MCQ: full marks when the student's choice matches the correct answer, zero otherwise. No partial credit.
2. Fill in the blank: full marks for the correct or a semantically equivalent answer. Spelling leniency follows the strictness level above.
3. True/False: full marks on match, zero otherwise.
4. Short/Long/Numerical: award marks proportional to correctness and completeness, within each question's max_marks.
`)
	if section.AttemptRequired != nil {
		fmt.Fprintf(&b, "5. Attempt limit: only the first %d attempted questions count. Every question beyond that limit must be returned with marks_obtained=0, is_extra=true and feedback set to %q.\n", *section.AttemptRequired, ExtraQuestionFeedback)
	}

	b.WriteString(`
Respond with a single JSON object and nothing else. Required fields:
{
  "section": <number>,
  "section_name": <string>,
  "section_type": <string>,
  "attempt_required": <number or null>,
  "questions_graded": <number>,
  "questions": [
    {
      "question_number": <number>,
      "question_text": <string>,
      "question_type": <string>,
      "student_answer": <string>,
      "correct_answer": <string>,
      "is_correct": <boolean or null>,
      "marks_obtained": <number>,
      "max_marks": <number>,
      "feedback": <string>,
      "is_extra": <boolean>
    }
  ],
  "section_total": <number>,
  "section_max": <number>
}
section_total must equal the sum of marks_obtained over questions where is_extra is false.
Do not wrap the JSON in markdown fences or add any commentary.`)

	return b.String(), nil
}
