package grading

import (
	"math"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// Totals is the recomputed whole-sheet outcome after a section substitution.
type Totals struct {
	Total         float64
	ContentScore  float64
	LanguageScore float64
	Grade         string
}

// Aggregate recomputes the sheet totals from the full ordered section list.
// Each section contributes its explicit section_total when present, otherwise
// the sum of its non-extra question marks. The raw total is clamped to
// [0, cfg.MaxMarks] and sub-scores follow the resolved weightage split.
func Aggregate(sections []domain.Section, cfg Config) Totals {
	var raw float64
	for _, s := range sections {
		raw += s.Total()
	}
	total := math.Max(0, math.Min(raw, cfg.MaxMarks))

	pct := 0.0
	if cfg.MaxMarks > 0 {
		pct = total / cfg.MaxMarks * 100
	}
	return Totals{
		Total:         total,
		ContentScore:  round2(total * cfg.ContentWeightage / 100),
		LanguageScore: round2(total * cfg.LanguageWeightage / 100),
		Grade:         GradeFor(pct),
	}
}
