// Package grading holds the pure scoring core: weightage resolution, grade
// banding, score aggregation and prompt construction. Nothing here performs
// I/O; every function is deterministic given its inputs.
package grading

import (
	"math"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// Defaults applied when the academic-level configuration is absent or unusable.
const (
	DefaultContentWeightage  = 60.0
	DefaultLanguageWeightage = 40.0
	DefaultMaxMarks          = 100.0
	DefaultStrictness        = 50.0
)

// Config is the fully resolved grading configuration for one re-evaluation.
// Invariant: ContentWeightage + LanguageWeightage == 100, MaxMarks > 0,
// StrictnessLevel in [0,100].
type Config struct {
	MaxMarks            float64
	ContentWeightage    float64
	LanguageWeightage   float64
	StrictnessLevel     float64
	GradingInstructions string
}

// Resolve normalizes an optional academic-level configuration against the
// question paper's total marks. level may be nil (no config row found).
func Resolve(level *domain.AcademicLevel, paperTotalMarks float64) Config {
	cfg := Config{}

	var content, language *float64
	if level != nil {
		content = finite(level.ContentWeightage)
		language = finite(level.LanguageWeightage)
		cfg.GradingInstructions = level.GradingInstructions
	}

	switch {
	case content == nil && language == nil:
		cfg.ContentWeightage = DefaultContentWeightage
		cfg.LanguageWeightage = DefaultLanguageWeightage
	case content != nil && language == nil:
		cfg.ContentWeightage = *content
		cfg.LanguageWeightage = 100 - *content
	case content == nil && language != nil:
		cfg.LanguageWeightage = *language
		cfg.ContentWeightage = 100 - *language
	default:
		cfg.ContentWeightage = *content
		cfg.LanguageWeightage = *language
	}

	sum := cfg.ContentWeightage + cfg.LanguageWeightage
	if sum <= 0 {
		cfg.ContentWeightage = DefaultContentWeightage
		cfg.LanguageWeightage = DefaultLanguageWeightage
	} else if sum != 100 {
		cfg.ContentWeightage = round2(cfg.ContentWeightage / sum * 100)
		cfg.LanguageWeightage = 100 - cfg.ContentWeightage
	}

	cfg.MaxMarks = DefaultMaxMarks
	if paperTotalMarks > 0 && !math.IsInf(paperTotalMarks, 0) && !math.IsNaN(paperTotalMarks) {
		cfg.MaxMarks = paperTotalMarks
	}
	if level != nil {
		if mm := finite(level.MaxMarks); mm != nil && *mm > 0 {
			cfg.MaxMarks = *mm
		}
	}

	cfg.StrictnessLevel = DefaultStrictness
	if level != nil {
		if s := finite(level.StrictnessLevel); s != nil {
			cfg.StrictnessLevel = math.Min(100, math.Max(0, *s))
		}
	}
	return cfg
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
