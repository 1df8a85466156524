package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// AcademicLevelRepo loads per class+subject grading configuration.
type AcademicLevelRepo struct{ Pool PgxPool }

// NewAcademicLevelRepo constructs an AcademicLevelRepo with the given pool.
func NewAcademicLevelRepo(p PgxPool) *AcademicLevelRepo { return &AcademicLevelRepo{Pool: p} }

// Find returns the config for (classID, subjectID); domain.ErrNotFound when absent.
func (r *AcademicLevelRepo) Find(ctx domain.Context, classID, subjectID string) (domain.AcademicLevel, error) {
	tracer := otel.Tracer("repo.academic_levels")
	ctx, span := tracer.Start(ctx, "academic_levels.Find")
	defer span.End()
	q := `SELECT class_id, subject_id, content_weightage, language_weightage,
		max_marks, strictness_level, COALESCE(grading_instructions,'')
	FROM academic_levels WHERE class_id=$1 AND subject_id=$2 LIMIT 1`
	row := r.Pool.QueryRow(ctx, q, classID, subjectID)
	var lvl domain.AcademicLevel
	if err := row.Scan(&lvl.ClassID, &lvl.SubjectID, &lvl.ContentWeightage,
		&lvl.LanguageWeightage, &lvl.MaxMarks, &lvl.StrictnessLevel,
		&lvl.GradingInstructions); err != nil {
		if err == pgx.ErrNoRows {
			return domain.AcademicLevel{}, fmt.Errorf("op=academic_level.find: %w", domain.ErrNotFound)
		}
		return domain.AcademicLevel{}, fmt.Errorf("op=academic_level.find: %w", err)
	}
	return lvl, nil
}
