package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// SheetRepo persists and loads answer sheets using a minimal pgx pool.
// section_wise_results lives in a JSONB column; the embedded question paper
// is joined from question_papers.
type SheetRepo struct{ Pool PgxPool }

// NewSheetRepo constructs a SheetRepo with the given pool.
func NewSheetRepo(p PgxPool) *SheetRepo { return &SheetRepo{Pool: p} }

// Get loads a sheet by id together with its question paper.
func (r *SheetRepo) Get(ctx domain.Context, id string) (domain.AnswerSheet, error) {
	tracer := otel.Tracer("repo.sheets")
	ctx, span := tracer.Start(ctx, "sheets.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "answer_sheets"),
	)
	q := `SELECT s.id, s.grader_id, s.class_id, s.subject_id, s.file_url,
		s.section_wise_results, s.total_score, s.content_score, s.language_score,
		COALESCE(s.grade,''), s.is_re_evaluated, s.re_evaluation_count,
		s.graded_at, s.created_at, s.updated_at,
		p.id, COALESCE(p.title,''), COALESCE(p.total_marks,0), COALESCE(p.file_url,''),
		COALESCE(p.class_id,''), COALESCE(p.subject_id,'')
	FROM answer_sheets s
	LEFT JOIN question_papers p ON p.id = s.question_paper_id
	WHERE s.id=$1`
	row := r.Pool.QueryRow(ctx, q, id)

	var sheet domain.AnswerSheet
	var sections []byte
	var paperID *string
	if err := row.Scan(
		&sheet.ID, &sheet.GraderID, &sheet.ClassID, &sheet.SubjectID, &sheet.FileURL,
		&sections, &sheet.TotalScore, &sheet.ContentScore, &sheet.LanguageScore,
		&sheet.Grade, &sheet.IsReEvaluated, &sheet.ReEvaluationCount,
		&sheet.GradedAt, &sheet.CreatedAt, &sheet.UpdatedAt,
		&paperID, &sheet.QuestionPaper.Title, &sheet.QuestionPaper.TotalMarks,
		&sheet.QuestionPaper.FileURL, &sheet.QuestionPaper.ClassID, &sheet.QuestionPaper.SubjectID,
	); err != nil {
		if err == pgx.ErrNoRows {
			return domain.AnswerSheet{}, fmt.Errorf("op=sheet.get: %w", domain.ErrNotFound)
		}
		return domain.AnswerSheet{}, fmt.Errorf("op=sheet.get: %w", err)
	}
	if paperID != nil {
		sheet.QuestionPaper.ID = *paperID
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &sheet.Sections); err != nil {
			return domain.AnswerSheet{}, fmt.Errorf("op=sheet.get decode sections: %w", err)
		}
	}
	return sheet, nil
}

// UpdateScores persists the re-evaluated sections and derived score fields.
// re_evaluation_count is incremented at the row so concurrent updates never
// lose an increment even when the last section write wins.
func (r *SheetRepo) UpdateScores(ctx domain.Context, sheet domain.AnswerSheet) error {
	tracer := otel.Tracer("repo.sheets")
	ctx, span := tracer.Start(ctx, "sheets.UpdateScores")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "answer_sheets"),
	)
	sections, err := json.Marshal(sheet.Sections)
	if err != nil {
		return fmt.Errorf("op=sheet.update encode sections: %w", err)
	}
	q := `UPDATE answer_sheets SET
		section_wise_results=$2, total_score=$3, content_score=$4, language_score=$5,
		grade=$6, is_re_evaluated=TRUE, re_evaluation_count=re_evaluation_count+1,
		graded_at=$7, updated_at=$7
	WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, sheet.ID, sections, sheet.TotalScore,
		sheet.ContentScore, sheet.LanguageScore, sheet.Grade, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=sheet.update: %w: %v", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=sheet.update: %w", domain.ErrNotFound)
	}
	return nil
}
