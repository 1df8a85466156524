package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/sheet-reeval/internal/domain"
)

// ReEvaluationLogRepo writes and reads the insert-only audit log.
type ReEvaluationLogRepo struct{ Pool PgxPool }

// NewReEvaluationLogRepo constructs a ReEvaluationLogRepo with the given pool.
func NewReEvaluationLogRepo(p PgxPool) *ReEvaluationLogRepo { return &ReEvaluationLogRepo{Pool: p} }

// Insert appends one audit row and returns its id (generates one if empty).
func (r *ReEvaluationLogRepo) Insert(ctx domain.Context, l domain.ReEvaluationLog) (string, error) {
	tracer := otel.Tracer("repo.reeval_logs")
	ctx, span := tracer.Start(ctx, "reeval_logs.Insert")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "re_evaluation_logs"),
	)
	id := l.ID
	if id == "" {
		id = uuid.New().String()
	}
	details, err := json.Marshal(l.Details)
	if err != nil {
		return "", fmt.Errorf("op=reeval_log.insert encode details: %w", err)
	}
	q := `INSERT INTO re_evaluation_logs
		(id, answer_sheet_id, evaluation_type, section_index, section_name,
		 previous_total, new_total, previous_score, new_score,
		 previous_grade, new_grade, requested_by, details, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err = r.Pool.Exec(ctx, q, id, l.AnswerSheetID, l.EvaluationType, l.SectionIndex,
		l.SectionName, l.PreviousTotal, l.NewTotal, l.PreviousScore, l.NewScore,
		l.PreviousGrade, l.NewGrade, l.RequestedBy, details, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=reeval_log.insert: %w: %v", domain.ErrLogging, err)
	}
	return id, nil
}

// ListBySheet returns all audit rows for a sheet, newest first.
func (r *ReEvaluationLogRepo) ListBySheet(ctx domain.Context, answerSheetID string) ([]domain.ReEvaluationLog, error) {
	tracer := otel.Tracer("repo.reeval_logs")
	ctx, span := tracer.Start(ctx, "reeval_logs.ListBySheet")
	defer span.End()
	q := `SELECT id, answer_sheet_id, evaluation_type, section_index, COALESCE(section_name,''),
		previous_total, new_total, previous_score, new_score,
		COALESCE(previous_grade,''), COALESCE(new_grade,''), requested_by, details, created_at
	FROM re_evaluation_logs WHERE answer_sheet_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, answerSheetID)
	if err != nil {
		return nil, fmt.Errorf("op=reeval_log.list: %w", err)
	}
	defer rows.Close()

	var out []domain.ReEvaluationLog
	for rows.Next() {
		var l domain.ReEvaluationLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.AnswerSheetID, &l.EvaluationType, &l.SectionIndex,
			&l.SectionName, &l.PreviousTotal, &l.NewTotal, &l.PreviousScore, &l.NewScore,
			&l.PreviousGrade, &l.NewGrade, &l.RequestedBy, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=reeval_log.list scan: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &l.Details); err != nil {
				return nil, fmt.Errorf("op=reeval_log.list decode details: %w", err)
			}
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=reeval_log.list rows: %w", err)
	}
	return out, nil
}
