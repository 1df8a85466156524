package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/sheet-reeval/internal/config"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	ReEval     usecase.ReEvaluateService
	Logs       domain.ReEvaluationLogRepository
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, reEval usecase.ReEvaluateService, logs domain.ReEvaluationLogRepository,
	dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, ReEval: reEval, Logs: logs, DBCheck: dbCheck, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON rejects requests that explicitly refuse JSON responses.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{
			Error: "not acceptable", Code: "INVALID_ARGUMENT", Details: map[string]any{"accept": a},
		})
		return false
	}
	return true
}

// ReEvaluateHandler triggers a synchronous section re-evaluation.
func (s *Server) ReEvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
		var req struct {
			AnswerSheetID string  `json:"answer_sheet_id" validate:"required,max=100"`
			SectionIndex  int     `json:"section_index" validate:"gte=0"`
			RequestedBy   *string `json:"requested_by" validate:"omitempty,max=100"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					verrs[strings.ToLower(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}

		maxAttempts, initial, maxInterval, multiplier := s.Cfg.GetRetryPolicy()
		out, err := s.ReEval.ReEvaluateWithRetry(r.Context(), usecase.ReEvaluateInput{
			AnswerSheetID: req.AnswerSheetID,
			SectionIndex:  req.SectionIndex,
			RequestedBy:   req.RequestedBy,
		}, usecase.RetryPolicy{
			MaxAttempts:     maxAttempts,
			InitialInterval: initial,
			MaxInterval:     maxInterval,
			Multiplier:      multiplier,
		})
		if err != nil {
			LoggerFrom(r).Error("re-evaluation failed",
				"answer_sheet_id", req.AnswerSheetID,
				"section_index", req.SectionIndex,
				"error", err)
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"section":     out.Section,
			"total_score": out.TotalScore,
			"grade":       out.Grade,
		})
	}
}

type logRowDTO struct {
	ID             string                 `json:"id"`
	AnswerSheetID  string                 `json:"answer_sheet_id"`
	EvaluationType string                 `json:"evaluation_type"`
	SectionIndex   int                    `json:"section_index"`
	SectionName    string                 `json:"section_name,omitempty"`
	PreviousTotal  float64                `json:"previous_total"`
	NewTotal       float64                `json:"new_total"`
	PreviousScore  float64                `json:"previous_score"`
	NewScore       float64                `json:"new_score"`
	PreviousGrade  string                 `json:"previous_grade"`
	NewGrade       string                 `json:"new_grade"`
	RequestedBy    *string                `json:"requested_by,omitempty"`
	Details        []domain.QuestionDelta `json:"details"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ListReEvaluationsHandler returns the audit history for one answer sheet.
func (s *Server) ListReEvaluationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		rows, err := s.Logs.ListBySheet(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]logRowDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, logRowDTO{
				ID:             row.ID,
				AnswerSheetID:  row.AnswerSheetID,
				EvaluationType: row.EvaluationType,
				SectionIndex:   row.SectionIndex,
				SectionName:    row.SectionName,
				PreviousTotal:  row.PreviousTotal,
				NewTotal:       row.NewTotal,
				PreviousScore:  row.PreviousScore,
				NewScore:       row.NewScore,
				PreviousGrade:  row.PreviousGrade,
				NewGrade:       row.NewGrade,
				RequestedBy:    row.RequestedBy,
				Details:        row.Details,
				CreatedAt:      row.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "re_evaluations": out})
	}
}

// ReadyzHandler returns a readiness handler that probes DB and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
