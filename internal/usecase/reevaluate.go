// Package usecase contains application business logic services.
package usecase

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/fairyhunter13/sheet-reeval/internal/adapter/observability"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/internal/grading"
)

// SectionParser recovers a structured section from raw model text.
type SectionParser func(raw string) (domain.Section, error)

// ReEvaluateService orchestrates one section re-evaluation: load prior state,
// resolve config, invoke the model, parse, aggregate, persist, log. The only
// internal retry is the model-list fallthrough inside the VisionModel.
type ReEvaluateService struct {
	Sheets domain.AnswerSheetRepository
	Levels domain.AcademicLevelRepository
	Logs   domain.ReEvaluationLogRepository
	Files  domain.FileFetcher
	Model  domain.VisionModel
	Parse  SectionParser
}

// NewReEvaluateService constructs a ReEvaluateService with its dependencies.
func NewReEvaluateService(sheets domain.AnswerSheetRepository, levels domain.AcademicLevelRepository,
	logs domain.ReEvaluationLogRepository, files domain.FileFetcher, model domain.VisionModel,
	parse SectionParser) ReEvaluateService {
	return ReEvaluateService{Sheets: sheets, Levels: levels, Logs: logs, Files: files, Model: model, Parse: parse}
}

// ReEvaluateInput identifies the sheet section to re-score.
type ReEvaluateInput struct {
	AnswerSheetID string
	SectionIndex  int
	RequestedBy   *string
}

// ReEvaluateOutput is returned to the caller on success.
type ReEvaluateOutput struct {
	Section    domain.Section
	TotalScore float64
	Grade      string
}

// ReEvaluate runs the pipeline for one section. Errors before persistence
// leave the sheet untouched; an audit-log failure after persistence is
// reported but never fails the operation.
func (s ReEvaluateService) ReEvaluate(ctx domain.Context, in ReEvaluateInput) (ReEvaluateOutput, error) {
	start := time.Now()
	out, err := s.reEvaluate(ctx, in)
	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.ReEvaluationsTotal.WithLabelValues(status).Inc()
	observability.ReEvaluationDuration.Observe(time.Since(start).Seconds())
	return out, err
}

func (s ReEvaluateService) reEvaluate(ctx domain.Context, in ReEvaluateInput) (ReEvaluateOutput, error) {
	if in.AnswerSheetID == "" {
		return ReEvaluateOutput{}, fmt.Errorf("%w: answer_sheet_id required", domain.ErrInvalidArgument)
	}
	if in.SectionIndex < 0 {
		return ReEvaluateOutput{}, fmt.Errorf("%w: section_index must be >= 0", domain.ErrInvalidArgument)
	}

	sheet, err := s.Sheets.Get(ctx, in.AnswerSheetID)
	if err != nil {
		return ReEvaluateOutput{}, err
	}
	if in.SectionIndex >= len(sheet.Sections) {
		return ReEvaluateOutput{}, fmt.Errorf("%w: sheet %s has no section at index %d",
			domain.ErrNotFound, in.AnswerSheetID, in.SectionIndex)
	}

	cfg := s.resolveConfig(ctx, sheet)

	prompt, err := grading.BuildSectionPrompt(sheet.Sections[in.SectionIndex], cfg)
	if err != nil {
		return ReEvaluateOutput{}, err
	}

	fileURL := sheet.FileURL
	if fileURL == "" {
		fileURL = sheet.QuestionPaper.FileURL
	}
	data, mime, err := s.Files.Fetch(ctx, fileURL)
	if err != nil {
		return ReEvaluateOutput{}, err
	}

	raw, err := s.Model.Generate(ctx, prompt, domain.InlinePayload{MIMEType: mime, Data: data})
	if err != nil {
		return ReEvaluateOutput{}, err
	}

	newSection, err := s.Parse(raw)
	if err != nil {
		return ReEvaluateOutput{}, err
	}
	normalizeSection(&newSection, sheet.Sections[in.SectionIndex])

	prevSection := sheet.Sections[in.SectionIndex]
	prevTotal := sheet.TotalScore
	prevGrade := sheet.Grade

	sheet.Sections[in.SectionIndex] = newSection
	totals := grading.Aggregate(sheet.Sections, cfg)
	sheet.TotalScore = totals.Total
	sheet.ContentScore = totals.ContentScore
	sheet.LanguageScore = totals.LanguageScore
	sheet.Grade = totals.Grade
	sheet.IsReEvaluated = true
	sheet.ReEvaluationCount++

	if err := s.Sheets.UpdateScores(ctx, sheet); err != nil {
		// No audit row for a failed write: the log must never claim a score
		// change that was not persisted.
		return ReEvaluateOutput{}, err
	}

	observability.ObserveScoreDelta(prevTotal, sheet.TotalScore)

	logRow := buildLog(sheet, in, prevSection, newSection, prevTotal, prevGrade)
	if _, err := s.Logs.Insert(ctx, logRow); err != nil {
		// Scores are already persisted; report and carry on.
		observability.AuditLogFailuresTotal.Inc()
		slog.Error("re-evaluation audit log insert failed",
			slog.String("answer_sheet_id", sheet.ID),
			slog.Int("section_index", in.SectionIndex),
			slog.Any("error", err))
	}

	return ReEvaluateOutput{Section: newSection, TotalScore: sheet.TotalScore, Grade: sheet.Grade}, nil
}

// resolveConfig loads the academic-level config with fallback to the question
// paper's class/subject pair, then to defaults. A missing or failing config
// lookup never blocks grading.
func (s ReEvaluateService) resolveConfig(ctx domain.Context, sheet domain.AnswerSheet) grading.Config {
	lvl, err := s.Levels.Find(ctx, sheet.ClassID, sheet.SubjectID)
	if err != nil {
		paper := sheet.QuestionPaper
		differs := paper.ClassID != "" && paper.SubjectID != "" &&
			(paper.ClassID != sheet.ClassID || paper.SubjectID != sheet.SubjectID)
		if errors.Is(err, domain.ErrNotFound) && differs {
			lvl, err = s.Levels.Find(ctx, paper.ClassID, paper.SubjectID)
		}
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("academic level lookup failed, using defaults",
				slog.String("class_id", sheet.ClassID),
				slog.String("subject_id", sheet.SubjectID),
				slog.Any("error", err))
		}
		return grading.Resolve(nil, sheet.QuestionPaper.TotalMarks)
	}
	return grading.Resolve(&lvl, sheet.QuestionPaper.TotalMarks)
}

// normalizeSection enforces the section invariants on the model's output:
// the label and max carry over from the prior section when the model omitted
// them, and section_total is materialized, clamped to section_max.
func normalizeSection(sec *domain.Section, prev domain.Section) {
	if sec.Section == 0 {
		sec.Section = prev.Section
	}
	if sec.Name == "" {
		sec.Name = prev.Name
	}
	if sec.SectionMax == 0 {
		sec.SectionMax = prev.SectionMax
	}
	if sec.AttemptRequired == nil {
		sec.AttemptRequired = prev.AttemptRequired
	}
	total := sec.Total()
	if sec.SectionMax > 0 && total > sec.SectionMax {
		total = sec.SectionMax
	}
	sec.SectionTotal = &total
}

func buildLog(sheet domain.AnswerSheet, in ReEvaluateInput,
	prev, next domain.Section, prevTotal float64, prevGrade string) domain.ReEvaluationLog {
	prevMarks := make(map[int]float64, len(prev.Questions))
	for _, q := range prev.Questions {
		prevMarks[q.Number] = q.MarksObtained
	}
	details := make([]domain.QuestionDelta, 0, len(next.Questions))
	for _, q := range next.Questions {
		details = append(details, domain.QuestionDelta{
			QuestionNumber: q.Number,
			PreviousMarks:  prevMarks[q.Number],
			NewMarks:       q.MarksObtained,
			MaxMarks:       q.MaxMarks,
			IsExtra:        q.IsExtra,
		})
	}
	return domain.ReEvaluationLog{
		AnswerSheetID:  sheet.ID,
		EvaluationType: domain.EvaluationSection,
		SectionIndex:   in.SectionIndex,
		SectionName:    next.Name,
		PreviousTotal:  prev.Total(),
		NewTotal:       next.Total(),
		PreviousScore:  prevTotal,
		NewScore:       sheet.TotalScore,
		PreviousGrade:  prevGrade,
		NewGrade:       sheet.Grade,
		RequestedBy:    in.RequestedBy,
		Details:        details,
	}
}
