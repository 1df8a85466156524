package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrModelTransient  = errors.New("model transient failure")
	ErrModelHard       = errors.New("model hard failure")
	ErrParse           = errors.New("failed to parse AI response")
	ErrPersistence     = errors.New("persistence failure")
	ErrLogging         = errors.New("audit log failure")
	ErrInternal        = errors.New("internal error")
)

// Question types accepted on incoming sections. The model may echo variants;
// coercion normalizes casing but preserves unknown tags.
const (
	QuestionMCQ       = "mcq"
	QuestionFillBlank = "fill_blank"
	QuestionTrueFalse = "true_false"
	QuestionShort     = "short"
	QuestionLong      = "long"
	QuestionNumerical = "numerical"
)

// Question is one graded question inside a section result.
// MarksObtained and MaxMarks tolerate missing/non-numeric wire values (coerced to 0).
type Question struct {
	Number        int     `json:"question_number"`
	Text          string  `json:"question_text"`
	Type          string  `json:"question_type"`
	StudentAnswer string  `json:"student_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     *bool   `json:"is_correct"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
	Feedback      string  `json:"feedback"`
	IsExtra       bool    `json:"is_extra"`
}

// Section groups questions within a sheet's results.
// Invariant: SectionTotal equals the sum of non-extra questions' marks,
// never exceeding SectionMax.
type Section struct {
	Section         int        `json:"section"`
	Name            string     `json:"section_name,omitempty"`
	Type            string     `json:"section_type,omitempty"`
	AttemptRequired *int       `json:"attempt_required,omitempty"`
	QuestionsGraded int        `json:"questions_graded,omitempty"`
	Questions       []Question `json:"questions"`
	SectionTotal    *float64   `json:"section_total,omitempty"`
	SectionMax      float64    `json:"section_max"`
}

// Total resolves the section total: an explicit section_total wins when
// present; otherwise non-extra question marks are summed.
func (s Section) Total() float64 {
	if s.SectionTotal != nil {
		return *s.SectionTotal
	}
	var sum float64
	for _, q := range s.Questions {
		if q.IsExtra {
			continue
		}
		sum += q.MarksObtained
	}
	return sum
}

// AnswerSheet is one scanned exam submission with its graded results.
type AnswerSheet struct {
	ID                string
	GraderID          string
	ClassID           string
	SubjectID         string
	FileURL           string
	QuestionPaper     QuestionPaper
	Sections          []Section
	TotalScore        float64
	ContentScore      float64
	LanguageScore     float64
	Grade             string
	IsReEvaluated     bool
	ReEvaluationCount int
	GradedAt          time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// QuestionPaper is the embedded paper metadata a sheet was graded against.
type QuestionPaper struct {
	ID         string
	Title      string
	TotalMarks float64
	FileURL    string
	ClassID    string
	SubjectID  string
}

// AcademicLevel is per class+subject grading configuration. All fields are
// optional; absent values fall back to defaults during normalization.
type AcademicLevel struct {
	ClassID             string
	SubjectID           string
	ContentWeightage    *float64
	LanguageWeightage   *float64
	MaxMarks            *float64
	StrictnessLevel     *float64
	GradingInstructions string
}

// EvaluationType values for the audit log.
const (
	EvaluationSection = "section"
	EvaluationFull    = "full"
)

// ReEvaluationLog is an immutable audit record: one row per re-evaluation.
type ReEvaluationLog struct {
	ID             string
	AnswerSheetID  string
	EvaluationType string
	SectionIndex   int
	SectionName    string
	PreviousTotal  float64
	NewTotal       float64
	PreviousScore  float64
	NewScore       float64
	PreviousGrade  string
	NewGrade       string
	RequestedBy    *string
	Details        []QuestionDelta
	CreatedAt      time.Time
}

// QuestionDelta captures one question's marks before and after.
type QuestionDelta struct {
	QuestionNumber int     `json:"question_number"`
	PreviousMarks  float64 `json:"previous_marks"`
	NewMarks       float64 `json:"new_marks"`
	MaxMarks       float64 `json:"max_marks"`
	IsExtra        bool    `json:"is_extra"`
}

// Repositories (ports)

type AnswerSheetRepository interface {
	Get(ctx Context, id string) (AnswerSheet, error)
	// UpdateScores persists the re-evaluated sections and derived fields,
	// incrementing re_evaluation_count by one.
	UpdateScores(ctx Context, sheet AnswerSheet) error
}

type AcademicLevelRepository interface {
	// Find returns the config for (classID, subjectID); ErrNotFound when absent.
	Find(ctx Context, classID, subjectID string) (AcademicLevel, error)
}

type ReEvaluationLogRepository interface {
	Insert(ctx Context, log ReEvaluationLog) (string, error)
	ListBySheet(ctx Context, answerSheetID string) ([]ReEvaluationLog, error)
}

// FileFetcher retrieves raw sheet bytes by URL and reports the payload MIME type.
type FileFetcher interface {
	Fetch(ctx Context, url string) (data []byte, mimeType string, err error)
}

// VisionModel invokes a vision-capable language model with a prompt and an
// inline document payload, returning the raw response text.
type VisionModel interface {
	Generate(ctx Context, prompt string, payload InlinePayload) (string, error)
}

// InlinePayload is a base64-ready document attached to a model call.
type InlinePayload struct {
	MIMEType string
	Data     []byte
}

// Context is an alias to allow decoupling from std context in domain.
// Adapters and usecases pass context.Context through.
type Context = context.Context
