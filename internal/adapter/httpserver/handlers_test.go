package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sheet-reeval/internal/adapter/httpserver"
	"github.com/fairyhunter13/sheet-reeval/internal/config"
	"github.com/fairyhunter13/sheet-reeval/internal/domain"
	"github.com/fairyhunter13/sheet-reeval/internal/usecase"
)

type stubSheets struct {
	sheet     domain.AnswerSheet
	getErr    error
	updateErr error
}

func (s *stubSheets) Get(_ domain.Context, _ string) (domain.AnswerSheet, error) {
	return s.sheet, s.getErr
}

func (s *stubSheets) UpdateScores(_ domain.Context, _ domain.AnswerSheet) error {
	return s.updateErr
}

type stubLevels struct{}

func (stubLevels) Find(_ domain.Context, _, _ string) (domain.AcademicLevel, error) {
	return domain.AcademicLevel{}, domain.ErrNotFound
}

type stubLogs struct {
	rows    []domain.ReEvaluationLog
	listErr error
}

func (s *stubLogs) Insert(_ domain.Context, _ domain.ReEvaluationLog) (string, error) {
	return "log-1", nil
}

func (s *stubLogs) ListBySheet(_ domain.Context, _ string) ([]domain.ReEvaluationLog, error) {
	return s.rows, s.listErr
}

type stubFiles struct{}

func (stubFiles) Fetch(_ domain.Context, _ string) ([]byte, string, error) {
	return []byte("img"), "image/jpeg", nil
}

type stubModel struct{ err error }

func (s stubModel) Generate(_ domain.Context, _ string, _ domain.InlinePayload) (string, error) {
	return "raw", s.err
}

func gradedSheet() domain.AnswerSheet {
	return domain.AnswerSheet{
		ID: "sheet-1", ClassID: "c1", SubjectID: "s1",
		FileURL:       "https://files.example/s.pdf",
		QuestionPaper: domain.QuestionPaper{TotalMarks: 100},
		Sections: []domain.Section{{
			Section: 1, Name: "Section A", SectionMax: 100,
			Questions: []domain.Question{{Number: 1, MarksObtained: 60, MaxMarks: 100}},
		}},
		TotalScore: 60, Grade: "B",
	}
}

func newServer(t *testing.T, sheets *stubSheets, model stubModel, parse usecase.SectionParser, logs *stubLogs) *httpserver.Server {
	t.Helper()
	if parse == nil {
		parse = func(string) (domain.Section, error) {
			return domain.Section{Questions: []domain.Question{{Number: 1, MarksObtained: 75, MaxMarks: 100}}}, nil
		}
	}
	svc := usecase.NewReEvaluateService(sheets, stubLevels{}, logs, stubFiles{}, model, parse)
	cfg := config.Config{AppEnv: "test", ReEvalMaxAttempts: 1}
	return httpserver.NewServer(cfg, svc, logs, nil, nil)
}

func doReEvaluate(t *testing.T, srv *httpserver.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/re-evaluate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ReEvaluateHandler()(rec, req)
	return rec
}

func TestReEvaluateHandler_Success(t *testing.T) {
	t.Parallel()
	srv := newServer(t, &stubSheets{sheet: gradedSheet()}, stubModel{}, nil, &stubLogs{})
	rec := doReEvaluate(t, srv, `{"answer_sheet_id":"sheet-1","section_index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success    bool           `json:"success"`
		Section    domain.Section `json:"section"`
		TotalScore float64        `json:"total_score"`
		Grade      string         `json:"grade"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 75.0, resp.TotalScore)
	assert.Equal(t, "B+", resp.Grade)
	require.Len(t, resp.Section.Questions, 1)
}

func TestReEvaluateHandler_Validation(t *testing.T) {
	t.Parallel()
	srv := newServer(t, &stubSheets{sheet: gradedSheet()}, stubModel{}, nil, &stubLogs{})

	for _, body := range []string{
		`{"section_index":0}`,
		`{"answer_sheet_id":"sheet-1","section_index":-1}`,
		`{not json`,
	} {
		rec := doReEvaluate(t, srv, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	}
}

// decodeFailure enforces the failure wire shape: error is a plain string.
func decodeFailure(t *testing.T, body []byte) (string, string) {
	t.Helper()
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.False(t, resp.Success)
	require.NotEmpty(t, resp.Error)
	return resp.Error, resp.Code
}

func TestReEvaluateHandler_FailureEnvelopeShape(t *testing.T) {
	t.Parallel()
	srv := newServer(t, &stubSheets{getErr: domain.ErrNotFound}, stubModel{}, nil, &stubLogs{})
	rec := doReEvaluate(t, srv, `{"answer_sheet_id":"missing","section_index":0}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	msg, code := decodeFailure(t, rec.Body.Bytes())
	assert.Contains(t, msg, "not found")
	assert.Equal(t, "NOT_FOUND", code)

	// A raw decode must yield a string under "error", never an object.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	var asString string
	require.NoError(t, json.Unmarshal(raw["error"], &asString))
}

func TestReEvaluateHandler_NotAcceptable(t *testing.T) {
	t.Parallel()
	srv := newServer(t, &stubSheets{sheet: gradedSheet()}, stubModel{}, nil, &stubLogs{})
	req := httptest.NewRequest(http.MethodPost, "/v1/re-evaluate", strings.NewReader(`{}`))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	srv.ReEvaluateHandler()(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestReEvaluateHandler_ErrorMapping(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		sheets *stubSheets
		model  stubModel
		parse  usecase.SectionParser
		want   int
	}{
		{"not found", &stubSheets{getErr: domain.ErrNotFound}, stubModel{}, nil, http.StatusNotFound},
		{"transient exhausted", &stubSheets{sheet: gradedSheet()}, stubModel{err: domain.ErrModelTransient}, nil, http.StatusServiceUnavailable},
		{"hard model error", &stubSheets{sheet: gradedSheet()}, stubModel{err: domain.ErrModelHard}, nil, http.StatusBadGateway},
		{"parse error", &stubSheets{sheet: gradedSheet()}, stubModel{},
			func(string) (domain.Section, error) { return domain.Section{}, domain.ErrParse }, http.StatusBadGateway},
		{"persistence error", &stubSheets{sheet: gradedSheet(), updateErr: domain.ErrPersistence}, stubModel{}, nil, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, tc.sheets, tc.model, tc.parse, &stubLogs{})
			rec := doReEvaluate(t, srv, `{"answer_sheet_id":"sheet-1","section_index":0}`)
			assert.Equal(t, tc.want, rec.Code)
			msg, _ := decodeFailure(t, rec.Body.Bytes())
			assert.NotEmpty(t, msg)
		})
	}
}

func TestListReEvaluationsHandler(t *testing.T) {
	t.Parallel()
	logs := &stubLogs{rows: []domain.ReEvaluationLog{{
		ID: "log-1", AnswerSheetID: "sheet-1", EvaluationType: domain.EvaluationSection,
		SectionIndex: 0, PreviousScore: 70, NewScore: 72, NewGrade: "B+",
		CreatedAt: time.Now(),
	}}}
	srv := newServer(t, &stubSheets{sheet: gradedSheet()}, stubModel{}, nil, logs)

	r := chi.NewRouter()
	r.Get("/v1/sheets/{id}/re-evaluations", srv.ListReEvaluationsHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/sheets/sheet-1/re-evaluations", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success       bool              `json:"success"`
		ReEvaluations []json.RawMessage `json:"re_evaluations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.ReEvaluations, 1)
	assert.Contains(t, string(resp.ReEvaluations[0]), `"new_score":72`)
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()
	srv := newServer(t, &stubSheets{sheet: gradedSheet()}, stubModel{}, nil, &stubLogs{})
	srv.DBCheck = func(context.Context) error { return nil }
	srv.RedisCheck = func(context.Context) error { return errors.New("redis down") }

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")

	srv.RedisCheck = func(context.Context) error { return nil }
	rec = httptest.NewRecorder()
	srv.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
