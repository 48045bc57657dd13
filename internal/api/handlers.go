package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/ingest"
	"github.com/abhisek/mockscope/internal/store"
)

const maxBodyBytes = 16 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var rowErr *ingest.RowError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, graphy.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateAttempt), errors.Is(err, store.ErrDuplicateExam):
		status = http.StatusConflict
	case errors.Is(err, analytics.ErrEmptyInput), errors.As(err, &rowErr), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, graphy.ErrUnauthorized):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.repo.ListStudents(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(students))
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, err := s.repo.GetStudent(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	if _, err := s.repo.GetStudent(r.Context(), studentID); err != nil {
		s.fail(w, r, err)
		return
	}
	history, err := s.repo.ListAttempts(r.Context(), studentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(history))
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	a, err := s.repo.GetAttempt(r.Context(), chi.URLParam(r, "studentID"), chi.URLParam(r, "mockID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// analyzeAttempt loads a stored mock and analyzes it against its exam's
// important topics, or the exam named in ?exam=.
func (s *Server) analyzeAttempt(r *http.Request) (*analytics.Result, error) {
	a, err := s.repo.GetAttempt(r.Context(), chi.URLParam(r, "studentID"), chi.URLParam(r, "mockID"))
	if err != nil {
		return nil, err
	}
	examID := a.ExamID
	if q := r.URL.Query().Get("exam"); q != "" {
		examID = strings.ToUpper(q)
	}
	return s.analyze(r, a.Records, examID)
}

func (s *Server) analyze(r *http.Request, records []analytics.Response, examID string) (*analytics.Result, error) {
	opts, err := seedOption(r)
	if err != nil {
		return nil, err
	}
	important, err := store.ImportantTopics(r.Context(), s.repo, examID)
	if err != nil {
		return nil, err
	}
	res, err := analytics.Analyze(records, important, opts...)
	switch {
	case errors.Is(err, analytics.ErrEmptyInput):
		s.metrics.Analyses.WithLabelValues("empty").Inc()
	case err != nil:
		s.metrics.Analyses.WithLabelValues("error").Inc()
	default:
		s.metrics.Analyses.WithLabelValues("ok").Inc()
	}
	return res, err
}

func seedOption(r *http.Request) ([]analytics.Option, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return nil, nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, badRequest("seed must be a non-negative integer")
	}
	return []analytics.Option{analytics.WithSeed(seed)}, nil
}

func (s *Server) handleAttemptAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyzeAttempt(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAttemptMentor(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyzeAttempt(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	note, err := s.mentor.Feedback(r.Context(), res)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mock_id": res.MockID, "note": note})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.source == nil {
		writeError(w, http.StatusServiceUnavailable, "no record source configured")
		return
	}
	studentID := chi.URLParam(r, "studentID")
	examID := s.examParam(r)

	records, err := s.source.FetchStudentMocks(r.Context(), studentID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(records) == 0 {
		s.fail(w, r, badRequest("record source returned no responses for %s", studentID))
		return
	}

	if _, err := s.repo.GetStudent(r.Context(), studentID); errors.Is(err, store.ErrNotFound) {
		if err := s.repo.UpsertStudent(r.Context(), store.DefaultStudent(studentID)); err != nil {
			s.fail(w, r, err)
			return
		}
	} else if err != nil {
		s.fail(w, r, err)
		return
	}

	// Reports carry the student's whole history; stored mocks are skipped.
	var batch []*store.Attempt
	for _, b := range ingest.Partition(records) {
		batch = append(batch, store.NewAttempt(studentID, examID, examID, b.Records, s.now()))
	}
	stored, err := store.AppendNew(r.Context(), s.repo, batch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	added := make([]store.MockSummary, 0, len(stored))
	for _, a := range stored {
		added = append(added, a.Summary)
	}
	s.logger.Info("synced student mocks", zap.String("student_id", studentID), zap.Int("attempts", len(added)))
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) examParam(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("exam")); q != "" {
		return strings.ToUpper(q)
	}
	return s.defaultExam
}

// decodeRecords reads a response log from the body: CSV when the content
// type says so, JSON otherwise.
func decodeRecords(r *http.Request) ([]analytics.Response, error) {
	body := io.LimitReader(r.Body, maxBodyBytes)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var records []analytics.Response
	var err error
	if mt == "text/csv" {
		records, err = ingest.ParseCSV(body)
	} else {
		records, err = ingest.ParseJSON(body)
	}
	if err != nil {
		var rowErr *ingest.RowError
		if errors.As(err, &rowErr) {
			return nil, err
		}
		return nil, badRequest("%v", err)
	}
	return records, nil
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	records, err := decodeRecords(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stats, err := s.repo.BulkIngest(r.Context(), records)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("bulk import",
		zap.Int("students", stats.Students),
		zap.Int("attempts", stats.Attempts),
		zap.Int("records", stats.Records),
		zap.Int("skipped", stats.Skipped))
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	records, err := decodeRecords(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.analyze(r, records, s.examParam(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := s.repo.ListExamConfigs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilSlice(exams))
}

func (s *Server) handleAddExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.fail(w, r, badRequest("invalid JSON body: %v", err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.fail(w, r, badRequest("name is required"))
		return
	}
	cfg, err := s.repo.AddExamConfig(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) handleUpdateExamTopics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImportantTopics []string `json:"important_topics"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.fail(w, r, badRequest("invalid JSON body: %v", err))
		return
	}
	examID := chi.URLParam(r, "examID")
	if err := s.repo.UpdateExamConfig(r.Context(), examID, req.ImportantTopics); err != nil {
		s.fail(w, r, err)
		return
	}
	cfg, err := s.repo.GetExamConfig(r.Context(), examID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
