package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/store"
)

var fixedNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type stubSource struct {
	records []analytics.Response
	err     error
}

func (s stubSource) FetchStudentMocks(context.Context, string) ([]analytics.Response, error) {
	return s.records, s.err
}

func newTestServer(t *testing.T, source graphy.Source) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := New(Options{
		Repo:   st,
		Source: source,
		Now:    func() time.Time { return fixedNow },
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, method, url, contentType string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func record(student, mock, section, topic string, attempted, correct bool, secs float64) analytics.Response {
	r := analytics.Response{
		StudentID:     student,
		MockID:        mock,
		QuestionID:    mock + "_" + topic,
		Section:       section,
		Topic:         topic,
		Difficulty:    analytics.DifficultyMedium,
		Attempted:     attempted,
		CorrectAnswer: "A",
		IsCorrect:     attempted && correct,
	}
	if attempted {
		r.TimeTakenSeconds = secs
	}
	return r
}

func sampleLog() []analytics.Response {
	return []analytics.Response{
		record("STU_1", "M1", "Quant", "Logarithms", true, false, 100),
		record("STU_1", "M1", "Quant", "Logarithms", true, false, 110),
		record("STU_1", "M1", "Quant", "Numbers", true, true, 40),
		record("STU_1", "M1", "Quant", "Numbers", true, true, 50),
		record("STU_1", "M1", "Verbal", "RC", true, true, 60),
		record("STU_1", "M1", "Verbal", "RC", false, false, 0),
		record("STU_2", "M1", "Quant", "Numbers", true, false, 90),
	}
}

func importSample(t *testing.T, url string) {
	t.Helper()
	body, err := json.Marshal(sampleLog())
	require.NoError(t, err)
	resp, data := do(t, http.MethodPost, url+"/api/import", "application/json", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var stats store.IngestStats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, store.IngestStats{Students: 2, Attempts: 2, Records: 7}, stats)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, data := do(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestImportAndBrowse(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	importSample(t, ts.URL)

	resp, data := do(t, http.MethodGet, ts.URL+"/api/students", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var students []store.Student
	require.NoError(t, json.Unmarshal(data, &students))
	require.Len(t, students, 2)
	assert.Equal(t, "STU_1", students[0].ID)

	resp, data = do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []store.MockSummary
	require.NoError(t, json.Unmarshal(data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "M1", history[0].MockID)
	assert.Equal(t, 10, history[0].Score) // 3 correct, 2 wrong

	resp, data = do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts/M1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var attempt store.Attempt
	require.NoError(t, json.Unmarshal(data, &attempt))
	assert.Len(t, attempt.Records, 6)
}

func TestAttemptAnalysis(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	importSample(t, ts.URL)

	resp, data := do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts/M1/analysis?seed=7", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var got analytics.Result
	require.NoError(t, json.Unmarshal(data, &got))

	want, err := analytics.Analyze(sampleLog()[:6], analytics.NewTopicSet("Logarithms", "Functions", "Parajumbles", "Geometry"), analytics.WithSeed(7))
	require.NoError(t, err)
	assert.Equal(t, want.OverallScore, got.OverallScore)
	assert.Equal(t, want.PriorityList, got.PriorityList)
	assert.Equal(t, want.WeakestTopics, got.WeakestTopics)

	// Logarithms is an IPMAT important topic and 0% accurate.
	require.NotEmpty(t, got.PriorityList)
	assert.Equal(t, "Logarithms", got.PriorityList[0].Topic)
	assert.True(t, got.PriorityList[0].HighPriority)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts/M1/analysis?seed=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttemptMentor_Offline(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	importSample(t, ts.URL)

	resp, data := do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts/M1/mentor", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "M1", body["mock_id"])
	assert.Contains(t, body["note"], "AI Mentor Offline")
	assert.Contains(t, body["note"], "Logarithms")
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, path := range []string{
		"/api/students/NOPE",
		"/api/students/NOPE/attempts",
		"/api/students/NOPE/attempts/M1/analysis",
	} {
		resp, data := do(t, http.MethodGet, ts.URL+path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		var body errorBody
		require.NoError(t, json.Unmarshal(data, &body), path)
		assert.NotEmpty(t, body.Error)
	}
}

func TestSync(t *testing.T) {
	sim := graphy.NewSimulator(graphy.WithRand(rand.New(rand.NewPCG(3, 4))))
	ts, st := newTestServer(t, sim)

	resp, data := do(t, http.MethodPost, ts.URL+"/api/students/STU_NEW/sync", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var added []store.MockSummary
	require.NoError(t, json.Unmarshal(data, &added))
	require.Len(t, added, 1)
	assert.True(t, strings.HasPrefix(added[0].MockID, "MOCK_LIVE_"))
	assert.True(t, fixedNow.Equal(added[0].Date))

	student, err := st.GetStudent(context.Background(), "STU_NEW")
	require.NoError(t, err)
	assert.Equal(t, "stu_new@student.entranceug.com", student.Email)

	a, err := st.GetAttempt(context.Background(), "STU_NEW", added[0].MockID)
	require.NoError(t, err)
	assert.Len(t, a.Records, 60)
	assert.Equal(t, "IPMAT", a.ExamID)
}

func TestSync_Duplicate(t *testing.T) {
	src := stubSource{records: sampleLog()[:6]}
	ts, _ := newTestServer(t, src)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/students/STU_1/sync?exam=cat", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, data := do(t, http.MethodPost, ts.URL+"/api/students/STU_1/sync", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(data), "already")
}

func TestSync_SkipsStoredMocks(t *testing.T) {
	m1 := sampleLog()[:6]
	ts, st := newTestServer(t, stubSource{records: m1})
	resp, data := do(t, http.MethodPost, ts.URL+"/api/students/STU_1/sync", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	// The next report carries the stored M1 and a new M2, in either order.
	for i, order := range [][]analytics.Response{
		append(append([]analytics.Response{}, m1...), record("STU_1", "M2", "Quant", "Numbers", true, true, 45)),
		append([]analytics.Response{record("STU_1", "M3", "Verbal", "RC", true, false, 70)}, m1...),
	} {
		srv := New(Options{Repo: st, Source: stubSource{records: order}, Now: func() time.Time { return fixedNow }})
		ts2 := httptest.NewServer(srv.Handler())
		resp, data := do(t, http.MethodPost, ts2.URL+"/api/students/STU_1/sync", "", nil)
		ts2.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

		var added []store.MockSummary
		require.NoError(t, json.Unmarshal(data, &added))
		require.Len(t, added, 1, "report %d", i)
		want := []string{"M2", "M3"}[i]
		assert.Equal(t, want, added[0].MockID)

		_, err := st.GetAttempt(context.Background(), "STU_1", want)
		require.NoError(t, err)
	}
}

func TestSync_SourceErrors(t *testing.T) {
	ts, _ := newTestServer(t, stubSource{err: graphy.ErrNotFound})
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/students/STU_1/sync", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ts, _ = newTestServer(t, nil)
	resp, _ = do(t, http.MethodPost, ts.URL+"/api/students/STU_1/sync", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestImport_BadBody(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, _ := do(t, http.MethodPost, ts.URL+"/api/import", "application/json", []byte(`{"not":"array"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := do(t, http.MethodPost, ts.URL+"/api/import", "application/json",
		[]byte(`[{"section":"Q","topic":"T","difficulty":"Insane"}]`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "row 0")
}

func TestAnalyze_CSV(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	csv := "student_id,mock_id,question_id,section,topic,difficulty,attempted,student_answer,correct_answer,is_correct,time_taken_seconds\n" +
		"S,M,Q1,Quant,Functions,Easy,true,A,A,true,30\n" +
		"S,M,Q2,Quant,Functions,Easy,true,A,A,true,30\n"

	resp, data := do(t, http.MethodPost, ts.URL+"/api/analyze?seed=1", "text/csv; charset=utf-8", []byte(csv))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var res analytics.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, 8, res.OverallScore)
	require.Len(t, res.Sections, 1)
	topic := res.Sections[0].Topics[0]
	assert.Equal(t, analytics.StatusMastered, topic.Status)
	assert.True(t, topic.IsImportant) // Functions is an IPMAT topic

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/analyze", "application/json", []byte(`[]`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExams(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, data := do(t, http.MethodGet, ts.URL+"/api/exams", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exams []store.ExamConfig
	require.NoError(t, json.Unmarshal(data, &exams))
	assert.Len(t, exams, 2)

	resp, data = do(t, http.MethodPost, ts.URL+"/api/exams", "application/json", []byte(`{"name":"NPAT"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.JSONEq(t, `{"id":"NPAT","name":"NPAT","important_topics":[]}`, string(data))

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/exams", "application/json", []byte(`{"name":"npat"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, ts.URL+"/api/exams", "application/json", []byte(`{"name":"  "}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data = do(t, http.MethodPut, ts.URL+"/api/exams/NPAT/topics", "application/json",
		[]byte(`{"important_topics":["Algebra","RC"]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"NPAT","name":"NPAT","important_topics":["Algebra","RC"]}`, string(data))

	resp, _ = do(t, http.MethodPut, ts.URL+"/api/exams/GMAT/topics", "application/json", []byte(`{"important_topics":[]}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	importSample(t, ts.URL)
	do(t, http.MethodGet, ts.URL+"/api/students/STU_1/attempts/M1/analysis", "", nil)

	resp, data := do(t, http.MethodGet, ts.URL+"/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := string(data)
	assert.Contains(t, out, `mockscope_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, out, `mockscope_http_requests_total{endpoint="/api/import",method="POST",status="200"} 1`)
	assert.Contains(t, out, "mockscope_http_request_duration_seconds_bucket")
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/students", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
