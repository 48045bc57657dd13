package store

import (
	"context"
	"time"

	"github.com/abhisek/mockscope/internal/analytics"
)

// Student is a learner profile.
type Student struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	EnrolledCourses []string `json:"enrolled_courses"`
	Avatar          string   `json:"avatar,omitempty"`
}

// ExamConfig is an exam definition with its admin-flagged topics.
type ExamConfig struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ImportantTopics []string `json:"important_topics"`
}

// MockSummary is the headline view of one attempt shown in a history list.
type MockSummary struct {
	MockID   string    `json:"mock_id"`
	Date     time.Time `json:"date"`
	ExamType string    `json:"exam_type"`
	analytics.Summary
}

// Attempt is one stored mock test for a student.
type Attempt struct {
	ID        string               `json:"id"`
	StudentID string               `json:"student_id"`
	MockID    string               `json:"mock_id"`
	ExamID    string               `json:"exam_id"`
	Date      time.Time            `json:"date"`
	Records   []analytics.Response `json:"records,omitempty"`
	Summary   MockSummary          `json:"summary"`
}

// IngestStats reports what BulkIngest rebuilt.
type IngestStats struct {
	Students int `json:"students"`
	Attempts int `json:"attempts"`
	Records  int `json:"records"`
	Skipped  int `json:"skipped"`
}

// Repo is the student/exam/attempt repository. The analytics engine never
// depends on it; callers resolve inputs here and pass plain values in.
type Repo interface {
	ListStudents(ctx context.Context) ([]Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	UpsertStudent(ctx context.Context, st Student) error

	ListExamConfigs(ctx context.Context) ([]ExamConfig, error)
	GetExamConfig(ctx context.Context, id string) (*ExamConfig, error)
	AddExamConfig(ctx context.Context, name string) (*ExamConfig, error)
	UpdateExamConfig(ctx context.Context, id string, topics []string) error

	// ListAttempts returns a student's history, oldest first, without records.
	ListAttempts(ctx context.Context, studentID string) ([]MockSummary, error)
	GetAttempt(ctx context.Context, studentID, mockID string) (*Attempt, error)
	AppendAttempt(ctx context.Context, a *Attempt) error

	// BulkIngest replaces all students and attempts with those found in a
	// flat multi-student import. Exam configs are kept.
	BulkIngest(ctx context.Context, records []analytics.Response) (IngestStats, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact match; empty = any
	MockID  string    // exact match; empty = any
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	MockID       string // mock the request was made for, if any
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to the LLM audit log.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
