package analytics

import "errors"

// ErrEmptyInput is returned by Analyze when no response records are given.
// Callers should show an empty state instead of invoking the engine.
var ErrEmptyInput = errors.New("analytics: empty input")

// Difficulty is the tier of a single question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Weight returns the numeric severity used for the difficulty index.
// Unrecognized tiers weigh as Medium.
func (d Difficulty) Weight() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyHard:
		return 3
	default:
		return 2
	}
}

// Valid reports whether d is one of the three known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Response is one question attempt (or skip) from a mock test log.
// IsCorrect is meaningful only when Attempted is true, and an unattempted
// record carries TimeTakenSeconds == 0.
type Response struct {
	StudentID        string     `json:"student_id"`
	MockID           string     `json:"mock_id"`
	QuestionID       string     `json:"question_id"`
	Section          string     `json:"section"`
	Topic            string     `json:"topic"`
	Difficulty       Difficulty `json:"difficulty"`
	Attempted        bool       `json:"attempted"`
	StudentAnswer    *string    `json:"student_answer"`
	CorrectAnswer    string     `json:"correct_answer"`
	IsCorrect        bool       `json:"is_correct"`
	TimeTakenSeconds float64    `json:"time_taken_seconds"`
}

// TopicSet is the set of topic names an exam marks as important.
// A nil set is empty.
type TopicSet map[string]struct{}

// NewTopicSet builds a set from topic names.
func NewTopicSet(names ...string) TopicSet {
	s := make(TopicSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports exact-match membership.
func (s TopicSet) Has(topic string) bool {
	_, ok := s[topic]
	return ok
}

// Status is the mastery classification of a topic.
type Status string

const (
	StatusMastered      Status = "Mastered"
	StatusSpeedIssue    Status = "Speed Issue"
	StatusAccuracyIssue Status = "Accuracy Issue"
	StatusConceptualGap Status = "Conceptual Gap"
	StatusGuessing      Status = "Guessing"
	StatusNeedsPractice Status = "Needs Practice"
)

// TopicAnalytics is the derived view of one topic within a section.
type TopicAnalytics struct {
	Topic           string  `json:"topic"`
	Attempts        int     `json:"attempts"`
	Correct         int     `json:"correct"`
	Accuracy        float64 `json:"accuracy"`         // 0–100
	AvgTime         float64 `json:"avg_time"`         // seconds per attempted question
	TotalTime       float64 `json:"total_time"`       // seconds across attempted questions
	DifficultyIndex float64 `json:"difficulty_index"` // 1–3
	Status          Status  `json:"status"`
	IsImportant     bool    `json:"is_important"`
}

// SectionAnalytics summarizes one test section.
type SectionAnalytics struct {
	Section  string           `json:"section"`
	Score    int              `json:"score"`
	Accuracy float64          `json:"accuracy"`
	AvgTime  float64          `json:"avg_time"`
	Topics   []TopicAnalytics `json:"topics"`
}

// ActionType is the kind of remediation suggested for a topic.
type ActionType string

const (
	ActionFocus  ActionType = "FOCUS"
	ActionPause  ActionType = "PAUSE"
	ActionRevise ActionType = "REVISE"
)

// PriorityAction is one entry in the remediation list.
type PriorityAction struct {
	Type         ActionType `json:"type"`
	Topic        string     `json:"topic"`
	Reason       string     `json:"reason"`
	HighPriority bool       `json:"is_high_priority"`
}

// Result is the full diagnosis of one mock.
type Result struct {
	OverallAccuracy float64            `json:"overall_accuracy"`
	OverallScore    int                `json:"overall_score"`
	Sections        []SectionAnalytics `json:"sections"`
	PriorityList    []PriorityAction   `json:"priority_list"`
	WeakestTopics   []string           `json:"weakest_topics"`
	StrongestTopics []string           `json:"strongest_topics"`
	TotalTime       float64            `json:"total_time"`
	MockID          string             `json:"mock_id"`
}

// Actions returns the priority actions of the given type, in list order.
func (r *Result) Actions(t ActionType) []PriorityAction {
	var out []PriorityAction
	for _, a := range r.PriorityList {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// Topics returns every topic across all sections in section order.
func (r *Result) Topics() []TopicAnalytics {
	var out []TopicAnalytics
	for _, s := range r.Sections {
		out = append(out, s.Topics...)
	}
	return out
}
