package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/mockscope/internal/analytics"
)

// DefaultExamID is assigned to attempts whose exam cannot be inferred.
const DefaultExamID = "IPMAT"

// NewAttempt builds an attempt for a single mock's records, computing its
// summary. The mock id comes from the first record.
func NewAttempt(studentID, examID, examType string, records []analytics.Response, at time.Time) *Attempt {
	var mockID string
	if len(records) > 0 {
		mockID = records[0].MockID
	}
	at = at.UTC().Truncate(time.Second)
	return &Attempt{
		ID:        uuid.NewString(),
		StudentID: studentID,
		MockID:    mockID,
		ExamID:    examID,
		Date:      at,
		Records:   records,
		Summary: MockSummary{
			MockID:   mockID,
			Date:     at,
			ExamType: examType,
			Summary:  analytics.Summarize(records),
		},
	}
}

func (s *Store) ListAttempts(ctx context.Context, studentID string) ([]MockSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mock_id, taken_on, exam_type, score, accuracy, avg_time
		 FROM attempts WHERE student_id = ? ORDER BY taken_on, rowid`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []MockSummary
	for rows.Next() {
		var m MockSummary
		if err := rows.Scan(&m.MockID, &m.Date, &m.ExamType, &m.Score, &m.Accuracy, &m.AvgTime); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetAttempt(ctx context.Context, studentID, mockID string) (*Attempt, error) {
	var a Attempt
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, mock_id, exam_id, exam_type, taken_on, score, accuracy, avg_time
		 FROM attempts WHERE student_id = ? AND mock_id = ?`,
		studentID, mockID,
	).Scan(&a.ID, &a.StudentID, &a.MockID, &a.ExamID, &a.Summary.ExamType, &a.Date,
		&a.Summary.Score, &a.Summary.Accuracy, &a.Summary.AvgTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attempt %s/%s: %w", studentID, mockID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	a.Summary.MockID = a.MockID
	a.Summary.Date = a.Date

	a.Records, err = s.loadResponses(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) loadResponses(ctx context.Context, attemptID string) ([]analytics.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id, mock_id, question_id, section, topic, difficulty, attempted,
		        student_answer, correct_answer, is_correct, time_taken
		 FROM responses WHERE attempt_id = ? ORDER BY seq`,
		attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []analytics.Response
	for rows.Next() {
		var r analytics.Response
		var answer sql.NullString
		if err := rows.Scan(&r.StudentID, &r.MockID, &r.QuestionID, &r.Section, &r.Topic,
			&r.Difficulty, &r.Attempted, &answer, &r.CorrectAnswer, &r.IsCorrect, &r.TimeTakenSeconds); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if answer.Valid {
			r.StudentAnswer = &answer.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) AppendAttempt(ctx context.Context, a *Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE student_id = ? AND mock_id = ?`,
		a.StudentID, a.MockID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("attempt %s/%s: %w", a.StudentID, a.MockID, ErrDuplicateAttempt)
	}

	if err := insertAttempt(ctx, tx, a); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendNew stores the attempts repo does not hold yet and returns them in
// order. Attempts already on record are skipped; ErrDuplicateAttempt is
// returned only when every attempt was one.
func AppendNew(ctx context.Context, repo Repo, attempts []*Attempt) ([]*Attempt, error) {
	var added []*Attempt
	var dup error
	for _, a := range attempts {
		err := repo.AppendAttempt(ctx, a)
		if errors.Is(err, ErrDuplicateAttempt) {
			dup = err
			continue
		}
		if err != nil {
			return added, err
		}
		added = append(added, a)
	}
	if len(added) == 0 && dup != nil {
		return nil, dup
	}
	return added, nil
}

func insertAttempt(ctx context.Context, tx *sql.Tx, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (id, student_id, mock_id, exam_id, exam_type, taken_on, score, accuracy, avg_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.StudentID, a.MockID, a.ExamID, a.Summary.ExamType, a.Date,
		a.Summary.Score, a.Summary.Accuracy, a.Summary.AvgTime,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO responses (attempt_id, seq, student_id, mock_id, question_id, section, topic,
		 difficulty, attempted, student_answer, correct_answer, is_correct, time_taken)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare responses: %w", err)
	}
	defer stmt.Close()

	for i, r := range a.Records {
		var answer sql.NullString
		if r.StudentAnswer != nil {
			answer = sql.NullString{String: *r.StudentAnswer, Valid: true}
		}
		_, err := stmt.ExecContext(ctx, a.ID, i, r.StudentID, r.MockID, r.QuestionID, r.Section, r.Topic,
			string(r.Difficulty), r.Attempted, answer, r.CorrectAnswer, r.IsCorrect, r.TimeTakenSeconds)
		if err != nil {
			return fmt.Errorf("insert response %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) BulkIngest(ctx context.Context, records []analytics.Response) (IngestStats, error) {
	var stats IngestStats

	// student -> mock -> rows, both levels in first-seen order.
	type mockRows struct {
		id   string
		rows []analytics.Response
	}
	var studentOrder []string
	byStudent := make(map[string][]*mockRows)
	index := make(map[[2]string]*mockRows)

	for _, r := range records {
		if r.StudentID == "" {
			stats.Skipped++
			continue
		}
		if _, ok := byStudent[r.StudentID]; !ok {
			studentOrder = append(studentOrder, r.StudentID)
			byStudent[r.StudentID] = nil
		}
		key := [2]string{r.StudentID, r.MockID}
		m, ok := index[key]
		if !ok {
			m = &mockRows{id: r.MockID}
			index[key] = m
			byStudent[r.StudentID] = append(byStudent[r.StudentID], m)
		}
		m.rows = append(m.rows, r)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM responses`, `DELETE FROM attempts`, `DELETE FROM students`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return stats, fmt.Errorf("reset: %w", err)
		}
	}

	now := time.Now()
	for _, id := range studentOrder {
		if err := upsertStudent(ctx, tx, DefaultStudent(id)); err != nil {
			return stats, err
		}
		stats.Students++

		for _, m := range byStudent[id] {
			a := NewAttempt(id, DefaultExamID, DefaultExamID, m.rows, now)
			if err := insertAttempt(ctx, tx, a); err != nil {
				return stats, err
			}
			stats.Attempts++
			stats.Records += len(m.rows)
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit ingest: %w", err)
	}
	return stats, nil
}
