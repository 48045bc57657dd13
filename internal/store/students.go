package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultStudent builds the profile used for a student first seen in an
// import or a sync, when nothing but the id is known.
func DefaultStudent(id string) Student {
	return Student{
		ID:              id,
		Name:            id,
		Email:           strings.ToLower(id) + "@student.entranceug.com",
		EnrolledCourses: []string{"Imported Batch"},
		Avatar:          "🎓",
	}
}

func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, courses, avatar FROM students ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, courses, avatar FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	return st, err
}

func (s *Store) UpsertStudent(ctx context.Context, st Student) error {
	return upsertStudent(ctx, s.db, st)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertStudent(ctx context.Context, db execer, st Student) error {
	courses, err := json.Marshal(nonNil(st.EnrolledCourses))
	if err != nil {
		return fmt.Errorf("marshal courses: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO students (id, name, email, courses, avatar) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
		 courses = excluded.courses, avatar = excluded.avatar`,
		st.ID, st.Name, st.Email, string(courses), st.Avatar,
	)
	if err != nil {
		return fmt.Errorf("upsert student %q: %w", st.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc scanner) (*Student, error) {
	var st Student
	var courses string
	if err := sc.Scan(&st.ID, &st.Name, &st.Email, &courses, &st.Avatar); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(courses), &st.EnrolledCourses); err != nil {
		return nil, fmt.Errorf("decode courses for %q: %w", st.ID, err)
	}
	return &st, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
