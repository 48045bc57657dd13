// Package ingest reads response logs from bulk exports and splits them into
// per-mock batches for the analytics engine.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhisek/mockscope/internal/analytics"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor CSV.
var ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

// RowError reports a record that failed validation.
type RowError struct {
	Row int // zero-based index in the input
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseFile reads a response log, choosing the decoder by file extension.
func ParseFile(path string) ([]analytics.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(f)
	case ".csv":
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// ParseJSON decodes the standardized JSON export: an array of response
// objects with snake_case field names.
func ParseJSON(r io.Reader) ([]analytics.Response, error) {
	var records []analytics.Response
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode JSON: expected an array of response objects: %w", err)
	}
	return validateAll(records)
}

var csvColumns = []string{
	"student_id", "mock_id", "question_id", "section", "topic", "difficulty",
	"attempted", "student_answer", "correct_answer", "is_correct", "time_taken_seconds",
}

// ParseCSV decodes a CSV export whose header row names the same columns as
// the JSON export. Column order is free; an empty student_answer is null.
func ParseCSV(r io.Reader) ([]analytics.Response, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("CSV header is missing column %q", name)
		}
	}

	var records []analytics.Response
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		rec, err := fromCSVRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return validateAll(records)
}

func fromCSVRow(row []string, col map[string]int) (analytics.Response, error) {
	get := func(name string) string { return strings.TrimSpace(row[col[name]]) }

	attempted, err := parseBool(get("attempted"))
	if err != nil {
		return analytics.Response{}, fmt.Errorf("attempted: %w", err)
	}
	correct, err := parseBool(get("is_correct"))
	if err != nil {
		return analytics.Response{}, fmt.Errorf("is_correct: %w", err)
	}
	var secs float64
	if s := get("time_taken_seconds"); s != "" {
		secs, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return analytics.Response{}, fmt.Errorf("time_taken_seconds: %w", err)
		}
	}

	rec := analytics.Response{
		StudentID:        get("student_id"),
		MockID:           get("mock_id"),
		QuestionID:       get("question_id"),
		Section:          get("section"),
		Topic:            get("topic"),
		Difficulty:       analytics.Difficulty(get("difficulty")),
		Attempted:        attempted,
		CorrectAnswer:    get("correct_answer"),
		IsCorrect:        correct,
		TimeTakenSeconds: secs,
	}
	if ans := get("student_answer"); ans != "" {
		rec.StudentAnswer = &ans
	}
	return rec, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}

func validateAll(records []analytics.Response) ([]analytics.Response, error) {
	for i := range records {
		if err := Validate(&records[i]); err != nil {
			return nil, &RowError{Row: i, Err: err}
		}
	}
	return records, nil
}

// Validate checks one record and normalizes unattempted rows: their time,
// correctness and chosen answer are cleared.
func Validate(r *analytics.Response) error {
	if !r.Difficulty.Valid() {
		return fmt.Errorf("unknown difficulty %q", r.Difficulty)
	}
	if r.Section == "" || r.Topic == "" {
		return errors.New("section and topic are required")
	}
	if r.TimeTakenSeconds < 0 {
		return fmt.Errorf("negative time %v", r.TimeTakenSeconds)
	}
	if !r.Attempted {
		r.TimeTakenSeconds = 0
		r.IsCorrect = false
		r.StudentAnswer = nil
	}
	return nil
}

// Batch is the records of one student's mock, in input order.
type Batch struct {
	StudentID string
	MockID    string
	Records   []analytics.Response
}

// Partition splits a multi-student, multi-mock log into per-mock batches in
// first-seen order.
func Partition(records []analytics.Response) []Batch {
	var batches []Batch
	index := make(map[[2]string]int)
	for _, r := range records {
		key := [2]string{r.StudentID, r.MockID}
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, Batch{StudentID: r.StudentID, MockID: r.MockID})
		}
		batches[i].Records = append(batches[i].Records, r)
	}
	return batches
}
