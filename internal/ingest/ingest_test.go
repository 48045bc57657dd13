package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mockscope/internal/analytics"
)

const sampleJSON = `[
  {"student_id":"S1","mock_id":"M1","question_id":"Q1","section":"Quant","topic":"Logarithms",
   "difficulty":"Hard","attempted":true,"student_answer":"B","correct_answer":"B","is_correct":true,"time_taken_seconds":95.5},
  {"student_id":"S1","mock_id":"M1","question_id":"Q2","section":"Verbal","topic":"RC",
   "difficulty":"Easy","attempted":false,"student_answer":"A","correct_answer":"C","is_correct":true,"time_taken_seconds":12}
]`

func TestParseJSON(t *testing.T) {
	records, err := ParseJSON(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, analytics.DifficultyHard, records[0].Difficulty)
	require.NotNil(t, records[0].StudentAnswer)
	assert.Equal(t, "B", *records[0].StudentAnswer)
	assert.Equal(t, 95.5, records[0].TimeTakenSeconds)

	// unattempted rows are normalized
	assert.Nil(t, records[1].StudentAnswer)
	assert.False(t, records[1].IsCorrect)
	assert.Zero(t, records[1].TimeTakenSeconds)
}

func TestParseJSON_NotAnArray(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`{"student_id":"S1"}`))
	assert.Error(t, err)
}

func TestParseJSON_BadDifficulty(t *testing.T) {
	_, err := ParseJSON(strings.NewReader(`[{"section":"Q","topic":"T","difficulty":"Brutal"}]`))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 0, rowErr.Row)
	assert.Contains(t, err.Error(), "Brutal")
}

func TestParseCSV(t *testing.T) {
	in := `mock_id,student_id,question_id,section,topic,difficulty,attempted,student_answer,correct_answer,is_correct,time_taken_seconds
M1,S1,Q1,Quant,Functions,Medium,true,4,4,true,60
M1,S1,Q2,Quant,Functions,Medium,FALSE,,2,false,
`
	records, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "S1", records[0].StudentID)
	assert.Equal(t, "M1", records[0].MockID)
	assert.True(t, records[0].Attempted)
	assert.Equal(t, 60.0, records[0].TimeTakenSeconds)
	assert.Nil(t, records[1].StudentAnswer)
	assert.False(t, records[1].Attempted)
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("student_id,mock_id\nS1,M1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question_id")
}

func TestParseCSV_BadNumber(t *testing.T) {
	in := strings.Join(csvColumns, ",") + "\nS1,M1,Q1,Quant,T,Easy,true,A,A,true,fast\n"
	_, err := ParseCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.JSON")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))

	records, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	txt := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(txt, []byte(sampleJSON), 0o644))
	_, err = ParseFile(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValidate(t *testing.T) {
	r := analytics.Response{Section: "Q", Topic: "T", Difficulty: analytics.DifficultyEasy, Attempted: true, TimeTakenSeconds: -1}
	assert.Error(t, Validate(&r))

	r = analytics.Response{Difficulty: analytics.DifficultyEasy}
	assert.Error(t, Validate(&r))
}

func TestPartition(t *testing.T) {
	records := []analytics.Response{
		{StudentID: "B", MockID: "M1", QuestionID: "1"},
		{StudentID: "A", MockID: "M1", QuestionID: "2"},
		{StudentID: "B", MockID: "M2", QuestionID: "3"},
		{StudentID: "B", MockID: "M1", QuestionID: "4"},
	}
	batches := Partition(records)
	require.Len(t, batches, 3)

	assert.Equal(t, "B", batches[0].StudentID)
	assert.Equal(t, "M1", batches[0].MockID)
	require.Len(t, batches[0].Records, 2)
	assert.Equal(t, "4", batches[0].Records[1].QuestionID)
	assert.Equal(t, "A", batches[1].StudentID)
	assert.Equal(t, "M2", batches[2].MockID)

	assert.Empty(t, Partition(nil))
}
