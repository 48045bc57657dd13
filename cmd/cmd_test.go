package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/store"
)

const responseLog = `[
  {"student_id":"STU_1","mock_id":"M1","question_id":"Q1","section":"Quant","topic":"Logarithms","difficulty":"Hard","attempted":true,"student_answer":"B","correct_answer":"A","is_correct":false,"time_taken_seconds":140},
  {"student_id":"STU_1","mock_id":"M1","question_id":"Q2","section":"Quant","topic":"Logarithms","difficulty":"Hard","attempted":true,"student_answer":"C","correct_answer":"A","is_correct":false,"time_taken_seconds":150},
  {"student_id":"STU_1","mock_id":"M1","question_id":"Q3","section":"Verbal","topic":"RC","difficulty":"Easy","attempted":true,"student_answer":"A","correct_answer":"A","is_correct":true,"time_taken_seconds":30},
  {"student_id":"STU_1","mock_id":"M1","question_id":"Q4","section":"Verbal","topic":"RC","difficulty":"Easy","attempted":true,"student_answer":"A","correct_answer":"A","is_correct":true,"time_taken_seconds":35},
  {"student_id":"STU_2","mock_id":"M9","question_id":"Q1","section":"Quant","topic":"Numbers","difficulty":"Medium","attempted":false,"student_answer":null,"correct_answer":"D","is_correct":false,"time_taken_seconds":0}
]`

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MOCKSCOPE_DB", filepath.Join(dir, "mockscope.db"))
	t.Setenv("MOCKSCOPE_LLM_PROVIDER", "none")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log.json"), []byte(responseLog), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values from
// the previous Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestAnalyzeJSON(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "analyze", "log.json", "--json", "--seed", "5")
	require.NoError(t, err)

	// Two mocks produce two JSON documents.
	dec := json.NewDecoder(strings.NewReader(out))
	var first, second analytics.Result
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	assert.Equal(t, "M1", first.MockID)
	assert.Equal(t, 6, first.OverallScore) // 2 correct, 2 wrong
	require.NotEmpty(t, first.PriorityList)
	assert.Equal(t, analytics.PriorityAction{
		Type:   analytics.ActionFocus,
		Topic:  "Logarithms",
		Reason: "CRITICAL EXAM TOPIC: Low performance in this high-weightage area.",
		// Logarithms is on the IPMAT important list.
		HighPriority: true,
	}, first.PriorityList[0])

	assert.Equal(t, "M9", second.MockID)
	assert.Empty(t, second.PriorityList)
}

func TestAnalyze_MentorOffline(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "analyze", "log.json", "--json=false", "--mentor", "--seed", "1")
	require.NoError(t, err)
	out = ansi.Strip(out)
	assert.Contains(t, out, "Student STU_1")
	assert.Contains(t, out, "Mentor's Note")
	assert.Contains(t, out, "AI Mentor Offline")
}

func TestImportStudentsAndMock(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "import", "log.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 5 records: 2 students, 2 attempts.")

	out, err = run(t, "students", "list", "--json")
	require.NoError(t, err)
	var students []store.Student
	require.NoError(t, json.Unmarshal([]byte(out), &students))
	require.Len(t, students, 2)
	assert.Equal(t, "STU_1", students[0].ID)

	out, err = run(t, "students", "show", "STU_1", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "STU_1")
	assert.Contains(t, out, "M1")

	out, err = run(t, "mock", "show", "STU_1", "M1", "--json", "--mentor=false", "--seed", "2")
	require.NoError(t, err)
	var res analytics.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 6, res.OverallScore)

	_, err = run(t, "mock", "show", "STU_1", "NOPE", "--json")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExamCommands(t *testing.T) {
	setupCLI(t)

	out, err := run(t, "exam", "add", "NPAT", "Mock")
	require.NoError(t, err)
	assert.Contains(t, out, "Added exam NPAT_MOCK (NPAT Mock).")

	out, err = run(t, "exam", "topics", "npat_mock", "RC", "Algebra")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated NPAT_MOCK: 2 important topics.")

	out, err = run(t, "exam", "list", "--json")
	require.NoError(t, err)
	var exams []store.ExamConfig
	require.NoError(t, json.Unmarshal([]byte(out), &exams))
	var found bool
	for _, e := range exams {
		if e.ID == "NPAT_MOCK" {
			found = true
			assert.Equal(t, []string{"RC", "Algebra"}, e.ImportantTopics)
		}
	}
	assert.True(t, found)

	_, err = run(t, "exam", "add", "npat", "mock")
	assert.ErrorIs(t, err, store.ErrDuplicateExam)
}

func TestSimulateSave(t *testing.T) {
	setupCLI(t)
	t.Setenv("MOCKSCOPE_GRAPHY_LATENCY", "0s")

	out, err := run(t, "simulate", "STU_SIM", "--save", "--json", "--mentor=false", "--seed", "11", "--mock-id", "DEMO_1")
	require.NoError(t, err)
	var res analytics.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "DEMO_1", res.MockID)
	assert.Len(t, res.Sections, 3)

	out, err = run(t, "students", "show", "STU_SIM", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "DEMO_1")
}

func TestSyncSimulated(t *testing.T) {
	setupCLI(t)
	t.Setenv("MOCKSCOPE_GRAPHY_LATENCY", "0s")

	out, err := run(t, "sync", "--email", "asha.k@example.com", "--json", "--mentor=false", "--seed", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "for STU_ASHAK (60 responses)")

	out, err = run(t, "students", "show", "STU_ASHAK", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "asha.k@example.com")
	assert.Contains(t, out, "MOCK_LIVE_")
}

func TestReset(t *testing.T) {
	setupCLI(t)
	_, err := run(t, "import", "log.json")
	require.NoError(t, err)

	_, err = run(t, "reset", "--yes=false")
	assert.Error(t, err)

	out, err := run(t, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	out, err = run(t, "students", "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "null", strings.TrimSpace(out))
}

func TestAnalyzeEmptyLog(t *testing.T) {
	dir := setupCLI(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), []byte("[]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.csv"),
		[]byte("student_id,mock_id,question_id,section,topic,difficulty,attempted,student_answer,correct_answer,is_correct,time_taken_seconds\n"), 0o644))

	for _, name := range []string{"empty.json", "empty.csv"} {
		out, err := run(t, "analyze", name)
		require.NoError(t, err, name)
		assert.Equal(t, "No responses in "+name+". Nothing to analyze.\n", out)
	}

	out, err := run(t, "analyze", "empty.json", "--json")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestVersion(t *testing.T) {
	setupCLI(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mockscope (devel)\n", out)

	out, err = run(t, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "go:       go")
	assert.Contains(t, out, "platform: ")
}

func TestUpdate_DevBuild(t *testing.T) {
	setupCLI(t)
	out, err := run(t, "update")
	require.NoError(t, err)
	assert.Contains(t, out, "Cannot update a development build.")
}
