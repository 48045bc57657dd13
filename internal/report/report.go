// Package report renders analysis results for the terminal and as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/store"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Render writes the styled analysis of one mock.
func Render(w io.Writer, r *analytics.Result) error {
	var b strings.Builder

	header := lipgloss.JoinVertical(lipgloss.Left,
		Title.Render("Mock "+orDash(r.MockID)),
		fmt.Sprintf("Score %d   Accuracy %.1f%%   Time %s",
			r.OverallScore, r.OverallAccuracy, formatSeconds(r.TotalTime)),
	)
	b.WriteString(Card.Render(header))
	b.WriteString("\n")

	for _, sec := range r.Sections {
		b.WriteString(Heading.Render(fmt.Sprintf("%s  score %d  accuracy %.1f%%  avg %.0fs",
			sec.Section, sec.Score, sec.Accuracy, sec.AvgTime)))
		b.WriteString("\n")
		b.WriteString(topicTable(sec.Topics))
	}

	b.WriteString(Heading.Render("Priority actions"))
	b.WriteString("\n")
	if len(r.PriorityList) == 0 {
		b.WriteString(Dim.Render("  Nothing to act on yet. Attempt more questions."))
		b.WriteString("\n")
	}
	for i, a := range r.PriorityList {
		marker := " "
		if a.HighPriority {
			marker = "!"
		}
		fmt.Fprintf(&b, "%s %d. %s %s  %s\n", marker, i+1,
			actionColors[a.Type].Render(fmt.Sprintf("%-6s", a.Type)), a.Topic, Dim.Render(a.Reason))
	}

	b.WriteString(Heading.Render("Weakest"))
	b.WriteString("  " + strings.Join(r.WeakestTopics, ", ") + "\n")
	b.WriteString(Heading.Render("Strongest"))
	b.WriteString("  " + strings.Join(r.StrongestTopics, ", ") + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func topicTable(topics []analytics.TopicAnalytics) string {
	rows := [][]string{{"Topic", "Attempts", "Accuracy", "Avg time", "Status"}}
	for _, t := range topics {
		name := t.Topic
		if t.IsImportant {
			name += " *"
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", t.Attempts),
			fmt.Sprintf("%.1f%%", t.Accuracy),
			fmt.Sprintf("%.0fs", t.AvgTime),
			string(t.Status),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	for ri, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			style := Cell.Width(widths[i] + 2)
			switch {
			case ri == 0:
				style = style.Foreground(TextDim)
			case i == len(row)-1:
				style = statusColors[topics[ri-1].Status].Width(widths[i] + 2)
			}
			cells[i] = style.Render(c)
		}
		b.WriteString("  ")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHistory writes one line per mock in a student's history.
func RenderHistory(w io.Writer, student store.Student, history []store.MockSummary) error {
	var b strings.Builder
	b.WriteString(Title.Render(fmt.Sprintf("%s (%s)", student.Name, student.ID)))
	b.WriteString("\n")
	if student.Email != "" {
		b.WriteString(Dim.Render(student.Email))
		b.WriteString("\n")
	}
	if len(history) == 0 {
		b.WriteString(Dim.Render("No mocks recorded."))
		b.WriteString("\n")
	}
	for _, m := range history {
		fmt.Fprintf(&b, "  %s  %-20s %-8s score %4d  accuracy %5.1f%%  avg %3.0fs\n",
			m.Date.Format("2006-01-02"), m.MockID, m.ExamType, m.Score, m.Accuracy, m.AvgTime)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatSeconds(secs float64) string {
	total := int(secs + 0.5)
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm%02ds", total/60, total%60)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
