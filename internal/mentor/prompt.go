package mentor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/mockscope/internal/analytics"
)

// Summary is the lean view of an analysis sent to the model.
type Summary struct {
	Score       int      `json:"score"`
	Accuracy    int      `json:"accuracy"`
	Weaknesses  []string `json:"weaknesses"`
	TimeWasters []string `json:"timeWasters"`
	StrongAreas []string `json:"strongAreas"`
}

// Summarize extracts the fields of r that matter for the note.
func Summarize(r *analytics.Result) Summary {
	strong := r.StrongestTopics
	if len(strong) > 3 {
		strong = strong[:3]
	}
	return Summary{
		Score:       r.OverallScore,
		Accuracy:    int(math.Round(r.OverallAccuracy)),
		Weaknesses:  topicsOf(r.Actions(analytics.ActionFocus)),
		TimeWasters: topicsOf(r.Actions(analytics.ActionPause)),
		StrongAreas: append([]string{}, strong...),
	}
}

func topicsOf(actions []analytics.PriorityAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Topic)
	}
	return out
}

func systemPrompt(examName string) string {
	return fmt.Sprintf("You are an expert %s entrance exam mentor. Your tone is encouraging but strict, academic and professional.", examName)
}

func buildUserMessage(s Summary) string {
	data, _ := json.Marshal(s)

	var b strings.Builder
	b.WriteString("Analyze this student's mock test performance summary JSON:\n")
	b.Write(data)
	b.WriteString(`

Instructions:
Write a "Mentor's Note" (max 200 words in total):
1. reality_check: a brutally honest assessment of the score and accuracy.
2. fix_it_plan: exactly 2 specific, actionable pieces of advice based on the weaknesses and time wasters provided.
3. next_mock_rule: one golden rule to follow next time.

Do NOT use generic advice like "work hard". Be specific to the data.`)
	return b.String()
}
