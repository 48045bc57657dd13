package analytics

import (
	"fmt"
	"math"
	"sort"
)

const (
	// MaxFocus, MaxPause and MaxRevise cap the actions emitted per category.
	MaxFocus  = 4
	MaxPause  = 2
	MaxRevise = 1

	// ImportanceBoost is added to the weakness score of important topics.
	ImportanceBoost = 50.0

	// PauseAvgTime is the average time (seconds, exclusive) above which a
	// conceptual gap is considered a time sink.
	PauseAvgTime = 120.0
)

// Picker chooses an index in [0, n). *math/rand/v2.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

// WeaknessScore orders topics for remediation: error rate damped by attempt
// volume, plus a flat boost for important topics.
func WeaknessScore(t TopicAnalytics) float64 {
	s := (100 - t.Accuracy) * math.Log(float64(t.Attempts)+1)
	if t.IsImportant {
		s += ImportanceBoost
	}
	return s
}

// rankByWeakness returns a copy of topics sorted by descending weakness
// score. Equal scores keep their encounter order.
func rankByWeakness(topics []TopicAnalytics) []TopicAnalytics {
	ranked := make([]TopicAnalytics, len(topics))
	copy(ranked, topics)
	sort.SliceStable(ranked, func(i, j int) bool {
		return WeaknessScore(ranked[i]) > WeaknessScore(ranked[j])
	})
	return ranked
}

// Prioritize builds the FOCUS, PAUSE and REVISE actions for a flat topic
// list. Each category is an independent scan, so a topic may appear in more
// than one. picker may be nil, in which case REVISE is omitted.
func Prioritize(topics []TopicAnalytics, picker Picker) []PriorityAction {
	ranked := rankByWeakness(topics)
	actions := make([]PriorityAction, 0, MaxFocus+MaxPause+MaxRevise)

	focus := 0
	for _, t := range ranked {
		if focus == MaxFocus {
			break
		}
		if !needsFocus(t) {
			continue
		}
		actions = append(actions, PriorityAction{
			Type:         ActionFocus,
			Topic:        t.Topic,
			Reason:       focusReason(t),
			HighPriority: t.IsImportant,
		})
		focus++
	}

	pause := 0
	for _, t := range ranked {
		if pause == MaxPause {
			break
		}
		if t.Status != StatusConceptualGap || t.AvgTime <= PauseAvgTime || t.IsImportant {
			continue
		}
		actions = append(actions, PriorityAction{
			Type:   ActionPause,
			Topic:  t.Topic,
			Reason: fmt.Sprintf("Time sink. Avg time %ds with low accuracy.", int(math.Round(t.AvgTime))),
		})
		pause++
	}

	if rev, ok := pickRevision(topics, picker); ok {
		actions = append(actions, PriorityAction{
			Type:   ActionRevise,
			Topic:  rev.Topic,
			Reason: fmt.Sprintf("Keep %s sharp. Accuracy is good, maintain speed.", rev.Topic),
		})
	}

	return actions
}

func needsFocus(t TopicAnalytics) bool {
	if t.Attempts == 0 {
		return false
	}
	return t.IsImportant || t.Status == StatusConceptualGap || t.Status == StatusAccuracyIssue
}

func focusReason(t TopicAnalytics) string {
	if t.IsImportant {
		return "CRITICAL EXAM TOPIC: Low performance in this high-weightage area."
	}
	return fmt.Sprintf("High error rate (%d%%) despite %d attempts.", int(math.Round(t.Accuracy)), t.Attempts)
}

// pickRevision selects one mastered topic uniformly at random.
func pickRevision(topics []TopicAnalytics, picker Picker) (TopicAnalytics, bool) {
	if picker == nil {
		return TopicAnalytics{}, false
	}
	var mastered []TopicAnalytics
	for _, t := range topics {
		if t.Status == StatusMastered {
			mastered = append(mastered, t)
		}
	}
	if len(mastered) == 0 {
		return TopicAnalytics{}, false
	}
	return mastered[picker.IntN(len(mastered))], true
}

// byAccuracy returns up to n topic names ordered by accuracy. Equal
// accuracies keep their encounter order.
func byAccuracy(topics []TopicAnalytics, n int, ascending bool) []string {
	sorted := make([]TopicAnalytics, len(topics))
	copy(sorted, topics)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return sorted[i].Accuracy < sorted[j].Accuracy
		}
		return sorted[i].Accuracy > sorted[j].Accuracy
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	names := make([]string, len(sorted))
	for i, t := range sorted {
		names[i] = t.Topic
	}
	return names
}
