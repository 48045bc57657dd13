package analytics

const (
	// MinAttempts is the attempt count below which a topic cannot be classified.
	MinAttempts = 2

	// MasteryAccuracy is the minimum accuracy (inclusive) for an accurate topic.
	MasteryAccuracy = 85.0

	// GapAccuracy is the accuracy below which a topic is treated as failing.
	GapAccuracy = 50.0

	// SlowFactor scales the ideal time above which an accurate topic is slow.
	SlowFactor = 1.3

	// RushFactor scales the ideal time below which a failing topic is a guess.
	RushFactor = 0.4
)

// IdealTime returns the expected seconds per question for a difficulty index.
func IdealTime(difficultyIndex float64) float64 {
	switch {
	case difficultyIndex <= 1.5:
		return 45
	case difficultyIndex <= 2.5:
		return 90
	default:
		return 150
	}
}

// RuleInput is the derived view a StatusRule inspects.
type RuleInput struct {
	Attempts  int
	Accuracy  float64
	AvgTime   float64
	IdealTime float64
}

// StatusRule maps derived topic figures to a mastery status.
// Classify returns "" when the rule does not apply.
type StatusRule interface {
	Name() string
	Classify(in RuleInput) Status
}

// DefaultRules returns the classification rules in evaluation order.
func DefaultRules() []StatusRule {
	return []StatusRule{
		insufficientDataRule{},
		accurateRule{},
		failingRule{},
		middlingRule{},
	}
}

// RunRules returns the first matching status and the name of the rule that
// produced it. Falls back to Needs Practice if nothing matches.
func RunRules(rules []StatusRule, in RuleInput) (Status, string) {
	for _, r := range rules {
		if st := r.Classify(in); st != "" {
			return st, r.Name()
		}
	}
	return StatusNeedsPractice, ""
}

type insufficientDataRule struct{}

func (insufficientDataRule) Name() string { return "insufficient-data" }

func (insufficientDataRule) Classify(in RuleInput) Status {
	if in.Attempts < MinAttempts {
		return StatusNeedsPractice
	}
	return ""
}

// accurateRule separates slow-but-right from mastered.
type accurateRule struct{}

func (accurateRule) Name() string { return "accurate" }

func (accurateRule) Classify(in RuleInput) Status {
	if in.Accuracy < MasteryAccuracy {
		return ""
	}
	if in.AvgTime > in.IdealTime*SlowFactor {
		return StatusSpeedIssue
	}
	return StatusMastered
}

// failingRule separates fast-and-wrong (guessing) from slow-and-wrong.
type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Classify(in RuleInput) Status {
	if in.Accuracy >= GapAccuracy {
		return ""
	}
	if in.AvgTime < in.IdealTime*RushFactor {
		return StatusGuessing
	}
	return StatusConceptualGap
}

type middlingRule struct{}

func (middlingRule) Name() string { return "middling" }

func (middlingRule) Classify(RuleInput) Status { return StatusAccuracyIssue }

// Classify derives the analytics for one topic accumulator.
func Classify(ts TopicStats, important TopicSet) TopicAnalytics {
	return classifyWith(DefaultRules(), ts, important)
}

func classifyWith(rules []StatusRule, ts TopicStats, important TopicSet) TopicAnalytics {
	var idx float64
	if ts.Total > 0 {
		idx = float64(ts.DifficultySum) / float64(ts.Total)
	}

	in := RuleInput{
		Attempts:  ts.Attempted,
		Accuracy:  percent(ts.Correct, ts.Attempted),
		AvgTime:   mean(ts.Time, ts.Attempted),
		IdealTime: IdealTime(idx),
	}
	status, _ := RunRules(rules, in)

	return TopicAnalytics{
		Topic:           ts.Topic,
		Attempts:        ts.Attempted,
		Correct:         ts.Correct,
		Accuracy:        in.Accuracy,
		AvgTime:         in.AvgTime,
		TotalTime:       ts.Time,
		DifficultyIndex: idx,
		Status:          status,
		IsImportant:     important.Has(ts.Topic),
	}
}
