// Package analytics turns a mock test response log into a performance
// diagnosis: per-topic mastery status, section scores and a ranked
// remediation list. Everything here is a pure function of its inputs.
package analytics

import "math/rand/v2"

// TopN is the length of the weakest and strongest topic lists.
const TopN = 5

type options struct {
	picker Picker
}

// Option configures a single Analyze call.
type Option func(*options)

// WithPicker sets the random source used to choose the REVISE topic.
func WithPicker(p Picker) Option {
	return func(o *options) { o.picker = p }
}

// WithSeed makes REVISE selection reproducible.
func WithSeed(seed uint64) Option {
	return WithPicker(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Analyze derives the full diagnosis for one mock. records must belong to a
// single mock; the mock id is taken from the first record. A nil important
// set means no topic is flagged.
func Analyze(records []Response, important TopicSet, opts ...Option) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.picker == nil {
		o.picker = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	agg := aggregate(records)

	sections := make([]SectionAnalytics, 0, len(agg.sections))
	var all []TopicAnalytics
	for _, sec := range agg.sections {
		topics := make([]TopicAnalytics, 0, len(sec.topics))
		for _, ts := range sec.topics {
			topics = append(topics, Classify(*ts, important))
		}
		all = append(all, topics...)

		sections = append(sections, SectionAnalytics{
			Section:  sec.name,
			Score:    score(sec.correct, sec.attempted),
			Accuracy: percent(sec.correct, sec.attempted),
			AvgTime:  mean(sec.time, sec.attempted),
			Topics:   topics,
		})
	}

	return &Result{
		OverallAccuracy: percent(agg.correct, agg.attempted),
		OverallScore:    score(agg.correct, agg.attempted),
		Sections:        sections,
		PriorityList:    Prioritize(all, o.picker),
		WeakestTopics:   byAccuracy(all, TopN, true),
		StrongestTopics: byAccuracy(all, TopN, false),
		TotalTime:       agg.time,
		MockID:          records[0].MockID,
	}, nil
}
