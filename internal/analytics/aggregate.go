package analytics

// TopicStats accumulates the raw counts for one topic within one section.
// Only the aggregation step mutates it.
type TopicStats struct {
	Topic         string
	Total         int     // every record seen, attempted or not
	Attempted     int     // attempted records
	Correct       int     // correct among attempted
	Time          float64 // seconds summed over attempted records
	DifficultySum int     // difficulty weight summed over every record
}

type sectionStats struct {
	name      string
	topics    []*TopicStats
	byTopic   map[string]*TopicStats
	correct   int
	attempted int
	time      float64
}

type topicKey struct {
	section string
	topic   string
}

// aggregation is the output of the build phase: per-section accumulators in
// first-seen order plus the global totals.
type aggregation struct {
	sections  []*sectionStats
	correct   int
	attempted int
	time      float64
}

func aggregate(records []Response) aggregation {
	var agg aggregation
	sections := make(map[string]*sectionStats)
	topics := make(map[topicKey]*TopicStats)

	for _, r := range records {
		sec, ok := sections[r.Section]
		if !ok {
			sec = &sectionStats{name: r.Section}
			sections[r.Section] = sec
			agg.sections = append(agg.sections, sec)
		}

		key := topicKey{section: r.Section, topic: r.Topic}
		ts, ok := topics[key]
		if !ok {
			ts = &TopicStats{Topic: r.Topic}
			topics[key] = ts
			sec.topics = append(sec.topics, ts)
		}

		ts.Total++
		ts.DifficultySum += r.Difficulty.Weight()

		if !r.Attempted {
			continue
		}
		ts.Attempted++
		ts.Time += r.TimeTakenSeconds
		sec.attempted++
		sec.time += r.TimeTakenSeconds
		if r.IsCorrect {
			ts.Correct++
			sec.correct++
		}
	}

	for _, sec := range agg.sections {
		agg.correct += sec.correct
		agg.attempted += sec.attempted
		agg.time += sec.time
	}
	return agg
}

// score applies the marking scheme: +4 per correct, -1 per wrong attempt.
func score(correct, attempted int) int {
	return correct*4 - (attempted - correct)
}

// percent returns part/whole*100, or 0 when whole is 0.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// mean returns sum/n, or 0 when n is 0.
func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Summary is the headline figure set stored alongside a mock attempt.
type Summary struct {
	Score    int     `json:"score"`
	Accuracy float64 `json:"accuracy"`
	AvgTime  float64 `json:"avg_time"`
}

// Summarize computes score, accuracy and average time over attempted records.
func Summarize(records []Response) Summary {
	var correct, attempted int
	var t float64
	for _, r := range records {
		if !r.Attempted {
			continue
		}
		attempted++
		t += r.TimeTakenSeconds
		if r.IsCorrect {
			correct++
		}
	}
	return Summary{
		Score:    score(correct, attempted),
		Accuracy: percent(correct, attempted),
		AvgTime:  mean(t, attempted),
	}
}
