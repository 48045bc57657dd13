package graphy

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/abhisek/mockscope/internal/analytics"
)

// Rand is the random source used by the generators. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type sectionTopics struct {
	section string
	topics  []string
}

// DemoBlueprint is the IPMAT-style section and topic layout used for
// generated mocks.
var DemoBlueprint = []sectionTopics{
	{"Quantitative Ability (SA)", []string{"Logarithms", "Functions", "Geometry", "P&C"}},
	{"Quantitative Ability (MCQ)", []string{"Numbers", "Arithmetic", "Algebra", "Modern Math"}},
	{"Verbal Ability", []string{"RC", "Parajumbles", "Grammar", "Vocabulary"}},
}

const questionsPerTopic = 5

type genParams struct {
	studentID  string
	mockID     string
	qidPrefix  string
	attemptP   float64
	minTime    int
	timeSpread int
}

func generate(rng Rand, p genParams) []analytics.Response {
	var rows []analytics.Response
	for _, st := range DemoBlueprint {
		for _, topic := range st.topics {
			for i := range questionsPerTopic {
				attempted := rng.Float64() < p.attemptP
				correct := attempted && rng.Float64() > 0.4
				secs := float64(rng.IntN(p.timeSpread) + p.minTime)

				r := analytics.Response{
					StudentID:     p.studentID,
					MockID:        p.mockID,
					QuestionID:    fmt.Sprintf("%s%s_%s_%d", p.qidPrefix, prefix(st.section, 2), prefix(topic, 3), i),
					Section:       st.section,
					Topic:         topic,
					Difficulty:    pickDifficulty(rng),
					Attempted:     attempted,
					CorrectAnswer: "A",
					IsCorrect:     correct,
				}
				if attempted {
					ans := "B"
					if correct {
						ans = "A"
					}
					r.StudentAnswer = &ans
					r.TimeTakenSeconds = secs
				}
				rows = append(rows, r)
			}
		}
	}
	return rows
}

func pickDifficulty(rng Rand) analytics.Difficulty {
	if rng.Float64() > 0.6 {
		return analytics.DifficultyHard
	}
	if rng.Float64() > 0.3 {
		return analytics.DifficultyMedium
	}
	return analytics.DifficultyEasy
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// GenerateMock builds a demo mock for studentID: 60 questions, roughly 90%
// attempted, 20 to 199 seconds per attempted question.
func GenerateMock(mockID, studentID string, rng Rand) []analytics.Response {
	return generate(rng, genParams{
		studentID:  studentID,
		mockID:     mockID,
		attemptP:   0.9,
		minTime:    20,
		timeSpread: 180,
	})
}

// Simulator stands in for the Graphy backend. It produces one fresh mock per
// call.
type Simulator struct {
	mu      sync.Mutex
	rng     Rand
	latency time.Duration
}

var _ Source = (*Simulator)(nil)

// SimulatorOption customizes a Simulator.
type SimulatorOption func(*Simulator)

// WithLatency delays each fetch to emulate a network round trip.
func WithLatency(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.latency = d }
}

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(r Rand) SimulatorOption {
	return func(s *Simulator) { s.rng = r }
}

// NewSimulator creates a Simulator seeded from the runtime source.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FetchStudentMocks implements Source.
func (s *Simulator) FetchStudentMocks(ctx context.Context, studentID string) ([]analytics.Response, error) {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	mockID := fmt.Sprintf("MOCK_LIVE_%d", s.rng.IntN(1000))
	return generate(s.rng, genParams{
		studentID:  studentID,
		mockID:     mockID,
		qidPrefix:  "Q_",
		attemptP:   0.8,
		minTime:    30,
		timeSpread: 120,
	}), nil
}
