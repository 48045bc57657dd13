// Package mentor turns an analysis into a short written note from an
// exam mentor, using an LLM when one is configured.
package mentor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/llm"
)

// UnavailableNote is returned when the provider fails.
const UnavailableNote = "AI Mentor is currently taking a break. Please try again later."

// Note is the structured mentor's note.
type Note struct {
	RealityCheck string   `json:"reality_check"`
	FixItPlan    []string `json:"fix_it_plan"`
	NextMockRule string   `json:"next_mock_rule"`
}

// Markdown renders the note for display.
func (n Note) Markdown() string {
	var b strings.Builder
	b.WriteString("**The Reality Check**: ")
	b.WriteString(n.RealityCheck)
	b.WriteString("\n\n**The \"Fix It\" Plan**:\n")
	for i, step := range n.FixItPlan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\n**Strategy for Next Mock**: ")
	b.WriteString(n.NextMockRule)
	b.WriteString("\n")
	return b.String()
}

// Service writes mentor notes.
type Service struct {
	provider llm.Provider
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a mentor service. A nil provider makes every note the
// offline note.
func NewService(provider llm.Provider, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, cfg: cfg, logger: logger}
}

// Feedback returns a Markdown mentor's note for r. Provider failures are
// logged and reported through the returned text, not the error; the error
// is reserved for a nil result.
func (s *Service) Feedback(ctx context.Context, r *analytics.Result) (string, error) {
	if r == nil {
		return "", fmt.Errorf("mentor: nil analysis")
	}
	if s.provider == nil {
		s.logger.Warn("no LLM provider configured, returning offline mentor note")
		return OfflineNote(r), nil
	}

	note, err := s.Generate(ctx, r)
	if err != nil {
		s.logger.Error("mentor note generation failed", zap.String("mock_id", r.MockID), zap.Error(err))
		return UnavailableNote, nil
	}
	return note.Markdown(), nil
}

// Generate asks the provider for a structured note.
func (s *Service) Generate(ctx context.Context, r *analytics.Result) (*Note, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("mentor: no LLM provider configured")
	}
	ctx = llm.WithMockID(llm.WithPurpose(ctx, "mentor-feedback"), r.MockID)

	req := llm.Request{
		System: systemPrompt(s.cfg.ExamName),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(Summarize(r))},
		},
		Schema:      NoteSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mentor note: %w", err)
	}

	var out Note
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse mentor note: %w", err)
	}
	return &out, nil
}

// OfflineNote is the placeholder shown when no model is available.
func OfflineNote(r *analytics.Result) string {
	focus := strings.Join(topicsOf(r.Actions(analytics.ActionFocus)), ", ")
	if focus == "" {
		focus = "Review your error logs"
	}
	return fmt.Sprintf("**AI Mentor Offline**: We couldn't generate a live AI analysis right now because no LLM provider is configured.\n\n"+
		"However, based on your score of %d and accuracy of %d%%, we recommend focusing on your identified weak areas: %s.\n",
		r.OverallScore, int(math.Round(r.OverallAccuracy)), focus)
}
