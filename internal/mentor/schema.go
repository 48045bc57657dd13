package mentor

import "github.com/abhisek/mockscope/internal/llm"

// NoteSchema defines the JSON schema for a mentor's note.
var NoteSchema = &llm.Schema{
	Name:        "mentor-note",
	Description: "A short, data-driven mentor's note on one mock test",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reality_check": map[string]any{
				"type":        "string",
				"description": "Brutally honest assessment of the score and accuracy (2-3 sentences)",
			},
			"fix_it_plan": map[string]any{
				"type":        "array",
				"description": "Two specific, actionable pieces of advice tied to the weaknesses and time wasters",
				"items": map[string]any{
					"type": "string",
				},
				"minItems": 2,
				"maxItems": 2,
			},
			"next_mock_rule": map[string]any{
				"type":        "string",
				"description": "One golden rule to follow in the next mock",
			},
		},
		"required":             []any{"reality_check", "fix_it_plan", "next_mock_rule"},
		"additionalProperties": false,
	},
}
