package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	mockKey    contextKey = "llm_mock_id"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithMockID tags requests made on behalf of one mock attempt, so the audit
// log can be filtered by mock.
func WithMockID(ctx context.Context, mockID string) context.Context {
	return context.WithValue(ctx, mockKey, mockID)
}

// MockIDFrom returns the mock tag, or "" when the request is not tied to one.
func MockIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(mockKey).(string)
	return v
}
