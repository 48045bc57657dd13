package mentor

// Config holds mentor note generation settings.
type Config struct {
	ExamName    string  `mapstructure:"exam_name"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultConfig returns sensible defaults for mentor notes.
func DefaultConfig() Config {
	return Config{
		ExamName:    "IPMAT (IIM Indore/Rohtak)",
		MaxTokens:   600,
		Temperature: 0.4,
	}
}
