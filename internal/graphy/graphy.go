// Package graphy pulls mock-test response logs from the Graphy reporting API,
// falling back to a local simulator when the API is unreachable or disabled.
package graphy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/analytics"
)

// DefaultBaseURL is the public Graphy API root.
const DefaultBaseURL = "https://api.graphy.com/v1"

var (
	ErrUnauthorized = errors.New("graphy: unauthorized, check API token")
	ErrNotFound     = errors.New("graphy: student data not found")
)

// APIError is a non-2xx response other than 401 and 404.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graphy: API error %d", e.StatusCode)
}

// Source fetches the response log for a student's latest mocks.
type Source interface {
	FetchStudentMocks(ctx context.Context, studentID string) ([]analytics.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	MerchantID string        `mapstructure:"merchant_id"`
	Token      string        `mapstructure:"token"`
	Live       bool          `mapstructure:"live"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Latency is the simulated round trip in demo mode.
	Latency time.Duration `mapstructure:"latency"`
}

// Client talks to the Graphy API in live mode and serves simulated data
// otherwise.
type Client struct {
	cfg      Config
	http     *http.Client
	fallback *Simulator
	logger   *zap.Logger
}

var _ Source = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. The simulator serves every request when
// cfg.Live is false, and any failed request when it is true.
func NewClient(cfg Config, fallback *Simulator, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		fallback: fallback,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchStudentMocks implements Source.
func (c *Client) FetchStudentMocks(ctx context.Context, studentID string) ([]analytics.Response, error) {
	if !c.cfg.Live {
		if c.fallback == nil {
			return nil, errors.New("graphy: live mode disabled and no simulator configured")
		}
		return c.fallback.FetchStudentMocks(ctx, studentID)
	}

	records, err := c.Fetch(ctx, studentID)
	if err == nil {
		return records, nil
	}
	if c.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("live fetch failed, falling back to simulated data",
		zap.String("student_id", studentID), zap.Error(err))
	return c.fallback.FetchStudentMocks(ctx, studentID)
}

// Fetch performs the live request without any fallback.
func (c *Client) Fetch(ctx context.Context, studentID string) ([]analytics.Response, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/reports/test-series/" + url.PathEscape(studentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("graphy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.Token)
	req.Header.Set("x-merchant-id", c.cfg.MerchantID)

	c.logger.Debug("fetching graphy report", zap.String("student_id", studentID))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphy: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("graphy: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("graphy: response is not valid JSON")
	}
	return MapReport(body), nil
}

// MapReport converts a Graphy test-series report into response records.
// Anything other than a top-level array yields no records. Missing fields
// take neutral defaults so a partial report still loads.
func MapReport(body []byte) []analytics.Response {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil
	}
	var records []analytics.Response
	root.ForEach(func(_, item gjson.Result) bool {
		r := analytics.Response{
			StudentID:        orDefault(item.Get("userId").String(), "UNKNOWN"),
			MockID:           orDefault(item.Get("testId").String(), "UNKNOWN"),
			QuestionID:       orDefault(item.Get("questionId").String(), "Q_UNKNOWN"),
			Section:          orDefault(item.Get("sectionName").String(), "General"),
			Topic:            orDefault(item.Get("topic").String(), "Uncategorized"),
			Difficulty:       analytics.Difficulty(orDefault(item.Get("difficulty").String(), string(analytics.DifficultyMedium))),
			Attempted:        item.Get("status").String() == "ATTEMPTED",
			CorrectAnswer:    item.Get("correctAnswer").String(),
			IsCorrect:        item.Get("isCorrect").Bool(),
			TimeTakenSeconds: item.Get("timeTaken").Float(),
		}
		if ans := item.Get("userAnswer"); ans.Exists() && ans.Type != gjson.Null {
			s := ans.String()
			r.StudentAnswer = &s
		}
		if !r.Difficulty.Valid() {
			r.Difficulty = analytics.DifficultyMedium
		}
		records = append(records, r)
		return true
	})
	return records
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// StudentIDFromEmail derives the student id used for Graphy-linked
// accounts: STU_ followed by the upper-cased local part with anything other
// than letters and digits removed.
func StudentIDFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	b.WriteString("STU_")
	for _, r := range strings.ToUpper(local) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
