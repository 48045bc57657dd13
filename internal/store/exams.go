package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhisek/mockscope/internal/analytics"
)

// DefaultExamConfigs are seeded into an empty database.
var DefaultExamConfigs = []ExamConfig{
	{
		ID:              "IPMAT",
		Name:            "IPMAT (Indore/Rohtak)",
		ImportantTopics: []string{"Logarithms", "Functions", "Parajumbles", "Geometry"},
	},
	{
		ID:              "CAT",
		Name:            "Common Admission Test",
		ImportantTopics: []string{"Arithmetic", "RC", "DILR Sets"},
	},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExamID derives an exam config id from its display name.
func ExamID(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToUpper(strings.TrimSpace(name)), "_")
}

func (s *Store) seedExamConfigs(ctx context.Context) error {
	for _, cfg := range DefaultExamConfigs {
		topics, err := json.Marshal(cfg.ImportantTopics)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO exam_configs (id, name, important_topics) VALUES (?, ?, ?)`,
			cfg.ID, cfg.Name, string(topics),
		)
		if err != nil {
			return fmt.Errorf("seed %s: %w", cfg.ID, err)
		}
	}
	return nil
}

func (s *Store) ListExamConfigs(ctx context.Context) ([]ExamConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, important_topics FROM exam_configs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query exam configs: %w", err)
	}
	defer rows.Close()

	var out []ExamConfig
	for rows.Next() {
		cfg, err := scanExamConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

func (s *Store) GetExamConfig(ctx context.Context, id string) (*ExamConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, important_topics FROM exam_configs WHERE id = ?`, id)
	cfg, err := scanExamConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exam config %q: %w", id, ErrNotFound)
	}
	return cfg, err
}

func (s *Store) AddExamConfig(ctx context.Context, name string) (*ExamConfig, error) {
	cfg := &ExamConfig{ID: ExamID(name), Name: name, ImportantTopics: []string{}}
	if cfg.ID == "" {
		return nil, fmt.Errorf("exam name is required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO exam_configs (id, name, important_topics) VALUES (?, ?, '[]')`,
		cfg.ID, cfg.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exam config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("exam config %q: %w", cfg.ID, ErrDuplicateExam)
	}
	return cfg, nil
}

func (s *Store) UpdateExamConfig(ctx context.Context, id string, topics []string) error {
	b, err := json.Marshal(nonNil(topics))
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE exam_configs SET important_topics = ? WHERE id = ?`, string(b), id)
	if err != nil {
		return fmt.Errorf("update exam config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exam config %q: %w", id, ErrNotFound)
	}
	return nil
}

func scanExamConfig(sc scanner) (*ExamConfig, error) {
	var cfg ExamConfig
	var topics string
	if err := sc.Scan(&cfg.ID, &cfg.Name, &topics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &cfg.ImportantTopics); err != nil {
		return nil, fmt.Errorf("decode topics for %q: %w", cfg.ID, err)
	}
	return &cfg, nil
}

// ImportantTopics resolves the important-topic set for an exam. A missing
// config is not an error: it yields the empty set.
func ImportantTopics(ctx context.Context, repo Repo, examID string) (analytics.TopicSet, error) {
	cfg, err := repo.GetExamConfig(ctx, examID)
	if errors.Is(err, ErrNotFound) {
		return analytics.TopicSet{}, nil
	}
	if err != nil {
		return nil, err
	}
	return analytics.NewTopicSet(cfg.ImportantTopics...), nil
}
