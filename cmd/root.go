package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/config"
	"github.com/abhisek/mockscope/internal/llm"
	"github.com/abhisek/mockscope/internal/logging"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mockscope",
	Short: "Mock test performance analytics",
	Long: "MockScope analyzes entrance exam mock test response logs: per-topic diagnosis, " +
		"a prioritized study plan and an AI mentor's note.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "Path to SQLite database file (overrides MOCKSCOPE_DB env var)")
	pf.String("config", "", "Config file (default ./mockscope.yaml)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Also write JSON logs to this rotating file")
	pf.String("exam", "", "Exam whose important topics to apply (default IPMAT)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command) error {
	v := viper.New()
	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"db":        "db",
		"exam":      "exam",
		"log.level": "log-level",
		"log.file":  "log-file",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// newMentor builds the mentor service. Without a configured provider it
// still works and returns the offline note.
func newMentor(ctx context.Context, st *store.Store) (*mentor.Service, error) {
	var events store.EventRepo
	if st != nil {
		events = st.EventRepo()
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	return mentor.NewService(provider, cfg.Mentor, logger), nil
}

// ensureStudent creates a default profile for studentID unless one exists.
func ensureStudent(ctx context.Context, st *store.Store, studentID, email string) error {
	_, err := st.GetStudent(ctx, studentID)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	student := store.DefaultStudent(studentID)
	if email != "" {
		student.Email = email
	}
	return st.UpsertStudent(ctx, student)
}
