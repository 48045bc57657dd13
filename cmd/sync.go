package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/ingest"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync [student-id]",
	Short: "Fetch a student's latest mocks from Graphy and store them",
	Long: "Sync pulls the student's test-series report from Graphy. Without live " +
		"credentials (graphy.live=false) a simulated mock is generated instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		var studentID string
		switch {
		case len(args) == 1:
			studentID = args[0]
		case email != "":
			studentID = graphy.StudentIDFromEmail(email)
		default:
			return errors.New("a student id or --email is required")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sim := graphy.NewSimulator(graphy.WithLatency(cfg.Graphy.Latency))
		source := graphy.NewClient(cfg.Graphy, sim, graphy.WithLogger(logger))

		records, err := source.FetchStudentMocks(ctx, studentID)
		if err != nil {
			return fmt.Errorf("fetch mocks: %w", err)
		}
		if len(records) == 0 {
			return fmt.Errorf("no responses returned for %s", studentID)
		}

		if err := ensureStudent(ctx, st, studentID, email); err != nil {
			return err
		}

		important, err := store.ImportantTopics(ctx, st, cfg.Exam)
		if err != nil {
			return err
		}

		var m *mentor.Service
		if withMentor, _ := cmd.Flags().GetBool("mentor"); withMentor {
			if m, err = newMentor(ctx, st); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		var batch []*store.Attempt
		for _, b := range ingest.Partition(records) {
			batch = append(batch, store.NewAttempt(studentID, cfg.Exam, cfg.Exam, b.Records, time.Now()))
		}
		stored, err := store.AppendNew(ctx, st, batch)
		if err != nil {
			return err
		}
		if skipped := len(batch) - len(stored); skipped > 0 {
			logger.Debug("skipped stored mocks", zap.String("student_id", studentID), zap.Int("skipped", skipped))
		}
		for _, a := range stored {
			logger.Info("stored synced mock",
				zap.String("student_id", studentID), zap.String("mock_id", a.MockID), zap.Int("records", len(a.Records)))
			fmt.Fprintf(out, "Stored %s for %s (%d responses).\n\n", a.MockID, studentID, len(a.Records))
			if err := analyzeAndPrint(ctx, cmd, out, a.Records, important, m); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("email", "", "Derive the student id from a Graphy account email")
	addAnalysisFlags(syncCmd)
}
