package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Inspect stored mock attempts",
}

var mockShowCmd = &cobra.Command{
	Use:   "show <student-id> <mock-id>",
	Short: "Analyze a stored mock attempt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		a, err := st.GetAttempt(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		// The attempt's own exam applies unless --exam overrides it.
		examID := a.ExamID
		if cmd.Flags().Changed("exam") {
			examID = cfg.Exam
		}
		important, err := store.ImportantTopics(ctx, st, examID)
		if err != nil {
			return err
		}

		var m *mentor.Service
		if withMentor, _ := cmd.Flags().GetBool("mentor"); withMentor {
			if m, err = newMentor(ctx, st); err != nil {
				return err
			}
		}
		return analyzeAndPrint(ctx, cmd, cmd.OutOrStdout(), a.Records, important, m)
	},
}

func init() {
	addAnalysisFlags(mockShowCmd)
	mockCmd.AddCommand(mockShowCmd)
}
