package cmd

import (
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [student-id]",
	Short: "Generate and analyze a demo mock",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		studentID := "STU_DEMO"
		if len(args) == 1 {
			studentID = args[0]
		}
		mockID, _ := cmd.Flags().GetString("mock-id")
		save, _ := cmd.Flags().GetBool("save")

		var rng *rand.Rand
		if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
			seed, _ := cmd.Flags().GetUint64("seed")
			rng = rand.New(rand.NewPCG(seed, seed))
		} else {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		records := graphy.GenerateMock(mockID, studentID, rng)

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if save {
			if err := ensureStudent(ctx, st, studentID, ""); err != nil {
				return err
			}
			if err := st.AppendAttempt(ctx, store.NewAttempt(studentID, cfg.Exam, cfg.Exam, records, time.Now())); err != nil {
				return err
			}
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
		return analyzeAndPrint(ctx, cmd, cmd.OutOrStdout(), records, important, m)
	},
}

func init() {
	simulateCmd.Flags().String("mock-id", "IPMAT_MOCK_DEMO", "Mock id for the generated attempt")
	simulateCmd.Flags().Bool("save", false, "Store the generated attempt")
	addAnalysisFlags(simulateCmd)
}
