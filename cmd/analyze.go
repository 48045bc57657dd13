package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/analytics"
	"github.com/abhisek/mockscope/internal/ingest"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/report"
	"github.com/abhisek/mockscope/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a response log (JSON or CSV) without storing it",
	Long: "Analyze reads a response log and prints one analysis per student mock. " +
		"Important topics come from the exam named by --exam.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		records, err := ingest.ParseFile(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			// Keep stdout parseable in JSON mode.
			w := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				w = cmd.ErrOrStderr()
			}
			fmt.Fprintf(w, "No responses in %s. Nothing to analyze.\n", args[0])
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		important, err := store.ImportantTopics(ctx, st, cfg.Exam)
		if err != nil {
			return fmt.Errorf("load exam config: %w", err)
		}

		var m *mentor.Service
		if withMentor, _ := cmd.Flags().GetBool("mentor"); withMentor {
			if m, err = newMentor(ctx, st); err != nil {
				return err
			}
		}

		batches := ingest.Partition(records)
		logger.Debug("analyzing response log",
			zap.String("file", args[0]), zap.Int("records", len(records)), zap.Int("mocks", len(batches)))

		out := cmd.OutOrStdout()
		asJSON, _ := cmd.Flags().GetBool("json")
		for i, b := range batches {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if len(batches) > 1 && !asJSON {
				fmt.Fprintf(out, "Student %s\n", b.StudentID)
			}
			if err := analyzeAndPrint(ctx, cmd, out, b.Records, important, m); err != nil {
				return fmt.Errorf("mock %s: %w", b.MockID, err)
			}
		}
		return nil
	},
}

// analysisOptions reads the --seed flag shared by the analysis commands.
func analysisOptions(cmd *cobra.Command) []analytics.Option {
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		seed, _ := cmd.Flags().GetUint64("seed")
		return []analytics.Option{analytics.WithSeed(seed)}
	}
	return nil
}

func analyzeAndPrint(ctx context.Context, cmd *cobra.Command, out io.Writer, records []analytics.Response,
	important analytics.TopicSet, m *mentor.Service) error {
	res, err := analytics.Analyze(records, important, analysisOptions(cmd)...)
	if err != nil {
		return err
	}

	var note string
	if m != nil {
		if note, err = m.Feedback(ctx, res); err != nil {
			return err
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if m == nil {
			return report.JSON(out, res)
		}
		return report.JSON(out, struct {
			*analytics.Result
			MentorNote string `json:"mentor_note"`
		}{res, note})
	}

	if err := report.Render(out, res); err != nil {
		return err
	}
	if m != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.Heading.Render("Mentor's Note"))
		fmt.Fprintln(out, note)
	}
	return nil
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the analysis as JSON")
	cmd.Flags().Bool("mentor", false, "Append an AI mentor's note")
	cmd.Flags().Uint64("seed", 0, "Seed for the REVISE pick (random when unset)")
}

func init() {
	addAnalysisFlags(analyzeCmd)
}
