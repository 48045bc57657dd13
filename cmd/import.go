package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mockscope/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all students and attempts with a bulk export",
	Long: "Import reads a multi-student response log (JSON or CSV) and rebuilds every " +
		"student and attempt from it. Exam configs are kept.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ingest.ParseFile(args[0])
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.BulkIngest(cmd.Context(), records)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		logger.Info("bulk import complete",
			zap.String("file", args[0]),
			zap.Int("students", stats.Students),
			zap.Int("attempts", stats.Attempts),
			zap.Int("records", stats.Records),
			zap.Int("skipped", stats.Skipped))

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records: %d students, %d attempts.\n",
			stats.Records, stats.Students, stats.Attempts)
		if stats.Skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d records without a student id.\n", stats.Skipped)
		}
		return nil
	},
}
