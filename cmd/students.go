package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/report"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Browse students and their mock history",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all students",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		students, err := st.ListStudents(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return report.JSON(out, students)
		}
		if len(students) == 0 {
			fmt.Fprintln(out, "No students found. Run 'mockscope import <file>' first.")
			return nil
		}
		fmt.Fprintf(out, "%-16s  %-24s  %s\n", "ID", "Name", "Email")
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for _, s := range students {
			fmt.Fprintf(out, "%-16s  %-24s  %s\n", s.ID, truncate(s.Name, 24), s.Email)
		}
		return nil
	},
}

var studentsShowCmd = &cobra.Command{
	Use:   "show <student-id>",
	Short: "Show a student's mock history, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		student, err := st.GetStudent(ctx, args[0])
		if err != nil {
			return err
		}
		history, err := st.ListAttempts(ctx, student.ID)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return report.JSON(cmd.OutOrStdout(), map[string]any{
				"student": student,
				"history": history,
			})
		}
		return report.RenderHistory(cmd.OutOrStdout(), *student, history)
	},
}

func init() {
	studentsListCmd.Flags().Bool("json", false, "Print as JSON")
	studentsShowCmd.Flags().Bool("json", false, "Print as JSON")

	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsShowCmd)
}
