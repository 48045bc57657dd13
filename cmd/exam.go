package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/report"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Manage exam configs and their important topics",
}

var examListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exam configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		exams, err := st.ListExamConfigs(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return report.JSON(out, exams)
		}
		for _, e := range exams {
			topics := strings.Join(e.ImportantTopics, ", ")
			if topics == "" {
				topics = "(none)"
			}
			fmt.Fprintf(out, "%-12s  %-24s  %s\n", e.ID, truncate(e.Name, 24), topics)
		}
		return nil
	},
}

var examAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an exam config with no important topics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		e, err := st.AddExamConfig(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added exam %s (%s).\n", e.ID, e.Name)
		return nil
	},
}

var examTopicsCmd = &cobra.Command{
	Use:   "topics <exam-id> [topic...]",
	Short: "Replace an exam's important topics",
	Long:  "Topics replaces the important-topic list of an exam. Matching is exact and case-sensitive. Pass no topics to clear the list.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		id := strings.ToUpper(args[0])
		if err := st.UpdateExamConfig(cmd.Context(), id, args[1:]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %d important topics.\n", id, len(args)-1)
		return nil
	},
}

func init() {
	examListCmd.Flags().Bool("json", false, "Print as JSON")

	examCmd.AddCommand(examListCmd)
	examCmd.AddCommand(examAddCmd)
	examCmd.AddCommand(examTopicsCmd)
}
