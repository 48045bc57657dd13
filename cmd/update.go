package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/selfupdate"
)

var updateCmd = &cobra.Command{
	Use:   "update [version]",
	Short: "Update mockscope to the latest release",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		var target string
		if len(args) == 1 {
			target = args[0]
		}
		checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))

		if check, _ := cmd.Flags().GetBool("check"); check {
			res, err := checker.Check(ctx, version)
			if err != nil {
				return err
			}
			if !res.UpdateAvailable {
				fmt.Fprintf(out, "mockscope %s is up to date (latest %s).\n", version, res.Latest.Tag)
				return nil
			}
			fmt.Fprintf(out, "mockscope %s is available: %s\n", res.Latest.Tag, res.Latest.URL)
			return nil
		}

		err := checker.Update(ctx, version, target, func(p selfupdate.Progress) {
			fmt.Fprintln(out, p.Message)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, selfupdate.ErrDevBuild):
			fmt.Fprintln(out, "Cannot update a development build. Install a release build first.")
			return nil
		case errors.Is(err, selfupdate.ErrAlreadyLatest):
			fmt.Fprintln(out, "Already running the latest version.")
			return nil
		case errors.Is(err, os.ErrPermission):
			return fmt.Errorf("%w\n\nTry running: sudo mockscope update", err)
		}
		return err
	},
}

func init() {
	updateCmd.Flags().Bool("check", false, "Only report whether a newer release exists")
}
