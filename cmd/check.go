package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the inputs and report dataset/boundary mismatches",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		printCheckReport(cmd.OutOrStdout(), env)
		return nil
	},
}

func printCheckReport(w io.Writer, env *appEnv) {
	fmt.Fprintf(w, "records:     %d\n", env.Dataset.Len())
	fmt.Fprintf(w, "departments: %d (dataset) / %d (boundaries)\n", len(env.Dataset.Codes()), env.Index.Len())
	if len(env.Unmatched) == 0 {
		fmt.Fprintln(w, "unmatched:   none")
		return
	}
	fmt.Fprintf(w, "unmatched:   %s\n", strings.Join(env.Unmatched, ", "))
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
