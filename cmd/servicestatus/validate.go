package main

import (
	"fmt"

	"github.com/einride/servicestatus-go/program"
	"github.com/einride/servicestatus-go/tree"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PROGRAM",
		Short: "Parse and validate a program without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := program.Load(args[0])
			if err != nil {
				return err
			}
			if err := program.Validate(p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "leaves: %v\n", tree.Leaves(p.Tree))
			fmt.Fprintf(out, "actions: %d\n", len(p.Actions))
			return nil
		},
	}
}
