package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"doccalc/internal/calc"
	"doccalc/internal/params"
)

func newDirectivesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "directives",
		Short: "List the supported directives and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(nil)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIRECTIVE\tPARAMETERS")
			for _, d := range reg.Directives() {
				fmt.Fprintf(tw, "%s\t%s\n", d.Name, describeSlots(d))
			}
			return tw.Flush()
		},
	}
}

// describeSlots renders "key@position" for each slot, followed by a note
// when the directive also takes free positional operands.
func describeSlots(d calc.Directive) string {
	parts := make([]string, 0, len(d.Slots)+1)
	for _, s := range d.Slots {
		if s.Position == params.NoPosition {
			parts = append(parts, s.Key)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s@%d", s.Key, s.Position))
	}
	if d.Name == (calc.Arithmetic{}).Name() {
		parts = append(parts, "operands@0..")
	}
	return strings.Join(parts, " ")
}
