package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"doccalc/internal/calc"
	"doccalc/internal/params"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		docAttrs []string
		nullKeys []string
	)

	cmd := &cobra.Command{
		Use:   "eval <directive> <target> [args...]",
		Short: "Evaluate a single directive",
		Long: `Evaluate a single directive and print its result.

Arguments of the form key=value are named parameters; any other argument is
positional, numbered from 0 for calc and from 1 for the other directives.
Document attributes come from the configuration and from --doc.`,
		Example: `  doccalc eval calc divide 1 3
  doccalc eval calc_date sum 2024-01-31 1m "d MMM yy"
  doccalc eval calc_date sum date=2024-01-01 value=1y to_zone_id=Asia/Tokyo
  doccalc eval calc_exp - "(12 * 4) / 8" --doc author="Jane Doe" --doc calc_exp_license_type=non_commercial`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(nil)
			if err != nil {
				return err
			}
			name, target := args[0], args[1]

			first := 0
			if c, ok := reg.Lookup(name); ok {
				first = calc.Directive{Name: name, Slots: c.Slots()}.FirstPosition()
			}
			local := parseArgs(args[2:], first)
			for _, k := range nullKeys {
				local[k] = params.Null()
			}

			document := a.cfg.DocumentParams()
			for _, kv := range docAttrs {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid --doc %q: expected key=value", kv)
				}
				document[k] = params.Text(v)
			}

			fmt.Fprintln(cmd.OutOrStdout(), reg.Evaluate(cmd.Context(), name, target, local, document))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&docAttrs, "doc", nil, "Document attribute key=value (repeatable)")
	cmd.Flags().StringArrayVar(&nullKeys, "null", nil, "Parameter key to pass as an explicit null (repeatable)")

	return cmd
}

// parseArgs turns command line arguments into local parameters. Bare
// arguments are numbered from first in the order given.
func parseArgs(args []string, first int) params.Set {
	local := params.Set{}
	pos := first
	for _, arg := range args {
		if k, v, ok := strings.Cut(arg, "="); ok && k != "" && !strings.ContainsAny(k, " \t") {
			local[k] = params.Text(v)
			continue
		}
		local[strconv.Itoa(pos)] = params.Text(arg)
		pos++
	}
	return local
}
