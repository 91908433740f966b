package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
)

// checkPlanCMD validates a saved planner reply the way the research pipeline would.
func checkPlanCMD() *cobra.Command {
	var maxSteps int
	var check = &cobra.Command{
		Use:   "check-plan [file]",
		Short: "Parse and validate a planner reply (reads stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return checkPlan(in, cmd.OutOrStdout(), maxSteps)
		},
	}
	check.Flags().IntVar(&maxSteps, "max-steps", 4, "maximum number of plan steps")
	return check
}

func checkPlan(in io.Reader, out io.Writer, maxSteps int) error {
	b, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	p := core.ParsePlan(string(b))
	if !p.OK {
		return errors.New("reply is not a plan")
	}
	if err := core.ValidatePlan(p.Value, maxSteps); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	for _, step := range p.Value {
		if _, err := fmt.Fprintf(out, "%d. %s %v\n", step.ID, step.Description, step.Dependencies); err != nil {
			return err
		}
	}
	return nil
}
