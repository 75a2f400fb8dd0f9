// Command poppy is a demo driver for the Poppy VM core. It plants one of
// the canned end-to-end programs and runs it to completion, or drives the
// collector under allocation pressure, printing the resulting identifier
// and value-stack state. It carries no VM semantics of its own — every
// behaviour it shows off lives in the internal packages.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sfkleach/poppy/internal/engine"
)

var (
	halfCells int
	verbose   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "poppy",
		Short: "Demo driver for the Poppy bytecode VM",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().IntVar(&halfCells, "cells", 4096, "number of cells in each heap semispace")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newGCStressCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Plant and execute one of the canned demo programs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := findScenario(args[0])
			if !ok {
				return fmt.Errorf("unknown scenario %q (run %q to list them)", args[0], "poppy run --help")
			}

			e := engine.New(halfCells, logrus.StandardLogger())
			s.plant(e)
			if err := e.Run(s.entry); err != nil {
				return fmt.Errorf("running %s: %w", s.name, err)
			}

			reportValueStack(e)
			if _, ok := e.Idents().Lookup("x"); ok {
				reportGlobal(e, "x")
			}
			return nil
		},
	}
	cmd.Long = cmd.Short + ":\n\n" + scenarioList()
	return cmd
}

func scenarioList() string {
	out := ""
	for _, s := range scenarios {
		out += fmt.Sprintf("  %-16s %s\n", s.name, s.description)
	}
	return out
}

func newGCStressCmd() *cobra.Command {
	var rounds int
	cmd := &cobra.Command{
		Use:   "gc-stress",
		Short: "Plant throwaway procedures until a collection is forced, then show a live global survives",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := engine.New(halfCells, logrus.StandardLogger())

			plantSetter(e)
			if err := e.Run("setx"); err != nil {
				return fmt.Errorf("running setx: %w", err)
			}

			collections := 0
			for i := 0; i < rounds; i++ {
				if err := plantThrowaway(e); err != nil {
					if err := e.Collect(); err != nil {
						return fmt.Errorf("collecting: %w", err)
					}
					collections++
					if err := plantThrowaway(e); err != nil {
						return fmt.Errorf("still overflowing after collection: %w", err)
					}
				}
			}

			fmt.Printf("planted %d throwaway procedures, forcing %d collection(s)\n", rounds, collections)
			reportGlobal(e, "x")
			return nil
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 1000, "number of throwaway procedures to plant")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
