// Command pl0vm loads a textual instruction file and executes it.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pl0vm/code"
	"pl0vm/diag"
	"pl0vm/vm"
)

var noTrace bool

func main() {
	root := &cobra.Command{
		Use:   "pl0vm <instruction-file>",
		Short: "Run a compiled PL/0-family instruction file",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVarP(&noTrace, "no-trace", "n", false, "disable per-instruction tracing")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	prog, err := code.Decode(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)

	var traceOut io.Writer = os.Stderr
	if noTrace {
		traceOut = io.Discard
	} else {
		disassemble(prog)
	}
	logger.SetOutput(traceOut)

	interp := vm.New(prog, os.Stdin, os.Stdout, logger)
	interp.SetTracing(!noTrace)

	if err := interp.Run(); err != nil {
		diag.Fatal(err)
	}
	return nil
}

func disassemble(prog code.Program) {
	for addr, ins := range prog {
		fmt.Fprintf(os.Stderr, "%4d: %s %d\n", addr, ins.Op, ins.M)
	}
}
