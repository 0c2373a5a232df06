// Command pl0c compiles a PL/0-family source file to the textual
// instruction-file format consumed by pl0vm.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pl0vm/ast"
	"pl0vm/code"
	"pl0vm/compiler"
	"pl0vm/diag"
	"pl0vm/lexer"
	"pl0vm/parser"
	"pl0vm/token"
)

var (
	dumpTokens bool
	unparse    bool
)

func main() {
	root := &cobra.Command{
		Use:   "pl0c <source-file>",
		Short: "Compile a PL/0-family source file to an instruction file",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVarP(&dumpTokens, "lex", "l", false, "print the token table and exit without parsing")
	root.Flags().BoolVarP(&unparse, "unparse", "u", false, "print the unparsed source instead of compiling")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	l := lexer.New(path, string(src))

	if dumpTokens {
		printTokens(lexer.New(path, string(src)))
		return nil
	}

	block, err := parser.ParseProgram(l)
	if err != nil {
		diag.Fatal(err)
	}

	if unparse {
		fmt.Print(ast.Unparse(block))
		return nil
	}

	prog, err := compiler.New().Compile(block)
	if err != nil {
		diag.Fatal(err)
	}

	return code.Encode(os.Stdout, prog)
}

func printTokens(l *lexer.Lexer) {
	fmt.Fprintf(os.Stderr, "%-12s %-20s %6s %6s\n", "KIND", "LITERAL", "LINE", "COLUMN")
	for {
		tok := l.NextToken()
		fmt.Fprintf(os.Stderr, "%-12s %-20q %6d %6d\n", tok.Kind, tok.Literal, tok.Pos.Line, tok.Pos.Column)
		if tok.Kind == token.EOF {
			break
		}
	}
}
