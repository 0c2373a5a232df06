package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pl0vm/code"
	"pl0vm/lexer"
	"pl0vm/parser"
)

func compileSource(t *testing.T, src string) code.Program {
	t.Helper()
	l := lexer.New("test.pl0", src)
	block, err := parser.ParseProgram(l)
	require.NoError(t, err)

	prog, err := New().Compile(block)
	require.NoError(t, err)
	return prog
}

func TestCompileAssignAndWrite(t *testing.T) {
	prog := compileSource(t, "var x;\nbegin\n  x := 1 + 2;\n  write x\nend.\n")

	want := code.Program{
		{Op: code.JMP, M: 1},
		{Op: code.INC, M: 3}, // main links
		{Op: code.INC, M: 1}, // var x
		{Op: code.PBP},
		{Op: code.LIT, M: 1},
		{Op: code.LIT, M: 2},
		{Op: code.ADD},
		{Op: code.STO, M: 3},
		{Op: code.PBP},
		{Op: code.LOD, M: 3},
		{Op: code.CHO},
		{Op: code.HLT},
	}
	require.Equal(t, want, prog)
}

func TestCompileProcedureCallResolvesLabel(t *testing.T) {
	prog := compileSource(t, "procedure inc;\n  var z;\n  begin z := 1 end;\nbegin\n  call inc\nend.\n")

	want := code.Program{
		{Op: code.JMP, M: 7},
		{Op: code.INC, M: 1}, // var z
		{Op: code.PBP},
		{Op: code.LIT, M: 1},
		{Op: code.STO, M: 3},
		{Op: code.INC, M: -1}, // discard z before returning
		{Op: code.RTN},
		{Op: code.INC, M: 3}, // main links
		{Op: code.CAL, M: 1},
		{Op: code.HLT},
	}
	require.Equal(t, want, prog)
}

func TestCompileForwardCallBetweenSiblings(t *testing.T) {
	// p calls q, declared after it; q's label is not yet set when p's
	// body is generated, exercising the CAL fixup path.
	src := "procedure p;\n  begin call q end;\nprocedure q;\n  begin skip end;\nbegin\n  call p\nend.\n"
	prog := compileSource(t, src)

	for _, ins := range prog {
		if ins.Op == code.CAL {
			require.NotEqual(t, -1, ins.M, "CAL fixup left unresolved")
		}
	}
}

func TestCompileDuplicateDeclarationFails(t *testing.T) {
	l := lexer.New("test.pl0", "var x;\nvar x;\nbegin skip end.\n")
	block, err := parser.ParseProgram(l)
	require.NoError(t, err)

	_, err = New().Compile(block)
	require.Error(t, err)
}

func TestCompileUndeclaredNameFails(t *testing.T) {
	l := lexer.New("test.pl0", "begin y := 1 end.\n")
	block, err := parser.ParseProgram(l)
	require.NoError(t, err)

	_, err = New().Compile(block)
	require.Error(t, err)
}
