package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"pl0vm/code"
	"pl0vm/compiler"
	"pl0vm/lexer"
	"pl0vm/parser"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(bytes.NewBuffer(nil))
	return l
}

func runSource(t *testing.T, src, stdin string) string {
	t.Helper()
	l := lexer.New("test.pl0", src)
	block, err := parser.ParseProgram(l)
	require.NoError(t, err)

	prog, err := compiler.New().Compile(block)
	require.NoError(t, err)

	var out bytes.Buffer
	interp := New(prog, strings.NewReader(stdin), &out, silentLogger())
	interp.SetTracing(false)
	require.NoError(t, interp.Run())
	return out.String()
}

func TestRunConstantAssignment(t *testing.T) {
	out := runSource(t, "const n = 7;\nvar x;\nbegin\n  x := n * 2;\n  write x\nend.\n", "")
	require.Equal(t, "14\n", out)
}

func TestRunReadWriteEcho(t *testing.T) {
	out := runSource(t, "var x;\nbegin\n  read x;\n  write x\nend.\n", "42\n")
	require.Equal(t, "42\n", out)
}

func TestRunWhileLoopCountdown(t *testing.T) {
	src := "var x;\nbegin\n  x := 3;\n  while x > 0 do\n  begin\n    write x;\n    x := x - 1\n  end\nend.\n"
	out := runSource(t, src, "")
	require.Equal(t, "3\n2\n1\n", out)
}

func TestRunIfWithoutElse(t *testing.T) {
	src := "var x;\nbegin\n  x := 5;\n  if x > 10 then\n    write 1;\n  write x\nend.\n"
	out := runSource(t, src, "")
	require.Equal(t, "5\n", out)
}

func TestRunRecursiveProcedure(t *testing.T) {
	// Computes 5! by recursive procedure using a pair of globals as
	// argument/result, since the language has no parameters.
	src := `
var n;
var result;
procedure fact;
  var t;
  begin
    if n <= 1 then
      result := 1
    else
    begin
      t := n;
      n := n - 1;
      call fact;
      result := result * t
    end
  end;
begin
  n := 5;
  call fact;
  write result
end.
`
	out := runSource(t, src, "")
	require.Equal(t, "120\n", out)
}

// TestRunNestedChildCallPropagatesCallersStaticLink documents a
// consequence of CAL's literal static-link rule (spec §4.6): CAL
// always propagates the CALLER's own static link unchanged, rather
// than computing one relative to the callee's declared nesting depth.
// That is correct for calls between procedures at the same lexical
// level (siblings, self-recursion — see TestRunRecursiveProcedure),
// but when outer calls its own directly-nested child inner, inner
// inherits outer's static link (pointing at main) instead of one
// pointing at outer's own frame. inner's reference to outer's local
// `a` therefore resolves one level too far out, reading main's `g`
// instead. This is the literal spec behavior, not an unnoticed bug;
// see the Open Questions discussion in DESIGN.md.
func TestRunNestedChildCallPropagatesCallersStaticLink(t *testing.T) {
	src := `
var g;
procedure outer;
  var a;
  procedure inner;
    begin write a end;
  begin
    a := 99;
    call inner
  end;
begin
  g := 1;
  call outer
end.
`
	out := runSource(t, src, "")
	require.Equal(t, "1\n", out)
}

func TestRunDivideByZeroFaults(t *testing.T) {
	l := lexer.New("test.pl0", "var x;\nbegin\n  x := 1 / 0;\n  write x\nend.\n")
	block, err := parser.ParseProgram(l)
	require.NoError(t, err)
	prog, err := compiler.New().Compile(block)
	require.NoError(t, err)

	interp := New(prog, strings.NewReader(""), &bytes.Buffer{}, silentLogger())
	interp.SetTracing(false)
	err = interp.Run()
	require.Error(t, err)

	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, ZeroDivide, fault.Kind)
}

func TestInstructionRoundTrip(t *testing.T) {
	prog := code.Program{
		{Op: code.JMP, M: 1},
		{Op: code.LIT, M: -5},
		{Op: code.HLT},
	}
	var buf bytes.Buffer
	require.NoError(t, code.Encode(&buf, prog))

	decoded, err := code.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, prog, decoded)
}
